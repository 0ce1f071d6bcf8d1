package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ billing.SaleTxRunner = (*MockSaleTxRunner)(nil)

// MockSaleTxRunner invoca fn con los repos configurados.
// Return(errAntes, errCommit): errAntes simula un fallo al abrir la tx; errCommit el resultado del commit.
type MockSaleTxRunner struct {
	mock.Mock
	Ledger repository.ProductLedger
	Sales  repository.SaleRepository
	Seq    repository.InvoiceSequence
}

func (m *MockSaleTxRunner) RunSale(ctx context.Context, fn func(
	ledger repository.ProductLedger,
	sales repository.SaleRepository,
	seq repository.InvoiceSequence,
) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	if err := fn(m.Ledger, m.Sales, m.Seq); err != nil {
		return err
	}
	return args.Error(1)
}
