package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.InvoiceSequence = (*MockInvoiceSequence)(nil)

type MockInvoiceSequence struct {
	mock.Mock
}

func (m *MockInvoiceSequence) Next(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
