package xmlexport_test

import (
	"context"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/infrastructure/xmlexport"
)

func TestEtreeInvoiceRenderer_Estructura(t *testing.T) {
	doc := &entity.InvoiceDocument{
		Sale: &entity.Sale{
			ID:            "s1",
			InvoiceSeq:    7,
			InvoiceNumber: "INV-000007",
			CustomerID:    "c1",
			TotalAmount:   decimal.RequireFromString("100.005"),
			CreatedAt:     time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
			Items: []entity.SaleLineItem{
				{ProductID: "p1", ProductName: "Cuaderno & lápiz", Quantity: 3, UnitPrice: decimal.RequireFromString("33.335"), Subtotal: decimal.RequireFromString("100.005")},
			},
		},
		CustomerName: "Ana",
		Issuer:       entity.Issuer{Name: "ABC Pvt Ltd"},
	}

	out, err := xmlexport.NewEtreeInvoiceRenderer().Render(context.Background(), doc)
	require.NoError(t, err)

	parsed := etree.NewDocument()
	require.NoError(t, parsed.ReadFromBytes(out))
	root := parsed.Root()
	require.NotNil(t, root)

	assert.Equal(t, "Invoice", root.Tag)
	assert.Equal(t, "INV-000007", root.SelectAttrValue("number", ""))
	assert.Equal(t, "7", root.SelectAttrValue("sequence", ""))
	assert.Equal(t, "2024-03-01T09:30:00Z", root.SelectElement("IssueDate").Text())
	assert.Equal(t, "100.01", root.SelectElement("Total").Text())

	line := root.FindElement("./Lines/Line")
	require.NotNil(t, line)
	assert.Equal(t, "p1", line.SelectAttrValue("productId", ""))
	assert.Equal(t, "Cuaderno & lápiz", line.SelectElement("Description").Text(), "el texto se escapa y se recupera intacto")
	assert.Equal(t, "3", line.SelectElement("Quantity").Text())

	assert.Nil(t, root.FindElement("./Issuer/Address"), "los campos vacíos se omiten")
	assert.Equal(t, "c1", root.SelectElement("Customer").SelectAttrValue("id", ""))
}
