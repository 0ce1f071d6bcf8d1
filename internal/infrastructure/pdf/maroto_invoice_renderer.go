// Package pdf renderiza la factura de una venta en PDF con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Nombre + dirección/tel  │  N° Factura + Fecha       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Nombre + dirección/tel                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Producto | Cant | P.Unit | Subtotal              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL                                         QR            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

var _ billing.InvoiceRenderer = (*MarotoInvoiceRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 33, Green: 37, Blue: 41}
	colorGray    = &props.Color{Red: 110, Green: 110, Blue: 110}
)

// MarotoInvoiceRenderer implementa billing.InvoiceRenderer en PDF.
type MarotoInvoiceRenderer struct{}

// NewMarotoInvoiceRenderer construye el renderizador.
func NewMarotoInvoiceRenderer() *MarotoInvoiceRenderer { return &MarotoInvoiceRenderer{} }

func (r *MarotoInvoiceRenderer) Format() string      { return "pdf" }
func (r *MarotoInvoiceRenderer) ContentType() string { return "application/pdf" }

// Render genera el PDF y devuelve sus bytes.
func (r *MarotoInvoiceRenderer) Render(_ context.Context, doc *entity.InvoiceDocument) ([]byte, error) {
	if doc == nil || doc.Sale == nil {
		return nil, fmt.Errorf("pdf: documento sin venta")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Invoice "+doc.Sale.InvoiceNumber, true).
		WithAuthor(doc.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(doc.Sale.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(doc.Sale))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc *entity.InvoiceDocument) core.Row {
	contact := strings.TrimSpace(strings.Join(nonEmptyParts(doc.Issuer.Address, doc.Issuer.Phone), "   |   "))
	return row.New(18).Add(
		col.New(7).Add(
			text.New(doc.Issuer.Name, props.Text{Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 1}),
			text.New(contact, props.Text{Size: 8, Top: 10, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("INVOICE", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorGray, Top: 1}),
			text.New(doc.Sale.InvoiceNumber, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6}),
			text.New("Date: "+doc.Sale.CreatedAt.UTC().Format("2006-01-02"), props.Text{Size: 8, Align: align.Right, Top: 13, Color: colorGray}),
		),
	)
}

func customerRow(doc *entity.InvoiceDocument) core.Row {
	contact := strings.Join(nonEmptyParts(doc.CustomerAddress, doc.CustomerPhone), "   |   ")
	return row.New(14).Add(
		col.New(12).Add(
			text.New("BILL TO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorGray, Top: 1}),
			text.New(doc.CustomerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 5}),
			text.New(contact, props.Text{Size: 8, Top: 10, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Align: a, Top: 2}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Product", 5, align.Left),
		h("Qty", 2, align.Center),
		h("Unit price", 2, align.Right),
		h("Subtotal", 2, align.Right),
	)
}

func itemRows(items []entity.SaleLineItem) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for i, it := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(it.ProductName, props.Text{Size: 8, Top: 1})),
			col.New(2).Add(text.New(strconv.FormatInt(it.Quantity, 10), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(FormatAmount(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1})),
			col.New(2).Add(text.New(FormatAmount(it.Subtotal), props.Text{Size: 8, Align: align.Right, Top: 1})),
		))
	}
	return rows
}

// totalRow total a la izquierda y QR con número y total para verificación rápida.
func totalRow(s *entity.Sale) core.Row {
	qr := fmt.Sprintf("invoice=%s;total=%s", s.InvoiceNumber, s.TotalAmount.StringFixed(2))
	return row.New(30).Add(
		col.New(8).Add(
			text.New("TOTAL", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 3, Right: 2}),
			text.New(FormatAmount(s.TotalAmount), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 9, Right: 2}),
		),
		col.New(4).Add(code.NewQr(qr, props.Rect{Percent: 90, Center: true})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// FormatAmount redondea a 2 decimales e inserta separador de miles.
// Ej: 1234567.5 → "1,234,567.50"
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "." + frac
}

func nonEmptyParts(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
