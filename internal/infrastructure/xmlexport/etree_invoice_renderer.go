// Package xmlexport renderiza la factura de una venta como documento XML con etree.
package xmlexport

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

var _ billing.InvoiceRenderer = (*EtreeInvoiceRenderer)(nil)

// Namespace del documento de factura.
const NsInvoice = "urn:ventas-api:invoice:v1"

// EtreeInvoiceRenderer implementa billing.InvoiceRenderer en XML.
type EtreeInvoiceRenderer struct {
	indent int
}

// NewEtreeInvoiceRenderer construye el renderizador con sangría de 2 espacios.
func NewEtreeInvoiceRenderer() *EtreeInvoiceRenderer { return &EtreeInvoiceRenderer{indent: 2} }

func (r *EtreeInvoiceRenderer) Format() string      { return "xml" }
func (r *EtreeInvoiceRenderer) ContentType() string { return "application/xml" }

// Render construye:
//
//	<Invoice xmlns="..." number="INV-000001">
//	  <IssueDate/> <Issuer/> <Customer/> <Lines><Line/>...</Lines> <Total/>
//	</Invoice>
//
// Los importes se escriben con 2 decimales; el total es la suma exacta redondeada al final.
func (r *EtreeInvoiceRenderer) Render(_ context.Context, doc *entity.InvoiceDocument) ([]byte, error) {
	if doc == nil || doc.Sale == nil {
		return nil, fmt.Errorf("xmlexport: documento sin venta")
	}
	s := doc.Sale

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := x.CreateElement("Invoice")
	root.CreateAttr("xmlns", NsInvoice)
	root.CreateAttr("number", s.InvoiceNumber)
	root.CreateAttr("sequence", strconv.FormatInt(s.InvoiceSeq, 10))

	root.CreateElement("ID").SetText(s.ID)
	root.CreateElement("IssueDate").SetText(s.CreatedAt.UTC().Format(time.RFC3339))
	root.CreateElement("BranchID").SetText(s.BranchID)

	issuer := root.CreateElement("Issuer")
	issuer.CreateElement("Name").SetText(doc.Issuer.Name)
	optional(issuer, "Address", doc.Issuer.Address)
	optional(issuer, "Phone", doc.Issuer.Phone)

	customer := root.CreateElement("Customer")
	customer.CreateAttr("id", s.CustomerID)
	customer.CreateElement("Name").SetText(doc.CustomerName)
	optional(customer, "Address", doc.CustomerAddress)
	optional(customer, "Phone", doc.CustomerPhone)

	lines := root.CreateElement("Lines")
	lines.CreateAttr("count", strconv.Itoa(len(s.Items)))
	for i, it := range s.Items {
		l := lines.CreateElement("Line")
		l.CreateAttr("position", strconv.Itoa(i+1))
		l.CreateAttr("productId", it.ProductID)
		l.CreateElement("Description").SetText(it.ProductName)
		l.CreateElement("Quantity").SetText(strconv.FormatInt(it.Quantity, 10))
		l.CreateElement("UnitPrice").SetText(it.UnitPrice.StringFixed(2))
		l.CreateElement("Subtotal").SetText(it.Subtotal.StringFixed(2))
	}

	root.CreateElement("Total").SetText(s.TotalAmount.StringFixed(2))

	x.Indent(r.indent)
	out, err := x.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("xmlexport: serializar: %w", err)
	}
	return out, nil
}

func optional(parent *etree.Element, tag, value string) {
	if value != "" {
		parent.CreateElement(tag).SetText(value)
	}
}
