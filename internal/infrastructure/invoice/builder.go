package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/invoice.html
var templateFS embed.FS

const dateLayout = "2006-01-02"

// Builder produces the HTML document of an invoice
type Builder struct {
	marketplace string
	tag         language.Tag
	printer     *message.Printer
	tmpl        *template.Template
}

// NewBuilder parses the invoice template for the given BCP 47 locale.
// An empty locale falls back to English.
func NewBuilder(marketplace, locale string) (*Builder, error) {
	tag := language.English
	if strings.TrimSpace(locale) != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid invoice locale %q: %w", locale, err)
		}
		tag = parsed
	}
	if marketplace == "" {
		marketplace = "Marketplace"
	}
	tmpl, err := template.ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	return &Builder{
		marketplace: marketplace,
		tag:         tag,
		printer:     message.NewPrinter(tag),
		tmpl:        tmpl,
	}, nil
}

type invoiceLine struct {
	Name      string
	Quantity  int64
	UnitPrice string
	VAT       string
	Total     string
}

type invoiceView struct {
	Lang        string
	Marketplace string
	Vendor      *vendor.VendorProfile
	Order       *order.Order
	Status      string
	IssuedAt    string
	Currency    string
	Lines       []invoiceLine
	Subtotal    string
	VAT         string
	Shipping    string
	Total       string
}

// Build renders the invoice HTML. Prices are shown to the customer with
// commission included, VAT and shipping listed separately.
func (b *Builder) Build(o *order.Order, v *vendor.VendorProfile) (string, error) {
	if o == nil || v == nil {
		return "", fmt.Errorf("order and vendor are required")
	}
	if len(o.Items) == 0 {
		return "", fmt.Errorf("order %s has no items", o.OrderNumber)
	}

	issued := o.CreatedAt
	if o.PaidAt != nil {
		issued = *o.PaidAt
	}

	view := invoiceView{
		Lang:        b.tag.String(),
		Marketplace: b.marketplace,
		Vendor:      v,
		Order:       o,
		Status:      cases.Title(b.tag).String(strings.ReplaceAll(o.Status.String(), "_", " ")),
		IssuedAt:    issued.UTC().Format(dateLayout),
		Currency:    o.Currency.String(),
		Lines:       make([]invoiceLine, 0, len(o.Items)),
		Subtotal:    b.FormatAmount(o.Subtotal.Add(o.Commission)),
		VAT:         b.FormatAmount(o.VAT),
		Shipping:    b.FormatAmount(o.Shipping),
		Total:       b.FormatAmount(o.Total),
	}
	for _, item := range o.Items {
		view.Lines = append(view.Lines, invoiceLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: b.FormatAmount(item.UnitBasePrice.Add(item.UnitCommission).Round(2)),
			VAT:       b.FormatAmount(item.LineVAT),
			Total:     b.FormatAmount(item.LineTotal),
		})
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute invoice template: %w", err)
	}
	return buf.String(), nil
}

// FormatAmount formats a money amount with two decimals using the locale's
// grouping and decimal separators.
func (b *Builder) FormatAmount(d decimal.Decimal) string {
	return b.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}
