// Package receipt lays out itemised sales receipts for the composer.
package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"escpos-service/internal/driver/escpos"
)

// Item is one receipt line.
type Item struct {
	Name  string          `json:"name"`
	Qty   int             `json:"qty,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// LineTotal is price times quantity; a zero quantity counts as one.
func (i Item) LineTotal() decimal.Decimal {
	qty := i.Qty
	if qty <= 0 {
		qty = 1
	}
	return i.Price.Mul(decimal.NewFromInt(int64(qty)))
}

// Receipt is a structured receipt document.
type Receipt struct {
	Header   string          `json:"header"`
	Items    []Item          `json:"items"`
	TaxRate  decimal.Decimal `json:"tax_rate,omitempty"`
	Total    decimal.Decimal `json:"total,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Footer   string          `json:"footer"`
}

// Subtotal sums the item lines.
func (r Receipt) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Tax is the subtotal times the tax rate (a percentage), rounded to cents.
func (r Receipt) Tax() decimal.Decimal {
	return r.Subtotal().Mul(r.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
}

// GrandTotal is the explicit total when given, otherwise subtotal plus tax.
func (r Receipt) GrandTotal() decimal.Decimal {
	if !r.Total.IsZero() {
		return r.Total
	}
	return r.Subtotal().Add(r.Tax())
}

// Validate rejects receipts that cannot be printed.
func (r Receipt) Validate() error {
	if len(r.Items) == 0 && r.Header == "" && r.Footer == "" {
		return fmt.Errorf("receipt is empty")
	}
	for i, it := range r.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("item %d has no name", i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("item %q has a negative price", it.Name)
		}
	}
	if r.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative")
	}
	return nil
}

// FormatLine lays out name and amount on one line of width columns.
func FormatLine(name string, amount decimal.Decimal, columns int) string {
	return escpos.PadColumns(name, amount.StringFixed(2), columns)
}

// Render appends the receipt to c using the composer's current column width.
func Render(c *escpos.Composer, r Receipt) error {
	if err := r.Validate(); err != nil {
		return err
	}
	base := c.Style()
	p := c.Profile()
	cols := base.Columns(p.Columns, p.FontBColumns)
	rule := strings.Repeat("=", cols)

	if r.Header != "" {
		s := base
		s.Align, s.Bold, s.Width, s.Height = escpos.AlignCenter, true, 2, 2
		if err := c.SetStyle(s); err != nil {
			return err
		}
		if err := c.Text(escpos.Wrap(r.Header, s.Columns(p.Columns, p.FontBColumns))); err != nil {
			return err
		}
		if err := c.SetStyle(base); err != nil {
			return err
		}
		if err := c.Textln(rule); err != nil {
			return err
		}
	}

	for _, it := range r.Items {
		name := it.Name
		if it.Qty > 1 {
			name = fmt.Sprintf("%dx %s", it.Qty, it.Name)
		}
		if err := c.Textln(FormatLine(name, it.LineTotal(), cols)); err != nil {
			return err
		}
	}

	if len(r.Items) > 0 {
		if err := c.Textln(rule); err != nil {
			return err
		}
		if !r.TaxRate.IsZero() {
			if err := c.Textln(FormatLine("Subtotal", r.Subtotal(), cols)); err != nil {
				return err
			}
			label := fmt.Sprintf("Tax %s%%", r.TaxRate.String())
			if err := c.Textln(FormatLine(label, r.Tax(), cols)); err != nil {
				return err
			}
		}

		s := base
		s.Bold, s.Height = true, 2
		if err := c.SetStyle(s); err != nil {
			return err
		}
		label := "TOTAL"
		if r.Currency != "" {
			label += " " + r.Currency
		}
		if err := c.Textln(FormatLine(label, r.GrandTotal(), cols)); err != nil {
			return err
		}
		if err := c.SetStyle(base); err != nil {
			return err
		}
	}

	if r.Footer != "" {
		s := base
		s.Align = escpos.AlignCenter
		if err := c.SetStyle(s); err != nil {
			return err
		}
		if err := c.Text("\n" + escpos.Wrap(r.Footer, cols)); err != nil {
			return err
		}
		return c.SetStyle(base)
	}
	return nil
}
