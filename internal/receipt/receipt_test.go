package receipt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/profile"
)

func TestTotals(t *testing.T) {
	r := Receipt{
		Items: []Item{
			{Name: "Tea", Qty: 2, Price: decimal.RequireFromString("2.50")},
			{Name: "Cake", Price: decimal.RequireFromString("3.99")},
		},
		TaxRate: decimal.NewFromInt(10),
	}
	if got := r.Subtotal().StringFixed(2); got != "8.99" {
		t.Errorf("Subtotal = %s", got)
	}
	if got := r.Tax().StringFixed(2); got != "0.90" {
		t.Errorf("Tax = %s", got)
	}
	if got := r.GrandTotal().StringFixed(2); got != "9.89" {
		t.Errorf("GrandTotal = %s", got)
	}

	r.Total = decimal.NewFromInt(9)
	if got := r.GrandTotal().StringFixed(2); got != "9.00" {
		t.Errorf("explicit total ignored: %s", got)
	}
}

func TestFormatLine(t *testing.T) {
	got := FormatLine("Tea", decimal.RequireFromString("2.5"), 16)
	if got != "Tea         2.50" {
		t.Errorf("FormatLine = %q", got)
	}
	if len(FormatLine(strings.Repeat("x", 40), decimal.NewFromInt(1), 16)) != 16 {
		t.Errorf("long names must be truncated to the line width")
	}
}

func TestValidate(t *testing.T) {
	if err := (Receipt{}).Validate(); err == nil {
		t.Error("empty receipt accepted")
	}
	bad := Receipt{Items: []Item{{Name: "x", Price: decimal.NewFromInt(-1)}}}
	if err := bad.Validate(); err == nil {
		t.Error("negative price accepted")
	}
}

func TestRenderJSONReceipt(t *testing.T) {
	var r Receipt
	doc := `{"header":"Shop","items":[{"name":"Tea","qty":2,"price":"2.50"}],"currency":"EUR","footer":"Bye"}`
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatal(err)
	}

	c, err := escpos.NewComposer(profile.Lookup(profile.DefaultModel))
	if err != nil {
		t.Fatal(err)
	}
	if err := Render(c, r); err != nil {
		t.Fatal(err)
	}
	out := string(c.Bytes())
	for _, want := range []string{
		"Shop\n",
		strings.Repeat("=", 32) + "\n",
		escpos.PadColumns("2x Tea", "5.00", 32) + "\n",
		escpos.PadColumns("TOTAL EUR", "5.00", 32) + "\n",
		"Bye\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
