package markup

import (
	"bytes"
	"strings"
	"testing"

	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/profile"
)

func render(t *testing.T, src string) []byte {
	t.Helper()
	c, err := escpos.NewComposer(profile.Lookup(profile.DefaultModel))
	if err != nil {
		t.Fatal(err)
	}
	if err := Render(c, src); err != nil {
		t.Fatal(err)
	}
	return c.Bytes()
}

func TestRenderHeadingAndEmphasis(t *testing.T) {
	out := render(t, "# Coffee Shop\n\nThanks for **visiting** us\n")

	large := []byte{0x1D, 0x21, 0x11}
	i := bytes.Index(out, large)
	if i < 0 || !bytes.Contains(out[i:], []byte("Coffee Shop\n")) {
		t.Errorf("heading not printed at double size: %q", out)
	}

	boldOn := []byte{0x1B, 0x45, 1}
	j := bytes.LastIndex(out, boldOn)
	k := bytes.Index(out, []byte("visiting"))
	if j < 0 || k < j {
		t.Errorf("emphasis not bold: %q", out)
	}
	if !bytes.HasSuffix(out, []byte{0x1B, 0x32}) {
		t.Errorf("style not restored at the end")
	}
}

func TestRenderListAndRule(t *testing.T) {
	out := string(render(t, "- espresso\n- latte\n\n1. pay\n2. leave\n\n---\n"))
	for _, want := range []string{"- espresso\n", "- latte\n", "1. pay\n", "2. leave\n", strings.Repeat("-", 32) + "\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestRenderWrapsToColumns(t *testing.T) {
	out := string(render(t, strings.Repeat("word ", 20)))
	for _, line := range strings.Split(out, "\n") {
		// strip the leading ESC t 0 of the first line
		line = strings.TrimPrefix(line, "\x1bt\x00")
		if len(line) > 32 {
			t.Errorf("line longer than 32 columns: %q", line)
		}
	}
}
