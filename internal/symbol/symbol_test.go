package symbol

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNativeQR(t *testing.T) {
	got, err := NativeQR("hi", QROptions{Size: 4, Level: ECMedium, Model: QRModel2})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x1D, 0x28, 0x6B, 4, 0, 0x31, 0x41, 0x32, 0x00,
		0x1D, 0x28, 0x6B, 3, 0, 0x31, 0x43, 4,
		0x1D, 0x28, 0x6B, 3, 0, 0x31, 0x45, 0x31,
		0x1D, 0x28, 0x6B, 5, 0, 0x31, 0x50, 0x30, 'h', 'i',
		0x1D, 0x28, 0x6B, 3, 0, 0x31, 0x51, 0x30,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NativeQR (-want +got):\n%s", diff)
	}
}

func TestNativeQRValidation(t *testing.T) {
	if _, err := NativeQR("", DefaultQROptions()); err == nil {
		t.Error("empty content accepted")
	}
	if _, err := NativeQR("x", QROptions{Size: 17, Model: QRModel2}); err == nil {
		t.Error("size 17 accepted")
	}
	if _, err := NativeQR("x", QROptions{Size: 3, Model: 9}); err == nil {
		t.Error("model 9 accepted")
	}
}

func TestQRBitmap(t *testing.T) {
	bm, err := QRBitmap("https://example.com", QROptions{Size: 2, Level: ECLow, Model: QRModel2})
	if err != nil {
		t.Fatal(err)
	}
	if bm.Width != bm.Height || bm.Width%2 != 0 {
		t.Fatalf("unexpected dimensions %dx%d", bm.Width, bm.Height)
	}
	// Quiet zone is blank and the finder pattern corner starts after it.
	if bm.At(0, 0) {
		t.Error("quiet zone contains ink")
	}
	if !bm.At(8, 8) || !bm.At(9, 9) {
		t.Error("finder pattern missing at module (4,4)")
	}
}

func TestBarcodeCommand(t *testing.T) {
	got, err := BarcodeCommand(EAN13, "401234567890", FunctionA)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte{0x1D, 0x6B, 2}, []byte("401234567890")...)
	want = append(want, 0x00)
	if !bytes.Equal(want, got) {
		t.Errorf("function A = % X", got)
	}

	got, err = BarcodeCommand(Code128, "AB12", FunctionB)
	if err != nil {
		t.Fatal(err)
	}
	want = append([]byte{0x1D, 0x6B, 73, 6}, []byte("{BAB12")...)
	if !bytes.Equal(want, got) {
		t.Errorf("function B = % X", got)
	}

	if _, err := BarcodeCommand(Code128, "AB", FunctionA); err == nil {
		t.Error("CODE128 must not exist in function A")
	}
}

func TestBarcodeValidate(t *testing.T) {
	tests := []struct {
		kind Barcode
		data string
		ok   bool
	}{
		{EAN13, "4012345678901", true},
		{EAN13, "40123", false},
		{EAN8, "1234567", true},
		{UPCA, "12345678901a", false},
		{ITF, "123", false},
		{ITF, "1234", true},
		{Code39, "ABC-123", true},
		{Code39, "abc", false},
		{Codabar, "A123B", true},
		{Code128, "héllo", false},
	}
	for _, tt := range tests {
		err := tt.kind.Validate(tt.data)
		if (err == nil) != tt.ok {
			t.Errorf("%s %q: err = %v, want ok=%v", tt.kind, tt.data, err, tt.ok)
		}
	}
}

func TestParseBarcode(t *testing.T) {
	for in, want := range map[string]Barcode{"ean13": EAN13, "EAN-8": EAN8, "code128": Code128, "nw7": Codabar, "upca": UPCA} {
		got, err := ParseBarcode(in)
		if err != nil || got != want {
			t.Errorf("ParseBarcode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseBarcode("qr"); err == nil {
		t.Error("expected error")
	}
}

func TestNativePDF417(t *testing.T) {
	got, err := NativePDF417("x", DefaultPDF417Options())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(got, []byte{0x1D, 0x28, 0x6B, 3, 0, 0x30, 0x51, 0x30}) {
		t.Errorf("missing print function: % X", got)
	}
	if _, err := NativePDF417("x", PDF417Options{ModuleWidth: 1, RowHeight: 3}); err == nil {
		t.Error("module width 1 accepted")
	}
}
