// Package symbol builds two-dimensional code and barcode payloads, either as
// native printer commands or as bitmaps for printers that cannot render them.
package symbol

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"escpos-service/internal/raster"
)

// ECLevel is the QR error correction level.
type ECLevel int

const (
	ECLow ECLevel = iota
	ECMedium
	ECQuartile
	ECHigh
)

// ParseECLevel resolves "L", "M", "Q" or "H".
func ParseECLevel(s string) (ECLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "":
		return ECLow, nil
	case "M":
		return ECMedium, nil
	case "Q":
		return ECQuartile, nil
	case "H":
		return ECHigh, nil
	}
	return 0, fmt.Errorf("unknown QR error correction level: %q", s)
}

func (l ECLevel) recovery() qrcode.RecoveryLevel {
	switch l {
	case ECMedium:
		return qrcode.Medium
	case ECQuartile:
		return qrcode.High
	case ECHigh:
		return qrcode.Highest
	default:
		return qrcode.Low
	}
}

// QR models understood by GS ( k.
const (
	QRModel1 = 1
	QRModel2 = 2
	QRMicro  = 3
)

// QROptions configure a QR symbol.
type QROptions struct {
	Size  int // module size in dots, 1-16
	Level ECLevel
	Model int
}

// DefaultQROptions mirrors common printer defaults.
func DefaultQROptions() QROptions {
	return QROptions{Size: 3, Level: ECLow, Model: QRModel2}
}

func (o QROptions) validate() error {
	if o.Size < 1 || o.Size > 16 {
		return fmt.Errorf("QR size must be between 1 and 16, got %d", o.Size)
	}
	if o.Level < ECLow || o.Level > ECHigh {
		return fmt.Errorf("invalid QR error correction level %d", int(o.Level))
	}
	if o.Model < QRModel1 || o.Model > QRMicro {
		return fmt.Errorf("invalid QR model %d", o.Model)
	}
	return nil
}

// twoD frames one GS ( k function: GS ( k pL pH cn fn [m] data.
func twoD(cn, fn byte, m []byte, data []byte) []byte {
	n := len(data) + len(m) + 2
	out := []byte{0x1D, 0x28, 0x6B, byte(n), byte(n >> 8), cn, fn}
	out = append(out, m...)
	return append(out, data...)
}

// maxTwoDData is the largest store payload a 16-bit length field allows.
const maxTwoDData = 0xFFFF - 3

// NativeQR returns the GS ( k sequence that stores and prints data as a QR symbol.
func NativeQR(data string, opts QROptions) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("QR content is empty")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(data) > maxTwoDData {
		return nil, fmt.Errorf("QR content too long: %d bytes", len(data))
	}

	const cn = 0x31
	var out []byte
	out = append(out, twoD(cn, 0x41, nil, []byte{byte(0x30 + opts.Model), 0x00})...) // model
	out = append(out, twoD(cn, 0x43, nil, []byte{byte(opts.Size)})...)              // module size
	out = append(out, twoD(cn, 0x45, nil, []byte{byte(0x30 + int(opts.Level))})...) // error correction
	out = append(out, twoD(cn, 0x50, []byte{0x30}, []byte(data))...)                // store
	out = append(out, twoD(cn, 0x51, []byte{0x30}, nil)...)                         // print
	return out, nil
}

// QRBitmap renders data as a QR bitmap with each module scaled to size dots.
// The quiet zone is kept.
func QRBitmap(data string, opts QROptions) (*raster.Bitmap, error) {
	if data == "" {
		return nil, fmt.Errorf("QR content is empty")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	q, err := qrcode.New(data, opts.Level.recovery())
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}
	modules := q.Bitmap()

	n := len(modules)
	bm := raster.NewBitmap(n*opts.Size, n*opts.Size)
	for y, row := range modules {
		for x, ink := range row {
			if !ink {
				continue
			}
			for dy := 0; dy < opts.Size; dy++ {
				for dx := 0; dx < opts.Size; dx++ {
					bm.Set(x*opts.Size+dx, y*opts.Size+dy, true)
				}
			}
		}
	}
	return bm, nil
}

// PDF417Options configure a PDF417 symbol.
type PDF417Options struct {
	Columns     int // 0 = automatic, otherwise 1-30
	ModuleWidth int // 2-8
	RowHeight   int // 2-8
	ErrorLevel  int // 0-8
}

// DefaultPDF417Options returns printer defaults.
func DefaultPDF417Options() PDF417Options {
	return PDF417Options{ModuleWidth: 3, RowHeight: 3, ErrorLevel: 1}
}

// NativePDF417 returns the GS ( k sequence for a PDF417 symbol.
func NativePDF417(data string, opts PDF417Options) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("PDF417 content is empty")
	}
	if opts.Columns < 0 || opts.Columns > 30 {
		return nil, fmt.Errorf("PDF417 columns must be between 0 and 30, got %d", opts.Columns)
	}
	if opts.ModuleWidth < 2 || opts.ModuleWidth > 8 || opts.RowHeight < 2 || opts.RowHeight > 8 {
		return nil, fmt.Errorf("PDF417 module width and row height must be between 2 and 8")
	}
	if opts.ErrorLevel < 0 || opts.ErrorLevel > 8 {
		return nil, fmt.Errorf("PDF417 error level must be between 0 and 8, got %d", opts.ErrorLevel)
	}
	if len(data) > maxTwoDData {
		return nil, fmt.Errorf("PDF417 content too long: %d bytes", len(data))
	}

	const cn = 0x30
	var out []byte
	out = append(out, twoD(cn, 0x41, nil, []byte{byte(opts.Columns)})...)
	out = append(out, twoD(cn, 0x42, nil, []byte{0})...)
	out = append(out, twoD(cn, 0x43, nil, []byte{byte(opts.ModuleWidth)})...)
	out = append(out, twoD(cn, 0x44, nil, []byte{byte(opts.RowHeight)})...)
	out = append(out, twoD(cn, 0x45, nil, []byte{0x30, byte(0x30 + opts.ErrorLevel)})...)
	out = append(out, twoD(cn, 0x50, []byte{0x30}, []byte(data))...)
	out = append(out, twoD(cn, 0x51, []byte{0x30}, nil)...)
	return out, nil
}
