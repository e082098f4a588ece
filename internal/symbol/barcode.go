package symbol

import (
	"fmt"
	"strings"
)

// Barcode is a one-dimensional symbology.
type Barcode string

const (
	UPCA    Barcode = "UPC-A"
	UPCE    Barcode = "UPC-E"
	EAN13   Barcode = "EAN13"
	EAN8    Barcode = "EAN8"
	Code39  Barcode = "CODE39"
	ITF     Barcode = "ITF"
	Codabar Barcode = "CODABAR"
	Code93  Barcode = "CODE93"
	Code128 Barcode = "CODE128"
	GS1128  Barcode = "GS1-128"
)

// Function selects the GS k command form.
type Function int

const (
	// FunctionA is GS k m d1...dk NUL.
	FunctionA Function = iota + 1
	// FunctionB is GS k m n d1...dn.
	FunctionB
)

func (f Function) String() string {
	switch f {
	case FunctionA:
		return "A"
	case FunctionB:
		return "B"
	default:
		return fmt.Sprintf("Function(%d)", int(f))
	}
}

var functionA = map[Barcode]byte{
	UPCA:    0,
	UPCE:    1,
	EAN13:   2,
	EAN8:    3,
	Code39:  4,
	ITF:     5,
	Codabar: 6,
}

var functionB = map[Barcode]byte{
	UPCA:    65,
	UPCE:    66,
	EAN13:   67,
	EAN8:    68,
	Code39:  69,
	ITF:     70,
	Codabar: 71,
	Code93:  72,
	Code128: 73,
	GS1128:  74,
}

// ParseBarcode resolves a symbology name such as "ean13" or "CODE128".
func ParseBarcode(name string) (Barcode, error) {
	b := Barcode(strings.ToUpper(strings.TrimSpace(name)))
	switch b {
	case "UPCA":
		b = UPCA
	case "UPCE":
		b = UPCE
	case "EAN-13":
		b = EAN13
	case "EAN-8":
		b = EAN8
	case "NW7":
		b = Codabar
	case "GS1128":
		b = GS1128
	}
	if _, ok := functionB[b]; !ok {
		return "", fmt.Errorf("unknown barcode type: %q", name)
	}
	return b, nil
}

// Supports reports whether the symbology exists in function fn.
func (b Barcode) Supports(fn Function) bool {
	switch fn {
	case FunctionA:
		_, ok := functionA[b]
		return ok
	case FunctionB:
		_, ok := functionB[b]
		return ok
	}
	return false
}

// Validate checks data against the symbology's length and character rules.
func (b Barcode) Validate(data string) error {
	if data == "" {
		return fmt.Errorf("%s: empty barcode data", b)
	}
	n := len(data)
	switch b {
	case UPCA:
		return digitsIn(b, data, n == 11 || n == 12, "11 or 12 digits")
	case UPCE:
		return digitsIn(b, data, n == 6 || n == 7 || n == 8 || n == 11 || n == 12, "6, 7, 8, 11 or 12 digits")
	case EAN13:
		return digitsIn(b, data, n == 12 || n == 13, "12 or 13 digits")
	case EAN8:
		return digitsIn(b, data, n == 7 || n == 8, "7 or 8 digits")
	case ITF:
		return digitsIn(b, data, n >= 2 && n%2 == 0, "an even number of digits")
	case Code39:
		for _, r := range data {
			if !strings.ContainsRune("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./", r) {
				return fmt.Errorf("%s: invalid character %q", b, r)
			}
		}
	case Codabar:
		for _, r := range data {
			if !strings.ContainsRune("0123456789ABCDabcd$+-./:", r) {
				return fmt.Errorf("%s: invalid character %q", b, r)
			}
		}
	case Code93, Code128, GS1128:
		for _, r := range data {
			if r > 0x7F {
				return fmt.Errorf("%s: non-ASCII character %q", b, r)
			}
		}
		if n > 255 {
			return fmt.Errorf("%s: data longer than 255 bytes", b)
		}
	default:
		return fmt.Errorf("unknown barcode type: %q", string(b))
	}
	return nil
}

func digitsIn(b Barcode, data string, lengthOK bool, want string) error {
	for _, r := range data {
		if r < '0' || r > '9' {
			return fmt.Errorf("%s: data must be numeric", b)
		}
	}
	if !lengthOK {
		return fmt.Errorf("%s: data must be %s, got %d", b, want, len(data))
	}
	return nil
}

// Code128 data needs a code set prefix; callers that pass plain text get set B.
func code128Data(data string) string {
	if len(data) >= 2 && data[0] == '{' && strings.ContainsRune("ABC", rune(data[1])) {
		return data
	}
	return "{B" + data
}

// BarcodeCommand returns the GS k command for data in the given function form.
func BarcodeCommand(b Barcode, data string, fn Function) ([]byte, error) {
	if err := b.Validate(data); err != nil {
		return nil, err
	}
	switch fn {
	case FunctionA:
		m, ok := functionA[b]
		if !ok {
			return nil, fmt.Errorf("%s is not available in function A", b)
		}
		out := []byte{0x1D, 0x6B, m}
		out = append(out, data...)
		return append(out, 0x00), nil
	case FunctionB:
		m, ok := functionB[b]
		if !ok {
			return nil, fmt.Errorf("%s is not available in function B", b)
		}
		if b == Code128 {
			data = code128Data(data)
		}
		if len(data) > 255 {
			return nil, fmt.Errorf("%s: data longer than 255 bytes", b)
		}
		out := []byte{0x1D, 0x6B, m, byte(len(data))}
		return append(out, data...), nil
	}
	return nil, fmt.Errorf("unknown barcode function %d", int(fn))
}
