package escpos

// ESC_POS_COMMANDS holds the fixed command sequences the composer emits.
// Parameterised commands are built by the composer from these prefixes.
var ESC_POS_COMMANDS = struct {
	INITIALIZE []byte

	// Control characters
	LINE_FEED       []byte
	FORM_FEED       []byte
	CARRIAGE_RETURN []byte
	HORIZONTAL_TAB  []byte
	VERTICAL_TAB    []byte

	// Parameterised prefixes
	SELECT_CODEPAGE      []byte // + n
	FEED_LINES           []byte // + n
	LINE_SPACING         []byte // + n
	LINE_SPACING_DEFAULT []byte
	ALIGN                []byte // + 0/1/2
	BOLD                 []byte // + 0/1
	UNDERLINE            []byte // + 0/1/2
	FONT                 []byte // + 0/1
	CHAR_SIZE            []byte // + (w-1)<<4 | (h-1)
	INVERT               []byte // + 0/1
	UPSIDE_DOWN          []byte // + 0/1
	DRAWER_PULSE         []byte // + m t1 t2
	BARCODE_HEIGHT       []byte // + n
	BARCODE_WIDTH        []byte // + n
	BARCODE_FONT         []byte // + n
	BARCODE_HRI          []byte // + n

	// Cutting
	CUT_FULL    []byte
	CUT_PARTIAL []byte

	BUZZER []byte // + times duration
	BEL    []byte
}{
	INITIALIZE: []byte{0x1B, 0x40}, // ESC @

	LINE_FEED:       []byte{0x0A}, // LF
	FORM_FEED:       []byte{0x0C}, // FF
	CARRIAGE_RETURN: []byte{0x0D}, // CR
	HORIZONTAL_TAB:  []byte{0x09}, // HT
	VERTICAL_TAB:    []byte{0x0B}, // VT

	SELECT_CODEPAGE:      []byte{0x1B, 0x74}, // ESC t
	FEED_LINES:           []byte{0x1B, 0x64}, // ESC d
	LINE_SPACING:         []byte{0x1B, 0x33}, // ESC 3
	LINE_SPACING_DEFAULT: []byte{0x1B, 0x32}, // ESC 2
	ALIGN:                []byte{0x1B, 0x61}, // ESC a
	BOLD:                 []byte{0x1B, 0x45}, // ESC E
	UNDERLINE:            []byte{0x1B, 0x2D}, // ESC -
	FONT:                 []byte{0x1B, 0x4D}, // ESC M
	CHAR_SIZE:            []byte{0x1D, 0x21}, // GS !
	INVERT:               []byte{0x1D, 0x42}, // GS B
	UPSIDE_DOWN:          []byte{0x1B, 0x7B}, // ESC {
	DRAWER_PULSE:         []byte{0x1B, 0x70}, // ESC p
	BARCODE_HEIGHT:       []byte{0x1D, 0x68}, // GS h
	BARCODE_WIDTH:        []byte{0x1D, 0x77}, // GS w
	BARCODE_FONT:         []byte{0x1D, 0x66}, // GS f
	BARCODE_HRI:          []byte{0x1D, 0x48}, // GS H

	CUT_FULL:    []byte{0x1D, 0x56, 0x00}, // GS V 0
	CUT_PARTIAL: []byte{0x1D, 0x56, 0x01}, // GS V 1

	BUZZER: []byte{0x1B, 0x28, 0x41, 0x04, 0x00, 0x30}, // ESC ( A
	BEL:    []byte{0x07},
}

func cmd(prefix []byte, args ...byte) []byte {
	out := make([]byte, 0, len(prefix)+len(args))
	out = append(out, prefix...)
	return append(out, args...)
}
