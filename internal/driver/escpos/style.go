package escpos

import (
	"fmt"
	"strings"

	"escpos-service/internal/profile"
)

// Align is the horizontal justification of text and images.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// ParseAlign resolves "left", "center" or "right".
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return 0, fmt.Errorf("unknown alignment: %q", s)
}

// Underline thickness.
const (
	UnderlineNone  = 0
	UnderlineThin  = 1
	UnderlineThick = 2
)

// Font selects the printer's built-in font.
type Font int

const (
	FontA Font = iota
	FontB
)

// Style is the full set of text attributes. The zero value is not valid;
// start from DefaultStyle.
type Style struct {
	Align      Align
	Bold       bool
	Underline  int
	Font       Font
	Width      int // character width multiplier, 1-8
	Height     int // character height multiplier, 1-8
	Invert     bool
	UpsideDown bool
	// LineSpacing in motion units; 0 restores the printer default.
	LineSpacing int
}

// DefaultStyle is the state after ESC @.
func DefaultStyle() Style {
	return Style{Width: 1, Height: 1}
}

func (s Style) validate() error {
	if s.Width < 1 || s.Width > 8 || s.Height < 1 || s.Height > 8 {
		return fmt.Errorf("character size must be 1-8, got %dx%d", s.Width, s.Height)
	}
	if s.Underline < UnderlineNone || s.Underline > UnderlineThick {
		return fmt.Errorf("underline must be 0-2, got %d", s.Underline)
	}
	if s.Align < AlignLeft || s.Align > AlignRight {
		return fmt.Errorf("invalid alignment %d", int(s.Align))
	}
	if s.Font != FontA && s.Font != FontB {
		return fmt.Errorf("invalid font %d", int(s.Font))
	}
	if s.LineSpacing < 0 || s.LineSpacing > 255 {
		return fmt.Errorf("line spacing must be 0-255, got %d", s.LineSpacing)
	}
	return nil
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// commands returns the sequence that puts the printer in style s. Invert and
// upside-down are only sent to printers that declare them.
func (s Style) commands(p *profile.Profile) []byte {
	var out []byte
	out = append(out, cmd(ESC_POS_COMMANDS.ALIGN, byte(s.Align))...)
	out = append(out, cmd(ESC_POS_COMMANDS.BOLD, flag(s.Bold))...)
	out = append(out, cmd(ESC_POS_COMMANDS.UNDERLINE, byte(s.Underline))...)
	out = append(out, cmd(ESC_POS_COMMANDS.FONT, byte(s.Font))...)
	out = append(out, cmd(ESC_POS_COMMANDS.CHAR_SIZE, byte((s.Width-1)<<4|(s.Height-1)))...)
	if p.Supports(profile.Invert) {
		out = append(out, cmd(ESC_POS_COMMANDS.INVERT, flag(s.Invert))...)
	}
	if p.Supports(profile.UpsideDown) {
		out = append(out, cmd(ESC_POS_COMMANDS.UPSIDE_DOWN, flag(s.UpsideDown))...)
	}
	out = append(out, s.spacing()...)
	return out
}

func (s Style) spacing() []byte {
	if s.LineSpacing == 0 {
		return cmd(ESC_POS_COMMANDS.LINE_SPACING_DEFAULT)
	}
	return cmd(ESC_POS_COMMANDS.LINE_SPACING, byte(s.LineSpacing))
}

// Columns is the number of characters per line for a profile width at this style.
func (s Style) Columns(fontA, fontB int) int {
	cols := fontA
	if s.Font == FontB && fontB > 0 {
		cols = fontB
	}
	if s.Width > 1 {
		cols /= s.Width
	}
	if cols < 1 {
		cols = 1
	}
	return cols
}
