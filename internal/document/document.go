// Package document decodes JSON print jobs and replays them onto a Composer.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"escpos-service/internal/codepage"
	"escpos-service/internal/magicencode"
	"escpos-service/internal/receipt"
)

// Element types
const (
	TypeText       = "text"
	TypeTextln     = "textln"
	TypeBlock      = "block"
	TypeStyle      = "style"
	TypeResetStyle = "reset_style"
	TypeImage      = "image"
	TypeQR         = "qr"
	TypeBarcode    = "barcode"
	TypePDF417     = "pdf417"
	TypeFeed       = "feed"
	TypeControl    = "control"
	TypeCut        = "cut"
	TypeCashDraw   = "cashdraw"
	TypeBuzzer     = "buzzer"
	TypeRaw        = "raw"
	TypeMarkdown   = "markdown"
	TypeReceipt    = "receipt"
)

// Types lists every element type a document may contain
var Types = []string{
	TypeText, TypeTextln, TypeBlock, TypeStyle, TypeResetStyle, TypeImage, TypeQR,
	TypeBarcode, TypePDF417, TypeFeed, TypeControl, TypeCut, TypeCashDraw, TypeBuzzer,
	TypeRaw, TypeMarkdown, TypeReceipt,
}

// Document is one print job
type Document struct {
	// Model overrides the printer's profile for this job
	Model    string    `json:"model,omitempty"`
	Encoding *Encoding `json:"encoding,omitempty"`
	// Init sends ESC @ first; nil uses the service default
	Init *bool `json:"init,omitempty"`
	// Cut is "full" or "partial" after the last element; "" uses the service default, "none" disables
	Cut      string    `json:"cut,omitempty"`
	Elements []Element `json:"elements"`
}

// Encoding selects codepage behaviour for the job's text
type Encoding struct {
	Policy      string `json:"policy,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	// Codepage pins every character to one codepage (name or ESC t number)
	Codepage string `json:"codepage,omitempty"`
	// Initial is the codepage the encoder starts in
	Initial string `json:"initial,omitempty"`
}

// Style mirrors escpos.Style with JSON-friendly names
type Style struct {
	Align       string `json:"align,omitempty"`
	Bold        bool   `json:"bold,omitempty"`
	Underline   int    `json:"underline,omitempty"`
	Font        string `json:"font,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Invert      bool   `json:"invert,omitempty"`
	UpsideDown  bool   `json:"upside_down,omitempty"`
	LineSpacing int    `json:"line_spacing,omitempty"`
}

// PDF417 options
type PDF417 struct {
	Columns     int `json:"columns,omitempty"`
	ModuleWidth int `json:"module_width,omitempty"`
	RowHeight   int `json:"row_height,omitempty"`
	ErrorLevel  int `json:"error_level,omitempty"`
}

// Element is one instruction. Which fields apply depends on Type.
type Element struct {
	Type string `json:"type"`

	// text, textln, block, markdown, control
	Text    string `json:"text,omitempty"`
	Columns int    `json:"columns,omitempty"`

	// style
	Style *Style `json:"style,omitempty"`

	// image (base64, optional data URL prefix)
	Image     string `json:"image,omitempty"`
	Mode      string `json:"mode,omitempty"` // image mode, QR mode or cut mode
	Density   string `json:"density,omitempty"`
	Dither    string `json:"dither,omitempty"`
	Threshold *int   `json:"threshold,omitempty"`
	Invert    bool   `json:"invert,omitempty"`
	MaxWidth  int    `json:"max_width,omitempty"`
	Center    bool   `json:"center,omitempty"`

	// qr, barcode, pdf417
	Data      string  `json:"data,omitempty"`
	Size      int     `json:"size,omitempty"`
	Level     string  `json:"level,omitempty"`
	Symbology string  `json:"symbology,omitempty"`
	Height    int     `json:"height,omitempty"`
	Width     int     `json:"width,omitempty"`
	HRI       string  `json:"hri,omitempty"`
	FontB     bool    `json:"font_b,omitempty"`
	Function  int     `json:"function,omitempty"`
	PDF417    *PDF417 `json:"pdf417,omitempty"`

	// feed, cut
	Lines int `json:"lines,omitempty"`

	// cashdraw
	Pin int `json:"pin,omitempty"`

	// buzzer
	Times    int `json:"times,omitempty"`
	Duration int `json:"duration,omitempty"`

	// raw (base64)
	Raw string `json:"raw,omitempty"`

	// receipt
	Receipt *receipt.Receipt `json:"receipt,omitempty"`
}

// Parse decodes and validates a JSON document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid job document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks structure only; printability is decided while composing.
func (d *Document) Validate() error {
	if len(d.Elements) == 0 {
		return fmt.Errorf("job document has no elements")
	}
	switch d.Cut {
	case "", "none", "full", "partial":
	default:
		return fmt.Errorf("invalid cut %q", d.Cut)
	}

	for i, e := range d.Elements {
		if err := e.validate(); err != nil {
			return &ElementError{Index: i, Type: e.Type, Err: err}
		}
	}
	return nil
}

func (e *Element) validate() error {
	switch e.Type {
	case TypeText, TypeTextln, TypeBlock, TypeMarkdown:
		if e.Type != TypeTextln && e.Text == "" {
			return fmt.Errorf("text is required")
		}
	case TypeStyle:
		if e.Style == nil {
			return fmt.Errorf("style is required")
		}
	case TypeImage:
		if e.Image == "" {
			return fmt.Errorf("image is required")
		}
	case TypeQR, TypePDF417:
		if e.Data == "" {
			return fmt.Errorf("data is required")
		}
	case TypeBarcode:
		if e.Data == "" || e.Symbology == "" {
			return fmt.Errorf("symbology and data are required")
		}
	case TypeControl:
		if e.Text == "" {
			return fmt.Errorf("control code is required in text")
		}
	case TypeRaw:
		if e.Raw == "" {
			return fmt.Errorf("raw is required")
		}
	case TypeReceipt:
		if e.Receipt == nil {
			return fmt.Errorf("receipt is required")
		}
	case TypeResetStyle, TypeFeed, TypeCut, TypeCashDraw, TypeBuzzer:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown element type %q", e.Type)
	}
	return nil
}

// ElementError reports which element failed. The cause stays reachable
// through errors.As.
type ElementError struct {
	Index int
	Type  string
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// resolveCodepage accepts a table name ("CP858") or an ESC t number ("19")
func resolveCodepage(s string) (int, error) {
	if id, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if _, ok := codepage.Lookup(id); ok {
			return id, nil
		}
		return 0, fmt.Errorf("unknown codepage %d", id)
	}
	cp, ok := codepage.ByName(s)
	if !ok {
		return 0, fmt.Errorf("unknown codepage %q", s)
	}
	return cp.ID, nil
}

// EncodingOptions layers the document's encoding settings over base
func (d *Document) EncodingOptions(base magicencode.Options) (magicencode.Options, error) {
	opts := base
	if d.Encoding == nil {
		return opts, nil
	}

	if d.Encoding.Policy != "" {
		policy, err := magicencode.ParsePolicy(d.Encoding.Policy)
		if err != nil {
			return opts, err
		}
		opts.Fallback = policy
	}
	if p := d.Encoding.Placeholder; p != "" {
		if len(p) != 1 || p[0] >= 0x80 {
			return opts, fmt.Errorf("placeholder must be a single ASCII character, got %q", p)
		}
		opts.Placeholder = p[0]
	}
	if d.Encoding.Codepage != "" {
		id, err := resolveCodepage(d.Encoding.Codepage)
		if err != nil {
			return opts, err
		}
		opts.Pinned = &id
	}
	if d.Encoding.Initial != "" {
		id, err := resolveCodepage(d.Encoding.Initial)
		if err != nil {
			return opts, err
		}
		opts.Initial = &id
	}
	return opts, nil
}
