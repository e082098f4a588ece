package document

import (
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/imageprep"
	"escpos-service/internal/magicencode"
	"escpos-service/internal/markup"
	"escpos-service/internal/profile"
	"escpos-service/internal/raster"
	"escpos-service/internal/receipt"
	"escpos-service/internal/symbol"
)

// Options are the service-wide defaults a document may override.
type Options struct {
	Encoding      magicencode.Options
	ImageDensity  profile.Density
	ImageDither   imageprep.Dither
	InitBeforeJob bool
	CutAfterJob   bool
	CutFeedLines  int
}

// DefaultOptions initialises the printer and cuts when the model can.
func DefaultOptions() Options {
	return Options{
		ImageDensity:  profile.DensityHigh,
		ImageDither:   imageprep.FloydSteinberg,
		InitBeforeJob: true,
		CutAfterJob:   true,
		CutFeedLines:  3,
	}
}

// Result is a rendered job.
type Result struct {
	Data  []byte              `json:"-"`
	Bytes int                 `json:"bytes"`
	Stats escpos.SessionStats `json:"stats"`
	Model string              `json:"model"`
}

// Render composes doc for p and returns the command stream.
func Render(p *profile.Profile, doc *Document, opts Options, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := doc.EncodingOptions(opts.Encoding)
	if err != nil {
		return nil, err
	}
	c, err := escpos.NewComposer(p, escpos.WithEncoding(enc), escpos.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := Compose(c, doc, opts); err != nil {
		return nil, err
	}

	stats := c.Stats()
	data := c.Flush()
	logger.Debug("Document rendered",
		zap.String("model", p.Name),
		zap.Int("elements", len(doc.Elements)),
		zap.Int("bytes", len(data)),
		zap.Int("segments", stats.Segments),
		zap.Int("image_chunks", stats.ImageChunks),
	)
	return &Result{Data: data, Bytes: len(data), Stats: stats, Model: p.Name}, nil
}

// Compose appends every element of doc to c. A document cut is strict; the
// default cut after a job is skipped for models without a cutter.
func Compose(c *escpos.Composer, doc *Document, opts Options) error {
	sendInit := opts.InitBeforeJob
	if doc.Init != nil {
		sendInit = *doc.Init
	}
	if sendInit {
		c.Init()
	}

	for i := range doc.Elements {
		e := &doc.Elements[i]
		if err := composeElement(c, e, opts); err != nil {
			return &ElementError{Index: i, Type: e.Type, Err: err}
		}
	}

	switch doc.Cut {
	case "none":
		return nil
	case "":
		if !opts.CutAfterJob {
			return nil
		}
		p := c.Profile()
		switch {
		case p.Supports(profile.PaperFullCut):
			return c.FeedAndCut(escpos.CutFull, opts.CutFeedLines)
		case p.Supports(profile.PaperPartCut):
			return c.FeedAndCut(escpos.CutPartial, opts.CutFeedLines)
		}
		return c.Feed(opts.CutFeedLines)
	default:
		mode, err := escpos.ParseCutMode(doc.Cut)
		if err != nil {
			return err
		}
		return c.FeedAndCut(mode, opts.CutFeedLines)
	}
}

func composeElement(c *escpos.Composer, e *Element, opts Options) error {
	switch e.Type {
	case TypeText:
		return c.Text(e.Text)
	case TypeTextln:
		return c.Textln(e.Text)
	case TypeBlock:
		return c.BlockText(e.Text, e.Columns)
	case TypeMarkdown:
		return markup.Render(c, e.Text)
	case TypeControl:
		return c.Control(escpos.Control(strings.ToUpper(e.Text)))
	case TypeStyle:
		s, err := e.Style.toComposer()
		if err != nil {
			return err
		}
		return c.SetStyle(s)
	case TypeResetStyle:
		return c.ResetStyle()
	case TypeImage:
		return composeImage(c, e, opts)
	case TypeQR:
		return composeQR(c, e)
	case TypeBarcode:
		return composeBarcode(c, e)
	case TypePDF417:
		o := symbol.DefaultPDF417Options()
		if e.PDF417 != nil {
			o = overlayPDF417(o, *e.PDF417)
		}
		return c.PDF417(e.Data, o)
	case TypeFeed:
		lines := e.Lines
		if lines == 0 {
			lines = 1
		}
		return c.Feed(lines)
	case TypeCut:
		mode, err := escpos.ParseCutMode(e.Mode)
		if err != nil {
			return err
		}
		if e.Lines > 0 {
			return c.FeedAndCut(mode, e.Lines)
		}
		return c.Cut(mode)
	case TypeCashDraw:
		pin := e.Pin
		if pin == 0 {
			pin = 2
		}
		return c.CashDraw(pin)
	case TypeBuzzer:
		times, duration := e.Times, e.Duration
		if times == 0 {
			times = 1
		}
		if duration == 0 {
			duration = 1
		}
		return c.Buzzer(times, duration)
	case TypeRaw:
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(e.Raw))
		if err != nil {
			return fmt.Errorf("invalid base64 raw data: %w", err)
		}
		c.Raw(data)
		return nil
	case TypeReceipt:
		return receipt.Render(c, *e.Receipt)
	}
	return fmt.Errorf("unknown element type %q", e.Type)
}

func (s *Style) toComposer() (escpos.Style, error) {
	out := escpos.DefaultStyle()
	align, err := escpos.ParseAlign(s.Align)
	if err != nil {
		return out, err
	}
	out.Align = align
	out.Bold = s.Bold
	out.Underline = s.Underline
	out.Invert = s.Invert
	out.UpsideDown = s.UpsideDown
	out.LineSpacing = s.LineSpacing

	switch strings.ToLower(s.Font) {
	case "", "a":
	case "b":
		out.Font = escpos.FontB
	default:
		return out, fmt.Errorf("unknown font %q", s.Font)
	}
	if s.Width != 0 {
		out.Width = s.Width
	}
	if s.Height != 0 {
		out.Height = s.Height
	}
	return out, nil
}

func composeImage(c *escpos.Composer, e *Element, opts Options) error {
	img, _, err := imageprep.DecodeBase64(e.Image)
	if err != nil {
		return err
	}

	prep := imageprep.DefaultOptions()
	prep.Dither = opts.ImageDither
	if e.Dither != "" {
		if prep.Dither, err = imageprep.ParseDither(e.Dither); err != nil {
			return err
		}
	}
	if e.Threshold != nil {
		if *e.Threshold < 0 || *e.Threshold > 255 {
			return fmt.Errorf("threshold must be 0-255, got %d", *e.Threshold)
		}
		prep.Threshold = uint8(*e.Threshold)
	}
	prep.Invert = e.Invert
	prep.MaxWidth = e.MaxWidth

	ro := raster.Options{Density: opts.ImageDensity, Center: e.Center}
	if ro.Mode, err = raster.ParseMode(e.Mode); err != nil {
		return err
	}
	if e.Density != "" {
		if ro.Density, err = profile.ParseDensity(e.Density); err != nil {
			return err
		}
	}
	return c.Image(imageprep.Prepare(img, prep), ro)
}

func composeQR(c *escpos.Composer, e *Element) error {
	o := escpos.DefaultQROptions()
	o.Center = e.Center
	if e.Size != 0 {
		o.Size = e.Size
	}
	if e.Level != "" {
		level, err := symbol.ParseECLevel(e.Level)
		if err != nil {
			return err
		}
		o.Level = level
	}
	switch strings.ToLower(e.Mode) {
	case "", "auto":
		o.Mode = escpos.QRAuto
	case "native":
		o.Mode = escpos.QRNative
	case "image":
		o.Mode = escpos.QRImage
	default:
		return fmt.Errorf("unknown qr mode %q", e.Mode)
	}
	return c.QR(e.Data, o)
}

func composeBarcode(c *escpos.Composer, e *Element) error {
	kind, err := symbol.ParseBarcode(e.Symbology)
	if err != nil {
		return err
	}

	o := escpos.DefaultBarcodeOptions()
	o.Center = e.Center
	o.FontB = e.FontB
	o.Function = symbol.Function(e.Function)
	if e.Height != 0 {
		o.Height = e.Height
	}
	if e.Width != 0 {
		o.Width = e.Width
	}
	switch strings.ToLower(e.HRI) {
	case "", "below":
	case "none":
		o.HRI = escpos.HRINone
	case "above":
		o.HRI = escpos.HRIAbove
	case "both":
		o.HRI = escpos.HRIBoth
	default:
		return fmt.Errorf("unknown hri position %q", e.HRI)
	}
	return c.Barcode(kind, e.Data, o)
}

func overlayPDF417(o symbol.PDF417Options, p PDF417) symbol.PDF417Options {
	o.Columns = p.Columns
	if p.ModuleWidth != 0 {
		o.ModuleWidth = p.ModuleWidth
	}
	if p.RowHeight != 0 {
		o.RowHeight = p.RowHeight
	}
	if p.ErrorLevel != 0 {
		o.ErrorLevel = p.ErrorLevel
	}
	return o
}
