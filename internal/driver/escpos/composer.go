// Package escpos composes ESC/POS command streams for a printer profile.
//
// A Composer accumulates bytes for one session. Text goes through the codepage
// encoder, images through the raster converter, and every capability-dependent
// command is checked against the profile before anything is appended. A failed
// operation leaves the buffer exactly as it was.
package escpos

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"escpos-service/internal/magicencode"
	"escpos-service/internal/profile"
	"escpos-service/internal/raster"
	"escpos-service/internal/symbol"
)

// UnsupportedFeatureError reports a command the active profile does not declare.
type UnsupportedFeatureError = profile.UnsupportedFeatureError

// Writer is the transport side of a composer.
type Writer interface {
	Write(ctx context.Context, data []byte) error
}

// noCodepage marks that no ESC t has been sent in this session.
const noCodepage = -1

// Composer builds a command stream. It is not safe for concurrent use.
type Composer struct {
	profile   *profile.Profile
	encoder   *magicencode.Encoder
	converter *raster.Converter
	logger    *zap.Logger

	encOpts magicencode.Options
	buf     bytes.Buffer
	emitted int
	style   Style
	stats   SessionStats
}

// SessionStats counts what went into the buffer since the last Flush.
type SessionStats struct {
	Segments        int `json:"segments"`
	CodepageSelects int `json:"codepage_selects"`
	ImageChunks     int `json:"image_chunks"`
}

// Option configures a Composer.
type Option func(*Composer)

// WithEncoding sets the codepage encoder options.
func WithEncoding(opts magicencode.Options) Option {
	return func(c *Composer) {
		c.encOpts = opts
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComposer creates a composer for p.
func NewComposer(p *profile.Profile, opts ...Option) (*Composer, error) {
	if p == nil {
		return nil, fmt.Errorf("profile is required")
	}
	c := &Composer{
		profile: p,
		logger:  zap.NewNop(),
		emitted: noCodepage,
		style:   DefaultStyle(),
	}
	for _, opt := range opts {
		opt(c)
	}

	enc, err := magicencode.New(p, c.encOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	c.encoder = enc.WithLogger(c.logger)
	c.converter = raster.NewConverter(p, c.logger)
	return c, nil
}

// Profile returns the active profile.
func (c *Composer) Profile() *profile.Profile {
	return c.profile
}

// Style returns the style last applied with SetStyle.
func (c *Composer) Style() Style {
	return c.style
}

// Len is the number of buffered bytes.
func (c *Composer) Len() int {
	return c.buf.Len()
}

// Stats returns the counters for the current session.
func (c *Composer) Stats() SessionStats {
	return c.stats
}

// Bytes returns a copy of the buffer without resetting it.
func (c *Composer) Bytes() []byte {
	return append([]byte(nil), c.buf.Bytes()...)
}

// Flush returns the buffer and starts a new session: the buffer is emptied and
// the codepage cursor goes back to the profile default.
func (c *Composer) Flush() []byte {
	out := c.Bytes()
	c.buf.Reset()
	c.encoder.Reset()
	c.emitted = noCodepage
	c.stats = SessionStats{}
	return out
}

// Send flushes the buffer into w and returns the number of bytes written.
func (c *Composer) Send(ctx context.Context, w Writer) (int, error) {
	data := c.Flush()
	if len(data) == 0 {
		return 0, nil
	}
	if err := w.Write(ctx, data); err != nil {
		return 0, fmt.Errorf("failed to write %d bytes: %w", len(data), err)
	}
	return len(data), nil
}

func (c *Composer) append(parts ...[]byte) {
	for _, p := range parts {
		c.buf.Write(p)
	}
}

// Init resets the printer. ESC @ also resets the printer codepage, so the next
// text re-selects its codepage.
func (c *Composer) Init() {
	c.append(ESC_POS_COMMANDS.INITIALIZE)
	c.encoder.Reset()
	c.emitted = noCodepage
	c.style = DefaultStyle()
}

// Raw appends b without any checks.
func (c *Composer) Raw(b []byte) {
	c.append(b)
}

// Text encodes s and appends it, selecting codepages as needed.
func (c *Composer) Text(s string) error {
	segments, err := c.encoder.Encode(s)
	if err != nil {
		return err
	}

	var out []byte
	emitted := c.emitted
	for _, seg := range segments {
		if seg.CodePage != emitted {
			out = append(out, cmd(ESC_POS_COMMANDS.SELECT_CODEPAGE, byte(seg.CodePage))...)
			emitted = seg.CodePage
			c.stats.CodepageSelects++
		}
		out = append(out, seg.Data...)
	}
	c.append(out)
	c.emitted = emitted
	c.stats.Segments += len(segments)
	return nil
}

// Textln appends s followed by a line feed.
func (c *Composer) Textln(s string) error {
	return c.Text(s + "\n")
}

// BlockText word-wraps s to columns characters per line. Zero columns uses the
// profile width for the current font and size.
func (c *Composer) BlockText(s string, columns int) error {
	if columns <= 0 {
		columns = c.style.Columns(c.profile.Columns, c.profile.FontBColumns)
	}
	return c.Text(Wrap(s, columns))
}

// LineFeed appends LF.
func (c *Composer) LineFeed() {
	c.append(ESC_POS_COMMANDS.LINE_FEED)
}

// Feed prints and feeds n lines.
func (c *Composer) Feed(n int) error {
	if n < 0 {
		return fmt.Errorf("feed lines must not be negative, got %d", n)
	}
	var out []byte
	for n > 0 {
		step := n
		if step > 255 {
			step = 255
		}
		out = append(out, cmd(ESC_POS_COMMANDS.FEED_LINES, byte(step))...)
		n -= step
	}
	c.append(out)
	return nil
}

// Control is a single-byte control code.
type Control string

const (
	ControlLF Control = "LF"
	ControlFF Control = "FF"
	ControlCR Control = "CR"
	ControlHT Control = "HT"
	ControlVT Control = "VT"
)

// Control appends a control character.
func (c *Composer) Control(ctl Control) error {
	switch ctl {
	case ControlLF:
		c.append(ESC_POS_COMMANDS.LINE_FEED)
	case ControlFF:
		c.append(ESC_POS_COMMANDS.FORM_FEED)
	case ControlCR:
		c.append(ESC_POS_COMMANDS.CARRIAGE_RETURN)
	case ControlHT:
		c.append(ESC_POS_COMMANDS.HORIZONTAL_TAB)
	case ControlVT:
		c.append(ESC_POS_COMMANDS.VERTICAL_TAB)
	default:
		return fmt.Errorf("unknown control code: %q", string(ctl))
	}
	return nil
}

// SetStyle applies every attribute of s.
func (c *Composer) SetStyle(s Style) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.Invert {
		if err := c.profile.Require(profile.Invert, "invert"); err != nil {
			return err
		}
	}
	if s.UpsideDown {
		if err := c.profile.Require(profile.UpsideDown, "upside down"); err != nil {
			return err
		}
	}
	c.append(s.commands(c.profile))
	c.style = s
	return nil
}

// ResetStyle returns to DefaultStyle.
func (c *Composer) ResetStyle() error {
	return c.SetStyle(DefaultStyle())
}

// Image appends bm as one or more image chunks.
func (c *Composer) Image(bm *raster.Bitmap, opts raster.Options) error {
	chunks, err := c.converter.Convert(bm, opts)
	if err != nil {
		return err
	}

	var out []byte
	for _, ch := range chunks {
		out = append(out, ch.Bytes()...)
	}
	if len(chunks) > 0 && chunks[0].Mode == raster.ModeColumn {
		// bands change line spacing; put back the style's spacing
		out = append(out, c.style.spacing()...)
	}
	c.append(out)
	c.stats.ImageChunks += len(chunks)
	return nil
}

// CutMode selects a full or partial cut.
type CutMode int

const (
	CutFull CutMode = iota
	CutPartial
)

// ParseCutMode resolves "full" or "partial".
func ParseCutMode(s string) (CutMode, error) {
	switch s {
	case "", "full", "FULL":
		return CutFull, nil
	case "partial", "PART", "part", "PARTIAL":
		return CutPartial, nil
	}
	return 0, fmt.Errorf("unknown cut mode: %q", s)
}

// Cut cuts the paper.
func (c *Composer) Cut(mode CutMode) error {
	switch mode {
	case CutFull:
		if err := c.profile.Require(profile.PaperFullCut, "full cut"); err != nil {
			return err
		}
		c.append(ESC_POS_COMMANDS.CUT_FULL)
	case CutPartial:
		if err := c.profile.Require(profile.PaperPartCut, "partial cut"); err != nil {
			return err
		}
		c.append(ESC_POS_COMMANDS.CUT_PARTIAL)
	default:
		return fmt.Errorf("unknown cut mode %d", int(mode))
	}
	return nil
}

// FeedAndCut feeds lines so the last printed line clears the cutter, then cuts.
func (c *Composer) FeedAndCut(mode CutMode, lines int) error {
	feature := profile.PaperFullCut
	if mode == CutPartial {
		feature = profile.PaperPartCut
	}
	if err := c.profile.Require(feature, "cut"); err != nil {
		return err
	}
	if err := c.Feed(lines); err != nil {
		return err
	}
	return c.Cut(mode)
}

// CashDraw pulses the cash drawer kick connector pin (2 or 5).
func (c *Composer) CashDraw(pin int) error {
	if pin != 2 && pin != 5 {
		return fmt.Errorf("drawer pin must be 2 or 5, got %d", pin)
	}
	if c.profile.Supports(profile.PulseStandard) {
		m := byte(0)
		if pin == 5 {
			m = 1
		}
		c.append(cmd(ESC_POS_COMMANDS.DRAWER_PULSE, m, 0x19, 0x19))
		return nil
	}
	if c.profile.Supports(profile.PulseBel) {
		c.append(ESC_POS_COMMANDS.BEL)
		return nil
	}
	return c.profile.Require(profile.PulseStandard, "cash drawer")
}

// Buzzer sounds the buzzer times times (1-9) for duration (1-9).
func (c *Composer) Buzzer(times, duration int) error {
	if err := c.profile.Require(profile.Buzzer, "buzzer"); err != nil {
		return err
	}
	if times < 1 || times > 9 || duration < 1 || duration > 9 {
		return fmt.Errorf("buzzer times and duration must be 1-9, got %d and %d", times, duration)
	}
	c.append(cmd(ESC_POS_COMMANDS.BUZZER, byte(times), byte(duration)))
	return nil
}

// QRMode picks how a QR code is produced.
type QRMode int

const (
	// QRAuto uses the printer's QR function when declared, an image otherwise.
	QRAuto QRMode = iota
	QRNative
	QRImage
)

// QROptions configure QR output.
type QROptions struct {
	symbol.QROptions
	Mode   QRMode
	Center bool
}

// DefaultQROptions returns automatic QR output with printer defaults.
func DefaultQROptions() QROptions {
	return QROptions{QROptions: symbol.DefaultQROptions()}
}

// QR prints data as a QR code.
func (c *Composer) QR(data string, opts QROptions) error {
	mode := opts.Mode
	if mode == QRAuto {
		mode = QRImage
		if c.profile.Supports(profile.QRCode) {
			mode = QRNative
		}
	}

	if mode == QRImage {
		bm, err := symbol.QRBitmap(data, opts.QROptions)
		if err != nil {
			return err
		}
		return c.Image(bm, raster.Options{Mode: raster.ModeAuto, Density: profile.DensityHigh, Center: opts.Center})
	}

	if err := c.profile.Require(profile.QRCode, "qr"); err != nil {
		return err
	}
	payload, err := symbol.NativeQR(data, opts.QROptions)
	if err != nil {
		return err
	}
	c.appendAligned(payload, opts.Center)
	return nil
}

// appendAligned centres payload with ESC a and restores the style alignment.
func (c *Composer) appendAligned(payload []byte, center bool) {
	if !center {
		c.append(payload)
		return
	}
	c.append(
		cmd(ESC_POS_COMMANDS.ALIGN, byte(AlignCenter)),
		payload,
		cmd(ESC_POS_COMMANDS.ALIGN, byte(c.style.Align)),
	)
}

// PDF417 prints data as a PDF417 symbol.
func (c *Composer) PDF417(data string, opts symbol.PDF417Options) error {
	if err := c.profile.Require(profile.PDF417Code, "pdf417"); err != nil {
		return err
	}
	payload, err := symbol.NativePDF417(data, opts)
	if err != nil {
		return err
	}
	c.append(payload)
	return nil
}

// HRI is the position of the human readable barcode text.
type HRI int

const (
	HRINone HRI = iota
	HRIAbove
	HRIBelow
	HRIBoth
)

// BarcodeOptions configure GS k output.
type BarcodeOptions struct {
	Height   int // dots, 1-255
	Width    int // module width, 2-6
	HRI      HRI
	FontB    bool
	Function symbol.Function // 0 picks B when available
	Center   bool
}

// DefaultBarcodeOptions mirrors the usual printer defaults.
func DefaultBarcodeOptions() BarcodeOptions {
	return BarcodeOptions{Height: 64, Width: 3, HRI: HRIBelow}
}

// Barcode prints a one-dimensional barcode.
func (c *Composer) Barcode(kind symbol.Barcode, data string, opts BarcodeOptions) error {
	if opts.Height < 1 || opts.Height > 255 {
		return fmt.Errorf("barcode height must be 1-255, got %d", opts.Height)
	}
	if opts.Width < 2 || opts.Width > 6 {
		return fmt.Errorf("barcode width must be 2-6, got %d", opts.Width)
	}
	if opts.HRI < HRINone || opts.HRI > HRIBoth {
		return fmt.Errorf("invalid HRI position %d", int(opts.HRI))
	}

	fn, err := c.barcodeFunction(kind, opts.Function)
	if err != nil {
		return err
	}
	code, err := symbol.BarcodeCommand(kind, data, fn)
	if err != nil {
		return err
	}

	var out []byte
	out = append(out, cmd(ESC_POS_COMMANDS.BARCODE_HEIGHT, byte(opts.Height))...)
	out = append(out, cmd(ESC_POS_COMMANDS.BARCODE_WIDTH, byte(opts.Width))...)
	out = append(out, cmd(ESC_POS_COMMANDS.BARCODE_FONT, flag(opts.FontB))...)
	out = append(out, cmd(ESC_POS_COMMANDS.BARCODE_HRI, byte(opts.HRI))...)
	out = append(out, code...)
	c.appendAligned(out, opts.Center)
	return nil
}

func (c *Composer) barcodeFunction(kind symbol.Barcode, want symbol.Function) (symbol.Function, error) {
	if !kind.Supports(symbol.FunctionB) {
		return 0, fmt.Errorf("unknown barcode type: %q", string(kind))
	}
	feature := func(fn symbol.Function) profile.Feature {
		if fn == symbol.FunctionA {
			return profile.BarcodeA
		}
		return profile.BarcodeB
	}

	if want != 0 {
		if err := c.profile.Require(feature(want), "barcode function "+want.String()); err != nil {
			return 0, err
		}
		if !kind.Supports(want) {
			return 0, fmt.Errorf("%s is not available in barcode function %s", kind, want)
		}
		return want, nil
	}

	for _, fn := range []symbol.Function{symbol.FunctionB, symbol.FunctionA} {
		if c.profile.Supports(feature(fn)) && kind.Supports(fn) {
			return fn, nil
		}
	}
	if kind.Supports(symbol.FunctionA) {
		return 0, c.profile.Require(profile.BarcodeA, "barcode "+string(kind))
	}
	return 0, c.profile.Require(profile.BarcodeB, "barcode "+string(kind))
}
