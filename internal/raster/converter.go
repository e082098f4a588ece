// Package raster packs monochrome bitmaps into ESC/POS image commands, split
// into chunks that fit the printer's image buffer.
package raster

import (
	"fmt"

	"go.uber.org/zap"

	"escpos-service/internal/profile"
)

// maxRows is the largest row count a 16-bit header field can carry.
const maxRows = 0xFFFF

// Options select how a bitmap is printed.
type Options struct {
	Mode    Mode
	Density profile.Density
	Center  bool
}

// DefaultOptions prints at high density in the best mode the profile offers.
func DefaultOptions() Options {
	return Options{Mode: ModeAuto, Density: profile.DensityHigh}
}

// Converter turns bitmaps into chunks for one profile.
type Converter struct {
	profile *profile.Profile
	logger  *zap.Logger
}

// NewConverter returns a converter bound to p.
func NewConverter(p *profile.Profile, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{profile: p, logger: logger}
}

// Convert packs bm into one or more chunks. Every chunk payload fits the
// profile's MaxRasterBytes and chunks never split a row.
func (c *Converter) Convert(bm *Bitmap, opts Options) ([]Chunk, error) {
	if bm == nil || bm.Width == 0 || bm.Height == 0 {
		return nil, ErrEmptyBitmap
	}
	if bm.Width > c.profile.PaperWidthPixels {
		return nil, &ImageTooWideError{Width: bm.Width, MaxWidth: c.profile.PaperWidthPixels}
	}

	mode, err := c.resolveMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	density, err := c.resolveDensity(opts.Density, mode)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	switch mode {
	case ModeColumn:
		chunks, err = c.columns(bm, density, opts.Center)
	default:
		if opts.Center {
			bm = bm.PadLeft((c.profile.PaperWidthPixels - bm.Width) / 2)
		}
		chunks, err = c.rows(bm, mode, density)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("image converted",
		zap.String("mode", mode.String()),
		zap.String("density", density.String()),
		zap.Int("width", bm.Width),
		zap.Int("height", bm.Height),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func (c *Converter) resolveMode(m Mode) (Mode, error) {
	p := c.profile
	switch m {
	case ModeAuto:
		if p.Supports(profile.BitImageRaster) {
			return ModeRaster, nil
		}
		if p.Supports(profile.BitImageColumn) {
			return ModeColumn, nil
		}
		if p.Supports(profile.Graphics) {
			return ModeGraphics, nil
		}
		return 0, p.Require(profile.BitImageRaster, "image")
	case ModeRaster, ModeColumn, ModeGraphics:
		if err := p.Require(m.feature(), m.String()+" image"); err != nil {
			return 0, err
		}
		return m, nil
	}
	return 0, fmt.Errorf("unknown image mode %d", int(m))
}

// resolveDensity walks down from the requested level to the first one the
// profile supports. It never picks a higher level than requested.
func (c *Converter) resolveDensity(want profile.Density, mode Mode) (profile.Density, error) {
	for d := want; d >= profile.DensityLow; d-- {
		if c.profile.SupportsDensity(d) {
			return d, nil
		}
	}
	return 0, &UnsupportedFeatureError{
		Model:   c.profile.Name,
		Feature: mode.feature(),
		Command: fmt.Sprintf("%s image at %s density", mode, want),
	}
}

func (c *Converter) rows(bm *Bitmap, mode Mode, density profile.Density) ([]Chunk, error) {
	stride := rowBytes(bm.Width)
	perChunk := c.profile.MaxRasterBytes / stride
	if perChunk == 0 {
		return nil, &BufferTooSmallError{Need: stride, Max: c.profile.MaxRasterBytes}
	}
	if perChunk > maxRows {
		perChunk = maxRows
	}

	chunks := make([]Chunk, 0, (bm.Height+perChunk-1)/perChunk)
	for y := 0; y < bm.Height; y += perChunk {
		end := y + perChunk
		if end > bm.Height {
			end = bm.Height
		}
		chunks = append(chunks, Chunk{
			Mode:    mode,
			Width:   bm.Width,
			Height:  end - y,
			Density: density,
			Payload: packRows(bm, y, end),
		})
	}
	return chunks, nil
}

func (c *Converter) columns(bm *Bitmap, density profile.Density, center bool) ([]Chunk, error) {
	band := 8
	if density == profile.DensityHigh {
		band = 24
	}
	if bm.Width*band/8 > c.profile.MaxRasterBytes && band == 24 {
		c.logger.Debug("column band too large, using 8-dot bands",
			zap.Int("width", bm.Width),
			zap.Int("max_bytes", c.profile.MaxRasterBytes))
		band = 8
		d, err := c.resolveDensity(profile.DensityMedium, ModeColumn)
		if err != nil {
			return nil, err
		}
		density = d
	}
	if need := bm.Width * band / 8; need > c.profile.MaxRasterBytes {
		return nil, &BufferTooSmallError{Need: need, Max: c.profile.MaxRasterBytes}
	}

	offset := 0
	if center {
		offset = (c.profile.PaperWidthPixels - bm.Width) / 2
	}

	chunks := make([]Chunk, 0, (bm.Height+band-1)/band)
	for y := 0; y < bm.Height; y += band {
		chunks = append(chunks, Chunk{
			Mode:    ModeColumn,
			Width:   bm.Width,
			Height:  band,
			Density: density,
			XOffset: offset,
			Payload: packBand(bm, y, band),
		})
	}
	return chunks, nil
}

// Encode converts bm and concatenates every chunk's bytes.
func (c *Converter) Encode(bm *Bitmap, opts Options) ([]byte, error) {
	chunks, err := c.Convert(bm, opts)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, ch := range chunks {
		out = append(out, ch.Bytes()...)
	}
	return out, nil
}
