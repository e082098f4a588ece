package raster

import (
	"fmt"

	"escpos-service/internal/profile"
)

// Mode selects the image command family.
type Mode int

const (
	// ModeAuto picks raster when available, then column, then graphics.
	ModeAuto Mode = iota
	// ModeRaster uses GS v 0.
	ModeRaster
	// ModeColumn uses ESC * bands.
	ModeColumn
	// ModeGraphics uses GS ( L store and print.
	ModeGraphics
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeRaster:
		return "raster"
	case ModeColumn:
		return "column"
	case ModeGraphics:
		return "graphics"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "raster", "bitImageRaster":
		return ModeRaster, nil
	case "column", "bitImageColumn":
		return ModeColumn, nil
	case "graphics":
		return ModeGraphics, nil
	}
	return 0, fmt.Errorf("unknown image mode: %q", s)
}

func (m Mode) feature() profile.Feature {
	switch m {
	case ModeColumn:
		return profile.BitImageColumn
	case ModeGraphics:
		return profile.Graphics
	default:
		return profile.BitImageRaster
	}
}

// columnLineSpacing is the ESC 3 value that makes consecutive bands touch.
const columnLineSpacing = 24

// Chunk is one self-contained image command.
type Chunk struct {
	Mode    Mode
	Width   int
	Height  int
	Density profile.Density
	// XOffset is the ESC $ absolute position for column bands.
	XOffset int
	Payload []byte
}

// rasterM maps density onto the GS v 0 scaling parameter.
func rasterM(d profile.Density) byte {
	switch d {
	case profile.DensityLow:
		return 3
	case profile.DensityMedium:
		return 2
	default:
		return 0
	}
}

// columnM maps density and band height onto the ESC * mode.
func columnM(d profile.Density, bandHeight int) byte {
	if bandHeight == 24 {
		return 33
	}
	if d == profile.DensityLow {
		return 0
	}
	return 1
}

// graphicsScale maps density onto the GS ( L bx/by scale factors.
func graphicsScale(d profile.Density) (byte, byte) {
	switch d {
	case profile.DensityLow:
		return 2, 2
	case profile.DensityMedium:
		return 1, 2
	default:
		return 1, 1
	}
}

// Header returns the command bytes that precede the payload.
func (c Chunk) Header() []byte {
	switch c.Mode {
	case ModeColumn:
		h := []byte{0x1B, 0x33, columnLineSpacing} // ESC 3 n
		if c.XOffset > 0 {
			h = append(h, 0x1B, 0x24) // ESC $
			h = append(h, lowHigh(c.XOffset, 2)...)
		}
		h = append(h, 0x1B, 0x2A, columnM(c.Density, c.Height)) // ESC * m
		return append(h, lowHigh(c.Width, 2)...)

	case ModeGraphics:
		bx, by := graphicsScale(c.Density)
		params := []byte{0x30, 0x70, 0x30, bx, by, 0x31}
		params = append(params, lowHigh(c.Width, 2)...)
		params = append(params, lowHigh(c.Height, 2)...)
		size := len(params) + len(c.Payload)
		if size <= 0xFFFF {
			h := []byte{0x1D, 0x28, 0x4C} // GS ( L
			h = append(h, lowHigh(size, 2)...)
			return append(h, params...)
		}
		h := []byte{0x1D, 0x38, 0x4C} // GS 8 L
		h = append(h, lowHigh(size, 4)...)
		return append(h, params...)

	default:
		h := []byte{0x1D, 0x76, 0x30, rasterM(c.Density)} // GS v 0 m
		h = append(h, lowHigh(rowBytes(c.Width), 2)...)
		return append(h, lowHigh(c.Height, 2)...)
	}
}

// Trailer returns the bytes that follow the payload.
func (c Chunk) Trailer() []byte {
	switch c.Mode {
	case ModeColumn:
		return []byte{0x0A}
	case ModeGraphics:
		return []byte{0x1D, 0x28, 0x4C, 0x02, 0x00, 0x30, 0x32} // GS ( L print
	default:
		return nil
	}
}

// Bytes returns header, payload and trailer.
func (c Chunk) Bytes() []byte {
	h, t := c.Header(), c.Trailer()
	out := make([]byte, 0, len(h)+len(c.Payload)+len(t))
	out = append(out, h...)
	out = append(out, c.Payload...)
	return append(out, t...)
}

// Unpack reconstructs the chunk's ink pattern.
func Unpack(c Chunk) *Bitmap {
	if c.Mode == ModeColumn {
		return unpackBand(c.Payload, c.Width, c.Height)
	}
	return unpackRows(c.Payload, c.Width, c.Height)
}
