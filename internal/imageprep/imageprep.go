// Package imageprep turns decoded images into printable monochrome bitmaps:
// it scales to the paper width, converts to grayscale and dithers.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"escpos-service/internal/raster"
)

// Dither selects how gray levels become ink.
type Dither int

const (
	// FloydSteinberg diffuses quantisation error to neighbouring pixels.
	FloydSteinberg Dither = iota
	// Threshold inks every pixel darker than the threshold.
	Threshold
)

// ParseDither resolves "floyd-steinberg" or "threshold".
func ParseDither(s string) (Dither, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "floyd-steinberg", "floydsteinberg", "fs":
		return FloydSteinberg, nil
	case "threshold", "none":
		return Threshold, nil
	}
	return 0, fmt.Errorf("unknown dither mode: %q", s)
}

// Options control preparation.
type Options struct {
	// MaxWidth scales larger images down to this width. Zero keeps the size.
	MaxWidth int
	Dither   Dither
	// Threshold is the gray level (0-255) below which a pixel is inked.
	Threshold uint8
	Invert    bool
}

// DefaultOptions dithers and keeps the image size.
func DefaultOptions() Options {
	return Options{Dither: FloydSteinberg, Threshold: 128}
}

// Decode reads a PNG, JPEG, GIF, BMP or WebP image.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBase64 decodes a base64 image, accepting an optional data URL prefix.
func DecodeBase64(s string) (image.Image, string, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i > 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Prepare converts img into a bitmap ready for the raster converter.
func Prepare(img image.Image, opts Options) *raster.Bitmap {
	gray := toGray(scale(img, opts.MaxWidth))
	b := gray.Bounds()

	var bm *raster.Bitmap
	switch opts.Dither {
	case Threshold:
		bm = threshold(gray, opts.Threshold)
	default:
		bm = floydSteinberg(gray)
	}
	if opts.Invert {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				bm.Set(x, y, !bm.At(x, y))
			}
		}
	}
	return bm
}

func scale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// toGray flattens transparency onto white paper.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// premultiplied: add the white background for the transparent part
			bg := 0xFFFF - a
			lum := (19595*(r+bg) + 38470*(g+bg) + 7471*(bl+bg) + 1<<15) >> 24
			out.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return out
}

func threshold(g *image.Gray, level uint8) *raster.Bitmap {
	if level == 0 {
		level = 128
	}
	b := g.Bounds()
	bm := raster.NewBitmap(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			bm.Set(x, y, g.GrayAt(x, y).Y < level)
		}
	}
	return bm
}

func floydSteinberg(g *image.Gray) *raster.Bitmap {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	bm := raster.NewBitmap(w, h)

	cur := make([]int, w+2)
	next := make([]int, w+2)
	for x := 0; x < w; x++ {
		cur[x+1] = int(g.GrayAt(x, 0).Y)
	}
	for y := 0; y < h; y++ {
		for i := range next {
			next[i] = 0
		}
		if y+1 < h {
			for x := 0; x < w; x++ {
				next[x+1] = int(g.GrayAt(x, y+1).Y)
			}
		}
		for x := 0; x < w; x++ {
			old := cur[x+1]
			val := 255
			if old < 128 {
				val = 0
				bm.Set(x, y, true)
			}
			e := old - val
			cur[x+2] += e * 7 / 16
			next[x] += e * 3 / 16
			next[x+1] += e * 5 / 16
			next[x+2] += e / 16
		}
		cur, next = next, cur
	}
	return bm
}
