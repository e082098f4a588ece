package raster

import "fmt"

// Bitmap is a monochrome image where true means ink.
type Bitmap struct {
	Width  int
	Height int
	pix    []bool
}

// NewBitmap returns a blank bitmap.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Bitmap{Width: width, Height: height, pix: make([]bool, width*height)}
}

// FromRows builds a bitmap from strings where '#' or 'X' is ink. Rows are
// padded to the longest one.
func FromRows(rows ...string) *Bitmap {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	bm := NewBitmap(w, len(rows))
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			bm.Set(x, y, r[x] == '#' || r[x] == 'X')
		}
	}
	return bm
}

// At reports whether (x, y) is inked. Out-of-range pixels are blank.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.pix[y*b.Width+x]
}

// Set marks (x, y). Out-of-range writes are ignored.
func (b *Bitmap) Set(x, y int, ink bool) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.pix[y*b.Width+x] = ink
}

// Fill inks or clears every pixel.
func (b *Bitmap) Fill(ink bool) {
	for i := range b.pix {
		b.pix[i] = ink
	}
}

// Equal compares dimensions and pixels.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b.Width != o.Width || b.Height != o.Height {
		return false
	}
	for i := range b.pix {
		if b.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// SubRows returns rows [y0, y1) as a new bitmap.
func (b *Bitmap) SubRows(y0, y1 int) *Bitmap {
	out := NewBitmap(b.Width, y1-y0)
	copy(out.pix, b.pix[y0*b.Width:y1*b.Width])
	return out
}

// PadLeft returns a copy shifted right by n blank columns.
func (b *Bitmap) PadLeft(n int) *Bitmap {
	out := NewBitmap(b.Width+n, b.Height)
	for y := 0; y < b.Height; y++ {
		copy(out.pix[y*out.Width+n:(y+1)*out.Width], b.pix[y*b.Width:(y+1)*b.Width])
	}
	return out
}

// String renders the bitmap with '#' and '.', one line per row.
func (b *Bitmap) String() string {
	buf := make([]byte, 0, (b.Width+1)*b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}

// GoString keeps test failure output readable.
func (b *Bitmap) GoString() string {
	return fmt.Sprintf("raster.Bitmap{%dx%d}\n%s", b.Width, b.Height, b.String())
}
