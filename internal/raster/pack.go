package raster

// rowBytes is the byte width of one packed raster row.
func rowBytes(width int) int {
	return (width + 7) / 8
}

// packRows packs rows [y0, y1) MSB first, each row padded to a whole byte.
func packRows(bm *Bitmap, y0, y1 int) []byte {
	stride := rowBytes(bm.Width)
	out := make([]byte, stride*(y1-y0))
	for y := y0; y < y1; y++ {
		row := out[(y-y0)*stride:]
		for x := 0; x < bm.Width; x++ {
			if bm.At(x, y) {
				row[x>>3] |= 0x80 >> uint(x&7)
			}
		}
	}
	return out
}

// packBand packs a band of bandHeight rows starting at y0 column by column,
// bandHeight/8 bytes per column with the top dot in the MSB. Rows past the
// bitmap bottom are blank.
func packBand(bm *Bitmap, y0, bandHeight int) []byte {
	perCol := bandHeight / 8
	out := make([]byte, bm.Width*perCol)
	for x := 0; x < bm.Width; x++ {
		col := out[x*perCol:]
		for dy := 0; dy < bandHeight; dy++ {
			if bm.At(x, y0+dy) {
				col[dy>>3] |= 0x80 >> uint(dy&7)
			}
		}
	}
	return out
}

func unpackRows(payload []byte, width, height int) *Bitmap {
	bm := NewBitmap(width, height)
	stride := rowBytes(width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if payload[y*stride+x>>3]&(0x80>>uint(x&7)) != 0 {
				bm.Set(x, y, true)
			}
		}
	}
	return bm
}

func unpackBand(payload []byte, width, bandHeight int) *Bitmap {
	bm := NewBitmap(width, bandHeight)
	perCol := bandHeight / 8
	for x := 0; x < width; x++ {
		for dy := 0; dy < bandHeight; dy++ {
			if payload[x*perCol+dy>>3]&(0x80>>uint(dy&7)) != 0 {
				bm.Set(x, dy, true)
			}
		}
	}
	return bm
}

// lowHigh encodes n as little-endian bytes.
func lowHigh(n, size int) []byte {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = byte(n >> (8 * uint(i)))
	}
	return out
}
