package raster

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"escpos-service/internal/profile"
)

func rasterProfile(maxBytes int) *profile.Profile {
	return &profile.Profile{
		Name:             "raster-test",
		CodePages:        []int{0},
		Features:         profile.NewFeatureSet(profile.BitImageRaster, profile.BitImageColumn, profile.Graphics),
		Columns:          48,
		PaperWidthPixels: 512,
		MaxRasterBytes:   maxBytes,
		Densities:        []profile.Density{profile.DensityLow, profile.DensityMedium, profile.DensityHigh},
	}
}

func columnProfile(maxBytes int) *profile.Profile {
	p := rasterProfile(maxBytes)
	p.Name = "column-test"
	p.Features = profile.NewFeatureSet(profile.BitImageColumn)
	return p
}

func pattern(w, h int) *Bitmap {
	bm := NewBitmap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bm.Set(x, y, (x*7+y*3+x*y)%5 < 2)
		}
	}
	return bm
}

func TestRasterChunkingExample(t *testing.T) {
	bm := NewBitmap(48, 24)
	bm.Fill(true)

	chunks, err := NewConverter(rasterProfile(16), nil).Convert(bm, Options{Mode: ModeRaster, Density: profile.DensityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 12 {
		t.Fatalf("got %d chunks, want 12", len(chunks))
	}
	for i, c := range chunks {
		if c.Height != 2 || len(c.Payload) != 12 {
			t.Errorf("chunk %d: height %d payload %d", i, c.Height, len(c.Payload))
		}
		if !bytes.Equal(c.Payload, bytes.Repeat([]byte{0xFF}, 12)) {
			t.Errorf("chunk %d payload not solid ink: % X", i, c.Payload)
		}
		want := []byte{0x1D, 0x76, 0x30, 0x00, 0x06, 0x00, 0x02, 0x00}
		if diff := cmp.Diff(want, c.Header()); diff != "" {
			t.Errorf("chunk %d header (-want +got):\n%s", i, diff)
		}
	}
}

func TestRasterRoundTrip(t *testing.T) {
	tests := []struct {
		w, h, max int
	}{
		{13, 37, 20},
		{8, 1, 1},
		{100, 50, 1000},
		{511, 9, 64},
	}
	for _, tt := range tests {
		bm := pattern(tt.w, tt.h)
		chunks, err := NewConverter(rasterProfile(tt.max), nil).Convert(bm, Options{Mode: ModeRaster, Density: profile.DensityHigh})
		if err != nil {
			t.Fatalf("%dx%d: %v", tt.w, tt.h, err)
		}
		y := 0
		for _, c := range chunks {
			if len(c.Payload) != rowBytes(c.Width)*c.Height {
				t.Fatalf("payload length %d, want %d", len(c.Payload), rowBytes(c.Width)*c.Height)
			}
			got := Unpack(c)
			if want := bm.SubRows(y, y+c.Height); !got.Equal(want) {
				t.Fatalf("%dx%d rows %d..%d differ:\n%s\nwant\n%s", tt.w, tt.h, y, y+c.Height, got, want)
			}
			y += c.Height
		}
		if y != tt.h {
			t.Errorf("chunks cover %d rows, want %d", y, tt.h)
		}
	}
}

func TestChunkBound(t *testing.T) {
	for _, mode := range []Mode{ModeRaster, ModeColumn, ModeGraphics} {
		for _, max := range []int{8, 33, 100, 512} {
			for _, w := range []int{1, 7, 24, 64} {
				bm := pattern(w, 50)
				chunks, err := NewConverter(rasterProfile(max), nil).Convert(bm, Options{Mode: mode, Density: profile.DensityHigh})
				var small *BufferTooSmallError
				if errors.As(err, &small) {
					continue
				}
				if err != nil {
					t.Fatalf("%s w=%d max=%d: %v", mode, w, max, err)
				}
				for _, c := range chunks {
					if len(c.Payload) > max {
						t.Errorf("%s w=%d max=%d: payload %d exceeds bound", mode, w, max, len(c.Payload))
					}
				}
			}
		}
	}
}

func TestRasterBufferTooSmall(t *testing.T) {
	_, err := NewConverter(rasterProfile(5), nil).Convert(NewBitmap(48, 2), Options{Mode: ModeRaster})
	var small *BufferTooSmallError
	if !errors.As(err, &small) || small.Need != 6 || small.Max != 5 {
		t.Fatalf("expected BufferTooSmallError{6,5}, got %v", err)
	}
}

func TestColumnBands(t *testing.T) {
	bm := pattern(10, 20)
	chunks, err := NewConverter(columnProfile(1000), nil).Convert(bm, Options{Density: profile.DensityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	c := chunks[0]
	if c.Mode != ModeColumn || c.Height != 24 || len(c.Payload) != 30 {
		t.Fatalf("unexpected chunk %+v", c)
	}
	wantHeader := []byte{0x1B, 0x33, 24, 0x1B, 0x2A, 33, 10, 0}
	if diff := cmp.Diff(wantHeader, c.Header()); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	if !bytes.HasSuffix(c.Bytes(), []byte{0x0A}) {
		t.Errorf("band must end with LF")
	}

	got := Unpack(c)
	for y := 0; y < 24; y++ {
		for x := 0; x < 10; x++ {
			want := y < 20 && bm.At(x, y)
			if got.At(x, y) != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.At(x, y), want)
			}
		}
	}
}

func TestColumnDegradesToEightDotBands(t *testing.T) {
	chunks, err := NewConverter(columnProfile(200), nil).Convert(pattern(100, 20), Options{Density: profile.DensityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for _, c := range chunks {
		if c.Height != 8 || len(c.Payload) != 100 {
			t.Errorf("unexpected chunk height %d payload %d", c.Height, len(c.Payload))
		}
		if c.Header()[5] != 1 {
			t.Errorf("ESC * mode = %d, want 1", c.Header()[5])
		}
	}

	_, err = NewConverter(columnProfile(50), nil).Convert(pattern(100, 20), Options{})
	var small *BufferTooSmallError
	if !errors.As(err, &small) {
		t.Fatalf("expected BufferTooSmallError, got %v", err)
	}
}

func TestColumnEightDotBandsUseSupportedDensity(t *testing.T) {
	p := columnProfile(1024)
	p.PaperWidthPixels = 384
	p.Densities = []profile.Density{profile.DensityLow, profile.DensityHigh}

	chunks, err := NewConverter(p, nil).Convert(NewBitmap(384, 24), Options{Density: profile.DensityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for _, c := range chunks {
		if c.Density != profile.DensityLow {
			t.Errorf("chunk density = %s, want low", c.Density)
		}
		if !p.SupportsDensity(c.Density) {
			t.Errorf("chunk density %s not declared by profile", c.Density)
		}
		if m := c.Header()[5]; m != 0 {
			t.Errorf("ESC * mode = %d, want 0", m)
		}
	}

	p.Densities = []profile.Density{profile.DensityHigh}
	_, err = NewConverter(p, nil).Convert(NewBitmap(384, 24), Options{Density: profile.DensityHigh})
	var unsupported *UnsupportedFeatureError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
}

func TestAutoModeFallsBackToGraphics(t *testing.T) {
	p := rasterProfile(1000)
	p.Features = profile.NewFeatureSet(profile.Graphics)

	chunks, err := NewConverter(p, nil).Convert(pattern(16, 4), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Mode != ModeGraphics {
		t.Fatalf("got %+v, want one graphics chunk", chunks)
	}

	p.Features = profile.NewFeatureSet()
	_, err = NewConverter(p, nil).Convert(pattern(16, 4), DefaultOptions())
	var unsupported *UnsupportedFeatureError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
}

func TestImageTooWide(t *testing.T) {
	_, err := NewConverter(rasterProfile(1000), nil).Convert(NewBitmap(513, 1), DefaultOptions())
	var wide *ImageTooWideError
	if !errors.As(err, &wide) || wide.MaxWidth != 512 {
		t.Fatalf("expected ImageTooWideError, got %v", err)
	}
}

func TestEmptyBitmap(t *testing.T) {
	if _, err := NewConverter(rasterProfile(10), nil).Convert(NewBitmap(0, 5), DefaultOptions()); !errors.Is(err, ErrEmptyBitmap) {
		t.Fatalf("got %v", err)
	}
}

func TestDensityFallsBackDownward(t *testing.T) {
	p := rasterProfile(100)
	p.Densities = []profile.Density{profile.DensityLow, profile.DensityHigh}
	chunks, err := NewConverter(p, nil).Convert(NewBitmap(8, 1), Options{Mode: ModeRaster, Density: profile.DensityMedium})
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Density != profile.DensityLow || chunks[0].Header()[3] != 3 {
		t.Errorf("expected low density, got %v (m=%d)", chunks[0].Density, chunks[0].Header()[3])
	}

	p.Densities = []profile.Density{profile.DensityMedium}
	_, err = NewConverter(p, nil).Convert(NewBitmap(8, 1), Options{Mode: ModeRaster, Density: profile.DensityLow})
	var ufe *UnsupportedFeatureError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
}

func TestModeResolution(t *testing.T) {
	bm := NewBitmap(8, 8)

	chunks, err := NewConverter(columnProfile(100), nil).Convert(bm, DefaultOptions())
	if err != nil || chunks[0].Mode != ModeColumn {
		t.Fatalf("auto on column-only profile: %v, %v", chunks, err)
	}

	chunks, err = NewConverter(rasterProfile(100), nil).Convert(bm, DefaultOptions())
	if err != nil || chunks[0].Mode != ModeRaster {
		t.Fatalf("auto on raster profile: %v, %v", chunks, err)
	}

	var ufe *UnsupportedFeatureError
	_, err = NewConverter(columnProfile(100), nil).Convert(bm, Options{Mode: ModeGraphics})
	if !errors.As(err, &ufe) || ufe.Feature != profile.Graphics {
		t.Fatalf("graphics on column profile: %v", err)
	}

	bare := columnProfile(100)
	bare.Features = 0
	_, err = NewConverter(bare, nil).Convert(bm, DefaultOptions())
	if !errors.As(err, &ufe) {
		t.Fatalf("auto on imageless profile: %v", err)
	}
}

func TestGraphicsChunk(t *testing.T) {
	bm := NewBitmap(16, 2)
	bm.Fill(true)
	chunks, err := NewConverter(rasterProfile(100), nil).Convert(bm, Options{Mode: ModeGraphics, Density: profile.DensityHigh})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x1D, 0x28, 0x4C, 14, 0, 0x30, 0x70, 0x30, 1, 1, 0x31, 16, 0, 2, 0,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x1D, 0x28, 0x4C, 0x02, 0x00, 0x30, 0x32,
	}
	if diff := cmp.Diff(want, chunks[0].Bytes()); diff != "" {
		t.Errorf("graphics bytes (-want +got):\n%s", diff)
	}
}

func TestCenter(t *testing.T) {
	p := rasterProfile(100)
	p.PaperWidthPixels = 24
	bm := NewBitmap(8, 1)
	bm.Fill(true)

	chunks, err := NewConverter(p, nil).Convert(bm, Options{Mode: ModeRaster, Density: profile.DensityHigh, Center: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x00, 0xFF}, chunks[0].Payload); diff != "" {
		t.Errorf("centered payload (-want +got):\n%s", diff)
	}

	chunks, err = NewConverter(p, nil).Convert(bm, Options{Mode: ModeColumn, Density: profile.DensityHigh, Center: true})
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].XOffset != 8 {
		t.Errorf("XOffset = %d, want 8", chunks[0].XOffset)
	}
	if !bytes.Contains(chunks[0].Header(), []byte{0x1B, 0x24, 8, 0}) {
		t.Errorf("missing ESC $ in % X", chunks[0].Header())
	}
}

func TestFromRows(t *testing.T) {
	bm := FromRows("#.#", "..#")
	if bm.Width != 3 || bm.Height != 2 || !bm.At(0, 0) || bm.At(1, 0) || !bm.At(2, 1) {
		t.Errorf("unexpected bitmap:\n%s", bm)
	}
}
