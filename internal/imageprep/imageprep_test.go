package imageprep

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x < w/2 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestThreshold(t *testing.T) {
	bm := Prepare(checker(16, 4), Options{Dither: Threshold, Threshold: 128})
	if bm.Width != 16 || bm.Height != 4 {
		t.Fatalf("size %dx%d", bm.Width, bm.Height)
	}
	for x := 0; x < 16; x++ {
		if bm.At(x, 2) != (x < 8) {
			t.Fatalf("pixel %d = %v", x, bm.At(x, 2))
		}
	}
}

func TestInvert(t *testing.T) {
	bm := Prepare(checker(4, 1), Options{Dither: Threshold, Invert: true})
	if bm.At(0, 0) || !bm.At(3, 0) {
		t.Errorf("invert failed:\n%s", bm)
	}
}

func TestFloydSteinbergMidGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	bm := Prepare(img, DefaultOptions())
	ink := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if bm.At(x, y) {
				ink++
			}
		}
	}
	if ink < 150 || ink > 250 {
		t.Errorf("mid gray dithered to %d/400 inked pixels", ink)
	}
}

func TestTransparentIsPaper(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(1, 0, color.NRGBA{0, 0, 0, 255})
	bm := Prepare(img, Options{Dither: Threshold})
	if bm.At(0, 0) || !bm.At(1, 0) {
		t.Errorf("transparent pixel printed:\n%s", bm)
	}
}

func TestScaleDown(t *testing.T) {
	bm := Prepare(checker(800, 200), Options{MaxWidth: 400, Dither: Threshold})
	if bm.Width != 400 || bm.Height != 100 {
		t.Errorf("scaled to %dx%d", bm.Width, bm.Height)
	}
}

func TestDecodeBase64(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, checker(8, 8)); err != nil {
		t.Fatal(err)
	}
	enc := base64.StdEncoding.EncodeToString(buf.Bytes())

	for _, in := range []string{enc, "data:image/png;base64," + enc} {
		img, format, err := DecodeBase64(in)
		if err != nil {
			t.Fatal(err)
		}
		if format != "png" || img.Bounds().Dx() != 8 {
			t.Errorf("decoded %s %v", format, img.Bounds())
		}
	}

	if _, _, err := DecodeBase64("!!!"); err == nil {
		t.Error("invalid base64 accepted")
	}
}

func TestParseDither(t *testing.T) {
	if d, err := ParseDither("threshold"); err != nil || d != Threshold {
		t.Errorf("ParseDither(threshold) = %v, %v", d, err)
	}
	if _, err := ParseDither("ordered"); err == nil {
		t.Error("expected error")
	}
}
