package raster

import (
	"errors"
	"fmt"

	"escpos-service/internal/profile"
)

// ErrEmptyBitmap is returned for bitmaps with no pixels.
var ErrEmptyBitmap = errors.New("bitmap has no pixels")

// UnsupportedFeatureError is shared with the profile package so every layer
// reports capability mismatches with one type.
type UnsupportedFeatureError = profile.UnsupportedFeatureError

// ImageTooWideError reports a bitmap wider than the printable area.
type ImageTooWideError struct {
	Width    int
	MaxWidth int
}

func (e *ImageTooWideError) Error() string {
	return fmt.Sprintf("image width %d exceeds paper width %d", e.Width, e.MaxWidth)
}

// BufferTooSmallError reports that not even one row or band fits the
// printer's image buffer.
type BufferTooSmallError struct {
	Need int
	Max  int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("image needs %d bytes per chunk but buffer holds %d", e.Need, e.Max)
}
