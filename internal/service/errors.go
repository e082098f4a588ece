// internal/service/errors.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"escpos-service/internal/magicencode"
	"escpos-service/internal/profile"
	"escpos-service/internal/protocol"
	"escpos-service/internal/raster"
	"escpos-service/internal/repository"
)

// ValidationError marks a request the caller must fix
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// HTTPStatus maps an error returned by a service onto an HTTP status code
func HTTPStatus(err error) int {
	var (
		validation  *ValidationError
		encoding    *magicencode.EncodingError
		tooWide     *raster.ImageTooWideError
		tooSmall    *raster.BufferTooSmallError
		unsupported *profile.UnsupportedFeatureError
		transport   *protocol.TransportError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &encoding), errors.As(err, &tooWide), errors.As(err, &tooSmall),
		errors.Is(err, raster.ErrEmptyBitmap):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unsupported):
		return http.StatusConflict
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &transport):
		return http.StatusBadGateway
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
