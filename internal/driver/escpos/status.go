package escpos

import (
	"context"
	"fmt"
	"time"
)

// StatusKind is the DLE EOT n argument.
type StatusKind byte

const (
	StatusPrinter StatusKind = 1
	StatusOffline StatusKind = 2
	StatusError   StatusKind = 3
	StatusPaper   StatusKind = 4
)

// StatusQuery returns the DLE EOT command for kind.
func StatusQuery(kind StatusKind) []byte {
	return []byte{0x10, 0x04, byte(kind)}
}

// Status is the decoded real-time printer state.
type Status struct {
	Online          bool      `json:"online"`
	DrawerSignal    bool      `json:"drawer_signal"`
	CoverOpen       bool      `json:"cover_open"`
	FeedButton      bool      `json:"feed_button"`
	PaperStop       bool      `json:"paper_stop"`
	Error           bool      `json:"error"`
	CutterError     bool      `json:"cutter_error"`
	Unrecoverable   bool      `json:"unrecoverable_error"`
	AutoRecoverable bool      `json:"auto_recoverable_error"`
	PaperNearEnd    bool      `json:"paper_near_end"`
	PaperOut        bool      `json:"paper_out"`
	Raw             []byte    `json:"raw"`
	Timestamp       time.Time `json:"timestamp"`
}

// validStatusByte checks the fixed bits every DLE EOT reply carries.
func validStatusByte(b byte) bool {
	return b&0x93 == 0x12
}

// ParseStatus folds one DLE EOT reply byte into s.
func (s *Status) ParseStatus(kind StatusKind, b byte) error {
	if !validStatusByte(b) {
		return fmt.Errorf("invalid status byte 0x%02X for DLE EOT %d", b, kind)
	}
	s.Raw = append(s.Raw, b)
	switch kind {
	case StatusPrinter:
		s.Online = b&0x08 == 0
		s.DrawerSignal = b&0x04 != 0
	case StatusOffline:
		s.CoverOpen = b&0x04 != 0
		s.FeedButton = b&0x08 != 0
		s.PaperStop = b&0x20 != 0
		s.Error = b&0x40 != 0
	case StatusError:
		s.CutterError = b&0x08 != 0
		s.Unrecoverable = b&0x20 != 0
		s.AutoRecoverable = b&0x40 != 0
	case StatusPaper:
		s.PaperNearEnd = b&0x0C != 0
		s.PaperOut = b&0x60 != 0
	default:
		return fmt.Errorf("unknown status kind %d", kind)
	}
	return nil
}

// ReadWriter is a transport that can answer status queries.
type ReadWriter interface {
	Writer
	Read(ctx context.Context, maxBytes int) ([]byte, error)
}

// QueryStatus sends every DLE EOT query and decodes the replies. Each reply
// is waited for at most timeout.
func QueryStatus(ctx context.Context, rw ReadWriter, timeout time.Duration) (*Status, error) {
	status := &Status{}
	for _, kind := range []StatusKind{StatusPrinter, StatusOffline, StatusError, StatusPaper} {
		if err := rw.Write(ctx, StatusQuery(kind)); err != nil {
			return nil, fmt.Errorf("failed to send status request: %w", err)
		}

		readCtx, cancel := context.WithTimeout(ctx, timeout)
		reply, err := rw.Read(readCtx, 1)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to read status response: %w", err)
		}
		if len(reply) == 0 {
			return nil, fmt.Errorf("empty status response for DLE EOT %d", kind)
		}
		if err := status.ParseStatus(kind, reply[0]); err != nil {
			return nil, err
		}
	}
	status.Timestamp = time.Now()
	return status, nil
}
