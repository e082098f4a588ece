// internal/protocol/protocol.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"escpos-service/internal/model"
)

// Transport carries composed command bytes to a printer
type Transport interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)

	// Transport information
	Type() model.ConnectionType
	Stats() Stats
}

// Stats provides transport-level statistics
type Stats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// TransportError wraps an I/O failure with the operation that hit it
type TransportError struct {
	Type model.ConnectionType
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Type, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrNotOpen is wrapped by every operation attempted on a closed transport
var ErrNotOpen = errors.New("transport not open")

// statsRecorder is embedded by every transport
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (s *statsRecorder) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *statsRecorder) setConnected(connected bool) {
	s.mu.Lock()
	s.stats.IsConnected = connected
	if connected {
		s.stats.LastActivity = time.Now()
	}
	s.mu.Unlock()
}

func (s *statsRecorder) recordWrite(n int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.BytesWritten += int64(n)
	s.stats.OperationCount++
	s.stats.LastActivity = time.Now()
	if s.stats.AverageLatency == 0 {
		s.stats.AverageLatency = latency
	} else {
		s.stats.AverageLatency = (s.stats.AverageLatency + latency) / 2
	}
}

func (s *statsRecorder) recordRead(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.BytesRead += int64(n)
	s.stats.OperationCount++
	s.stats.LastActivity = time.Now()
}

func (s *statsRecorder) recordError() {
	s.mu.Lock()
	s.stats.ErrorCount++
	s.mu.Unlock()
}

// readResult is passed back from blocking reads run in a goroutine
type readResult struct {
	data []byte
	err  error
}

// readAsync runs a blocking read and gives up when ctx is done. The
// goroutine finishes on its own once the device read timeout expires.
func readAsync(ctx context.Context, maxBytes int, read func([]byte) (int, error)) ([]byte, error) {
	done := make(chan readResult, 1)
	go func() {
		buffer := make([]byte, maxBytes)
		n, err := read(buffer)
		done <- readResult{data: buffer[:n], err: err}
	}()

	select {
	case result := <-done:
		return result.data, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
