// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// TCPConnection implements Transport for network printers (raw port 9100)
type TCPConnection struct {
	statsRecorder
	config *TCPConfig
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.RWMutex
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) *TCPConnection {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
	}
}

func (tc *TCPConnection) address() string {
	return net.JoinHostPort(tc.config.Host, strconv.Itoa(tc.config.Port))
}

// Open dials the printer
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.conn != nil {
		return nil
	}

	dialer := &net.Dialer{Timeout: tc.config.ConnectTimeout}
	if tc.config.KeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}

	var conn net.Conn
	var err error
	if tc.config.SSL {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: tc.config.Host},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", tc.address())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", tc.address())
	}
	if err != nil {
		tc.logger.Error("Failed to connect", zap.Error(err))
		return &TransportError{Type: model.ConnectionTypeTCP, Op: "dial", Err: err}
	}

	tc.conn = conn
	tc.setConnected(true)
	tc.logger.Debug("TCP connection opened")
	return nil
}

// Close closes the TCP connection
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.conn == nil {
		return nil
	}

	err := tc.conn.Close()
	tc.conn = nil
	tc.setConnected(false)
	if err != nil {
		return &TransportError{Type: model.ConnectionTypeTCP, Op: "close", Err: err}
	}
	return nil
}

// IsOpen returns whether the connection is open
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.conn != nil
}

// deadline picks the earlier of the context deadline and now+timeout
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}

// Write writes data to the TCP connection
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if tc.conn == nil {
		return &TransportError{Type: model.ConnectionTypeTCP, Op: "write", Err: ErrNotOpen}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tc.conn.SetWriteDeadline(deadline(ctx, tc.config.WriteTimeout))

	startTime := time.Now()
	n, err := tc.conn.Write(data)
	if err != nil {
		tc.recordError()
		return &TransportError{Type: model.ConnectionTypeTCP, Op: "write", Err: err}
	}

	tc.recordWrite(n, time.Since(startTime))
	return nil
}

// Read reads at most maxBytes from the TCP connection
func (tc *TCPConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	if tc.conn == nil {
		return nil, &TransportError{Type: model.ConnectionTypeTCP, Op: "read", Err: ErrNotOpen}
	}

	tc.conn.SetReadDeadline(deadline(ctx, tc.config.ReadTimeout))

	buffer := make([]byte, maxBytes)
	n, err := tc.conn.Read(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tc.recordError()
		return nil, &TransportError{Type: model.ConnectionTypeTCP, Op: "read", Err: err}
	}

	tc.recordRead(n)
	return buffer[:n], nil
}

// Type returns the connection type
func (tc *TCPConnection) Type() model.ConnectionType {
	return model.ConnectionTypeTCP
}
