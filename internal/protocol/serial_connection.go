// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// SerialConnection implements Transport for RS-232 printers
type SerialConnection struct {
	statsRecorder
	config *SerialConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) *SerialConnection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "serial"),
			zap.String("port", config.Port),
		),
	}
}

func (sc *SerialConnection) mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: sc.config.BaudRate,
		DataBits: sc.config.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if sc.config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch sc.config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	}
	return mode
}

// Open opens the serial port
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	port, err := serial.Open(sc.config.Port, sc.mode())
	if err != nil {
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return &TransportError{Type: model.ConnectionTypeSerial, Op: "open", Err: err}
	}

	if err := port.SetReadTimeout(sc.config.Timeout); err != nil {
		port.Close()
		return &TransportError{Type: model.ConnectionTypeSerial, Op: "set read timeout", Err: err}
	}

	sc.port = port
	sc.setConnected(true)
	sc.logger.Debug("Serial port opened", zap.Int("baud_rate", sc.config.BaudRate))
	return nil
}

// Close closes the serial port
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.port == nil {
		return nil
	}

	err := sc.port.Close()
	sc.port = nil
	sc.setConnected(false)
	if err != nil {
		return &TransportError{Type: model.ConnectionTypeSerial, Op: "close", Err: err}
	}
	return nil
}

// IsOpen returns whether the port is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.port != nil
}

// Write sends data and waits until the OS buffer has drained
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if sc.port == nil {
		return &TransportError{Type: model.ConnectionTypeSerial, Op: "write", Err: ErrNotOpen}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	startTime := time.Now()
	n, err := sc.port.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}
	if err == nil {
		err = sc.port.Drain()
	}
	if err != nil {
		sc.recordError()
		return &TransportError{Type: model.ConnectionTypeSerial, Op: "write", Err: err}
	}

	sc.recordWrite(n, time.Since(startTime))
	return nil
}

// Read returns at most maxBytes, or nothing once the read timeout passes
func (sc *SerialConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if sc.port == nil {
		return nil, &TransportError{Type: model.ConnectionTypeSerial, Op: "read", Err: ErrNotOpen}
	}

	port := sc.port
	data, err := readAsync(ctx, maxBytes, port.Read)
	if err != nil && !errors.Is(err, io.EOF) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		sc.recordError()
		return nil, &TransportError{Type: model.ConnectionTypeSerial, Op: "read", Err: err}
	}

	sc.recordRead(len(data))
	return data, nil
}

// Type returns the connection type
func (sc *SerialConnection) Type() model.ConnectionType {
	return model.ConnectionTypeSerial
}
