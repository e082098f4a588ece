// internal/protocol/file_connection.go
package protocol

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// FileConnection implements Transport over a device node or a spool file
type FileConnection struct {
	statsRecorder
	config *FileConfig
	file   *os.File
	logger *zap.Logger
	mutex  sync.RWMutex
}

// NewFileConnection creates a new file connection
func NewFileConnection(config *FileConfig, logger *zap.Logger) *FileConnection {
	return &FileConnection{
		config: config,
		logger: logger.With(zap.String("transport", "file")),
	}
}

// spoolName is unique per session and sorts by creation time
func spoolName() string {
	return fmt.Sprintf("%s-%s.bin", time.Now().UTC().Format("20060102T150405.000"), uuid.NewString()[:8])
}

// Open opens the device node, or creates the next spool file
func (fc *FileConnection) Open(ctx context.Context) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if fc.file != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := fc.config.Path
	var flags int
	switch {
	case path == "":
		if err := os.MkdirAll(fc.config.SpoolDir, 0o755); err != nil {
			return &TransportError{Type: model.ConnectionTypeFile, Op: "open", Err: err}
		}
		path = filepath.Join(fc.config.SpoolDir, spoolName())
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	case !isRegular(path):
		// device nodes answer status queries on the same handle
		flags = os.O_RDWR
	case fc.config.Append:
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		fc.logger.Error("Failed to open output file", zap.String("path", path), zap.Error(err))
		return &TransportError{Type: model.ConnectionTypeFile, Op: "open", Err: err}
	}

	fc.file = file
	fc.setConnected(true)
	fc.logger.Debug("Output file opened", zap.String("path", path))
	return nil
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// not created yet
		return true
	}
	return info.Mode().IsRegular()
}

// Name returns the path of the open file, or "" when closed
func (fc *FileConnection) Name() string {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()
	if fc.file == nil {
		return ""
	}
	return fc.file.Name()
}

// Close closes the file
func (fc *FileConnection) Close() error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if fc.file == nil {
		return nil
	}

	err := fc.file.Close()
	fc.file = nil
	fc.setConnected(false)
	if err != nil {
		return &TransportError{Type: model.ConnectionTypeFile, Op: "close", Err: err}
	}
	return nil
}

// IsOpen returns whether the file is open
func (fc *FileConnection) IsOpen() bool {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()
	return fc.file != nil
}

// Write writes data to the file
func (fc *FileConnection) Write(ctx context.Context, data []byte) error {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	if fc.file == nil {
		return &TransportError{Type: model.ConnectionTypeFile, Op: "write", Err: ErrNotOpen}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	startTime := time.Now()
	n, err := fc.file.Write(data)
	if err != nil {
		fc.recordError()
		return &TransportError{Type: model.ConnectionTypeFile, Op: "write", Err: err}
	}

	fc.recordWrite(n, time.Since(startTime))
	return nil
}

// Read reads a status reply from a device node. Spool files cannot answer.
func (fc *FileConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	if fc.file == nil {
		return nil, &TransportError{Type: model.ConnectionTypeFile, Op: "read", Err: ErrNotOpen}
	}
	if fc.config.Path == "" || isRegular(fc.config.Path) {
		return nil, &TransportError{Type: model.ConnectionTypeFile, Op: "read", Err: fmt.Errorf("%s is not a device", fc.file.Name())}
	}

	file := fc.file
	data, err := readAsync(ctx, maxBytes, file.Read)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		fc.recordError()
		return nil, &TransportError{Type: model.ConnectionTypeFile, Op: "read", Err: err}
	}

	fc.recordRead(len(data))
	return data, nil
}

// Type returns the connection type
func (fc *FileConnection) Type() model.ConnectionType {
	return model.ConnectionTypeFile
}
