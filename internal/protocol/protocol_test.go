package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/model"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		connType model.ConnectionType
		settings map[string]interface{}
		wantErr  bool
	}{
		{"serial ok", model.ConnectionTypeSerial, map[string]interface{}{"port": "/dev/ttyS0", "baud_rate": 19200.0}, false},
		{"serial missing port", model.ConnectionTypeSerial, map[string]interface{}{}, true},
		{"serial bad baud", model.ConnectionTypeSerial, map[string]interface{}{"port": "COM1", "baud_rate": 1234}, true},
		{"serial bad parity", model.ConnectionTypeSerial, map[string]interface{}{"port": "COM1", "parity": "mark"}, true},
		{"usb ok", model.ConnectionTypeUSB, map[string]interface{}{"vendor_id": "0x04b8", "product_id": "0202"}, false},
		{"usb bad id", model.ConnectionTypeUSB, map[string]interface{}{"vendor_id": "epson", "product_id": "0202"}, true},
		{"tcp ok", model.ConnectionTypeTCP, map[string]interface{}{"host": "10.0.0.5", "write_timeout": "2s"}, false},
		{"tcp bad port", model.ConnectionTypeTCP, map[string]interface{}{"host": "10.0.0.5", "port": 70000}, true},
		{"tcp bad duration", model.ConnectionTypeTCP, map[string]interface{}{"host": "10.0.0.5", "read_timeout": "soon"}, true},
		{"tcp unknown key", model.ConnectionTypeTCP, map[string]interface{}{"host": "10.0.0.5", "colour": "red"}, true},
		{"file ok", model.ConnectionTypeFile, map[string]interface{}{"path": "/dev/usb/lp0"}, false},
		{"file nothing", model.ConnectionTypeFile, map[string]interface{}{}, true},
		{"unknown", model.ConnectionType("BLUETOOTH"), map[string]interface{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.connType, tt.settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsMerge(t *testing.T) {
	cfg := &config.TransportConfig{
		TCP: config.TCPPortConfig{Port: 9100, WriteTimeout: 3 * time.Second},
	}
	merged := Merge(Defaults(model.ConnectionTypeTCP, cfg), map[string]interface{}{"host": "printer.local"})

	tcp, err := tcpConfig(merged)
	if err != nil {
		t.Fatal(err)
	}
	if tcp.Host != "printer.local" || tcp.Port != 9100 || tcp.WriteTimeout != 3*time.Second {
		t.Errorf("merged config = %+v", tcp)
	}
	// unset durations fall back to built-in values
	if tcp.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", tcp.ConnectTimeout)
	}
}

func TestFileConnectionSpool(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(model.ConnectionTypeFile, map[string]interface{}{"spool_dir": dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := tr.Write(ctx, []byte{0x1b, 0x40}); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Write before Open = %v, want ErrNotOpen", err)
	}

	if err := tr.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Write(ctx, []byte{0x1b, 0x40}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Write(ctx, []byte("hi\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Read(ctx, 1); err == nil {
		t.Error("Read from a spool file succeeded")
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if tr.IsOpen() {
		t.Error("IsOpen after Close")
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	if err != nil || len(files) != 1 {
		t.Fatalf("spool files = %v, %v", files, err)
	}
	got, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte("\x1b@hi\n"), got); diff != "" {
		t.Errorf("spool content mismatch (-want +got):\n%s", diff)
	}

	stats := tr.Stats()
	if stats.BytesWritten != 5 || stats.OperationCount != 2 || stats.IsConnected {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFileConnectionPathTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(path, []byte("old content"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := NewFileConnection(&FileConfig{Path: path}, zapNop())
	ctx := context.Background()
	if err := tr.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Write(ctx, []byte("new")); err != nil {
		t.Fatal(err)
	}
	tr.Close()

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("file = %q, want %q", got, "new")
	}
}

func TestTCPConnectionRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		received <- buf
		conn.Write([]byte{0x16}) // status reply
	}()

	addr := ln.Addr().(*net.TCPAddr)
	tr, err := New(model.ConnectionTypeTCP, map[string]interface{}{
		"host": "127.0.0.1",
		"port": addr.Port,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	if err := tr.Write(ctx, []byte{0x10, 0x04, 0x01}); err != nil {
		t.Fatal(err)
	}
	if got := <-received; !bytes.Equal(got, []byte{0x10, 0x04, 0x01}) {
		t.Errorf("server received % x", got)
	}

	reply, err := tr.Read(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reply, []byte{0x16}) {
		t.Errorf("reply = % x", reply)
	}
}

func TestTCPConnectionDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	tr := NewTCPConnection(&TCPConfig{Host: "127.0.0.1", Port: port, ConnectTimeout: time.Second}, zapNop())
	err = tr.Open(context.Background())

	var terr *TransportError
	if !errors.As(err, &terr) || terr.Op != "dial" {
		t.Fatalf("Open() = %v, want dial TransportError", err)
	}
	if errors.Unwrap(terr) == nil {
		t.Error("TransportError does not unwrap")
	}
}

func zapNop() *zap.Logger { return zap.NewNop() }
