package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

type stubScanner struct {
	kind      model.ConnectionType
	available bool
	found     []*Candidate
	err       error
}

func (s *stubScanner) Scan(ctx context.Context) ([]*Candidate, error) { return s.found, s.err }
func (s *stubScanner) Type() model.ConnectionType                    { return s.kind }
func (s *stubScanner) Available() bool                               { return s.available }

func TestManagerScan(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&stubScanner{
		kind: model.ConnectionTypeSerial, available: true,
		found: []*Candidate{{ConnectionType: model.ConnectionTypeSerial, Confidence: 0.1}},
	})
	m.Register(&stubScanner{
		kind: model.ConnectionTypeUSB, available: true,
		found: []*Candidate{{ConnectionType: model.ConnectionTypeUSB, Confidence: 0.95}},
	})
	m.Register(&stubScanner{kind: model.ConnectionTypeTCP, available: false})

	if diff := cmp.Diff([]model.ConnectionType{"SERIAL", "USB"}, m.Available()); diff != "" {
		t.Errorf("available (-want +got):\n%s", diff)
	}

	found, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 2 || found[0].ConnectionType != model.ConnectionTypeUSB {
		t.Errorf("candidates not ordered by confidence: %+v", found)
	}

	if _, err := m.Scan(context.Background(), model.ConnectionTypeTCP); err == nil {
		t.Error("scanning an unavailable type should fail")
	}
}

func TestManagerKeepsPartialResults(t *testing.T) {
	m := NewManager(zap.NewNop())
	boom := errors.New("permission denied")
	m.Register(&stubScanner{kind: model.ConnectionTypeUSB, available: true, err: boom})
	m.Register(&stubScanner{
		kind: model.ConnectionTypeSerial, available: true,
		found: []*Candidate{{ConnectionType: model.ConnectionTypeSerial}},
	})

	found, err := m.Scan(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want it to wrap the scanner failure", err)
	}
	if len(found) != 1 {
		t.Errorf("found %d candidates, want 1", len(found))
	}
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name      string
		vendor    uint16
		product   uint16
		wantOK    bool
		wantModel string
	}{
		{"known product", 0x04B8, 0x0202, true, "TM-T88IV"},
		{"known vendor", 0x04B8, 0xFFFF, true, "TM-T88V"},
		{"clone", 0x0416, 0x5011, true, "POS-5890"},
		{"unknown", 0x1234, 0x0001, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Identify(tt.vendor, tt.product)
			if ok != tt.wantOK || id.Model != tt.wantModel {
				t.Errorf("Identify(%04x, %04x) = %+v, %v", tt.vendor, tt.product, id, ok)
			}
		})
	}
}

func TestUSBIDs(t *testing.T) {
	for _, s := range []string{"0x04b8", "04B8", "4b8"} {
		id, err := ParseUSBID(s)
		if err != nil || id != 0x04B8 {
			t.Errorf("ParseUSBID(%q) = %x, %v", s, id, err)
		}
	}
	if _, err := ParseUSBID("xyz"); err == nil {
		t.Error("invalid id should fail")
	}
	if got := FormatUSBID(0x04B8); got != "0x04b8" {
		t.Errorf("FormatUSBID = %s", got)
	}
}
