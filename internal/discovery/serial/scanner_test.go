package serial

import (
	"context"
	"testing"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

func TestScanRanksKnownAdapters(t *testing.T) {
	list := func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "04b8", PID: "0202", SerialNumber: "X5E1"},
			{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1a86", PID: "7523", Product: "USB Serial"},
		}, nil
	}

	found, err := NewScanner(zap.NewNop(), list).Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 3 {
		t.Fatalf("found %d ports, want 3", len(found))
	}

	plain, epson, adapter := found[0], found[1], found[2]
	if plain.Confidence != 0.1 || plain.ConnectionConfig["port"] != "/dev/ttyS0" {
		t.Errorf("plain port: %+v", plain)
	}
	if epson.Model != "TM-T88IV" || epson.SerialNumber != "X5E1" || epson.Confidence <= adapter.Confidence {
		t.Errorf("epson adapter: %+v", epson)
	}
	if adapter.Model != "" || adapter.Product != "USB Serial" {
		t.Errorf("unknown adapter: %+v", adapter)
	}
}
