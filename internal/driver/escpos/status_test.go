package escpos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type scriptedPrinter struct {
	replies map[byte]byte
	sent    [][]byte
	readErr error
	last    byte
}

func (p *scriptedPrinter) Write(_ context.Context, data []byte) error {
	p.sent = append(p.sent, append([]byte(nil), data...))
	p.last = data[len(data)-1]
	return nil
}

func (p *scriptedPrinter) Read(_ context.Context, _ int) ([]byte, error) {
	if p.readErr != nil {
		return nil, p.readErr
	}
	return []byte{p.replies[p.last]}, nil
}

func TestQueryStatus(t *testing.T) {
	p := &scriptedPrinter{replies: map[byte]byte{
		1: 0x16, // online, drawer signal high
		2: 0x16, // cover open
		3: 0x12,
		4: 0x7E, // near end and paper out
	}}
	st, err := QueryStatus(context.Background(), p, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Online || !st.DrawerSignal || !st.CoverOpen || st.CutterError || !st.PaperNearEnd || !st.PaperOut {
		t.Errorf("unexpected status %+v", st)
	}
	want := [][]byte{{0x10, 0x04, 1}, {0x10, 0x04, 2}, {0x10, 0x04, 3}, {0x10, 0x04, 4}}
	if diff := cmp.Diff(want, p.sent); diff != "" {
		t.Errorf("queries (-want +got):\n%s", diff)
	}
}

func TestQueryStatusErrors(t *testing.T) {
	boom := errors.New("timeout")
	if _, err := QueryStatus(context.Background(), &scriptedPrinter{readErr: boom}, time.Second); !errors.Is(err, boom) {
		t.Errorf("read error not wrapped: %v", err)
	}

	bad := &scriptedPrinter{replies: map[byte]byte{1: 0xFF}}
	if _, err := QueryStatus(context.Background(), bad, time.Second); err == nil {
		t.Error("invalid status byte accepted")
	}
}

func TestParseStatusOffline(t *testing.T) {
	var st Status
	if err := st.ParseStatus(StatusPrinter, 0x1A); err != nil {
		t.Fatal(err)
	}
	if st.Online {
		t.Error("bit 3 set must mean offline")
	}
}
