package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func TestHosts(t *testing.T) {
	hosts, err := Hosts("192.168.7.0/30")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"192.168.7.1", "192.168.7.2"}, hosts); diff != "" {
		t.Errorf("hosts (-want +got):\n%s", diff)
	}

	if hosts, _ := Hosts("10.0.0.5/32"); len(hosts) != 1 {
		t.Errorf("/32 should yield one host, got %v", hosts)
	}
	if _, err := Hosts("10.0.0.0/8"); err == nil {
		t.Error("ranges wider than /16 should be rejected")
	}
	if _, err := Hosts("not-a-range"); err == nil {
		t.Error("invalid range should fail")
	}
}

// fakePrinter answers every DLE EOT query with reply
func fakePrinter(t *testing.T, reply byte) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 3)
				if _, err := c.Read(buf); err == nil && buf[0] == 0x10 && buf[1] == 0x04 {
					c.Write([]byte{reply})
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestScanFindsPrinter(t *testing.T) {
	port := fakePrinter(t, 0x16)

	s := NewScanner(zap.NewNop(), Config{
		NetworkRanges:  []string{"127.0.0.1/32"},
		Ports:          []int{port},
		ConnectTimeout: time.Second,
		ProbeStatus:    true,
	})
	if !s.Available() {
		t.Fatal("scanner with a range should be available")
	}

	found, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d candidates, want 1", len(found))
	}
	c := found[0]
	if c.Confidence != 0.9 || c.Online == nil || !*c.Online {
		t.Errorf("printer not recognised: %+v", c)
	}
	if c.ConnectionConfig["host"] != "127.0.0.1" || c.ConnectionConfig["port"] != port {
		t.Errorf("connection config = %v", c.ConnectionConfig)
	}
}

func TestScanOpenPortWithoutPrinter(t *testing.T) {
	port := fakePrinter(t, 0xFF)

	s := NewScanner(zap.NewNop(), Config{
		NetworkRanges:  []string{"127.0.0.1/32"},
		Ports:          []int{port},
		ConnectTimeout: time.Second,
		ProbeStatus:    true,
	})
	found, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 1 || found[0].Confidence != 0.4 || found[0].Online != nil {
		t.Errorf("unexpected candidates: %+v", found)
	}
}
