// Package tcp discovers network printers by probing raw printing ports
package tcp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-service/internal/discovery"
	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/model"
	"escpos-service/internal/protocol"
)

// Config for TCP scanner
type Config struct {
	NetworkRanges  []string
	Ports          []int
	ConnectTimeout time.Duration
	Workers        int
	// ProbeStatus sends DLE EOT 1 to every open port and checks the reply
	ProbeStatus bool
}

// Scanner probes every host of the configured ranges
type Scanner struct {
	logger *zap.Logger
	config Config
}

// NewScanner creates a new TCP scanner
func NewScanner(logger *zap.Logger, config Config) *Scanner {
	if len(config.Ports) == 0 {
		config.Ports = []int{9100}
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 500 * time.Millisecond
	}
	if config.Workers <= 0 {
		config.Workers = 64
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "tcp")),
		config: config,
	}
}

// Type returns the connection type this scanner finds
func (s *Scanner) Type() model.ConnectionType {
	return model.ConnectionTypeTCP
}

// Available reports whether any network range is configured
func (s *Scanner) Available() bool {
	return len(s.config.NetworkRanges) > 0
}

type target struct {
	host string
	port int
}

// Hosts expands a CIDR range into its host addresses. Network and broadcast
// addresses of IPv4 ranges wider than /31 are skipped.
func Hosts(cidr string) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid network range %q: %w", cidr, err)
	}
	prefix = prefix.Masked()
	bits := prefix.Addr().BitLen() - prefix.Bits()
	if bits > 16 {
		return nil, fmt.Errorf("network range %s is larger than a /16", cidr)
	}

	var hosts []string
	for addr := prefix.Addr(); prefix.Contains(addr); addr = addr.Next() {
		hosts = append(hosts, addr.String())
	}
	if prefix.Addr().Is4() && bits > 1 && len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

// Scan performs TCP network printer discovery
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	startTime := time.Now()

	var targets []target
	for _, r := range s.config.NetworkRanges {
		hosts, err := Hosts(r)
		if err != nil {
			return nil, err
		}
		for _, h := range hosts {
			for _, p := range s.config.Ports {
				targets = append(targets, target{host: h, port: p})
			}
		}
	}

	jobs := make(chan target)
	results := make(chan *discovery.Candidate)
	var wg sync.WaitGroup

	workers := s.config.Workers
	if workers > len(targets) {
		workers = len(targets)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if c := s.probe(ctx, t); c != nil {
					results <- c
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range targets {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var found []*discovery.Candidate
	for c := range results {
		found = append(found, c)
	}

	s.logger.Info("TCP scan completed",
		zap.Int("targets", len(targets)),
		zap.Int("devices_found", len(found)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)
	return found, ctx.Err()
}

// probe connects to one port and, when enabled, asks for printer status
func (s *Scanner) probe(ctx context.Context, t target) *discovery.Candidate {
	conn := protocol.NewTCPConnection(&protocol.TCPConfig{
		Host:           t.host,
		Port:           t.port,
		ConnectTimeout: s.config.ConnectTimeout,
		ReadTimeout:    s.config.ConnectTimeout,
		WriteTimeout:   s.config.ConnectTimeout,
	}, zap.NewNop())
	if err := conn.Open(ctx); err != nil {
		return nil
	}
	defer conn.Close()

	c := &discovery.Candidate{
		ConnectionType:   model.ConnectionTypeTCP,
		ConnectionConfig: model.JSONObject{"host": t.host, "port": t.port},
		Location:         net.JoinHostPort(t.host, fmt.Sprint(t.port)),
		Confidence:       0.4,
	}
	if !s.config.ProbeStatus {
		return c
	}

	if err := conn.Write(ctx, escpos.StatusQuery(escpos.StatusPrinter)); err != nil {
		return c
	}
	reply, err := conn.Read(ctx, 1)
	if err != nil || len(reply) == 0 {
		return c
	}
	var status escpos.Status
	if err := status.ParseStatus(escpos.StatusPrinter, reply[0]); err != nil {
		s.logger.Debug("Open port did not answer like a printer", zap.String("address", c.Location))
		return c
	}
	online := status.Online
	c.Online = &online
	c.Confidence = 0.9
	return c
}
