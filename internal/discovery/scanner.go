// Package discovery finds receipt printers attached over USB, serial lines or
// the network and suggests a registration for each.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// Scanner finds printers on one kind of connection
type Scanner interface {
	Scan(ctx context.Context) ([]*Candidate, error)
	Type() model.ConnectionType
	Available() bool
}

// Candidate is a device that looks like a printer
type Candidate struct {
	ConnectionType   model.ConnectionType `json:"connection_type"`
	ConnectionConfig model.JSONObject     `json:"connection_config"`
	Vendor           string               `json:"vendor,omitempty"`
	Product          string               `json:"product,omitempty"`
	Model            string               `json:"model"`
	SerialNumber     string               `json:"serial_number,omitempty"`
	Location         string               `json:"location,omitempty"`
	Confidence       float64              `json:"confidence"` // 0.0-1.0
	Online           *bool                `json:"online,omitempty"`
}

// Manager runs a set of scanners
type Manager struct {
	scanners map[model.ConnectionType]Scanner
	logger   *zap.Logger
}

// NewManager creates a manager with no scanners
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		scanners: make(map[model.ConnectionType]Scanner),
		logger:   logger,
	}
}

// Register adds a scanner, replacing one of the same type
func (m *Manager) Register(s Scanner) {
	m.scanners[s.Type()] = s
	m.logger.Debug("Scanner registered", zap.String("type", string(s.Type())))
}

// Available lists the connection types that can be scanned here
func (m *Manager) Available() []model.ConnectionType {
	var types []model.ConnectionType
	for t, s := range m.scanners {
		if s.Available() {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Scan runs the scanners for types, or every available scanner when types is
// empty. A failing scanner does not stop the others; its error is returned
// alongside whatever was found.
func (m *Manager) Scan(ctx context.Context, types ...model.ConnectionType) ([]*Candidate, error) {
	if len(types) == 0 {
		types = m.Available()
	}

	var (
		found []*Candidate
		errs  []error
	)
	for _, t := range types {
		scanner, ok := m.scanners[t]
		if !ok {
			errs = append(errs, fmt.Errorf("no scanner for connection type %s", t))
			continue
		}
		if !scanner.Available() {
			errs = append(errs, fmt.Errorf("%s scanning is not available", t))
			continue
		}

		candidates, err := scanner.Scan(ctx)
		if err != nil {
			m.logger.Warn("Scanner failed", zap.String("type", string(t)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s scan: %w", t, err))
		}
		m.logger.Info("Scanner completed",
			zap.String("type", string(t)),
			zap.Int("candidates", len(candidates)),
		)
		found = append(found, candidates...)

		if ctx.Err() != nil {
			break
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Confidence > found[j].Confidence })
	return found, errors.Join(errs...)
}
