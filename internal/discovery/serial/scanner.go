// Package serial discovers printers behind serial ports
package serial

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"escpos-service/internal/discovery"
	"escpos-service/internal/model"
)

// PortLister returns the serial ports present on the system
type PortLister func() ([]*enumerator.PortDetails, error)

// Scanner lists serial ports. USB serial adapters from known printer vendors
// rank highest; plain ports are reported with low confidence.
type Scanner struct {
	logger *zap.Logger
	list   PortLister
}

// NewScanner creates a serial scanner. A nil lister uses the system enumerator.
func NewScanner(logger *zap.Logger, list PortLister) *Scanner {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		list:   list,
	}
}

// Type returns the connection type this scanner finds
func (s *Scanner) Type() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// Available is always true; the enumerator works on every supported platform
func (s *Scanner) Available() bool {
	return true
}

// Scan performs serial port discovery
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	found := make([]*discovery.Candidate, 0, len(ports))
	for _, port := range ports {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		found = append(found, s.describe(port))
	}

	s.logger.Info("Serial scan completed", zap.Int("ports_found", len(found)))
	return found, nil
}

func (s *Scanner) describe(port *enumerator.PortDetails) *discovery.Candidate {
	c := &discovery.Candidate{
		ConnectionType:   model.ConnectionTypeSerial,
		ConnectionConfig: model.JSONObject{"port": port.Name},
		Location:         port.Name,
		Confidence:       0.1,
	}
	if !port.IsUSB {
		return c
	}

	c.Product = port.Product
	c.SerialNumber = port.SerialNumber
	c.Confidence = 0.3

	vendorID, vErr := discovery.ParseUSBID(port.VID)
	productID, pErr := discovery.ParseUSBID(port.PID)
	if vErr != nil || pErr != nil {
		s.logger.Debug("Unreadable USB ids on serial port",
			zap.String("port", port.Name),
			zap.String("vid", port.VID),
			zap.String("pid", port.PID),
		)
		return c
	}
	if id, ok := discovery.Identify(vendorID, productID); ok {
		c.Vendor, c.Model = id.Vendor, id.Model
		if id.Product != "" {
			c.Product = id.Product
		}
		c.Confidence = id.Confidence - 0.05
	}
	return c
}
