// Package usb discovers printers on the USB bus
package usb

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"escpos-service/internal/discovery"
	"escpos-service/internal/model"
)

// Scanner enumerates USB devices that are printers or come from a known
// printer vendor
type Scanner struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewScanner creates a new USB scanner
func NewScanner(logger *zap.Logger, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "usb")),
		timeout: timeout,
	}
}

// Type returns the connection type this scanner finds
func (s *Scanner) Type() model.ConnectionType {
	return model.ConnectionTypeUSB
}

// Available reports whether libusb is usable on this platform
func (s *Scanner) Available() bool {
	switch runtime.GOOS {
	case "linux", "darwin", "windows", "freebsd":
		return true
	}
	return false
}

// isPrinterClass checks the device class and every interface class for the
// USB printer class
func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// Scan performs USB device discovery
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	// OpenDevices returns the devices it could open even when others fail
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, known := discovery.Identify(uint16(desc.Vendor), uint16(desc.Product))
		return known || isPrinterClass(desc)
	})
	defer func() {
		for _, d := range devices {
			d.Close()
		}
	}()
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if err != nil {
		s.logger.Debug("Some USB devices could not be opened", zap.Error(err))
	}

	var found []*discovery.Candidate
	for _, device := range devices {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		found = append(found, s.describe(device))
	}

	s.logger.Info("USB scan completed",
		zap.Int("devices_found", len(found)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)
	return found, nil
}

// describe turns an opened device into a candidate
func (s *Scanner) describe(device *gousb.Device) *discovery.Candidate {
	desc := device.Desc
	vendorID, productID := uint16(desc.Vendor), uint16(desc.Product)

	c := &discovery.Candidate{
		ConnectionType: model.ConnectionTypeUSB,
		ConnectionConfig: model.JSONObject{
			"vendor_id":  discovery.FormatUSBID(vendorID),
			"product_id": discovery.FormatUSBID(productID),
		},
		Location:   fmt.Sprintf("bus %d address %d", desc.Bus, desc.Address),
		Confidence: 0.6,
	}

	if id, ok := discovery.Identify(vendorID, productID); ok {
		c.Vendor, c.Product, c.Model, c.Confidence = id.Vendor, id.Product, id.Model, id.Confidence
	}
	if c.Vendor == "" {
		c.Vendor = stringDescriptor(device.Manufacturer)
	}
	if c.Product == "" {
		c.Product = stringDescriptor(device.Product)
	}
	if serial := stringDescriptor(device.SerialNumber); serial != "" {
		c.SerialNumber = serial
		c.ConnectionConfig["serial_number"] = serial
	}
	return c
}

// stringDescriptor reads an optional string descriptor; many printers have none
func stringDescriptor(read func() (string, error)) string {
	v, err := read()
	if err != nil {
		return ""
	}
	return v
}
