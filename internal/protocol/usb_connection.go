// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// USBConnection implements Transport for USB printer-class devices
type USBConnection struct {
	statsRecorder
	config   *USBConfig
	ctx      *gousb.Context
	device   *gousb.Device
	cfg      *gousb.Config
	intf     *gousb.Interface
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) *USBConnection {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
	}
}

func (uc *USBConnection) fail(op string, err error) error {
	return &TransportError{Type: model.ConnectionTypeUSB, Op: op, Err: err}
}

// Open claims the printer interface and its bulk endpoints
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.outEndpt != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vendorID, err := parseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}
	productID, err := parseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	uc.ctx = gousb.NewContext()
	if err := uc.open(gousb.ID(vendorID), gousb.ID(productID)); err != nil {
		uc.release()
		uc.logger.Error("Failed to open USB printer", zap.Error(err))
		return uc.fail("open", err)
	}

	uc.setConnected(true)
	uc.logger.Debug("USB printer opened", zap.Int("interface", uc.config.Interface))
	return nil
}

func (uc *USBConnection) open(vendorID, productID gousb.ID) error {
	device, err := uc.findDevice(vendorID, productID)
	if err != nil {
		return err
	}
	uc.device = device

	// the kernel usblp driver usually owns the interface
	if err := device.SetAutoDetach(true); err != nil {
		uc.logger.Warn("Failed to enable kernel driver auto-detach", zap.Error(err))
	}

	num, err := device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to read active config: %w", err)
	}
	if uc.cfg, err = device.Config(num); err != nil {
		return fmt.Errorf("failed to select config %d: %w", num, err)
	}
	if uc.intf, err = uc.cfg.Interface(uc.config.Interface, 0); err != nil {
		return fmt.Errorf("failed to claim interface %d: %w", uc.config.Interface, err)
	}
	if uc.outEndpt, err = uc.intf.OutEndpoint(uc.config.Endpoint); err != nil {
		return fmt.Errorf("failed to get out endpoint %d: %w", uc.config.Endpoint, err)
	}

	// status replies need an IN endpoint; write-only printers have none
	if uc.inEndpt, err = uc.intf.InEndpoint(uc.config.InEndpoint); err != nil {
		uc.logger.Debug("No IN endpoint, status queries unavailable", zap.Error(err))
		uc.inEndpt = nil
	}
	return nil
}

// findDevice opens the first device matching ids and serial number
func (uc *USBConnection) findDevice(vendorID, productID gousb.ID) (*gousb.Device, error) {
	devices, err := uc.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	var found *gousb.Device
	for _, d := range devices {
		if found == nil && uc.matchesSerial(d) {
			found = d
			continue
		}
		d.Close()
	}
	if found == nil {
		return nil, fmt.Errorf("USB device not found (VID: %s, PID: %s)", vendorID, productID)
	}
	return found, nil
}

func (uc *USBConnection) matchesSerial(d *gousb.Device) bool {
	if uc.config.SerialNumber == "" {
		return true
	}
	serial, err := d.SerialNumber()
	return err == nil && serial == uc.config.SerialNumber
}

// release frees everything acquired so far, innermost first
func (uc *USBConnection) release() {
	if uc.intf != nil {
		uc.intf.Close()
		uc.intf = nil
	}
	if uc.cfg != nil {
		uc.cfg.Close()
		uc.cfg = nil
	}
	if uc.device != nil {
		uc.device.Close()
		uc.device = nil
	}
	if uc.ctx != nil {
		uc.ctx.Close()
		uc.ctx = nil
	}
	uc.outEndpt = nil
	uc.inEndpt = nil
}

// Close releases the interface and the libusb context
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.ctx == nil {
		return nil
	}
	uc.release()
	uc.setConnected(false)
	return nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.outEndpt != nil
}

// Write sends data in bulk transfers of at most BulkTransferSize bytes
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if uc.outEndpt == nil {
		return uc.fail("write", ErrNotOpen)
	}

	startTime := time.Now()
	for offset := 0; offset < len(data); {
		end := offset + uc.config.BulkTransferSize
		if end > len(data) {
			end = len(data)
		}

		writeCtx, cancel := context.WithTimeout(ctx, uc.config.Timeout)
		n, err := uc.outEndpt.WriteContext(writeCtx, data[offset:end])
		cancel()
		if err != nil {
			uc.recordError()
			return uc.fail("write", err)
		}
		if n == 0 {
			uc.recordError()
			return uc.fail("write", fmt.Errorf("device accepted 0 of %d bytes", end-offset))
		}
		offset += n
	}

	uc.recordWrite(len(data), time.Since(startTime))
	return nil
}

// Read reads one status reply from the IN endpoint
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if uc.outEndpt == nil {
		return nil, uc.fail("read", ErrNotOpen)
	}
	if uc.inEndpt == nil {
		return nil, uc.fail("read", fmt.Errorf("no IN endpoint"))
	}

	// a bulk IN transfer must request a whole packet
	size := uc.inEndpt.Desc.MaxPacketSize
	if size < maxBytes {
		size = maxBytes
	}
	buffer := make([]byte, size)
	n, err := uc.inEndpt.ReadContext(ctx, buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		uc.recordError()
		return nil, uc.fail("read", err)
	}
	if n > maxBytes {
		n = maxBytes
	}

	uc.recordRead(n)
	return buffer[:n], nil
}

// Type returns the connection type
func (uc *USBConnection) Type() model.ConnectionType {
	return model.ConnectionTypeUSB
}
