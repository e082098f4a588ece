// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// New creates a transport for connectionType from a settings map, as
// stored in a printer's connection_config
func New(connectionType model.ConnectionType, settings map[string]interface{}, logger *zap.Logger) (Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch connectionType {
	case model.ConnectionTypeSerial:
		cfg, err := serialConfig(settings)
		if err != nil {
			return nil, err
		}
		logger.Debug("Creating serial transport",
			zap.String("port", cfg.Port),
			zap.Int("baud_rate", cfg.BaudRate),
		)
		return NewSerialConnection(cfg, logger), nil

	case model.ConnectionTypeUSB:
		cfg, err := usbConfig(settings)
		if err != nil {
			return nil, err
		}
		logger.Debug("Creating USB transport",
			zap.String("vendor_id", cfg.VendorID),
			zap.String("product_id", cfg.ProductID),
		)
		return NewUSBConnection(cfg, logger), nil

	case model.ConnectionTypeTCP:
		cfg, err := tcpConfig(settings)
		if err != nil {
			return nil, err
		}
		logger.Debug("Creating TCP transport",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.Bool("ssl", cfg.SSL),
		)
		return NewTCPConnection(cfg, logger), nil

	case model.ConnectionTypeFile:
		cfg, err := fileConfig(settings)
		if err != nil {
			return nil, err
		}
		logger.Debug("Creating file transport",
			zap.String("path", cfg.Path),
			zap.String("spool_dir", cfg.SpoolDir),
		)
		return NewFileConnection(cfg, logger), nil

	default:
		return nil, fmt.Errorf("unsupported connection type: %s", connectionType)
	}
}

// ValidateConfig validates configuration for a specific connection type
func ValidateConfig(connectionType model.ConnectionType, settings map[string]interface{}) error {
	var err error
	switch connectionType {
	case model.ConnectionTypeSerial:
		_, err = serialConfig(settings)
	case model.ConnectionTypeUSB:
		_, err = usbConfig(settings)
	case model.ConnectionTypeTCP:
		_, err = tcpConfig(settings)
	case model.ConnectionTypeFile:
		_, err = fileConfig(settings)
	default:
		err = fmt.Errorf("unsupported connection type: %s", connectionType)
	}
	return err
}

// decode copies a settings map onto a typed config. JSON numbers,
// duration strings and unknown keys are handled here.
func decode(settings map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("invalid connection config: %w", err)
	}
	return nil
}

func serialConfig(settings map[string]interface{}) (*SerialConfig, error) {
	cfg := &SerialConfig{
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  5 * time.Second,
	}
	if err := decode(settings, cfg); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}
	valid := false
	for _, rate := range validBaudRates {
		if cfg.BaudRate == rate {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid baud rate: %d", cfg.BaudRate)
	}
	if cfg.DataBits < 5 || cfg.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits: %d", cfg.DataBits)
	}
	if cfg.StopBits != 1 && cfg.StopBits != 2 {
		return nil, fmt.Errorf("invalid stop bits: %d", cfg.StopBits)
	}
	switch cfg.Parity {
	case "none", "odd", "even":
	default:
		return nil, fmt.Errorf("invalid parity: %s", cfg.Parity)
	}
	return cfg, nil
}

func usbConfig(settings map[string]interface{}) (*USBConfig, error) {
	cfg := &USBConfig{
		Endpoint:         1,
		InEndpoint:       2,
		BulkTransferSize: 4096,
		Timeout:          5 * time.Second,
	}
	if err := decode(settings, cfg); err != nil {
		return nil, err
	}

	if cfg.VendorID == "" {
		return nil, fmt.Errorf("USB vendor_id is required")
	}
	if cfg.ProductID == "" {
		return nil, fmt.Errorf("USB product_id is required")
	}
	if _, err := parseHexID(cfg.VendorID); err != nil {
		return nil, fmt.Errorf("invalid vendor_id %q: %w", cfg.VendorID, err)
	}
	if _, err := parseHexID(cfg.ProductID); err != nil {
		return nil, fmt.Errorf("invalid product_id %q: %w", cfg.ProductID, err)
	}
	if cfg.BulkTransferSize <= 0 {
		return nil, fmt.Errorf("invalid bulk_transfer_size: %d", cfg.BulkTransferSize)
	}
	return cfg, nil
}

func tcpConfig(settings map[string]interface{}) (*TCPConfig, error) {
	cfg := &TCPConfig{
		Port:           9100, // raw printing port
		KeepAlive:      true,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
	if err := decode(settings, cfg); err != nil {
		return nil, err
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("TCP host is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", cfg.Port)
	}
	return cfg, nil
}

func fileConfig(settings map[string]interface{}) (*FileConfig, error) {
	cfg := &FileConfig{}
	if err := decode(settings, cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" && cfg.SpoolDir == "" {
		return nil, fmt.Errorf("file path or spool_dir is required")
	}
	return cfg, nil
}

// parseHexID parses a USB id written as 0x04b8 or 04b8
func parseHexID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(id), nil
}
