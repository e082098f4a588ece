// internal/protocol/connection.go
package protocol

import (
	"time"

	"escpos-service/internal/config"
	"escpos-service/internal/model"
)

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Port     string        `mapstructure:"port" json:"port"`
	BaudRate int           `mapstructure:"baud_rate" json:"baud_rate"`
	DataBits int           `mapstructure:"data_bits" json:"data_bits"`
	StopBits int           `mapstructure:"stop_bits" json:"stop_bits"`
	Parity   string        `mapstructure:"parity" json:"parity"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// USBConfig represents USB connection configuration
type USBConfig struct {
	VendorID         string        `mapstructure:"vendor_id" json:"vendor_id"`
	ProductID        string        `mapstructure:"product_id" json:"product_id"`
	Interface        int           `mapstructure:"interface" json:"interface"`
	Endpoint         int           `mapstructure:"endpoint" json:"endpoint"`
	InEndpoint       int           `mapstructure:"in_endpoint" json:"in_endpoint"`
	SerialNumber     string        `mapstructure:"serial_number" json:"serial_number"`
	BulkTransferSize int           `mapstructure:"bulk_transfer_size" json:"bulk_transfer_size"`
	Timeout          time.Duration `mapstructure:"timeout" json:"timeout"`
}

// TCPConfig represents TCP connection configuration
type TCPConfig struct {
	Host           string        `mapstructure:"host" json:"host"`
	Port           int           `mapstructure:"port" json:"port"`
	SSL            bool          `mapstructure:"ssl" json:"ssl"`
	KeepAlive      bool          `mapstructure:"keep_alive" json:"keep_alive"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
}

// FileConfig writes to a device node such as /dev/usb/lp0, or spools
// every session into its own file under SpoolDir when Path is empty.
type FileConfig struct {
	Path     string `mapstructure:"path" json:"path"`
	SpoolDir string `mapstructure:"spool_dir" json:"spool_dir"`
	Append   bool   `mapstructure:"append" json:"append"`
}

// Defaults returns the configured defaults for a connection type as a
// settings map. Printer-specific settings are layered on top of it.
func Defaults(connectionType model.ConnectionType, cfg *config.TransportConfig) map[string]interface{} {
	return withoutZero(defaults(connectionType, cfg))
}

func defaults(connectionType model.ConnectionType, cfg *config.TransportConfig) map[string]interface{} {
	switch connectionType {
	case model.ConnectionTypeSerial:
		return map[string]interface{}{
			"baud_rate": cfg.Serial.BaudRate,
			"data_bits": cfg.Serial.DataBits,
			"stop_bits": cfg.Serial.StopBits,
			"parity":    cfg.Serial.Parity,
			"timeout":   cfg.Serial.Timeout,
		}
	case model.ConnectionTypeUSB:
		return map[string]interface{}{
			"timeout":            cfg.USB.Timeout,
			"bulk_transfer_size": cfg.USB.BulkTransferSize,
		}
	case model.ConnectionTypeTCP:
		return map[string]interface{}{
			"port":            cfg.TCP.Port,
			"keep_alive":      cfg.TCP.KeepAlive,
			"connect_timeout": cfg.TCP.ConnectTimeout,
			"read_timeout":    cfg.TCP.ReadTimeout,
			"write_timeout":   cfg.TCP.WriteTimeout,
		}
	case model.ConnectionTypeFile:
		return map[string]interface{}{
			"spool_dir": cfg.File.SpoolDir,
		}
	default:
		return map[string]interface{}{}
	}
}

// Merge layers settings over defaults without modifying either map
func Merge(defaults, settings map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(settings))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range settings {
		merged[k] = v
	}
	return merged
}

// withoutZero drops unset numbers and strings so built-in defaults apply
func withoutZero(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		switch v := v.(type) {
		case int:
			if v == 0 {
				delete(m, k)
			}
		case string:
			if v == "" {
				delete(m, k)
			}
		case time.Duration:
			if v == 0 {
				delete(m, k)
			}
		}
	}
	return m
}
