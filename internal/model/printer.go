// internal/model/printer.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// PrinterStatus represents the last known state of a printer
type PrinterStatus string

const (
	PrinterStatusUnknown PrinterStatus = "UNKNOWN"
	PrinterStatusOnline  PrinterStatus = "ONLINE"
	PrinterStatusOffline PrinterStatus = "OFFLINE"
	PrinterStatusError   PrinterStatus = "ERROR"
)

// ConnectionType represents how the printer is attached
type ConnectionType string

const (
	ConnectionTypeSerial ConnectionType = "SERIAL"
	ConnectionTypeUSB    ConnectionType = "USB"
	ConnectionTypeTCP    ConnectionType = "TCP"
	ConnectionTypeFile   ConnectionType = "FILE"
)

// ConnectionTypes lists every supported connection type
var ConnectionTypes = []ConnectionType{
	ConnectionTypeSerial,
	ConnectionTypeUSB,
	ConnectionTypeTCP,
	ConnectionTypeFile,
}

// Valid reports whether t is a supported connection type
func (t ConnectionType) Valid() bool {
	for _, known := range ConnectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Printer is a registered receipt printer
type Printer struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	Name             string         `json:"name" db:"name"`
	Model            string         `json:"model" db:"model"`
	ConnectionType   ConnectionType `json:"connection_type" db:"connection_type"`
	ConnectionConfig JSONObject     `json:"connection_config" db:"connection_config"`
	Location         *string        `json:"location,omitempty" db:"location"`
	Status           PrinterStatus  `json:"status" db:"status"`
	LastSeen         *time.Time     `json:"last_seen,omitempty" db:"last_seen"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// IsOnline checks if the printer answered its last contact
func (p *Printer) IsOnline() bool {
	return p.Status == PrinterStatusOnline
}

// CreatePrinterRequest is the body of POST /printers
type CreatePrinterRequest struct {
	Name             string         `json:"name" binding:"required"`
	Model            string         `json:"model"`
	ConnectionType   ConnectionType `json:"connection_type" binding:"required"`
	ConnectionConfig JSONObject     `json:"connection_config" binding:"required"`
	Location         *string        `json:"location,omitempty"`
}

// UpdatePrinterRequest is the body of PUT /printers/:printer_id
type UpdatePrinterRequest struct {
	Name             *string        `json:"name,omitempty"`
	Model            *string        `json:"model,omitempty"`
	ConnectionType   ConnectionType `json:"connection_type,omitempty"`
	ConnectionConfig JSONObject     `json:"connection_config,omitempty"`
	Location         *string        `json:"location,omitempty"`
}
