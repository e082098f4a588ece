package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

type knownProduct struct {
	name  string
	model string
}

type knownVendor struct {
	name string
	// model suggested for products not listed below
	model    string
	products map[uint16]knownProduct
}

var knownVendors = map[uint16]*knownVendor{
	0x04B8: {
		name:  "Seiko Epson Corporation",
		model: "TM-T88V",
		products: map[uint16]knownProduct{
			0x0202: {"TM-T88IV", "TM-T88IV"},
			0x0203: {"TM-T88V", "TM-T88V"},
			0x0214: {"TM-T88VI", "TM-T88V"},
			0x0215: {"TM-T20II", "TM-T20II"},
			0x0E03: {"TM-P80", "TM-P80"},
			0x0E15: {"TM-T20II", "TM-T20II"},
		},
	},
	0x0519: {
		name:  "Star Micronics Co., Ltd.",
		model: "simple",
	},
	0x1CBE: {
		name:  "Citizen Systems Japan Co., Ltd.",
		model: "simple",
	},
	0x1504: {
		name:  "BIXOLON Co., Ltd.",
		model: "SRP-350plus",
		products: map[uint16]knownProduct{
			0x0006: {"SRP-330II", "SRP-350plus"},
			0x0007: {"SRP-350III", "SRP-350plus"},
		},
	},
	0x0416: {
		name:  "Winbond Electronics Corp.",
		model: "POS-5890",
		products: map[uint16]knownProduct{
			0x5011: {"POS-58 thermal printer", "POS-5890"},
		},
	},
}

// Identification is what the vendor table knows about a USB id pair
type Identification struct {
	Vendor     string
	Product    string
	Model      string
	Confidence float64
}

// Identify looks up a USB vendor/product pair. ok is false for unknown vendors.
func Identify(vendorID, productID uint16) (Identification, bool) {
	vendor, ok := knownVendors[vendorID]
	if !ok {
		return Identification{}, false
	}
	if p, ok := vendor.products[productID]; ok {
		return Identification{Vendor: vendor.name, Product: p.name, Model: p.model, Confidence: 0.95}, true
	}
	return Identification{Vendor: vendor.name, Model: vendor.model, Confidence: 0.7}, true
}

// ParseUSBID parses an id written as 0x04b8, 04B8 or 4b8
func ParseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB id %q: %w", s, err)
	}
	return uint16(id), nil
}

// FormatUSBID is the form stored in a printer's connection_config
func FormatUSBID(id uint16) string {
	return fmt.Sprintf("0x%04x", id)
}
