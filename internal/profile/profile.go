// Package profile describes what a printer model can do and which codepages it
// prefers. Profiles come from an embedded registry and are read-only once loaded.
package profile

import (
	"fmt"
	"strings"
)

// DefaultModel is the profile returned for unknown models.
const DefaultModel = "default"

// Density is a print resolution level for bit images.
type Density int

const (
	DensityLow Density = iota
	DensityMedium
	DensityHigh
)

func (d Density) String() string {
	switch d {
	case DensityLow:
		return "low"
	case DensityMedium:
		return "medium"
	case DensityHigh:
		return "high"
	default:
		return fmt.Sprintf("Density(%d)", int(d))
	}
}

// ParseDensity resolves "low", "medium" or "high".
func ParseDensity(s string) (Density, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return DensityLow, nil
	case "medium":
		return DensityMedium, nil
	case "high", "":
		return DensityHigh, nil
	}
	return 0, fmt.Errorf("unknown density: %q", s)
}

// Profile is the capability record of one printer model.
type Profile struct {
	Name             string
	Vendor           string
	Description      string
	CodePages        []int
	Features         FeatureSet
	Columns          int
	FontBColumns     int
	PaperWidthPixels int
	PaperWidthMM     float64
	MaxRasterBytes   int
	Densities        []Density
}

// Supports reports whether the profile declares f.
func (p *Profile) Supports(f Feature) bool {
	return p != nil && p.Features.Has(f)
}

// SupportsDensity reports whether d is one of the profile's density levels.
func (p *Profile) SupportsDensity(d Density) bool {
	for _, x := range p.Densities {
		if x == d {
			return true
		}
	}
	return false
}

// Supports is the free-function form of Profile.Supports.
func Supports(p *Profile, f Feature) bool {
	return p.Supports(f)
}

// Require returns an UnsupportedFeatureError when the profile lacks f.
func (p *Profile) Require(f Feature, command string) error {
	if p.Supports(f) {
		return nil
	}
	name := ""
	if p != nil {
		name = p.Name
	}
	return &UnsupportedFeatureError{Model: name, Feature: f, Command: command}
}

// UnsupportedFeatureError reports a command the printer model does not declare.
type UnsupportedFeatureError struct {
	Model   string
	Feature Feature
	Command string
}

func (e *UnsupportedFeatureError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("profile %q does not support %s (required by %s)", e.Model, e.Feature, e.Command)
	}
	return fmt.Sprintf("profile %q does not support %s", e.Model, e.Feature)
}

// clone returns a deep copy so callers cannot mutate registry entries.
func (p *Profile) clone() *Profile {
	c := *p
	c.CodePages = append([]int(nil), p.CodePages...)
	c.Densities = append([]Density(nil), p.Densities...)
	return &c
}

// builtinDefault is used when the registry does not define a "default" entry.
func builtinDefault() *Profile {
	return &Profile{
		Name:             DefaultModel,
		Vendor:           "Generic",
		Description:      "Conservative fallback for unknown printers",
		CodePages:        []int{0},
		Features:         NewFeatureSet(BitImageColumn, BarcodeA),
		Columns:          32,
		FontBColumns:     42,
		PaperWidthPixels: 384,
		PaperWidthMM:     48,
		MaxRasterBytes:   1024,
		Densities:        []Density{DensityLow, DensityHigh},
	}
}
