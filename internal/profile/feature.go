package profile

import (
	"fmt"
	"math/bits"
	"strings"
)

// Feature is one printer capability a command can depend on.
type Feature uint32

const (
	BarcodeA Feature = 1 << iota
	BarcodeB
	BitImageColumn
	BitImageRaster
	Graphics
	PaperFullCut
	PaperPartCut
	QRCode
	PDF417Code
	PulseStandard
	PulseBel
	Buzzer
	HighDensity
	Invert
	UpsideDown

	featureEnd
)

var featureNames = map[Feature]string{
	BarcodeA:       "barcodeA",
	BarcodeB:       "barcodeB",
	BitImageColumn: "bitImageColumn",
	BitImageRaster: "bitImageRaster",
	Graphics:       "graphics",
	PaperFullCut:   "paperFullCut",
	PaperPartCut:   "paperPartCut",
	QRCode:         "qrCode",
	PDF417Code:     "pdf417Code",
	PulseStandard:  "pulseStandard",
	PulseBel:       "pulseBel",
	Buzzer:         "buzzer",
	HighDensity:    "highDensity",
	Invert:         "invert",
	UpsideDown:     "upsideDown",
}

var featuresByName = func() map[string]Feature {
	m := make(map[string]Feature, len(featureNames))
	for f, n := range featureNames {
		m[strings.ToLower(n)] = f
	}
	return m
}()

func (f Feature) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Feature(%d)", uint32(f))
}

// ParseFeature resolves a feature name. Matching is case-insensitive.
func ParseFeature(name string) (Feature, error) {
	f, ok := featuresByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown feature: %q", name)
	}
	return f, nil
}

// FeatureSet is a bit set of features.
type FeatureSet uint32

// NewFeatureSet builds a set from individual features.
func NewFeatureSet(fs ...Feature) FeatureSet {
	var s FeatureSet
	for _, f := range fs {
		s |= FeatureSet(f)
	}
	return s
}

// Has reports whether f is in the set.
func (s FeatureSet) Has(f Feature) bool {
	return f != 0 && s&FeatureSet(f) == FeatureSet(f)
}

// Len returns the number of features in the set.
func (s FeatureSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// Features lists the members in bit order.
func (s FeatureSet) Features() []Feature {
	out := make([]Feature, 0, s.Len())
	for f := Feature(1); f < featureEnd; f <<= 1 {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Names lists the member names in bit order.
func (s FeatureSet) Names() []string {
	fs := s.Features()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// ParseFeatureSet parses a list of names, rejecting anything outside the known set.
func ParseFeatureSet(names []string) (FeatureSet, error) {
	var s FeatureSet
	for _, n := range names {
		f, err := ParseFeature(n)
		if err != nil {
			return 0, err
		}
		s |= FeatureSet(f)
	}
	return s, nil
}
