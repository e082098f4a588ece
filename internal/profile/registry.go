package profile

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"escpos-service/internal/codepage"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// Registry maps model ids to profiles. It is immutable after Load.
type Registry struct {
	version  string
	profiles map[string]*Profile
	fallback *Profile
}

type registryDoc struct {
	Version  string                `yaml:"version"`
	Profiles map[string]profileDoc `yaml:"profiles"`
}

type profileDoc struct {
	Vendor      string   `yaml:"vendor"`
	Description string   `yaml:"description"`
	CodePages   []string `yaml:"codepages"`
	Features    []string `yaml:"features"`
	Fonts       struct {
		A int `yaml:"a"`
		B int `yaml:"b"`
	} `yaml:"columns"`
	Paper struct {
		Pixels int     `yaml:"pixels"`
		MM     float64 `yaml:"mm"`
	} `yaml:"paper"`
	MaxRasterBytes int      `yaml:"maxRasterBytes"`
	Densities      []string `yaml:"densities"`
}

// Load parses and validates a registry document.
func Load(r io.Reader) (*Registry, error) {
	var doc registryDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile registry: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, fmt.Errorf("profile registry has no profiles")
	}

	reg := &Registry{version: doc.Version, profiles: make(map[string]*Profile, len(doc.Profiles))}
	for name, pd := range doc.Profiles {
		p, err := pd.build(name)
		if err != nil {
			return nil, err
		}
		reg.profiles[name] = p
	}

	if p, ok := reg.profiles[DefaultModel]; ok {
		reg.fallback = p
	} else {
		reg.fallback = builtinDefault()
	}
	return reg, nil
}

// LoadFile reads a registry from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (pd profileDoc) build(name string) (*Profile, error) {
	p := &Profile{
		Name:             name,
		Vendor:           pd.Vendor,
		Description:      pd.Description,
		Columns:          pd.Fonts.A,
		FontBColumns:     pd.Fonts.B,
		PaperWidthPixels: pd.Paper.Pixels,
		PaperWidthMM:     pd.Paper.MM,
		MaxRasterBytes:   pd.MaxRasterBytes,
	}

	if len(pd.CodePages) == 0 {
		return nil, fmt.Errorf("profile %q: no codepages", name)
	}
	for _, cpName := range pd.CodePages {
		cp, ok := codepage.ByName(cpName)
		if !ok {
			return nil, fmt.Errorf("profile %q: unknown codepage %q", name, cpName)
		}
		p.CodePages = append(p.CodePages, cp.ID)
	}

	features, err := ParseFeatureSet(pd.Features)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	p.Features = features

	if len(pd.Densities) == 0 {
		return nil, fmt.Errorf("profile %q: no densities", name)
	}
	for _, ds := range pd.Densities {
		d, err := ParseDensity(ds)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		p.Densities = append(p.Densities, d)
	}

	if p.Columns <= 0 {
		return nil, fmt.Errorf("profile %q: columns must be positive", name)
	}
	if p.PaperWidthPixels <= 0 {
		return nil, fmt.Errorf("profile %q: paper width must be positive", name)
	}
	if p.MaxRasterBytes <= 0 {
		return nil, fmt.Errorf("profile %q: maxRasterBytes must be positive", name)
	}
	return p, nil
}

// Lookup returns the profile for model, or the default profile when the model
// is unknown. It never returns nil.
func (r *Registry) Lookup(model string) *Profile {
	if p, ok := r.profiles[model]; ok {
		return p.clone()
	}
	return r.fallback.clone()
}

// Get returns the profile for model and whether it exists.
func (r *Registry) Get(model string) (*Profile, bool) {
	p, ok := r.profiles[model]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Names lists the registered models in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Version is the registry data version.
func (r *Registry) Version() string {
	return r.version
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultMu   sync.RWMutex
)

// Default returns the process-wide registry. The embedded data is parsed on
// first use and a broken embedded file is a build defect, so it panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(bytes.NewReader(embeddedProfiles))
		if err != nil {
			panic(fmt.Sprintf("embedded profile registry: %v", err))
		}
		defaultMu.Lock()
		if defaultReg == nil {
			defaultReg = reg
		}
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultReg
}

// SetDefault replaces the process-wide registry. Call it during startup only.
func SetDefault(r *Registry) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultReg = r
	defaultMu.Unlock()
}

// Lookup resolves model against the process-wide registry.
func Lookup(model string) *Profile {
	return Default().Lookup(model)
}

// Names lists the models of the process-wide registry.
func Names() []string {
	return Default().Names()
}
