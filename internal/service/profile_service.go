// internal/service/profile_service.go
package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"escpos-service/internal/codepage"
	"escpos-service/internal/model"
	"escpos-service/internal/profile"
	"escpos-service/internal/repository"
	"escpos-service/internal/utils"
)

// ProfileInfo is the API view of a capability profile
type ProfileInfo struct {
	Model            string   `json:"model" yaml:"model"`
	Vendor           string   `json:"vendor" yaml:"vendor"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	CodePages        []string `json:"codepages" yaml:"codepages"`
	Features         []string `json:"features" yaml:"features"`
	Columns          int      `json:"columns" yaml:"columns"`
	FontBColumns     int      `json:"font_b_columns" yaml:"font_b_columns"`
	PaperWidthPixels int      `json:"paper_width_pixels" yaml:"paper_width_pixels"`
	PaperWidthMM     float64  `json:"paper_width_mm" yaml:"paper_width_mm"`
	MaxRasterBytes   int      `json:"max_raster_bytes" yaml:"max_raster_bytes"`
	Densities        []string `json:"densities" yaml:"densities"`
}

// CodePageInfo is the API view of a codepage table
type CodePageInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewProfileInfo converts a profile for output
func NewProfileInfo(p *profile.Profile) *ProfileInfo {
	info := &ProfileInfo{
		Model:            p.Name,
		Vendor:           p.Vendor,
		Description:      p.Description,
		Features:         p.Features.Names(),
		Columns:          p.Columns,
		FontBColumns:     p.FontBColumns,
		PaperWidthPixels: p.PaperWidthPixels,
		PaperWidthMM:     p.PaperWidthMM,
		MaxRasterBytes:   p.MaxRasterBytes,
	}
	for _, id := range p.CodePages {
		if cp, ok := codepage.Lookup(id); ok {
			info.CodePages = append(info.CodePages, cp.Name)
		}
	}
	for _, d := range p.Densities {
		info.Densities = append(info.Densities, d.String())
	}
	return info
}

// ProfileService serves the capability registry and can reload it from disk
type ProfileService struct {
	mutex    sync.RWMutex
	registry *profile.Registry
	file     string
	events   *EventBus
	logger   *utils.ServiceLogger
}

// NewProfileService wraps registry. file is the optional override path used by Reload.
func NewProfileService(registry *profile.Registry, file string, events *EventBus, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		registry: registry,
		file:     file,
		events:   events,
		logger:   utils.NewServiceLogger(logger, "profile-service"),
	}
}

// LoadRegistry returns the override registry when file is set, the embedded one otherwise
func LoadRegistry(file string) (*profile.Registry, error) {
	if file == "" {
		return profile.Default(), nil
	}
	reg, err := profile.LoadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", file, err)
	}
	return reg, nil
}

// Registry returns the active registry
func (ps *ProfileService) Registry() *profile.Registry {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()
	return ps.registry
}

// Version is the active registry data version
func (ps *ProfileService) Version() string {
	return ps.Registry().Version()
}

// List returns every profile in model order
func (ps *ProfileService) List() []*ProfileInfo {
	reg := ps.Registry()
	out := make([]*ProfileInfo, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		p, _ := reg.Get(name)
		out = append(out, NewProfileInfo(p))
	}
	return out
}

// Get returns one profile; unknown models are not found
func (ps *ProfileService) Get(model string) (*ProfileInfo, error) {
	p, ok := ps.Registry().Get(model)
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", model, repository.ErrNotFound)
	}
	return NewProfileInfo(p), nil
}

// Resolve returns the profile for model, falling back to the default profile
func (ps *ProfileService) Resolve(model string) *profile.Profile {
	return ps.Registry().Lookup(model)
}

// CodePages lists every codepage the encoder knows
func (ps *ProfileService) CodePages() []CodePageInfo {
	all := codepage.All()
	out := make([]CodePageInfo, 0, len(all))
	for _, cp := range all {
		out = append(out, CodePageInfo{ID: cp.ID, Name: cp.Name})
	}
	return out
}

// Reload re-reads the override file. Without one it is a no-op.
func (ps *ProfileService) Reload() error {
	if ps.file == "" {
		return invalid("profiles_file", fmt.Errorf("no profiles file configured"))
	}
	reg, err := LoadRegistry(ps.file)
	if err != nil {
		return invalid("profiles_file", err)
	}

	ps.mutex.Lock()
	ps.registry = reg
	ps.mutex.Unlock()

	ps.logger.Info("Profile registry reloaded",
		zap.String("file", ps.file),
		zap.String("version", reg.Version()),
		zap.Int("profiles", len(reg.Names())),
	)
	if ps.events != nil {
		ps.events.Publish(model.NewSystemEvent(model.EventProfilesReloaded,
			model.JSONObject{"version": reg.Version(), "profiles": len(reg.Names())}))
	}
	return nil
}
