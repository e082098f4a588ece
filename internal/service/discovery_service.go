// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/discovery"
	"escpos-service/internal/discovery/serial"
	"escpos-service/internal/discovery/tcp"
	"escpos-service/internal/discovery/usb"
	"escpos-service/internal/model"
	"escpos-service/internal/repository"
	"escpos-service/internal/utils"
)

// NewScannerManager registers the USB, serial and TCP scanners
func NewScannerManager(cfg *config.DiscoveryConfig, logger *zap.Logger) *discovery.Manager {
	manager := discovery.NewManager(logger)
	manager.Register(usb.NewScanner(logger, cfg.Timeout))
	manager.Register(serial.NewScanner(logger, nil))
	manager.Register(tcp.NewScanner(logger, tcp.Config{
		NetworkRanges:  cfg.NetworkRanges,
		Ports:          cfg.Ports,
		ConnectTimeout: cfg.ConnectTimeout,
		Workers:        cfg.Workers,
		ProbeStatus:    cfg.ProbeStatus,
	}))
	return manager
}

// DiscoveredPrinter is a scan candidate with its suggested profile resolved
type DiscoveredPrinter struct {
	*discovery.Candidate
	RegisteredPrinterID *uuid.UUID `json:"registered_printer_id,omitempty"`
}

// ScanResult is the outcome of a discovery scan
type ScanResult struct {
	Printers []*DiscoveredPrinter    `json:"printers"`
	Scanned  []model.ConnectionType `json:"scanned"`
	Errors   []string               `json:"errors,omitempty"`
	Duration time.Duration          `json:"duration"`
}

// DiscoveryService finds attached printers and matches them against the registry
type DiscoveryService struct {
	manager     *discovery.Manager
	profiles    *ProfileService
	printerRepo repository.PrinterRepository
	config      *config.Config
	logger      *utils.ServiceLogger
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(
	manager *discovery.Manager,
	profiles *ProfileService,
	printerRepo repository.PrinterRepository,
	config *config.Config,
	logger *zap.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		manager:     manager,
		profiles:    profiles,
		printerRepo: printerRepo,
		config:      config,
		logger:      utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// AvailableTypes lists the connection types that can be scanned
func (ds *DiscoveryService) AvailableTypes() []model.ConnectionType {
	return ds.manager.Available()
}

// ParseConnectionTypes parses names such as "usb" or "TCP"
func ParseConnectionTypes(names []string) ([]model.ConnectionType, error) {
	var types []model.ConnectionType
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		t := model.ConnectionType(name)
		if !t.Valid() {
			return nil, invalid("types", fmt.Errorf("unknown connection type: %s", name))
		}
		types = append(types, t)
	}
	return types, nil
}

// Scan runs the scanners for types, or all available ones. Scanner failures are
// reported in the result rather than failing the scan.
func (ds *DiscoveryService) Scan(ctx context.Context, types []model.ConnectionType) (*ScanResult, error) {
	if timeout := ds.config.Discovery.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if len(types) == 0 {
		types = ds.manager.Available()
	}

	start := time.Now()
	candidates, scanErr := ds.manager.Scan(ctx, types...)

	registered, err := ds.registeredPrinters(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Printers: make([]*DiscoveredPrinter, 0, len(candidates)),
		Scanned:  types,
		Duration: time.Since(start),
	}
	if scanErr != nil {
		result.Errors = strings.Split(scanErr.Error(), "\n")
	}

	for _, c := range candidates {
		if _, ok := ds.profiles.Registry().Get(c.Model); !ok {
			c.Model = ds.config.Printer.DefaultModel
		}
		dp := &DiscoveredPrinter{Candidate: c}
		for _, p := range registered {
			if sameConnection(c, p) {
				id := p.ID
				dp.RegisteredPrinterID = &id
				break
			}
		}
		result.Printers = append(result.Printers, dp)
	}

	ds.logger.Info("Discovery scan completed",
		zap.Int("printers_found", len(result.Printers)),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (ds *DiscoveryService) registeredPrinters(ctx context.Context) ([]*model.Printer, error) {
	var all []*model.Printer
	filter := &repository.PrinterFilter{Limit: 200}
	for {
		page, total, err := ds.printerRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list printers: %w", err)
		}
		all = append(all, page...)
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			return all, nil
		}
	}
}

// connectionKeys identify the device behind a connection config
var connectionKeys = map[model.ConnectionType][]string{
	model.ConnectionTypeSerial: {"port"},
	model.ConnectionTypeUSB:    {"vendor_id", "product_id", "serial_number"},
	model.ConnectionTypeTCP:    {"host", "port"},
	model.ConnectionTypeFile:   {"path"},
}

// sameConnection reports whether p is registered for the device c found
func sameConnection(c *discovery.Candidate, p *model.Printer) bool {
	if c.ConnectionType != p.ConnectionType {
		return false
	}
	for _, key := range connectionKeys[c.ConnectionType] {
		found, hasFound := c.ConnectionConfig[key]
		stored, hasStored := p.ConnectionConfig[key]
		if !hasFound && !hasStored {
			continue
		}
		if key == "port" && c.ConnectionType == model.ConnectionTypeTCP && !hasStored {
			stored, hasStored = 9100, true
		}
		if !hasFound || !hasStored || !strings.EqualFold(fmt.Sprint(found), fmt.Sprint(stored)) {
			return false
		}
	}
	return true
}
