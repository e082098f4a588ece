// internal/service/printer_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/model"
	"escpos-service/internal/protocol"
	"escpos-service/internal/repository"
	"escpos-service/internal/utils"
)

const defaultStatusTimeout = 2 * time.Second

// TransportFactory builds a transport from stored connection settings
type TransportFactory func(connectionType model.ConnectionType, settings map[string]interface{}, logger *zap.Logger) (protocol.Transport, error)

// PrinterService handles printer registry business logic
type PrinterService struct {
	printerRepo repository.PrinterRepository
	profiles    *ProfileService
	transports  TransportFactory
	events      *EventBus
	config      *config.Config
	logger      *utils.ServiceLogger
	auditLogger *utils.AuditLogger
}

// NewPrinterService creates a new printer service instance
func NewPrinterService(
	printerRepo repository.PrinterRepository,
	profiles *ProfileService,
	transports TransportFactory,
	events *EventBus,
	config *config.Config,
	logger *zap.Logger,
) *PrinterService {
	if transports == nil {
		transports = protocol.New
	}
	return &PrinterService{
		printerRepo: printerRepo,
		profiles:    profiles,
		transports:  transports,
		events:      events,
		config:      config,
		logger:      utils.NewServiceLogger(logger, "printer-service"),
		auditLogger: utils.NewAuditLogger(logger),
	}
}

// PrinterStatusResult is the outcome of a real-time status query
type PrinterStatusResult struct {
	PrinterID uuid.UUID           `json:"printer_id"`
	Status    model.PrinterStatus `json:"status"`
	Detail    *escpos.Status      `json:"detail,omitempty"`
	Transport protocol.Stats      `json:"transport"`
}

// CreatePrinter registers a new printer
func (ps *PrinterService) CreatePrinter(ctx context.Context, req *model.CreatePrinterRequest, clientIP string) (*model.Printer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", fmt.Errorf("must not be empty"))
	}
	modelName, err := ps.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	connType := model.ConnectionType(strings.ToUpper(string(req.ConnectionType)))
	if err := ps.validateConnection(connType, req.ConnectionConfig); err != nil {
		return nil, err
	}

	now := time.Now()
	printer := &model.Printer{
		ID:               uuid.New(),
		Name:             name,
		Model:            modelName,
		ConnectionType:   connType,
		ConnectionConfig: req.ConnectionConfig,
		Location:         req.Location,
		Status:           model.PrinterStatusUnknown,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := ps.printerRepo.Create(ctx, printer); err != nil {
		return nil, fmt.Errorf("failed to create printer: %w", err)
	}

	ps.auditLogger.LogPrinterChange("create", printer.ID.String(), printer.Model, clientIP)
	ps.events.Publish(model.NewPrinterEvent(model.EventPrinterAdded, printer.ID,
		model.JSONObject{"name": printer.Name, "model": printer.Model}))
	return printer, nil
}

// GetPrinter retrieves one printer
func (ps *PrinterService) GetPrinter(ctx context.Context, id uuid.UUID) (*model.Printer, error) {
	printer, err := ps.printerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	return printer, nil
}

// ListPrinters lists printers matching filter
func (ps *PrinterService) ListPrinters(ctx context.Context, filter *repository.PrinterFilter) ([]*model.Printer, int, error) {
	printers, total, err := ps.printerRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list printers: %w", err)
	}
	return printers, total, nil
}

// UpdatePrinter applies the set fields of req
func (ps *PrinterService) UpdatePrinter(ctx context.Context, id uuid.UUID, req *model.UpdatePrinterRequest, clientIP string) (*model.Printer, error) {
	printer, err := ps.printerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", fmt.Errorf("must not be empty"))
		}
		printer.Name = name
	}
	if req.Model != nil {
		if printer.Model, err = ps.resolveModel(*req.Model); err != nil {
			return nil, err
		}
	}
	if req.ConnectionType != "" {
		printer.ConnectionType = model.ConnectionType(strings.ToUpper(string(req.ConnectionType)))
	}
	if req.ConnectionConfig != nil {
		printer.ConnectionConfig = req.ConnectionConfig
	}
	if req.Location != nil {
		printer.Location = req.Location
	}
	if err := ps.validateConnection(printer.ConnectionType, printer.ConnectionConfig); err != nil {
		return nil, err
	}

	printer.UpdatedAt = time.Now()
	if err := ps.printerRepo.Update(ctx, printer); err != nil {
		return nil, fmt.Errorf("failed to update printer: %w", err)
	}
	ps.auditLogger.LogPrinterChange("update", printer.ID.String(), printer.Model, clientIP)
	return printer, nil
}

// DeletePrinter removes a printer; its jobs are kept
func (ps *PrinterService) DeletePrinter(ctx context.Context, id uuid.UUID, clientIP string) error {
	printer, err := ps.printerRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get printer: %w", err)
	}
	if err := ps.printerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}

	ps.auditLogger.LogPrinterChange("delete", id.String(), printer.Model, clientIP)
	ps.events.Publish(model.NewPrinterEvent(model.EventPrinterRemoved, id,
		model.JSONObject{"name": printer.Name}))
	return nil
}

// QueryStatus asks the printer for its DLE EOT status and records the result
func (ps *PrinterService) QueryStatus(ctx context.Context, id uuid.UUID) (*PrinterStatusResult, error) {
	printer, err := ps.printerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	printerLogger := utils.NewPrinterLogger(ps.logger.Logger, printer.ID.String(), printer.Model, string(printer.ConnectionType))

	transport, err := ps.OpenTransport(ctx, printer, printerLogger)
	if err != nil {
		ps.recordStatus(ctx, printer, model.PrinterStatusOffline)
		return nil, err
	}
	defer func() {
		printerLogger.LogConnection("close", transport.Close())
	}()

	timeout := ps.config.Printer.StatusTimeout
	if timeout <= 0 {
		timeout = defaultStatusTimeout
	}
	detail, err := escpos.QueryStatus(ctx, transport, timeout)
	if err != nil {
		ps.recordStatus(ctx, printer, model.PrinterStatusOffline)
		return nil, &protocol.TransportError{Type: printer.ConnectionType, Op: "status", Err: err}
	}

	status := model.PrinterStatusOnline
	switch {
	case detail.Error || detail.PaperOut || detail.CoverOpen:
		status = model.PrinterStatusError
	case !detail.Online:
		status = model.PrinterStatusOffline
	}
	ps.recordStatus(ctx, printer, status)

	return &PrinterStatusResult{
		PrinterID: printer.ID,
		Status:    status,
		Detail:    detail,
		Transport: transport.Stats(),
	}, nil
}

// OpenTransport builds and opens the printer's transport from its stored
// settings layered over the configured defaults
func (ps *PrinterService) OpenTransport(ctx context.Context, printer *model.Printer, printerLogger *utils.PrinterLogger) (protocol.Transport, error) {
	settings := protocol.Merge(protocol.Defaults(printer.ConnectionType, &ps.config.Transport), printer.ConnectionConfig)
	transport, err := ps.transports(printer.ConnectionType, settings, printerLogger.Logger)
	if err != nil {
		return nil, invalid("connection_config", err)
	}
	if err := transport.Open(ctx); err != nil {
		printerLogger.LogConnection("open", err)
		return nil, err
	}
	printerLogger.LogConnection("open", nil)
	return transport, nil
}

func (ps *PrinterService) recordStatus(ctx context.Context, printer *model.Printer, status model.PrinterStatus) {
	now := time.Now()
	if err := ps.printerRepo.UpdateStatus(ctx, printer.ID, status, now); err != nil {
		ps.logger.Error("Failed to update printer status", zap.Error(err), zap.String("printer_id", printer.ID.String()))
	}
	if printer.Status != status {
		ps.events.Publish(model.NewPrinterEvent(model.EventPrinterStatus, printer.ID,
			model.JSONObject{"old_status": string(printer.Status), "new_status": string(status)}))
	}
	printer.Status = status
	printer.LastSeen = &now
}

// resolveModel defaults an empty model and rejects unknown ones
func (ps *PrinterService) resolveModel(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = ps.config.Printer.DefaultModel
	}
	if _, ok := ps.profiles.Registry().Get(name); !ok {
		return "", invalid("model", fmt.Errorf("unknown printer model %q", name))
	}
	return name, nil
}

func (ps *PrinterService) validateConnection(connType model.ConnectionType, settings model.JSONObject) error {
	if !connType.Valid() {
		return invalid("connection_type", fmt.Errorf("unsupported connection type %q", connType))
	}
	merged := protocol.Merge(protocol.Defaults(connType, &ps.config.Transport), settings)
	if err := protocol.ValidateConfig(connType, merged); err != nil {
		return invalid("connection_config", err)
	}
	return nil
}
