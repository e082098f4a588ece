// internal/handler/printer_handler.go
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-service/internal/model"
	"escpos-service/internal/repository"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

// PrinterHandler handles printer registry HTTP requests
type PrinterHandler struct {
	printerService *service.PrinterService
	logger         *utils.ServiceLogger
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(printerService *service.PrinterService, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		printerService: printerService,
		logger:         utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// RegisterRoutes registers printer routes
func (h *PrinterHandler) RegisterRoutes(router *gin.RouterGroup) {
	printers := router.Group("/printers")
	{
		printers.POST("", h.CreatePrinter)
		printers.GET("", h.ListPrinters)

		printer := printers.Group("/:printer_id")
		{
			printer.GET("", h.GetPrinter)
			printer.PUT("", h.UpdatePrinter)
			printer.DELETE("", h.DeletePrinter)
			printer.GET("/status", h.GetPrinterStatus)
		}
	}
}

// CreatePrinter registers a new printer
// @Summary Register a printer
// @Description Register a printer with its model and connection settings
// @Tags Printers
// @Accept json
// @Produce json
// @Param request body model.CreatePrinterRequest true "Printer registration request"
// @Success 201 {object} utils.APIResponse{data=model.Printer} "Printer registered successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Name already in use"
// @Router /printers [post]
func (h *PrinterHandler) CreatePrinter(c *gin.Context) {
	var req model.CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	printer, err := h.printerService.CreatePrinter(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		failed(c, h.logger, "Failed to register printer", err)
		return
	}

	h.logger.Info("Printer registered", zap.String("printer_id", printer.ID.String()), zap.String("model", printer.Model))
	utils.SuccessResponse(c, http.StatusCreated, "Printer registered successfully", printer)
}

// ListPrinters lists printers with filtering and paging
// @Summary List printers
// @Tags Printers
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Param model query string false "Filter by model"
// @Param connection_type query string false "Filter by connection type" Enums(SERIAL, USB, TCP, FILE)
// @Param status query string false "Filter by status" Enums(UNKNOWN, ONLINE, OFFLINE, ERROR)
// @Param search query string false "Search name and location"
// @Success 200 {object} utils.APIResponse{data=utils.ListData{items=[]model.Printer}}
// @Router /printers [get]
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	filter := &repository.PrinterFilter{
		Model:      optionalString(c, "model"),
		SearchTerm: optionalString(c, "search"),
	}
	filter.Limit, filter.Offset = paging(c)
	if v := c.Query("connection_type"); v != "" {
		ct := model.ConnectionType(strings.ToUpper(v))
		filter.ConnectionType = &ct
	}
	if v := c.Query("status"); v != "" {
		st := model.PrinterStatus(strings.ToUpper(v))
		filter.Status = &st
	}

	printers, total, err := h.printerService.ListPrinters(c.Request.Context(), filter)
	if err != nil {
		failed(c, h.logger, "Failed to list printers", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printers retrieved successfully", utils.ListData{
		Items: printers,
		Page:  utils.PageInfo{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	})
}

// GetPrinter returns one printer
// @Summary Get printer
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=model.Printer}
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id} [get]
func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	id, ok := uuidParam(c, "printer_id")
	if !ok {
		return
	}
	printer, err := h.printerService.GetPrinter(c.Request.Context(), id)
	if err != nil {
		failed(c, h.logger, "Printer not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer retrieved successfully", printer)
}

// UpdatePrinter changes a printer's settings
// @Summary Update printer
// @Tags Printers
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Param request body model.UpdatePrinterRequest true "Fields to change"
// @Success 200 {object} utils.APIResponse{data=model.Printer}
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id} [put]
func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	id, ok := uuidParam(c, "printer_id")
	if !ok {
		return
	}
	var req model.UpdatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	printer, err := h.printerService.UpdatePrinter(c.Request.Context(), id, &req, c.ClientIP())
	if err != nil {
		failed(c, h.logger, "Failed to update printer", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer updated successfully", printer)
}

// DeletePrinter removes a printer
// @Summary Delete printer
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Router /printers/{printer_id} [delete]
func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	id, ok := uuidParam(c, "printer_id")
	if !ok {
		return
	}
	if err := h.printerService.DeletePrinter(c.Request.Context(), id, c.ClientIP()); err != nil {
		failed(c, h.logger, "Failed to delete printer", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer deleted successfully", nil)
}

// GetPrinterStatus queries the printer over its transport
// @Summary Real-time printer status
// @Description Sends the DLE EOT status queries and decodes the replies
// @Tags Printers
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Success 200 {object} utils.APIResponse{data=service.PrinterStatusResult}
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 502 {object} utils.APIResponse "Printer did not answer"
// @Router /printers/{printer_id}/status [get]
func (h *PrinterHandler) GetPrinterStatus(c *gin.Context) {
	id, ok := uuidParam(c, "printer_id")
	if !ok {
		return
	}
	status, err := h.printerService.QueryStatus(c.Request.Context(), id)
	if err != nil {
		failed(c, h.logger, "Failed to query printer status", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer status retrieved", status)
}
