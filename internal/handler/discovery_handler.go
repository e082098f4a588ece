// internal/handler/discovery_handler.go
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

// DiscoveryHandler handles printer discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	discovery := router.Group("/discovery")
	{
		discovery.GET("/scan", h.ScanPrinters)
		discovery.GET("/types", h.GetScanTypes)
	}
}

// ScanPrinters scans for attached printers
// @Summary Scan for printers
// @Description Scans USB, serial and configured network ranges for receipt printers
// @Tags Discovery
// @Produce json
// @Param types query string false "Comma separated connection types (usb, serial, tcp)"
// @Success 200 {object} utils.APIResponse{data=service.ScanResult}
// @Failure 400 {object} utils.APIResponse "Unknown connection type"
// @Router /discovery/scan [get]
func (h *DiscoveryHandler) ScanPrinters(c *gin.Context) {
	var names []string
	if v := c.Query("types"); v != "" {
		names = strings.Split(v, ",")
	}
	types, err := service.ParseConnectionTypes(names)
	if err != nil {
		failed(c, h.logger, "Invalid scan request", err)
		return
	}

	result, err := h.discoveryService.Scan(c.Request.Context(), types)
	if err != nil {
		failed(c, h.logger, "Discovery scan failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Discovery scan completed", result)
}

// GetScanTypes lists the connection types that can be scanned
// @Summary Scannable connection types
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /discovery/types [get]
func (h *DiscoveryHandler) GetScanTypes(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Scan types retrieved", gin.H{
		"types": h.discoveryService.AvailableTypes(),
	})
}
