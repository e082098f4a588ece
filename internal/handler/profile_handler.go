// internal/handler/profile_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

// ProfileHandler serves printer capability profiles and codepages
type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *utils.ServiceLogger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         utils.NewServiceLogger(logger, "profile-handler"),
	}
}

// RegisterRoutes registers profile routes
func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	profiles := router.Group("/profiles")
	{
		profiles.GET("", h.ListProfiles)
		profiles.POST("/reload", h.ReloadProfiles)
		profiles.GET("/:model", h.GetProfile)
	}
	router.GET("/codepages", h.ListCodePages)
}

// ListProfiles lists every printer model
// @Summary List printer profiles
// @Description Capability profiles of every known printer model
// @Tags Profiles
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{version=string,profiles=[]service.ProfileInfo}}
// @Router /profiles [get]
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Profiles retrieved successfully", gin.H{
		"version":  h.profileService.Version(),
		"profiles": h.profileService.List(),
	})
}

// GetProfile returns one printer model
// @Summary Get printer profile
// @Tags Profiles
// @Produce json
// @Param model path string true "Printer model"
// @Success 200 {object} utils.APIResponse{data=service.ProfileInfo}
// @Failure 404 {object} utils.APIResponse "Unknown model"
// @Router /profiles/{model} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	info, err := h.profileService.Get(c.Param("model"))
	if err != nil {
		failed(c, h.logger, "Profile not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", info)
}

// ReloadProfiles re-reads the configured profiles file
// @Summary Reload printer profiles
// @Tags Profiles
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse "No profiles file or invalid file"
// @Router /profiles/reload [post]
func (h *ProfileHandler) ReloadProfiles(c *gin.Context) {
	if err := h.profileService.Reload(); err != nil {
		failed(c, h.logger, "Failed to reload profiles", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Profiles reloaded", gin.H{"version": h.profileService.Version()})
}

// ListCodePages lists every codepage the encoder can select
// @Summary List codepages
// @Tags Profiles
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]service.CodePageInfo}
// @Router /codepages [get]
func (h *ProfileHandler) ListCodePages(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Codepages retrieved successfully", h.profileService.CodePages())
}
