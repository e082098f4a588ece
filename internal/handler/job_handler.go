// internal/handler/job_handler.go
package handler

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/model"
	"escpos-service/internal/repository"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

// JobIDHeader carries the id of the job a response belongs to
const JobIDHeader = "X-Job-ID"

// JobHandler handles print job and render requests
type JobHandler struct {
	printService *service.PrintService
	logger       *utils.ServiceLogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(printService *service.PrintService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		printService: printService,
		logger:       utils.NewServiceLogger(logger, "job-handler"),
	}
}

// RegisterRoutes registers job routes
func (h *JobHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/printers/:printer_id/jobs", h.SubmitJob)
	router.POST("/render", h.RenderJob)

	jobs := router.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/stats", h.GetJobStats)
		jobs.GET("/:job_id", h.GetJob)
	}
}

// RenderResponse is the body of a render request
type RenderResponse struct {
	JobID    uuid.UUID           `json:"job_id"`
	Model    string              `json:"model"`
	Bytes    int                 `json:"bytes"`
	Encoding string              `json:"encoding"`
	Data     string              `json:"data"`
	Stats    escpos.SessionStats `json:"stats"`
}

// readDocument reads the raw request body; on failure it has already responded
func (h *JobHandler) readDocument(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Job document too large", err)
			return nil, false
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to read request body", err)
		return nil, false
	}
	if len(body) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Job document is required", nil)
		return nil, false
	}
	return body, true
}

// SubmitJob composes a job document and sends it to a printer
// @Summary Submit a print job
// @Description Composes the job document for the printer's model and queues it for delivery
// @Tags Jobs
// @Accept json
// @Produce json
// @Param printer_id path string true "Printer ID"
// @Param wait query bool false "Wait until the job is delivered"
// @Param request body document.Document true "Job document"
// @Success 202 {object} utils.APIResponse{data=service.SubmitResult} "Job queued"
// @Success 200 {object} utils.APIResponse{data=service.SubmitResult} "Job delivered (wait=true)"
// @Failure 400 {object} utils.APIResponse "Invalid document"
// @Failure 404 {object} utils.APIResponse "Printer not found"
// @Failure 409 {object} utils.APIResponse "Model lacks a required feature"
// @Failure 422 {object} utils.APIResponse "Content cannot be printed"
// @Failure 503 {object} utils.APIResponse "Queue full"
// @Router /printers/{printer_id}/jobs [post]
func (h *JobHandler) SubmitJob(c *gin.Context) {
	printerID, ok := uuidParam(c, "printer_id")
	if !ok {
		return
	}
	body, ok := h.readDocument(c)
	if !ok {
		return
	}
	wait, _ := strconv.ParseBool(c.Query("wait"))

	result, err := h.printService.Submit(c.Request.Context(), printerID, body, wait)
	if err != nil {
		failed(c, h.logger, "Failed to submit job", err)
		return
	}

	c.Header(JobIDHeader, result.Job.ID.String())
	if wait {
		utils.SuccessResponse(c, http.StatusOK, "Job finished", result)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "Job queued", result)
}

// RenderJob composes a job document without sending it
// @Summary Render a job document
// @Description Returns the ESC/POS byte stream as base64, hex or raw bytes
// @Tags Jobs
// @Accept json
// @Produce json
// @Produce application/octet-stream
// @Param model query string false "Printer model, overridden by the document's model"
// @Param format query string false "Output format" Enums(base64, hex, binary) default(base64)
// @Param request body document.Document true "Job document"
// @Success 200 {object} utils.APIResponse{data=RenderResponse}
// @Failure 400 {object} utils.APIResponse "Invalid document"
// @Failure 409 {object} utils.APIResponse "Model lacks a required feature"
// @Failure 422 {object} utils.APIResponse "Content cannot be printed"
// @Router /render [post]
func (h *JobHandler) RenderJob(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "base64"))
	if format != "base64" && format != "hex" && format != "binary" {
		utils.ValidationErrorResponse(c, map[string]string{"format": "must be base64, hex or binary"})
		return
	}
	body, ok := h.readDocument(c)
	if !ok {
		return
	}

	rendered, err := h.printService.Render(c.Request.Context(), c.Query("model"), body)
	if err != nil {
		failed(c, h.logger, "Failed to render document", err)
		return
	}

	c.Header(JobIDHeader, rendered.JobID.String())
	res := rendered.Result
	var data string
	switch format {
	case "binary":
		c.Data(http.StatusOK, "application/octet-stream", res.Data)
		return
	case "hex":
		data = hex.EncodeToString(res.Data)
	default:
		data = base64.StdEncoding.EncodeToString(res.Data)
	}
	utils.SuccessResponse(c, http.StatusOK, "Document rendered", RenderResponse{
		JobID:    rendered.JobID,
		Model:    res.Model,
		Bytes:    res.Bytes,
		Encoding: format,
		Data:     data,
		Stats:    res.Stats,
	})
}

// ListJobs lists jobs with filtering and paging
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Param printer_id query string false "Filter by printer"
// @Param status query string false "Filter by status" Enums(QUEUED, PRINTING, COMPLETED, FAILED, RENDERED)
// @Param since query string false "Created at or after (RFC3339)"
// @Param until query string false "Created at or before (RFC3339)"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} utils.APIResponse{data=utils.ListData{items=[]model.PrintJob}}
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := &repository.JobFilter{}
	filter.Limit, filter.Offset = paging(c)

	errs := map[string]string{}
	if v := c.Query("printer_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.PrinterID = &id
		} else {
			errs["printer_id"] = "must be a UUID"
		}
	}
	if v := c.Query("status"); v != "" {
		st := model.JobStatus(strings.ToUpper(v))
		filter.Status = &st
	}
	for key, dst := range map[string]**time.Time{"since": &filter.StartDate, "until": &filter.EndDate} {
		if v := c.Query(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				errs[key] = "must be an RFC3339 timestamp"
				continue
			}
			*dst = &t
		}
	}
	if len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	jobs, total, err := h.printService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		failed(c, h.logger, "Failed to list jobs", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Jobs retrieved successfully", utils.ListData{
		Items: jobs,
		Page:  utils.PageInfo{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	})
}

// GetJob returns one job including its document
// @Summary Get job
// @Tags Jobs
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} utils.APIResponse{data=model.PrintJob}
// @Failure 404 {object} utils.APIResponse "Job not found"
// @Router /jobs/{job_id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := uuidParam(c, "job_id")
	if !ok {
		return
	}
	job, err := h.printService.GetJob(c.Request.Context(), id)
	if err != nil {
		failed(c, h.logger, "Job not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Job retrieved successfully", job)
}

// GetJobStats aggregates job outcomes
// @Summary Job statistics
// @Tags Jobs
// @Produce json
// @Param printer_id query string false "Limit to one printer"
// @Success 200 {object} utils.APIResponse{data=repository.JobStats}
// @Router /jobs/stats [get]
func (h *JobHandler) GetJobStats(c *gin.Context) {
	var printerID *uuid.UUID
	if v := c.Query("printer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			utils.ValidationErrorResponse(c, map[string]string{"printer_id": "must be a UUID"})
			return
		}
		printerID = &id
	}

	stats, err := h.printService.JobStats(c.Request.Context(), printerID)
	if err != nil {
		failed(c, h.logger, "Failed to get job stats", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Job stats retrieved successfully", stats)
}
