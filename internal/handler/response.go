// internal/handler/response.go
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

// maxPageSize caps the limit query parameter
const maxPageSize = 200

// failed writes err with the status the service layer assigns it
func failed(c *gin.Context, logger *utils.ServiceLogger, message string, err error) {
	status := service.HTTPStatus(err)
	if status >= 500 {
		logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	} else {
		logger.Debug(message, zap.Error(err), zap.Int("status", status))
	}
	utils.ErrorResponse(c, status, message, err)
}

// uuidParam parses a path parameter; on failure it has already responded
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{name: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// paging reads limit and offset; invalid values fall back to the defaults
func paging(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func optionalString(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}
