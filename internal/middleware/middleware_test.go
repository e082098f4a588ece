package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"escpos-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Fatalf("generated id %q: %v", w.Body.String(), err)
	}
	if w.Header().Get(RequestIDHeader) != w.Body.String() {
		t.Error("response header does not echo the request id")
	}

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != given {
		t.Errorf("id = %q, want caller's %q", w.Body.String(), given)
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimitMiddleware(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestRecoveryMiddlewareLogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(RequestIDMiddleware(), RecoveryMiddleware(zap.New(core)))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	entries := logs.FilterMessage("Panic recovered").All()
	if len(entries) != 1 {
		t.Fatalf("got %d panic entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != id {
		t.Errorf("request_id = %v, want %s", fields["request_id"], id)
	}
	if fields["error"] != "panic: boom" {
		t.Errorf("error = %v", fields["error"])
	}
}
