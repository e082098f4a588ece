// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"escpos-service/internal/config"
)

// defaultLogFile is used when output is a file but no path is configured.
const defaultLogFile = "./logs/escpos-service.log"

// LoggerManager builds the application logger from configuration
type LoggerManager struct {
	config *config.LoggingConfig
}

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	manager := &LoggerManager{config: cfg}

	logger, err := manager.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func (lm *LoggerManager) createLogger() (*zap.Logger, error) {
	encoderConfig := lm.getEncoderConfig()

	var encoder zapcore.Encoder
	switch lm.config.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writeSyncer, err := lm.getWriteSyncer()
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	level, err := ParseLevel(lm.config.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func (lm *LoggerManager) getEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	cfg.LevelKey = "level"
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.CallerKey = "caller"
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.MessageKey = "message"
	cfg.StacktraceKey = "stacktrace"

	if lm.config.Format == "console" {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}
	return cfg
}

// getWriteSyncer returns stdout, stderr or a rotating file
func (lm *LoggerManager) getWriteSyncer() (zapcore.WriteSyncer, error) {
	switch lm.config.Output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	path := lm.config.Output
	if path == "" || path == "file" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    lm.config.MaxSize, // MB
		MaxBackups: lm.config.MaxBackups,
		MaxAge:     lm.config.MaxAge, // days
		Compress:   lm.config.Compress,
	}), nil
}

// ParseLevel maps a configured level name onto a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// PrinterLogger carries printer identity on every entry
type PrinterLogger struct {
	*zap.Logger
	printerID string
	model     string
}

// NewPrinterLogger creates a printer-specific logger
func NewPrinterLogger(baseLogger *zap.Logger, printerID, model, transport string) *PrinterLogger {
	return &PrinterLogger{
		Logger: baseLogger.With(
			zap.String("printer_id", printerID),
			zap.String("model", model),
			zap.String("transport", transport),
			zap.String("component", "printer"),
		),
		printerID: printerID,
		model:     model,
	}
}

// LogTransfer logs a completed or failed write to the printer
func (pl *PrinterLogger) LogTransfer(jobID string, bytes int, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("job_id", jobID),
		zap.Int("bytes", bytes),
		zap.Duration("duration", duration),
	}
	if err != nil {
		pl.Error("Printer transfer failed", append(fields, zap.Error(err))...)
		return
	}
	pl.Info("Printer transfer completed", fields...)
}

// LogConnection logs transport open/close events
func (pl *PrinterLogger) LogConnection(action string, err error) {
	if err != nil {
		pl.Error("Printer connection event", zap.String("action", action), zap.Error(err))
		return
	}
	pl.Debug("Printer connection event", zap.String("action", action))
}

// JobLogger provides structured logging for one print job
type JobLogger struct {
	logger    *zap.Logger
	jobID     string
	startTime time.Time
}

// NewJobLogger creates a job-specific logger
func NewJobLogger(baseLogger *zap.Logger, jobID, model string) *JobLogger {
	return &JobLogger{
		logger: baseLogger.With(
			zap.String("job_id", jobID),
			zap.String("model", model),
			zap.String("component", "job"),
		),
		jobID:     jobID,
		startTime: time.Now(),
	}
}

// Start logs job start
func (jl *JobLogger) Start(fields ...zap.Field) {
	jl.logger.Info("Job started", append([]zap.Field{zap.Time("start_time", jl.startTime)}, fields...)...)
}

// Success logs successful job completion
func (jl *JobLogger) Success(fields ...zap.Field) {
	jl.logger.Info("Job completed", append([]zap.Field{
		zap.Duration("duration", time.Since(jl.startTime)),
		zap.Bool("success", true),
	}, fields...)...)
}

// Error logs job failure
func (jl *JobLogger) Error(err error, fields ...zap.Field) {
	jl.logger.Error("Job failed", append([]zap.Field{
		zap.Duration("duration", time.Since(jl.startTime)),
		zap.Bool("success", false),
		zap.Error(err),
	}, fields...)...)
}

// Elapsed is the time since the job started
func (jl *JobLogger) Elapsed() time.Duration {
	return time.Since(jl.startTime)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
	serviceName string
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	return &ServiceLogger{
		Logger: baseLogger.With(
			zap.String("service", serviceName),
			zap.String("component", "service"),
		),
		serviceName: serviceName,
	}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, fields ...zap.Field) {
	sl.Info("Service starting", append([]zap.Field{zap.String("version", version)}, fields...)...)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// LogAPIRequest logs HTTP API requests at a level matching the status code
func (sl *ServiceLogger) LogAPIRequest(method, path, userAgent, clientIP, requestID string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	if statusCode >= 400 {
		level = zapcore.WarnLevel
	}
	if statusCode >= 500 {
		level = zapcore.ErrorLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.String("user_agent", userAgent),
			zap.String("client_ip", clientIP),
			zap.String("request_id", requestID),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
		)
	}
}

// LogDatabaseQuery logs database queries at debug level
func (sl *ServiceLogger) LogDatabaseQuery(query string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("query", query),
		zap.Duration("duration", duration),
	}
	if err != nil {
		sl.Error("Database query failed", append(fields, zap.Error(err))...)
		return
	}
	sl.Debug("Database query executed", fields...)
}

// AuditLogger records printer registry changes
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates an audit-specific logger
func NewAuditLogger(baseLogger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: baseLogger.With(zap.String("component", "audit"))}
}

// LogPrinterChange logs creation, update or removal of a printer
func (al *AuditLogger) LogPrinterChange(action, printerID, model, clientIP string) {
	al.logger.Info("Printer registry changed",
		zap.String("action", action),
		zap.String("printer_id", printerID),
		zap.String("model", model),
		zap.String("client_ip", clientIP),
	)
}

// LoggerWithRequestID adds request ID to logger
func LoggerWithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID))
}

// LogError is a helper function for consistent error logging
func LogError(logger *zap.Logger, message string, err error, fields ...zap.Field) {
	logger.Error(message, append([]zap.Field{zap.Error(err)}, fields...)...)
}

// CloseLogger flushes buffered entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
