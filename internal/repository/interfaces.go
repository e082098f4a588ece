// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"escpos-service/internal/model"
)

var (
	// ErrNotFound is wrapped by lookups that match no row
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a unique constraint would be violated
	ErrConflict = errors.New("already exists")
)

// PrinterRepository defines printer data access operations
type PrinterRepository interface {
	// CRUD operations
	Create(ctx context.Context, printer *model.Printer) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Printer, error)
	GetByName(ctx context.Context, name string) (*model.Printer, error)
	Update(ctx context.Context, printer *model.Printer) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PrinterStatus, seen time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Listing and filtering
	List(ctx context.Context, filter *PrinterFilter) ([]*model.Printer, int, error)
}

// JobRepository defines print job data access operations
type JobRepository interface {
	Create(ctx context.Context, job *model.PrintJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error)
	Update(ctx context.Context, job *model.PrintJob) error

	List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error)
	GetJobStats(ctx context.Context, printerID *uuid.UUID) (*JobStats, error)

	// Cleanup
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

// PrinterFilter represents printer listing filters
type PrinterFilter struct {
	Model          *string               `json:"model,omitempty"`
	ConnectionType *model.ConnectionType `json:"connection_type,omitempty"`
	Status         *model.PrinterStatus  `json:"status,omitempty"`
	SearchTerm     *string               `json:"search_term,omitempty"`
	Limit          int                   `json:"limit"`
	Offset         int                   `json:"offset"`
}

// JobFilter represents job listing filters
type JobFilter struct {
	PrinterID *uuid.UUID       `json:"printer_id,omitempty"`
	Status    *model.JobStatus `json:"status,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// JobStats represents job statistics
type JobStats struct {
	TotalJobs   int                     `json:"total_jobs"`
	Completed   int                     `json:"completed"`
	Failed      int                     `json:"failed"`
	TotalBytes  int64                   `json:"total_bytes"`
	AvgDuration time.Duration           `json:"average_duration"`
	ByStatus    map[model.JobStatus]int `json:"by_status"`
}

// DefaultLimit applies when a filter leaves Limit unset
const DefaultLimit = 50

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
