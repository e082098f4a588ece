// internal/model/job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a print job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusPrinting  JobStatus = "PRINTING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusRendered  JobStatus = "RENDERED"
)

// PrintJob records one composed document and its delivery
type PrintJob struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	PrinterID    *uuid.UUID `json:"printer_id,omitempty" db:"printer_id"`
	Model        string     `json:"model" db:"model"`
	Status       JobStatus  `json:"status" db:"status"`
	Document     JSONRaw    `json:"document,omitempty" db:"document"`
	Bytes        int        `json:"bytes" db:"bytes"`
	Segments     int        `json:"segments" db:"segments"`
	Chunks       int        `json:"chunks" db:"chunks"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	DurationMs   *int       `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IsCompleted checks if the job reached a terminal state
func (j *PrintJob) IsCompleted() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusRendered
}

// MarkStarted moves the job to printing
func (j *PrintJob) MarkStarted(now time.Time) {
	j.Status = JobStatusPrinting
	j.StartedAt = &now
}

// MarkFinished moves the job to a terminal state and records duration
func (j *PrintJob) MarkFinished(status JobStatus, now time.Time, err error) {
	j.Status = status
	j.CompletedAt = &now
	if j.StartedAt != nil {
		ms := int(now.Sub(*j.StartedAt).Milliseconds())
		j.DurationMs = &ms
	}
	if err != nil {
		msg := err.Error()
		j.ErrorMessage = &msg
	}
}
