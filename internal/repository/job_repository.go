// internal/repository/job_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/database"
	"escpos-service/internal/model"
	"escpos-service/internal/utils"
)

const jobColumns = `id, printer_id, model, status, document, bytes, segments, chunks,
	error_message, started_at, completed_at, duration_ms, created_at`

// jobRepository implements JobRepository on PostgreSQL
type jobRepository struct {
	db      *database.DB
	logger  *zap.Logger
	queries *utils.ServiceLogger
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *database.DB, logger *zap.Logger) JobRepository {
	return &jobRepository{
		db:      db,
		logger:  logger,
		queries: utils.NewServiceLogger(logger, "job-repository"),
	}
}

func scanJob(row rowScanner) (*model.PrintJob, error) {
	j := &model.PrintJob{}
	err := row.Scan(
		&j.ID, &j.PrinterID, &j.Model, &j.Status, &j.Document, &j.Bytes, &j.Segments,
		&j.Chunks, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.DurationMs, &j.CreatedAt,
	)
	return j, err
}

// Create stores a new job
func (r *jobRepository) Create(ctx context.Context, job *model.PrintJob) error {
	query := `
		INSERT INTO print_jobs (
			id, printer_id, model, status, document, bytes, segments, chunks,
			error_message, started_at, completed_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		job.ID, job.PrinterID, job.Model, job.Status, job.Document, job.Bytes,
		job.Segments, job.Chunks, job.ErrorMessage, job.StartedAt, job.CompletedAt,
		job.DurationMs,
	).Scan(&job.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create job", zap.Error(err), zap.String("job_id", job.ID.String()))
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its UUID
func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	query := `SELECT ` + jobColumns + ` FROM print_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		r.logger.Error("Failed to get job by ID", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// Update stores the job's progress
func (r *jobRepository) Update(ctx context.Context, job *model.PrintJob) error {
	query := `
		UPDATE print_jobs SET
			status = $2, bytes = $3, segments = $4, chunks = $5, error_message = $6,
			started_at = $7, completed_at = $8, duration_ms = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.Bytes, job.Segments, job.Chunks, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.DurationMs,
	)
	if err != nil {
		r.logger.Error("Failed to update job", zap.Error(err), zap.String("job_id", job.ID.String()))
		return fmt.Errorf("failed to update job: %w", err)
	}
	return requireRow(result, "job", job.ID)
}

func jobWhere(filter *JobFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter == nil {
		return where
	}
	if filter.PrinterID != nil {
		where.add("printer_id = ?", *filter.PrinterID)
	}
	if filter.Status != nil {
		where.add("status = ?", *filter.Status)
	}
	if filter.StartDate != nil {
		where.add("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		where.add("created_at <= ?", *filter.EndDate)
	}
	return where
}

// List retrieves jobs, newest first. Documents are left out of listings.
func (r *jobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error) {
	if filter == nil {
		filter = &JobFilter{}
	}
	where := jobWhere(filter)
	whereClause := where.clause()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM print_jobs "+whereClause, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	n := len(where.args)
	query := fmt.Sprintf(`
		SELECT id, printer_id, model, status, NULL::jsonb, bytes, segments, chunks,
			error_message, started_at, completed_at, duration_ms, created_at
		FROM print_jobs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, n+1, n+2)
	args := append(where.args, limitOrDefault(filter.Limit), filter.Offset)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.queries.LogDatabaseQuery(query, time.Since(start), err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*model.PrintJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate job rows: %w", err)
	}

	return jobs, total, nil
}

// GetJobStats aggregates jobs, optionally for one printer
func (r *jobRepository) GetJobStats(ctx context.Context, printerID *uuid.UUID) (*JobStats, error) {
	where := jobWhere(&JobFilter{PrinterID: printerID})
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(bytes), 0), AVG(duration_ms)
		FROM print_jobs ` + where.clause() + `
		GROUP BY status
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, where.args...)
	r.queries.LogDatabaseQuery(query, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	defer rows.Close()

	stats := &JobStats{ByStatus: make(map[model.JobStatus]int)}
	var weighted float64
	var timed int
	for rows.Next() {
		var status model.JobStatus
		var count int
		var bytes int64
		var avgMs sql.NullFloat64
		if err := rows.Scan(&status, &count, &bytes, &avgMs); err != nil {
			return nil, fmt.Errorf("failed to scan job stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalJobs += count
		stats.TotalBytes += bytes
		if avgMs.Valid {
			weighted += avgMs.Float64 * float64(count)
			timed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job stats: %w", err)
	}

	stats.Completed = stats.ByStatus[model.JobStatusCompleted]
	stats.Failed = stats.ByStatus[model.JobStatusFailed]
	if timed > 0 {
		stats.AvgDuration = time.Duration(weighted/float64(timed)) * time.Millisecond
	}
	return stats, nil
}

// DeleteOldJobs removes job records created before olderThan
func (r *jobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM print_jobs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Deleted old jobs",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("older_than", olderThan),
	)
	return rowsAffected, nil
}
