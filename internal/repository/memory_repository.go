// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"escpos-service/internal/model"
)

// memoryPrinterRepository keeps printers in process memory. It is used when
// no database is configured.
type memoryPrinterRepository struct {
	mu       sync.RWMutex
	printers map[uuid.UUID]model.Printer
}

// NewMemoryPrinterRepository creates an empty in-memory printer repository
func NewMemoryPrinterRepository() PrinterRepository {
	return &memoryPrinterRepository{printers: make(map[uuid.UUID]model.Printer)}
}

func (r *memoryPrinterRepository) nameTaken(name string, except uuid.UUID) bool {
	for id, p := range r.printers {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

func (r *memoryPrinterRepository) Create(ctx context.Context, printer *model.Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.printers[printer.ID]; ok || r.nameTaken(printer.Name, printer.ID) {
		return fmt.Errorf("printer %q: %w", printer.Name, ErrConflict)
	}
	now := time.Now()
	printer.CreatedAt = now
	printer.UpdatedAt = now
	r.printers[printer.ID] = *printer
	return nil
}

func (r *memoryPrinterRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Printer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.printers[id]
	if !ok {
		return nil, fmt.Errorf("printer %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (r *memoryPrinterRepository) GetByName(ctx context.Context, name string) (*model.Printer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.printers {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("printer %q: %w", name, ErrNotFound)
}

func (r *memoryPrinterRepository) Update(ctx context.Context, printer *model.Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.printers[printer.ID]
	if !ok {
		return fmt.Errorf("printer %s: %w", printer.ID, ErrNotFound)
	}
	if r.nameTaken(printer.Name, printer.ID) {
		return fmt.Errorf("printer %q: %w", printer.Name, ErrConflict)
	}
	printer.CreatedAt = existing.CreatedAt
	printer.UpdatedAt = time.Now()
	r.printers[printer.ID] = *printer
	return nil
}

func (r *memoryPrinterRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PrinterStatus, seen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.printers[id]
	if !ok {
		return fmt.Errorf("printer %s: %w", id, ErrNotFound)
	}
	p.Status = status
	p.LastSeen = &seen
	p.UpdatedAt = time.Now()
	r.printers[id] = p
	return nil
}

func (r *memoryPrinterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.printers[id]; !ok {
		return fmt.Errorf("printer %s: %w", id, ErrNotFound)
	}
	delete(r.printers, id)
	return nil
}

func (r *memoryPrinterRepository) List(ctx context.Context, filter *PrinterFilter) ([]*model.Printer, int, error) {
	if filter == nil {
		filter = &PrinterFilter{}
	}

	r.mu.RLock()
	matched := []*model.Printer{}
	for _, p := range r.printers {
		if filter.Model != nil && p.Model != *filter.Model {
			continue
		}
		if filter.ConnectionType != nil && p.ConnectionType != *filter.ConnectionType {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.SearchTerm != nil && !matchesSearch(&p, *filter.SearchTerm) {
			continue
		}
		p := p
		matched = append(matched, &p)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func matchesSearch(p *model.Printer, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	return p.Location != nil && strings.Contains(strings.ToLower(*p.Location), term)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit = limitOrDefault(limit); limit < len(items) {
		items = items[:limit]
	}
	return items
}

// memoryJobRepository keeps print jobs in process memory
type memoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]model.PrintJob
}

// NewMemoryJobRepository creates an empty in-memory job repository
func NewMemoryJobRepository() JobRepository {
	return &memoryJobRepository{jobs: make(map[uuid.UUID]model.PrintJob)}
}

func (r *memoryJobRepository) Create(ctx context.Context, job *model.PrintJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrConflict)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return &j, nil
}

func (r *memoryJobRepository) Update(ctx context.Context, job *model.PrintJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	job.CreatedAt = existing.CreatedAt
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepository) matching(filter *JobFilter) []*model.PrintJob {
	matched := []*model.PrintJob{}
	for _, j := range r.jobs {
		if filter.PrinterID != nil && (j.PrinterID == nil || *j.PrinterID != *filter.PrinterID) {
			continue
		}
		if filter.Status != nil && j.Status != *filter.Status {
			continue
		}
		if filter.StartDate != nil && j.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && j.CreatedAt.After(*filter.EndDate) {
			continue
		}
		j := j
		matched = append(matched, &j)
	}
	return matched
}

func (r *memoryJobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error) {
	if filter == nil {
		filter = &JobFilter{}
	}

	r.mu.RLock()
	matched := r.matching(filter)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	for _, j := range matched {
		j.Document = nil
	}
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *memoryJobRepository) GetJobStats(ctx context.Context, printerID *uuid.UUID) (*JobStats, error) {
	r.mu.RLock()
	matched := r.matching(&JobFilter{PrinterID: printerID})
	r.mu.RUnlock()

	stats := &JobStats{ByStatus: make(map[model.JobStatus]int)}
	var totalMs, timed int
	for _, j := range matched {
		stats.TotalJobs++
		stats.TotalBytes += int64(j.Bytes)
		stats.ByStatus[j.Status]++
		if j.DurationMs != nil {
			totalMs += *j.DurationMs
			timed++
		}
	}
	stats.Completed = stats.ByStatus[model.JobStatusCompleted]
	stats.Failed = stats.ByStatus[model.JobStatusFailed]
	if timed > 0 {
		stats.AvgDuration = time.Duration(totalMs/timed) * time.Millisecond
	}
	return stats, nil
}

func (r *memoryJobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, j := range r.jobs {
		if j.CreatedAt.Before(olderThan) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed, nil
}
