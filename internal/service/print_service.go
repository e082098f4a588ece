// internal/service/print_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/document"
	"escpos-service/internal/model"
	"escpos-service/internal/repository"
	"escpos-service/internal/utils"
)

// ErrQueueFull is returned when every worker is busy and the queue is full
var ErrQueueFull = errors.New("print queue is full")

const defaultJobTimeout = 30 * time.Second

// ErrShuttingDown is recorded on jobs still queued when the service stops
var ErrShuttingDown = errors.New("service is shutting down")

// PrintService composes job documents and delivers them to printers
type PrintService struct {
	jobRepo  repository.JobRepository
	printers *PrinterService
	profiles *ProfileService
	events   *EventBus
	config   *config.Config
	options  document.Options
	logger   *utils.ServiceLogger

	queue  chan *printTask
	wg     sync.WaitGroup
	lockMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
}

type printTask struct {
	job     *model.PrintJob
	printer *model.Printer
	data    []byte
	done    chan error
}

// SubmitResult is returned for a submitted job
type SubmitResult struct {
	Job   *model.PrintJob  `json:"job"`
	Stats *document.Result `json:"render"`
}

// RenderResult is a composed document that was not sent anywhere
type RenderResult struct {
	JobID  uuid.UUID        `json:"job_id"`
	Result *document.Result `json:"result"`
}

// NewPrintService creates a new print service instance
func NewPrintService(
	jobRepo repository.JobRepository,
	printers *PrinterService,
	profiles *ProfileService,
	events *EventBus,
	config *config.Config,
	logger *zap.Logger,
) (*PrintService, error) {
	opts, err := DocumentOptions(&config.Printer)
	if err != nil {
		return nil, fmt.Errorf("invalid printer configuration: %w", err)
	}
	workers := config.Printer.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}
	return &PrintService{
		jobRepo:  jobRepo,
		printers: printers,
		profiles: profiles,
		events:   events,
		config:   config,
		options:  opts,
		logger:   utils.NewServiceLogger(logger, "print-service"),
		queue:    make(chan *printTask, workers*16),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

// Start launches the worker pool; workers stop when ctx is cancelled
func (ps *PrintService) Start(ctx context.Context) {
	workers := ps.config.Printer.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		ps.wg.Add(1)
		go ps.worker(ctx)
	}
	ps.logger.Info("Print workers started", zap.Int("workers", workers))
}

// Stop waits for the workers and fails whatever is still queued
func (ps *PrintService) Stop() {
	ps.wg.Wait()
	for {
		select {
		case task := <-ps.queue:
			ps.finish(context.Background(), task, ErrShuttingDown)
		default:
			return
		}
	}
}

// Render composes raw for modelName without sending it. The job is recorded
// as RENDERED.
func (ps *PrintService) Render(ctx context.Context, modelName string, raw []byte) (*RenderResult, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, invalid("document", err)
	}
	if doc.Model != "" {
		modelName = doc.Model
	}
	if modelName == "" {
		modelName = ps.config.Printer.DefaultModel
	}

	job := ps.newJob(nil, modelName, raw)
	result, err := ps.compose(job, doc)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job.StartedAt = &now
	job.MarkFinished(model.JobStatusRendered, now, nil)
	if err := ps.jobRepo.Create(ctx, job); err != nil {
		ps.logger.Error("Failed to record rendered job", zap.Error(err))
	}
	return &RenderResult{JobID: job.ID, Result: result}, nil
}

// Submit composes raw for the printer and queues it. With wait set the call
// returns after delivery (or ctx expiry).
func (ps *PrintService) Submit(ctx context.Context, printerID uuid.UUID, raw []byte, wait bool) (*SubmitResult, error) {
	printer, err := ps.printers.GetPrinter(ctx, printerID)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, invalid("document", err)
	}
	modelName := printer.Model
	if doc.Model != "" {
		modelName = doc.Model
	}

	job := ps.newJob(&printer.ID, modelName, raw)
	result, err := ps.compose(job, doc)
	if err != nil {
		now := time.Now()
		job.StartedAt = &now
		job.MarkFinished(model.JobStatusFailed, now, err)
		if cerr := ps.jobRepo.Create(ctx, job); cerr != nil {
			ps.logger.Error("Failed to record failed job", zap.Error(cerr))
		}
		ps.events.Publish(model.NewJobEvent(model.EventJobFailed, job, model.JSONObject{"error": err.Error()}))
		return nil, err
	}

	if err := ps.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	ps.events.Publish(model.NewJobEvent(model.EventJobQueued, job, model.JSONObject{"bytes": job.Bytes}))

	task := &printTask{job: job, printer: printer, data: result.Data, done: make(chan error, 1)}
	select {
	case ps.queue <- task:
	default:
		ps.finish(ctx, task, ErrQueueFull)
		return nil, ErrQueueFull
	}

	if wait {
		select {
		case <-task.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &SubmitResult{Job: ps.snapshot(ctx, job.ID, job), Stats: result}, nil
}

// GetJob retrieves a job
func (ps *PrintService) GetJob(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	job, err := ps.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs lists jobs matching filter
func (ps *PrintService) ListJobs(ctx context.Context, filter *repository.JobFilter) ([]*model.PrintJob, int, error) {
	jobs, total, err := ps.jobRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, total, nil
}

// JobStats aggregates jobs, optionally for one printer
func (ps *PrintService) JobStats(ctx context.Context, printerID *uuid.UUID) (*repository.JobStats, error) {
	stats, err := ps.jobRepo.GetJobStats(ctx, printerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	return stats, nil
}

// CleanupJobs removes jobs older than the configured retention
func (ps *PrintService) CleanupJobs(ctx context.Context) (int64, error) {
	retention := ps.config.Database.JobsRetention
	if retention <= 0 {
		return 0, nil
	}
	n, err := ps.jobRepo.DeleteOldJobs(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up jobs: %w", err)
	}
	if n > 0 {
		ps.logger.Info("Old jobs removed", zap.Int64("count", n), zap.Duration("retention", retention))
	}
	return n, nil
}

func (ps *PrintService) newJob(printerID *uuid.UUID, modelName string, raw []byte) *model.PrintJob {
	return &model.PrintJob{
		ID:        uuid.New(),
		PrinterID: printerID,
		Model:     modelName,
		Status:    model.JobStatusQueued,
		Document:  model.JSONRaw(raw),
		CreatedAt: time.Now(),
	}
}

// compose renders doc for the job's model and records the byte counts
func (ps *PrintService) compose(job *model.PrintJob, doc *document.Document) (*document.Result, error) {
	p := ps.profiles.Resolve(job.Model)
	result, err := document.Render(p, doc, ps.options, ps.logger.Logger)
	if err != nil {
		return nil, invalid("document", err)
	}
	job.Bytes = result.Bytes
	job.Segments = result.Stats.Segments
	job.Chunks = result.Stats.ImageChunks
	return result, nil
}

func (ps *PrintService) worker(ctx context.Context) {
	defer ps.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-ps.queue:
			ps.deliver(ctx, task)
		}
	}
}

func (ps *PrintService) printerLock(id uuid.UUID) *sync.Mutex {
	ps.lockMu.Lock()
	defer ps.lockMu.Unlock()

	lock, ok := ps.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		ps.locks[id] = lock
	}
	return lock
}

// deliver sends one job; jobs for the same printer never interleave
func (ps *PrintService) deliver(ctx context.Context, task *printTask) {
	lock := ps.printerLock(task.printer.ID)
	lock.Lock()
	defer lock.Unlock()

	// job state is recorded even when shutdown cancels the delivery
	store := context.WithoutCancel(ctx)
	job := task.job
	jobLogger := utils.NewJobLogger(ps.logger.Logger, job.ID.String(), job.Model)
	printerLogger := utils.NewPrinterLogger(ps.logger.Logger, task.printer.ID.String(), job.Model, string(task.printer.ConnectionType))
	jobLogger.Start(zap.Int("bytes", len(task.data)))

	job.MarkStarted(time.Now())
	if err := ps.jobRepo.Update(store, job); err != nil {
		ps.logger.Error("Failed to update job status", zap.Error(err))
	}
	ps.events.Publish(model.NewJobEvent(model.EventJobPrinting, job, nil))

	timeout := ps.config.Printer.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := ps.send(jobCtx, task, printerLogger)
	printerLogger.LogTransfer(job.ID.String(), len(task.data), jobLogger.Elapsed(), err)
	if err != nil {
		jobLogger.Error(err)
		ps.printers.recordStatus(store, task.printer, model.PrinterStatusOffline)
	} else {
		jobLogger.Success(zap.Int("bytes", len(task.data)))
		ps.printers.recordStatus(store, task.printer, model.PrinterStatusOnline)
	}
	ps.finish(store, task, err)
}

func (ps *PrintService) send(ctx context.Context, task *printTask, printerLogger *utils.PrinterLogger) error {
	transport, err := ps.printers.OpenTransport(ctx, task.printer, printerLogger)
	if err != nil {
		return err
	}
	defer func() {
		printerLogger.LogConnection("close", transport.Close())
	}()
	return transport.Write(ctx, task.data)
}

// finish records the terminal state and wakes a waiting submitter
func (ps *PrintService) finish(ctx context.Context, task *printTask, err error) {
	job := task.job
	if job.StartedAt == nil {
		job.MarkStarted(time.Now())
	}
	if err != nil {
		job.MarkFinished(model.JobStatusFailed, time.Now(), err)
		ps.events.Publish(model.NewJobEvent(model.EventJobFailed, job, model.JSONObject{"error": err.Error()}))
	} else {
		job.MarkFinished(model.JobStatusCompleted, time.Now(), nil)
		ps.events.Publish(model.NewJobEvent(model.EventJobCompleted, job, model.JSONObject{"bytes": job.Bytes}))
	}
	if uerr := ps.jobRepo.Update(ctx, job); uerr != nil {
		ps.logger.Error("Failed to update job", zap.Error(uerr), zap.String("job_id", job.ID.String()))
	}
	task.done <- err
}

// snapshot re-reads the job so callers never share the worker's copy
func (ps *PrintService) snapshot(ctx context.Context, id uuid.UUID, fallback *model.PrintJob) *model.PrintJob {
	job, err := ps.jobRepo.GetByID(ctx, id)
	if err != nil {
		return fallback
	}
	return job
}
