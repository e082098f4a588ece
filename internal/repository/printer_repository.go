// internal/repository/printer_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"escpos-service/internal/database"
	"escpos-service/internal/model"
	"escpos-service/internal/utils"
)

const printerColumns = `id, name, model, connection_type, connection_config,
	location, status, last_seen, created_at, updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key
const uniqueViolation = "23505"

// printerRepository implements PrinterRepository on PostgreSQL
type printerRepository struct {
	db      *database.DB
	logger  *zap.Logger
	queries *utils.ServiceLogger
}

// NewPrinterRepository creates a new printer repository
func NewPrinterRepository(db *database.DB, logger *zap.Logger) PrinterRepository {
	return &printerRepository{
		db:      db,
		logger:  logger,
		queries: utils.NewServiceLogger(logger, "printer-repository"),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrinter(row rowScanner) (*model.Printer, error) {
	p := &model.Printer{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Model, &p.ConnectionType, &p.ConnectionConfig,
		&p.Location, &p.Status, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Create creates a new printer
func (r *printerRepository) Create(ctx context.Context, printer *model.Printer) error {
	query := `
		INSERT INTO printers (
			id, name, model, connection_type, connection_config, location, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		printer.ID, printer.Name, printer.Model, printer.ConnectionType,
		printer.ConnectionConfig, printer.Location, printer.Status,
	).Scan(&printer.CreatedAt, &printer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("printer %q: %w", printer.Name, ErrConflict)
		}
		r.logger.Error("Failed to create printer", zap.Error(err), zap.String("name", printer.Name))
		return fmt.Errorf("failed to create printer: %w", err)
	}

	r.logger.Info("Printer created", zap.String("printer_id", printer.ID.String()))
	return nil
}

// GetByID retrieves a printer by its UUID
func (r *printerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Printer, error) {
	query := `SELECT ` + printerColumns + ` FROM printers WHERE id = $1`

	printer, err := scanPrinter(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("printer %s: %w", id, ErrNotFound)
		}
		r.logger.Error("Failed to get printer by ID", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	return printer, nil
}

// GetByName retrieves a printer by its unique name
func (r *printerRepository) GetByName(ctx context.Context, name string) (*model.Printer, error) {
	query := `SELECT ` + printerColumns + ` FROM printers WHERE name = $1`

	printer, err := scanPrinter(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("printer %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	return printer, nil
}

// Update updates an existing printer
func (r *printerRepository) Update(ctx context.Context, printer *model.Printer) error {
	query := `
		UPDATE printers SET
			name = $2, model = $3, connection_type = $4, connection_config = $5,
			location = $6, status = $7, last_seen = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		printer.ID, printer.Name, printer.Model, printer.ConnectionType,
		printer.ConnectionConfig, printer.Location, printer.Status, printer.LastSeen,
	).Scan(&printer.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("printer %s: %w", printer.ID, ErrNotFound)
		case isUniqueViolation(err):
			return fmt.Errorf("printer %q: %w", printer.Name, ErrConflict)
		}
		r.logger.Error("Failed to update printer", zap.Error(err), zap.String("printer_id", printer.ID.String()))
		return fmt.Errorf("failed to update printer: %w", err)
	}

	r.logger.Debug("Printer updated", zap.String("printer_id", printer.ID.String()))
	return nil
}

// UpdateStatus records the outcome of the last contact with a printer
func (r *printerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PrinterStatus, seen time.Time) error {
	query := `
		UPDATE printers SET status = $2, last_seen = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, seen)
	if err != nil {
		r.logger.Error("Failed to update printer status", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to update printer status: %w", err)
	}
	return requireRow(result, "printer", id)
}

// Delete removes a printer
func (r *printerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM printers WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete printer", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to delete printer: %w", err)
	}
	if err := requireRow(result, "printer", id); err != nil {
		return err
	}

	r.logger.Info("Printer deleted", zap.String("id", id.String()))
	return nil
}

// requireRow turns "0 rows affected" into ErrNotFound
func requireRow(result sql.Result, what string, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// whereBuilder collects numbered-placeholder conditions
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, strings.ReplaceAll(format, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// List retrieves printers with filtering and pagination
func (r *printerRepository) List(ctx context.Context, filter *PrinterFilter) ([]*model.Printer, int, error) {
	if filter == nil {
		filter = &PrinterFilter{}
	}

	where := &whereBuilder{}
	if filter.Model != nil {
		where.add("model = ?", *filter.Model)
	}
	if filter.ConnectionType != nil {
		where.add("connection_type = ?", *filter.ConnectionType)
	}
	if filter.Status != nil {
		where.add("status = ?", *filter.Status)
	}
	if filter.SearchTerm != nil {
		where.add("(name ILIKE ? OR location ILIKE ?)", "%"+*filter.SearchTerm+"%")
	}
	whereClause := where.clause()

	var total int
	countQuery := "SELECT COUNT(*) FROM printers " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count printers: %w", err)
	}

	n := len(where.args)
	query := fmt.Sprintf(`SELECT %s FROM printers %s ORDER BY name LIMIT $%d OFFSET $%d`,
		printerColumns, whereClause, n+1, n+2)
	args := append(where.args, limitOrDefault(filter.Limit), filter.Offset)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.queries.LogDatabaseQuery(query, time.Since(start), err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	printers := []*model.Printer{}
	for rows.Next() {
		printer, err := scanPrinter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan printer row: %w", err)
		}
		printers = append(printers, printer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate printer rows: %w", err)
	}

	return printers, total, nil
}
