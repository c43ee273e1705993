package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
	txcontext "metrolab/pkg/platform/tx"
)

// Postgres persists maintenance records.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const maintenanceColumns = `id, instrument_id, performed_by, maintenance_type, description,
	status, start_date, end_date, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, record *models.MaintenanceRecord) error {
	query := `
		INSERT INTO maintenance_records (` + maintenanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.InstrumentID),
		uuid.UUID(record.PerformedBy),
		string(record.MaintenanceType),
		record.Description,
		string(record.Status),
		record.StartDate,
		record.EndDate,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert maintenance record: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, record *models.MaintenanceRecord) error {
	query := `
		UPDATE maintenance_records
		SET maintenance_type = $2, description = $3, status = $4,
			start_date = $5, end_date = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		string(record.MaintenanceType),
		record.Description,
		string(record.Status),
		record.StartDate,
		record.EndDate,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update maintenance record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update maintenance record: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, recordID id.MaintenanceRecordID) (*models.MaintenanceRecord, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_records WHERE id = $1`
	return scanRecord(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(recordID)))
}

func (s *Postgres) ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.MaintenanceRecord, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_records
		WHERE instrument_id = $1 ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(instrumentID))
	if err != nil {
		return nil, fmt.Errorf("list maintenance records: %w", err)
	}
	defer rows.Close()

	var out []*models.MaintenanceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.MaintenanceRecord, error) {
	var (
		record       models.MaintenanceRecord
		recordID     uuid.UUID
		instrumentID uuid.UUID
		performedBy  uuid.UUID
		maintType    string
		status       string
		endDate      sql.NullTime
	)
	err := row.Scan(
		&recordID,
		&instrumentID,
		&performedBy,
		&maintType,
		&record.Description,
		&status,
		&record.StartDate,
		&endDate,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan maintenance record: %w", err)
	}
	record.ID = id.MaintenanceRecordID(recordID)
	record.InstrumentID = id.InstrumentID(instrumentID)
	record.PerformedBy = id.UserID(performedBy)
	record.MaintenanceType = models.MaintenanceType(maintType)
	record.Status = models.RecordStatus(status)
	if endDate.Valid {
		t := endDate.Time
		record.EndDate = &t
	}
	return &record, nil
}
