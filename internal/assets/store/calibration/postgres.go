package calibration

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

// Postgres persists calibration records. The completed-requires-certificate
// invariant is enforced here as well as in validation; a CHECK constraint on
// the table provides the final line of defense.
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

const recordColumns = `id, instrument_id, performed_by, calibration_type, description,
	status, date_performed, next_calibration_date, certificate_id,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, record *models.CalibrationRecord) error {
	if err := guardCompleted(record); err != nil {
		return err
	}
	query := `
		INSERT INTO calibration_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.InstrumentID),
		uuid.UUID(record.PerformedBy),
		string(record.CalibrationType),
		record.Description,
		string(record.Status),
		record.DatePerformed,
		record.NextCalibrationDate,
		certificateArg(record),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calibration record: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, record *models.CalibrationRecord) error {
	if err := guardCompleted(record); err != nil {
		return err
	}
	query := `
		UPDATE calibration_records
		SET calibration_type = $2, description = $3, status = $4,
			date_performed = $5, next_calibration_date = $6, certificate_id = $7,
			updated_at = $8
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		string(record.CalibrationType),
		record.Description,
		string(record.Status),
		record.DatePerformed,
		record.NextCalibrationDate,
		certificateArg(record),
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update calibration record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update calibration record: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, recordID id.CalibrationRecordID) (*models.CalibrationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM calibration_records WHERE id = $1`
	return scanRecord(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(recordID)))
}

func (s *Postgres) ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.CalibrationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM calibration_records
		WHERE instrument_id = $1 ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(instrumentID))
	if err != nil {
		return nil, fmt.Errorf("list calibration records: %w", err)
	}
	defer rows.Close()

	var out []*models.CalibrationRecord
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

func scanRecord(row rowScanner) (*models.CalibrationRecord, error) {
	var (
		record        models.CalibrationRecord
		recordID      uuid.UUID
		instrumentID  uuid.UUID
		performedBy   uuid.UUID
		calType       string
		status        string
		datePerformed sql.NullTime
		nextDate      sql.NullTime
		certificateID uuid.NullUUID
	)
	err := row.Scan(
		&recordID,
		&instrumentID,
		&performedBy,
		&calType,
		&record.Description,
		&status,
		&datePerformed,
		&nextDate,
		&certificateID,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan calibration record: %w", err)
	}
	record.ID = id.CalibrationRecordID(recordID)
	record.InstrumentID = id.InstrumentID(instrumentID)
	record.PerformedBy = id.UserID(performedBy)
	record.CalibrationType = models.CalibrationType(calType)
	record.Status = models.RecordStatus(status)
	if datePerformed.Valid {
		t := datePerformed.Time
		record.DatePerformed = &t
	}
	if nextDate.Valid {
		t := nextDate.Time
		record.NextCalibrationDate = &t
	}
	if certificateID.Valid {
		c := id.CertificateID(certificateID.UUID)
		record.CertificateID = &c
	}
	return &record, nil
}

func certificateArg(record *models.CalibrationRecord) uuid.NullUUID {
	if record.CertificateID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*record.CertificateID), Valid: true}
}
