package instrument

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
	txcontext "metrolab/pkg/platform/tx"
)

// Postgres persists instruments. Serial number uniqueness relies on the
// unique index; violations surface as sentinel.ErrConflict.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const instrumentColumns = `id, name, serial_number, model, manufacturer, category,
	location_id, department_id, status, review_status,
	last_review_date, next_review_date, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, instrument *models.Instrument) error {
	query := `
		INSERT INTO instruments (` + instrumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(instrument.ID),
		instrument.Name,
		instrument.SerialNumber,
		instrument.Model,
		instrument.Manufacturer,
		string(instrument.Category),
		uuid.UUID(instrument.LocationID),
		uuid.UUID(instrument.DepartmentID),
		string(instrument.Status),
		string(instrument.ReviewStatus),
		instrument.LastReviewDate,
		instrument.NextReviewDate,
		instrument.CreatedAt,
		instrument.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, instrument *models.Instrument) error {
	query := `
		UPDATE instruments
		SET name = $2, serial_number = $3, model = $4, manufacturer = $5,
			category = $6, location_id = $7, department_id = $8, status = $9,
			review_status = $10, last_review_date = $11, next_review_date = $12,
			updated_at = $13
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(instrument.ID),
		instrument.Name,
		instrument.SerialNumber,
		instrument.Model,
		instrument.Manufacturer,
		string(instrument.Category),
		uuid.UUID(instrument.LocationID),
		uuid.UUID(instrument.DepartmentID),
		string(instrument.Status),
		string(instrument.ReviewStatus),
		instrument.LastReviewDate,
		instrument.NextReviewDate,
		instrument.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update instrument: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update instrument: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = $1`
	return s.scanInstrument(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(instrumentID)))
}

func (s *Postgres) FindBySerialNumber(ctx context.Context, serial string) (*models.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE lower(serial_number) = lower($1)`
	return s.scanInstrument(s.execer(ctx).QueryRowContext(ctx, query, serial))
}

func (s *Postgres) scanInstrument(row *sql.Row) (*models.Instrument, error) {
	var (
		instrument   models.Instrument
		instrumentID uuid.UUID
		locationID   uuid.UUID
		departmentID uuid.UUID
		category     string
		status       string
		reviewStatus string
		lastReview   sql.NullTime
		nextReview   sql.NullTime
	)
	err := row.Scan(
		&instrumentID,
		&instrument.Name,
		&instrument.SerialNumber,
		&instrument.Model,
		&instrument.Manufacturer,
		&category,
		&locationID,
		&departmentID,
		&status,
		&reviewStatus,
		&lastReview,
		&nextReview,
		&instrument.CreatedAt,
		&instrument.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan instrument: %w", err)
	}
	instrument.ID = id.InstrumentID(instrumentID)
	instrument.LocationID = id.LocationID(locationID)
	instrument.DepartmentID = id.DepartmentID(departmentID)
	instrument.Category = models.InstrumentCategory(category)
	instrument.Status = models.InstrumentStatus(status)
	instrument.ReviewStatus = models.InstrumentReviewStatus(reviewStatus)
	instrument.LastReviewDate = timePtr(lastReview)
	instrument.NextReviewDate = timePtr(nextReview)
	return &instrument, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
