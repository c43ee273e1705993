package review

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

// Postgres persists instrument reviews.
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

const reviewColumns = `id, instrument_id, requested_by, assigned_to, status, priority,
	reason, external_ticket_id, external_ticket_url, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(review.ID),
		uuid.UUID(review.InstrumentID),
		uuid.UUID(review.RequestedBy),
		nullableUUID(uuid.UUID(review.AssignedTo)),
		string(review.Status),
		string(review.Priority),
		review.Reason,
		nullableString(review.ExternalTicketID),
		nullableString(review.ExternalTicketURL),
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, review *models.Review) error {
	query := `
		UPDATE reviews
		SET assigned_to = $2, status = $3, priority = $4, reason = $5,
			external_ticket_id = $6, external_ticket_url = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(review.ID),
		nullableUUID(uuid.UUID(review.AssignedTo)),
		string(review.Status),
		string(review.Priority),
		review.Reason,
		nullableString(review.ExternalTicketID),
		nullableString(review.ExternalTicketURL),
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, reviewID id.ReviewID) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	return scanReview(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(reviewID)))
}

func (s *Postgres) ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE instrument_id = $1 ORDER BY created_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(instrumentID))
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []*models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*models.Review, error) {
	var (
		review       models.Review
		reviewID     uuid.UUID
		instrumentID uuid.UUID
		requestedBy  uuid.UUID
		assignedTo   uuid.NullUUID
		status       string
		priority     string
		ticketID     sql.NullString
		ticketURL    sql.NullString
	)
	err := row.Scan(
		&reviewID,
		&instrumentID,
		&requestedBy,
		&assignedTo,
		&status,
		&priority,
		&review.Reason,
		&ticketID,
		&ticketURL,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	review.ID = id.ReviewID(reviewID)
	review.InstrumentID = id.InstrumentID(instrumentID)
	review.RequestedBy = id.UserID(requestedBy)
	if assignedTo.Valid {
		review.AssignedTo = id.UserID(assignedTo.UUID)
	}
	review.Status = models.ReviewStatus(status)
	review.Priority = models.Priority(priority)
	review.ExternalTicketID = ticketID.String
	review.ExternalTicketURL = ticketURL.String
	return &review, nil
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
