package certificate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
	txcontext "metrolab/pkg/platform/tx"
)

// Postgres persists calibration certificates. calibration_data and the
// review finding lists live in JSONB columns; the composite unique index on
// (certificate_number, version) backs the versioning invariant, so two
// concurrent CreateVersion calls can never both insert version N+1.
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

const certificateColumns = `id, certificate_number, version, status, certificate_type,
	issue_date, expiry_date, calibration_data, created_by,
	reviewer, review_date, review_notes, is_approved,
	non_conformities, corrective_actions, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, cert *models.CalibrationCertificate) error {
	data, nonConformities, correctiveActions, err := marshalJSONColumns(cert)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO calibration_certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(cert.ID),
		cert.CertificateNumber,
		cert.Version,
		string(cert.Status),
		string(cert.CertificateType),
		cert.IssueDate,
		cert.ExpiryDate,
		data,
		uuid.UUID(cert.CreatedBy),
		nullableUUID(uuid.UUID(cert.Reviewer)),
		cert.ReviewDate,
		cert.ReviewNotes,
		cert.IsApproved,
		nonConformities,
		correctiveActions,
		cert.CreatedAt,
		cert.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, cert *models.CalibrationCertificate) error {
	data, nonConformities, correctiveActions, err := marshalJSONColumns(cert)
	if err != nil {
		return err
	}

	query := `
		UPDATE calibration_certificates
		SET status = $2, certificate_type = $3, issue_date = $4, expiry_date = $5,
			calibration_data = $6, reviewer = $7, review_date = $8,
			review_notes = $9, is_approved = $10, non_conformities = $11,
			corrective_actions = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(cert.ID),
		string(cert.Status),
		string(cert.CertificateType),
		cert.IssueDate,
		cert.ExpiryDate,
		data,
		nullableUUID(uuid.UUID(cert.Reviewer)),
		cert.ReviewDate,
		cert.ReviewNotes,
		cert.IsApproved,
		nonConformities,
		correctiveActions,
		cert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// CreateVersion inserts the successor and supersedes the source. Both writes
// run on the same executor; wrap the call in a transaction (RunInTx) so they
// commit or roll back together.
func (s *Postgres) CreateVersion(ctx context.Context, next, source *models.CalibrationCertificate) error {
	if err := s.Create(ctx, next); err != nil {
		return err
	}
	return s.Update(ctx, source)
}

func (s *Postgres) FindByID(ctx context.Context, certID id.CertificateID) (*models.CalibrationCertificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM calibration_certificates WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(certID))
	cert, err := scanCertificate(row)
	if err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *Postgres) ListByNumber(ctx context.Context, number string) ([]*models.CalibrationCertificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM calibration_certificates
		WHERE certificate_number = $1 ORDER BY version`
	rows, err := s.execer(ctx).QueryContext(ctx, query, number)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*models.CalibrationCertificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.CalibrationCertificate, error) {
	var (
		cert              models.CalibrationCertificate
		certID            uuid.UUID
		status            string
		certType          string
		data              []byte
		createdBy         uuid.UUID
		reviewer          uuid.NullUUID
		reviewDate        sql.NullTime
		nonConformities   []byte
		correctiveActions []byte
	)
	err := row.Scan(
		&certID,
		&cert.CertificateNumber,
		&cert.Version,
		&status,
		&certType,
		&cert.IssueDate,
		&cert.ExpiryDate,
		&data,
		&createdBy,
		&reviewer,
		&reviewDate,
		&cert.ReviewNotes,
		&cert.IsApproved,
		&nonConformities,
		&correctiveActions,
		&cert.CreatedAt,
		&cert.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	cert.ID = id.CertificateID(certID)
	cert.Status = models.CertificateStatus(status)
	cert.CertificateType = models.CertificateType(certType)
	cert.CreatedBy = id.UserID(createdBy)
	if reviewer.Valid {
		cert.Reviewer = id.UserID(reviewer.UUID)
	}
	if reviewDate.Valid {
		t := reviewDate.Time
		cert.ReviewDate = &t
	}
	if err := json.Unmarshal(data, &cert.CalibrationData); err != nil {
		return nil, fmt.Errorf("decode calibration_data: %w", err)
	}
	if err := json.Unmarshal(nonConformities, &cert.NonConformities); err != nil {
		return nil, fmt.Errorf("decode non_conformities: %w", err)
	}
	if err := json.Unmarshal(correctiveActions, &cert.CorrectiveActions); err != nil {
		return nil, fmt.Errorf("decode corrective_actions: %w", err)
	}
	return &cert, nil
}

func marshalJSONColumns(cert *models.CalibrationCertificate) (data, nonConformities, correctiveActions []byte, err error) {
	data, err = json.Marshal(cert.CalibrationData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode calibration_data: %w", err)
	}
	nonConformities, err = json.Marshal(emptyIfNil(cert.NonConformities))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode non_conformities: %w", err)
	}
	correctiveActions, err = json.Marshal(emptyIfNil(cert.CorrectiveActions))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode corrective_actions: %w", err)
	}
	return data, nonConformities, correctiveActions, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
