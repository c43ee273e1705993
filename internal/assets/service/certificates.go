package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"metrolab/internal/assets/models"
	"metrolab/internal/audit"
	"metrolab/internal/platform/metrics"
	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
	"metrolab/pkg/platform/sentinel"
)

// CertificateService orchestrates the calibration certificate lifecycle:
// submission, QA review, and version supersession.
type CertificateService struct {
	certs   CertificateStore
	tx      TxRunner
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Recorder
	clock   Clock
}

type CertificateOption func(*CertificateService)

func WithCertificateLogger(logger *slog.Logger) CertificateOption {
	return func(s *CertificateService) { s.logger = logger }
}

func WithCertificateMetrics(m *metrics.Metrics) CertificateOption {
	return func(s *CertificateService) { s.metrics = m }
}

func WithCertificateClock(clock Clock) CertificateOption {
	return func(s *CertificateService) { s.clock = clock }
}

func WithCertificateAudit(recorder *audit.Recorder) CertificateOption {
	return func(s *CertificateService) { s.audit = recorder }
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(certs CertificateStore, tx TxRunner, opts ...CertificateOption) *CertificateService {
	s := &CertificateService{certs: certs, tx: tx, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCertificateRequest is the submission payload for a new certificate.
type CreateCertificateRequest struct {
	CertificateNumber string
	CertificateType   models.CertificateType
	IssueDate         time.Time
	ExpiryDate        time.Time
	CalibrationData   models.CalibrationData
}

// Create validates the submission schema and the correlation data, then
// persists a DRAFT certificate. No state is written when validation fails.
func (s *CertificateService) Create(ctx context.Context, actor models.Actor, req CreateCertificateRequest) (*models.CalibrationCertificate, error) {
	if err := req.CalibrationData.ValidateSubmission(); err != nil {
		return nil, err
	}

	now := s.clock()
	cert, err := models.NewCalibrationCertificate(
		id.CertificateID(uuid.New()),
		req.CertificateNumber,
		req.CertificateType,
		req.IssueDate,
		req.ExpiryDate,
		req.CalibrationData,
		actor.ID,
		now,
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.certs.Create(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "certificate number and version must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate")
	}

	s.logInfo(ctx, "certificate created",
		"certificate_id", cert.ID.String(),
		"certificate_number", cert.CertificateNumber,
		"version", cert.Version)
	return cert, nil
}

// Get returns a certificate by id.
func (s *CertificateService) Get(ctx context.Context, certID id.CertificateID) (*models.CalibrationCertificate, error) {
	cert, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return cert, nil
}

// Versions returns every version of a certificate number in version order.
func (s *CertificateService) Versions(ctx context.Context, number string) ([]*models.CalibrationCertificate, error) {
	certs, err := s.certs.ListByNumber(ctx, number)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificate versions")
	}
	return certs, nil
}

// Submit moves a draft certificate into the QA review queue. Only DRAFT
// certificates may be submitted; reviewed and superseded ones are refused.
func (s *CertificateService) Submit(ctx context.Context, actor models.Actor, certID id.CertificateID) (*models.CalibrationCertificate, error) {
	var submitted *models.CalibrationCertificate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cert, err := s.certs.FindByID(ctx, certID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "certificate not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
		}

		if err := cert.CanSubmitForReview(); err != nil {
			return err
		}
		cert.ApplySubmitForReview(s.clock())

		if err := s.certs.Update(ctx, cert); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit certificate for review")
		}
		submitted = cert
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "certificate submitted for review",
		"certificate_id", submitted.ID.String(),
		"certificate_number", submitted.CertificateNumber)
	return submitted, nil
}

// Review applies a QA decision. The access layer authorizes who may call
// this; the service still refuses actors without QA capability and reviews
// without a reviewer identity as defense in depth. The read-validate-write
// sequence runs inside one transaction scope.
func (s *CertificateService) Review(ctx context.Context, actor models.Actor, certID id.CertificateID, review models.QAReview) (*models.CalibrationCertificate, error) {
	if !actor.IsQA() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only QA users may review certificates")
	}
	if review.Reviewer.IsNil() {
		review.Reviewer = actor.ID
	}

	var reviewed *models.CalibrationCertificate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cert, err := s.certs.FindByID(ctx, certID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "certificate not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
		}

		if err := cert.CanReview(review); err != nil {
			return err
		}
		cert.ApplyQAReview(review, s.clock())

		if err := s.certs.Update(ctx, cert); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certificate review")
		}
		reviewed = cert
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reviewed.IsApproved {
		s.count(func(m *metrics.Metrics) { m.CertificatesApproved.Inc() })
	} else {
		s.count(func(m *metrics.Metrics) { m.CertificatesRejected.Inc() })
	}
	s.record(audit.Event{
		Actor:      actor.ID,
		Action:     audit.ActionCertificateReviewed,
		EntityType: "certificate",
		EntityID:   reviewed.ID.String(),
		Detail:     string(reviewed.Status),
	})
	s.logInfo(ctx, "certificate reviewed",
		"certificate_id", reviewed.ID.String(),
		"status", string(reviewed.Status),
		"reviewer", reviewed.Reviewer.String())
	return reviewed, nil
}

// CreateNewVersion supersedes the certificate with a fresh DRAFT carrying
// version+1. The insert of the successor and the supersession of the source
// are one atomic unit; under concurrency the version uniqueness constraint
// lets exactly one caller win.
func (s *CertificateService) CreateNewVersion(ctx context.Context, actor models.Actor, certID id.CertificateID) (*models.CalibrationCertificate, error) {
	if actor.Role != models.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators may create certificate versions")
	}

	var next *models.CalibrationCertificate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		source, err := s.certs.FindByID(ctx, certID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "certificate not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
		}

		if err := source.CanSupersede(); err != nil {
			return err
		}

		now := s.clock()
		next = source.NewVersion(id.CertificateID(uuid.New()), now)
		source.ApplySupersede(now)

		if err := s.certs.CreateVersion(ctx, next, source); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a newer version of this certificate already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate version")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.count(func(m *metrics.Metrics) { m.CertificatesSuperseded.Inc() })
	s.record(audit.Event{
		Actor:      actor.ID,
		Action:     audit.ActionCertificateSuperseded,
		EntityType: "certificate",
		EntityID:   certID.String(),
		Detail:     next.ID.String(),
	})
	s.logInfo(ctx, "certificate version created",
		"certificate_number", next.CertificateNumber,
		"version", next.Version,
		"superseded_id", certID.String())
	return next, nil
}

// EvaluateAcceptance checks a certificate's calibration data against the
// given acceptance criteria without mutating anything.
func (s *CertificateService) EvaluateAcceptance(ctx context.Context, certID id.CertificateID, criteria models.AcceptanceCriteria) (bool, string, error) {
	cert, err := s.Get(ctx, certID)
	if err != nil {
		return false, "", err
	}
	valid, message := cert.CalibrationData.EvaluateAcceptanceCriteria(criteria)
	return valid, message, nil
}

func (s *CertificateService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *CertificateService) count(fn func(*metrics.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *CertificateService) record(event audit.Event) {
	if s.audit != nil {
		s.audit.Record(event)
	}
}
