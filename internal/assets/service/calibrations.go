package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"metrolab/internal/assets/models"
	"metrolab/internal/assets/scope"
	"metrolab/internal/platform/metrics"
	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
	"metrolab/pkg/platform/sentinel"
)

// CalibrationService manages calibration records and their status workflow.
type CalibrationService struct {
	records     CalibrationStore
	instruments InstrumentStore
	tx          TxRunner
	logger      *slog.Logger
	metrics     *metrics.Metrics
	clock       Clock
}

type CalibrationOption func(*CalibrationService)

func WithCalibrationLogger(logger *slog.Logger) CalibrationOption {
	return func(s *CalibrationService) { s.logger = logger }
}

func WithCalibrationMetrics(m *metrics.Metrics) CalibrationOption {
	return func(s *CalibrationService) { s.metrics = m }
}

func WithCalibrationClock(clock Clock) CalibrationOption {
	return func(s *CalibrationService) { s.clock = clock }
}

// NewCalibrationService constructs a CalibrationService.
func NewCalibrationService(records CalibrationStore, instruments InstrumentStore, tx TxRunner, opts ...CalibrationOption) *CalibrationService {
	s := &CalibrationService{records: records, instruments: instruments, tx: tx, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCalibrationRequest is the payload for scheduling a calibration.
type CreateCalibrationRequest struct {
	InstrumentID        id.InstrumentID
	CalibrationType     models.CalibrationType
	Description         string
	Status              models.RecordStatus
	DatePerformed       *time.Time
	NextCalibrationDate *time.Time
	CertificateID       *id.CertificateID
}

// Create schedules a calibration for an instrument. Creating directly in
// completed status is held to the same certificate invariant as a transition.
func (s *CalibrationService) Create(ctx context.Context, actor models.Actor, req CreateCalibrationRequest) (*models.CalibrationRecord, error) {
	instrument, err := s.findInstrument(ctx, req.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionWrite) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to modify records in this department")
	}

	record, err := models.NewCalibrationRecord(
		id.CalibrationRecordID(uuid.New()),
		req.InstrumentID,
		actor.ID,
		req.CalibrationType,
		req.Description,
		req.Status,
		s.clock(),
	)
	if err != nil {
		return nil, err
	}
	record.DatePerformed = req.DatePerformed
	record.NextCalibrationDate = req.NextCalibrationDate
	record.CertificateID = req.CertificateID
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				"certificate: A completed calibration must have an associated certificate")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create calibration record")
	}

	s.logInfo(ctx, "calibration record created",
		"record_id", record.ID.String(),
		"instrument_id", record.InstrumentID.String(),
		"status", string(record.Status))
	return record, nil
}

// UpdateCalibrationRequest carries a partial update. Nil fields are left
// unchanged; a nil Status means "no transition requested" and skips the
// transition table entirely.
type UpdateCalibrationRequest struct {
	Status              *models.RecordStatus
	Description         *string
	DatePerformed       *time.Time
	NextCalibrationDate *time.Time
	CertificateID       *id.CertificateID
}

// Update applies field changes and an optional status transition. The
// read-validate-write sequence runs inside one transaction scope so the
// transition check is evaluated against the value read immediately before
// the write.
func (s *CalibrationService) Update(ctx context.Context, actor models.Actor, recordID id.CalibrationRecordID, req UpdateCalibrationRequest) (*models.CalibrationRecord, error) {
	var updated *models.CalibrationRecord
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := s.records.FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "calibration record not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load calibration record")
		}

		instrument, err := s.findInstrument(ctx, record.InstrumentID)
		if err != nil {
			return err
		}
		if !scope.Allows(actor, instrument, scope.ActionWrite) {
			return dErrors.New(dErrors.CodeForbidden, "not permitted to modify records in this department")
		}

		if req.Description != nil {
			record.Description = *req.Description
		}
		if req.DatePerformed != nil {
			record.DatePerformed = req.DatePerformed
		}
		if req.NextCalibrationDate != nil {
			record.NextCalibrationDate = req.NextCalibrationDate
		}
		if req.CertificateID != nil {
			record.CertificateID = req.CertificateID
		}

		now := s.clock()
		if req.Status != nil && *req.Status != record.Status {
			if err := record.CanTransitionTo(*req.Status); err != nil {
				return err
			}
			record.ApplyStatus(*req.Status, now)
		} else {
			record.UpdatedAt = now
		}

		if err := record.Validate(); err != nil {
			return err
		}

		if err := s.records.Update(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInvariantViolation,
					"certificate: A completed calibration must have an associated certificate")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update calibration record")
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status == models.RecordStatusCompleted {
		s.count(func(m *metrics.Metrics) { m.CalibrationsCompleted.Inc() })
	}
	s.logInfo(ctx, "calibration record updated",
		"record_id", updated.ID.String(),
		"status", string(updated.Status))
	return updated, nil
}

// Get returns a calibration record by id, subject to read scoping.
func (s *CalibrationService) Get(ctx context.Context, actor models.Actor, recordID id.CalibrationRecordID) (*models.CalibrationRecord, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "calibration record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load calibration record")
	}
	instrument, err := s.findInstrument(ctx, record.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view records in this department")
	}
	return record, nil
}

// ListByInstrument returns the instrument's calibration history.
func (s *CalibrationService) ListByInstrument(ctx context.Context, actor models.Actor, instrumentID id.InstrumentID) ([]*models.CalibrationRecord, error) {
	instrument, err := s.findInstrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view records in this department")
	}
	records, err := s.records.ListByInstrument(ctx, instrumentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list calibration records")
	}
	return records, nil
}

func (s *CalibrationService) findInstrument(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	instrument, err := s.instruments.FindByID(ctx, instrumentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "instrument not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load instrument")
	}
	return instrument, nil
}

func (s *CalibrationService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *CalibrationService) count(fn func(*metrics.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}
