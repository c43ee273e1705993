package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"metrolab/internal/assets/models"
	"metrolab/internal/assets/scope"
	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
	"metrolab/pkg/platform/sentinel"
)

// InstrumentService manages the instrument registry.
type InstrumentService struct {
	instruments InstrumentStore
	tx          TxRunner
	logger      *slog.Logger
	clock       Clock
}

type InstrumentOption func(*InstrumentService)

func WithInstrumentLogger(logger *slog.Logger) InstrumentOption {
	return func(s *InstrumentService) { s.logger = logger }
}

func WithInstrumentClock(clock Clock) InstrumentOption {
	return func(s *InstrumentService) { s.clock = clock }
}

// NewInstrumentService constructs an InstrumentService.
func NewInstrumentService(instruments InstrumentStore, tx TxRunner, opts ...InstrumentOption) *InstrumentService {
	s := &InstrumentService{instruments: instruments, tx: tx, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInstrumentRequest is the payload for registering an instrument.
type CreateInstrumentRequest struct {
	Name           string
	SerialNumber   string
	Model          string
	Manufacturer   string
	Category       models.InstrumentCategory
	LocationID     id.LocationID
	DepartmentID   id.DepartmentID
	NextReviewDate *time.Time
}

// Create registers a new instrument. Serial numbers are unique across the
// registry regardless of department.
func (s *InstrumentService) Create(ctx context.Context, actor models.Actor, req CreateInstrumentRequest) (*models.Instrument, error) {
	instrument, err := models.NewInstrument(
		id.InstrumentID(uuid.New()),
		req.Name,
		req.SerialNumber,
		req.Model,
		req.Manufacturer,
		req.Category,
		req.LocationID,
		req.DepartmentID,
		s.clock(),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid instrument")
		}
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionWrite) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to register instruments in this department")
	}
	instrument.NextReviewDate = req.NextReviewDate
	if err := instrument.Validate(); err != nil {
		return nil, err
	}

	if err := s.instruments.Create(ctx, instrument); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict,
				"an instrument with serial number %q already exists", req.SerialNumber)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create instrument")
	}

	s.logInfo(ctx, "instrument registered",
		"instrument_id", instrument.ID.String(),
		"serial_number", instrument.SerialNumber)
	return instrument, nil
}

// UpdateInstrumentRequest carries a partial instrument update. Review status
// is absent on purpose; it moves only through the review cascade.
type UpdateInstrumentRequest struct {
	Name           *string
	Model          *string
	Manufacturer   *string
	Status         *models.InstrumentStatus
	LocationID     *id.LocationID
	NextReviewDate *time.Time
}

// Update applies field changes to an instrument inside a transaction.
func (s *InstrumentService) Update(ctx context.Context, actor models.Actor, instrumentID id.InstrumentID, req UpdateInstrumentRequest) (*models.Instrument, error) {
	var updated *models.Instrument
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		instrument, err := s.findInstrument(ctx, instrumentID)
		if err != nil {
			return err
		}
		if !scope.Allows(actor, instrument, scope.ActionWrite) {
			return dErrors.New(dErrors.CodeForbidden, "not permitted to modify instruments in this department")
		}

		if req.Name != nil {
			instrument.Name = *req.Name
		}
		if req.Model != nil {
			instrument.Model = *req.Model
		}
		if req.Manufacturer != nil {
			instrument.Manufacturer = *req.Manufacturer
		}
		if req.Status != nil {
			if !req.Status.IsValid() {
				return dErrors.Newf(dErrors.CodeValidation, "status: invalid status %q", string(*req.Status))
			}
			instrument.Status = *req.Status
		}
		if req.LocationID != nil {
			instrument.LocationID = *req.LocationID
		}
		if req.NextReviewDate != nil {
			instrument.NextReviewDate = req.NextReviewDate
		}
		instrument.UpdatedAt = s.clock()

		if err := instrument.Validate(); err != nil {
			return err
		}
		if err := s.instruments.Update(ctx, instrument); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update instrument")
		}
		updated = instrument
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "instrument updated", "instrument_id", updated.ID.String())
	return updated, nil
}

// Get returns an instrument by id, subject to read scoping.
func (s *InstrumentService) Get(ctx context.Context, actor models.Actor, instrumentID id.InstrumentID) (*models.Instrument, error) {
	instrument, err := s.findInstrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view instruments in this department")
	}
	return instrument, nil
}

// GetBySerialNumber looks an instrument up by its serial number.
func (s *InstrumentService) GetBySerialNumber(ctx context.Context, actor models.Actor, serial string) (*models.Instrument, error) {
	instrument, err := s.instruments.FindBySerialNumber(ctx, serial)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "instrument not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load instrument")
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view instruments in this department")
	}
	return instrument, nil
}

func (s *InstrumentService) findInstrument(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	instrument, err := s.instruments.FindByID(ctx, instrumentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "instrument not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load instrument")
	}
	return instrument, nil
}

func (s *InstrumentService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
