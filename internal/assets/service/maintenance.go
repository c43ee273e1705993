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

// MaintenanceService manages maintenance records. Maintenance shares the
// calibration record status table, so the same transition rules apply.
type MaintenanceService struct {
	records     MaintenanceStore
	instruments InstrumentStore
	tx          TxRunner
	logger      *slog.Logger
	clock       Clock
}

type MaintenanceOption func(*MaintenanceService)

func WithMaintenanceLogger(logger *slog.Logger) MaintenanceOption {
	return func(s *MaintenanceService) { s.logger = logger }
}

func WithMaintenanceClock(clock Clock) MaintenanceOption {
	return func(s *MaintenanceService) { s.clock = clock }
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(records MaintenanceStore, instruments InstrumentStore, tx TxRunner, opts ...MaintenanceOption) *MaintenanceService {
	s := &MaintenanceService{records: records, instruments: instruments, tx: tx, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMaintenanceRequest is the payload for scheduling maintenance.
type CreateMaintenanceRequest struct {
	InstrumentID    id.InstrumentID
	PerformedBy     id.UserID
	MaintenanceType models.MaintenanceType
	Description     string
	StartDate       time.Time
}

// Create schedules a new maintenance record for an instrument.
func (s *MaintenanceService) Create(ctx context.Context, actor models.Actor, req CreateMaintenanceRequest) (*models.MaintenanceRecord, error) {
	instrument, err := s.findInstrument(ctx, req.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionWrite) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to schedule maintenance in this department")
	}

	record, err := models.NewMaintenanceRecord(
		id.MaintenanceRecordID(uuid.New()),
		req.InstrumentID,
		req.PerformedBy,
		req.MaintenanceType,
		req.Description,
		req.StartDate,
		s.clock(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create maintenance record")
	}

	s.logInfo(ctx, "maintenance scheduled",
		"maintenance_id", record.ID.String(),
		"instrument_id", record.InstrumentID.String(),
		"type", string(record.MaintenanceType))
	return record, nil
}

// UpdateMaintenanceRequest carries a partial maintenance record update. A nil
// Status leaves the current status untouched and skips the transition check.
type UpdateMaintenanceRequest struct {
	Status      *models.RecordStatus
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	PerformedBy *id.UserID
}

// Update applies field changes under the record's transition rules inside a
// transaction.
func (s *MaintenanceService) Update(ctx context.Context, actor models.Actor, recordID id.MaintenanceRecordID, req UpdateMaintenanceRequest) (*models.MaintenanceRecord, error) {
	var updated *models.MaintenanceRecord
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := s.findRecord(ctx, recordID)
		if err != nil {
			return err
		}
		instrument, err := s.findInstrument(ctx, record.InstrumentID)
		if err != nil {
			return err
		}
		if !scope.Allows(actor, instrument, scope.ActionWrite) {
			return dErrors.New(dErrors.CodeForbidden, "not permitted to modify maintenance in this department")
		}

		if req.Description != nil {
			record.Description = *req.Description
		}
		if req.StartDate != nil {
			record.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			record.EndDate = req.EndDate
		}
		if req.PerformedBy != nil {
			record.PerformedBy = *req.PerformedBy
		}

		now := s.clock()
		if req.Status != nil {
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
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update maintenance record")
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "maintenance updated",
		"maintenance_id", updated.ID.String(),
		"status", string(updated.Status))
	return updated, nil
}

// Get returns a maintenance record, subject to read scoping on its instrument.
func (s *MaintenanceService) Get(ctx context.Context, actor models.Actor, recordID id.MaintenanceRecordID) (*models.MaintenanceRecord, error) {
	record, err := s.findRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	instrument, err := s.findInstrument(ctx, record.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view maintenance in this department")
	}
	return record, nil
}

// ListByInstrument returns all maintenance records for an instrument.
func (s *MaintenanceService) ListByInstrument(ctx context.Context, actor models.Actor, instrumentID id.InstrumentID) ([]*models.MaintenanceRecord, error) {
	instrument, err := s.findInstrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view maintenance in this department")
	}
	records, err := s.records.ListByInstrument(ctx, instrumentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list maintenance records")
	}
	return records, nil
}

func (s *MaintenanceService) findRecord(ctx context.Context, recordID id.MaintenanceRecordID) (*models.MaintenanceRecord, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "maintenance record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load maintenance record")
	}
	return record, nil
}

func (s *MaintenanceService) findInstrument(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	instrument, err := s.instruments.FindByID(ctx, instrumentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "instrument not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load instrument")
	}
	return instrument, nil
}

func (s *MaintenanceService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
