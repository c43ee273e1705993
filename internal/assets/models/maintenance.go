package models

import (
	"time"

	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
)

// MaintenanceType classifies maintenance work.
type MaintenanceType string

const (
	MaintenanceTypePreventive MaintenanceType = "preventive"
	MaintenanceTypeCorrective MaintenanceType = "corrective"
	MaintenanceTypePredictive MaintenanceType = "predictive"
)

func (t MaintenanceType) IsValid() bool {
	switch t {
	case MaintenanceTypePreventive, MaintenanceTypeCorrective, MaintenanceTypePredictive:
		return true
	}
	return false
}

// MaintenanceRecord is scheduled or performed maintenance work on an
// instrument. It shares the RecordStatus transition table with calibration
// records but carries no certificate invariant.
type MaintenanceRecord struct {
	ID              id.MaintenanceRecordID `json:"id"`
	InstrumentID    id.InstrumentID        `json:"instrument_id"`
	PerformedBy     id.UserID              `json:"performed_by"`
	MaintenanceType MaintenanceType        `json:"maintenance_type"`
	Description     string                 `json:"description"`
	Status          RecordStatus           `json:"status"`
	StartDate       time.Time              `json:"start_date"`
	EndDate         *time.Time             `json:"end_date,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewMaintenanceRecord constructs a record, defaulting status to scheduled.
func NewMaintenanceRecord(
	recordID id.MaintenanceRecordID,
	instrumentID id.InstrumentID,
	performedBy id.UserID,
	maintType MaintenanceType,
	description string,
	startDate time.Time,
	now time.Time,
) (*MaintenanceRecord, error) {
	if instrumentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "instrument is required")
	}
	if performedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "performed_by is required")
	}
	if !maintType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "maintenance_type: invalid maintenance type")
	}
	if startDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "start_date is required")
	}
	return &MaintenanceRecord{
		ID:              recordID,
		InstrumentID:    instrumentID,
		PerformedBy:     performedBy,
		MaintenanceType: maintType,
		Description:     description,
		Status:          RecordStatusScheduled,
		StartDate:       startDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CanTransitionTo validates a requested status change against the shared
// record transition table.
func (m *MaintenanceRecord) CanTransitionTo(target RecordStatus) error {
	if !target.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "status: invalid status %q", string(target))
	}
	if !m.Status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"status: Invalid status transition from %s to %s", m.Status, target)
	}
	return nil
}

// Validate enforces the cross-field invariants.
func (m *MaintenanceRecord) Validate() error {
	if m.EndDate != nil && !m.EndDate.After(m.StartDate) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"end_date: End date must be after start date")
	}
	return nil
}

// ApplyStatus moves the record to the target status. Call CanTransitionTo
// first.
func (m *MaintenanceRecord) ApplyStatus(target RecordStatus, now time.Time) {
	m.Status = target
	m.UpdatedAt = now
}
