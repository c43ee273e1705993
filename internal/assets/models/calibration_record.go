package models

import (
	"time"

	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
)

// RecordStatus is the shared workflow state for calibration and maintenance
// records.
type RecordStatus string

const (
	RecordStatusScheduled  RecordStatus = "scheduled"
	RecordStatusInProgress RecordStatus = "in_progress"
	RecordStatusCompleted  RecordStatus = "completed"
	RecordStatusCancelled  RecordStatus = "cancelled"
)

// recordTransitions is the allowed-successor set per state. A completed
// record may still be cancelled (e.g. a calibration voided after the fact);
// cancelled is fully terminal.
var recordTransitions = map[RecordStatus][]RecordStatus{
	RecordStatusScheduled:  {RecordStatusInProgress, RecordStatusCancelled},
	RecordStatusInProgress: {RecordStatusCompleted, RecordStatusCancelled},
	RecordStatusCompleted:  {RecordStatusCancelled},
	RecordStatusCancelled:  {},
}

func (s RecordStatus) IsValid() bool {
	_, ok := recordTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status may move to target. A
// same-status "transition" is always permitted: updating other fields of a
// record must not re-run the transition table.
func (s RecordStatus) CanTransitionTo(target RecordStatus) bool {
	if s == target {
		return true
	}
	for _, allowed := range recordTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CalibrationType classifies why a calibration activity was scheduled.
type CalibrationType string

const (
	CalibrationTypeRoutine     CalibrationType = "routine"
	CalibrationTypeAfterRepair CalibrationType = "after_repair"
	CalibrationTypeSpecial     CalibrationType = "special"
)

func (t CalibrationType) IsValid() bool {
	switch t {
	case CalibrationTypeRoutine, CalibrationTypeAfterRepair, CalibrationTypeSpecial:
		return true
	}
	return false
}

// CalibrationRecord is a scheduled or performed calibration activity on an
// instrument.
//
// Invariants:
//   - Status follows recordTransitions (same-status updates bypass the table)
//   - Status completed requires a certificate reference, checked both at
//     validation time and again at persistence time
//   - NextCalibrationDate is strictly after DatePerformed when both are set
type CalibrationRecord struct {
	ID                  id.CalibrationRecordID `json:"id"`
	InstrumentID        id.InstrumentID        `json:"instrument_id"`
	PerformedBy         id.UserID              `json:"performed_by"`
	CalibrationType     CalibrationType        `json:"calibration_type"`
	Description         string                 `json:"description"`
	Status              RecordStatus           `json:"status"`
	DatePerformed       *time.Time             `json:"date_performed,omitempty"`
	NextCalibrationDate *time.Time             `json:"next_calibration_date,omitempty"`
	CertificateID       *id.CertificateID      `json:"certificate,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// NewCalibrationRecord constructs a record, defaulting status to scheduled
// when unset.
func NewCalibrationRecord(
	recordID id.CalibrationRecordID,
	instrumentID id.InstrumentID,
	performedBy id.UserID,
	calType CalibrationType,
	description string,
	status RecordStatus,
	now time.Time,
) (*CalibrationRecord, error) {
	if instrumentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "instrument is required")
	}
	if performedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "performed_by is required")
	}
	if !calType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "calibration_type: invalid calibration type")
	}
	if status == "" {
		status = RecordStatusScheduled
	}
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "status: invalid status %q", string(status))
	}

	record := &CalibrationRecord{
		ID:              recordID,
		InstrumentID:    instrumentID,
		PerformedBy:     performedBy,
		CalibrationType: calType,
		Description:     description,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// CanTransitionTo validates a requested status change against the transition
// table. Same-status updates are accepted unconditionally.
func (r *CalibrationRecord) CanTransitionTo(target RecordStatus) error {
	if !target.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "status: invalid status %q", string(target))
	}
	if !r.Status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"status: Invalid status transition from %s to %s", r.Status, target)
	}
	return nil
}

// Validate enforces the cross-field invariants. It is independent of the
// transition table so a direct create with status completed is held to the
// same certificate rule as a transition.
func (r *CalibrationRecord) Validate() error {
	if r.Status == RecordStatusCompleted && (r.CertificateID == nil || r.CertificateID.IsNil()) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"certificate: A completed calibration must have an associated certificate")
	}
	if r.DatePerformed != nil && r.NextCalibrationDate != nil {
		if !r.NextCalibrationDate.After(*r.DatePerformed) {
			return dErrors.New(dErrors.CodeInvariantViolation,
				"next_calibration_date: Next calibration date must be after date performed")
		}
	}
	return nil
}

// ApplyStatus moves the record to the target status. Call CanTransitionTo and
// Validate first.
func (r *CalibrationRecord) ApplyStatus(target RecordStatus, now time.Time) {
	r.Status = target
	r.UpdatedAt = now
}
