package models

import (
	"strings"
	"time"

	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
)

// InstrumentStatus is the operational state of an instrument.
type InstrumentStatus string

const (
	InstrumentStatusActive      InstrumentStatus = "active"
	InstrumentStatusInactive    InstrumentStatus = "inactive"
	InstrumentStatusMaintenance InstrumentStatus = "maintenance"
	InstrumentStatusCalibration InstrumentStatus = "calibration"
)

func (s InstrumentStatus) IsValid() bool {
	switch s {
	case InstrumentStatusActive, InstrumentStatusInactive, InstrumentStatusMaintenance, InstrumentStatusCalibration:
		return true
	}
	return false
}

// InstrumentReviewStatus mirrors the state of the instrument's most recent
// review workflow. It is maintained by the review service cascade, never set
// directly by clients.
type InstrumentReviewStatus string

const (
	InstrumentReviewNone       InstrumentReviewStatus = "none"
	InstrumentReviewPending    InstrumentReviewStatus = "pending"
	InstrumentReviewInProgress InstrumentReviewStatus = "in_progress"
	InstrumentReviewCompleted  InstrumentReviewStatus = "completed"
)

func (s InstrumentReviewStatus) IsValid() bool {
	switch s {
	case InstrumentReviewNone, InstrumentReviewPending, InstrumentReviewInProgress, InstrumentReviewCompleted:
		return true
	}
	return false
}

// InstrumentCategory is the broad classification of an instrument.
type InstrumentCategory string

const (
	CategoryMeasurement InstrumentCategory = "measurement"
	CategoryTesting     InstrumentCategory = "testing"
	CategoryAnalysis    InstrumentCategory = "analysis"
	CategoryCalibration InstrumentCategory = "calibration"
	CategoryOther       InstrumentCategory = "other"
)

func (c InstrumentCategory) IsValid() bool {
	switch c {
	case CategoryMeasurement, CategoryTesting, CategoryAnalysis, CategoryCalibration, CategoryOther:
		return true
	}
	return false
}

// Instrument is a tracked physical device subject to calibration,
// maintenance and review.
//
// Invariants:
//   - SerialNumber is non-empty and unique across the store
//   - NextReviewDate is strictly after LastReviewDate when both are set
type Instrument struct {
	ID             id.InstrumentID        `json:"id"`
	Name           string                 `json:"name"`
	SerialNumber   string                 `json:"serial_number"`
	Model          string                 `json:"model"`
	Manufacturer   string                 `json:"manufacturer"`
	Category       InstrumentCategory     `json:"category"`
	LocationID     id.LocationID          `json:"location_id"`
	DepartmentID   id.DepartmentID        `json:"department_id"`
	Status         InstrumentStatus       `json:"status"`
	ReviewStatus   InstrumentReviewStatus `json:"review_status"`
	LastReviewDate *time.Time             `json:"last_review_date,omitempty"`
	NextReviewDate *time.Time             `json:"next_review_date,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewInstrument constructs an active instrument with no review required.
func NewInstrument(
	instrumentID id.InstrumentID,
	name string,
	serialNumber string,
	model string,
	manufacturer string,
	category InstrumentCategory,
	locationID id.LocationID,
	departmentID id.DepartmentID,
	now time.Time,
) (*Instrument, error) {
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "instrument name cannot be empty")
	}
	if strings.TrimSpace(serialNumber) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "serial_number cannot be empty")
	}
	if category == "" {
		category = CategoryOther
	}
	if !category.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "category: invalid category %q", string(category))
	}
	return &Instrument{
		ID:           instrumentID,
		Name:         name,
		SerialNumber: serialNumber,
		Model:        model,
		Manufacturer: manufacturer,
		Category:     category,
		LocationID:   locationID,
		DepartmentID: departmentID,
		Status:       InstrumentStatusActive,
		ReviewStatus: InstrumentReviewNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Validate enforces the review date ordering invariant.
func (i *Instrument) Validate() error {
	if i.NextReviewDate != nil && i.LastReviewDate != nil {
		if !i.NextReviewDate.After(*i.LastReviewDate) {
			return dErrors.New(dErrors.CodeInvariantViolation,
				"next_review_date: Next review date must be after last review date")
		}
	}
	return nil
}

// ApplyReviewStatus is the cascade target for the review workflow. When the
// review completes, the review's update timestamp becomes the instrument's
// last review date.
func (i *Instrument) ApplyReviewStatus(status InstrumentReviewStatus, reviewedAt time.Time, now time.Time) {
	i.ReviewStatus = status
	if status == InstrumentReviewCompleted {
		t := reviewedAt
		i.LastReviewDate = &t
	}
	i.UpdatedAt = now
}

// Scoping returns the department used for role scoping. Instruments scope by
// their own department; dependent records scope through their instrument.
func (i *Instrument) Scoping() id.DepartmentID { return i.DepartmentID }
