package models

import (
	"strings"
	"time"

	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
	pstrings "metrolab/pkg/platform/strings"
)

// CertificateStatus is the lifecycle state of a calibration certificate.
type CertificateStatus string

const (
	CertificateStatusDraft         CertificateStatus = "DRAFT"
	CertificateStatusPendingReview CertificateStatus = "PENDING_REVIEW"
	CertificateStatusApproved      CertificateStatus = "APPROVED"
	CertificateStatusRejected      CertificateStatus = "REJECTED"
	CertificateStatusSuperseded    CertificateStatus = "SUPERSEDED"
)

// certificateTransitions is the allowed-successor set per state. APPROVED,
// REJECTED and SUPERSEDED are terminal for in-place updates; an APPROVED
// certificate only leaves that state by being superseded through versioning.
var certificateTransitions = map[CertificateStatus][]CertificateStatus{
	CertificateStatusDraft:         {CertificateStatusPendingReview, CertificateStatusApproved, CertificateStatusRejected},
	CertificateStatusPendingReview: {CertificateStatusApproved, CertificateStatusRejected},
	CertificateStatusApproved:      {CertificateStatusSuperseded},
	CertificateStatusRejected:      {},
	CertificateStatusSuperseded:    {},
}

func (s CertificateStatus) IsValid() bool {
	_, ok := certificateTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status may move to target.
func (s CertificateStatus) CanTransitionTo(target CertificateStatus) bool {
	for _, allowed := range certificateTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CertificateType classifies why the calibration was performed.
type CertificateType string

const (
	CertificateTypeInitial      CertificateType = "INITIAL"
	CertificateTypeRoutine      CertificateType = "ROUTINE"
	CertificateTypeVerification CertificateType = "VERIFICATION"
	CertificateTypePostRepair   CertificateType = "POST_REPAIR"
)

func (t CertificateType) IsValid() bool {
	switch t {
	case CertificateTypeInitial, CertificateTypeRoutine, CertificateTypeVerification, CertificateTypePostRepair:
		return true
	}
	return false
}

// CalibrationCertificate is the aggregate root for a versioned calibration
// outcome document.
//
// Invariants:
//   - (CertificateNumber, Version) is unique across the store
//   - ExpiryDate is strictly after IssueDate
//   - CalibrationData passes correlation validation on create/update
//   - Status follows certificateTransitions; a new version is the only way
//     out of APPROVED
//   - NonConformities and CorrectiveActions are append-only, extended via
//     QA review
type CalibrationCertificate struct {
	ID                id.CertificateID  `json:"id"`
	CertificateNumber string            `json:"certificate_number"`
	Version           int               `json:"version"`
	Status            CertificateStatus `json:"status"`
	CertificateType   CertificateType   `json:"certificate_type"`
	IssueDate         time.Time         `json:"issue_date"`
	ExpiryDate        time.Time         `json:"expiry_date"`
	CalibrationData   CalibrationData   `json:"calibration_data"`
	CreatedBy         id.UserID         `json:"created_by"`
	Reviewer          id.UserID         `json:"reviewer,omitempty"`
	ReviewDate        *time.Time        `json:"review_date,omitempty"`
	ReviewNotes       string            `json:"review_notes,omitempty"`
	IsApproved        bool              `json:"is_approved"`
	NonConformities   []string          `json:"non_conformities"`
	CorrectiveActions []string          `json:"corrective_actions"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewCalibrationCertificate constructs a DRAFT certificate, enforcing the
// date ordering and calibration data invariants.
func NewCalibrationCertificate(
	certID id.CertificateID,
	number string,
	certType CertificateType,
	issueDate time.Time,
	expiryDate time.Time,
	data CalibrationData,
	createdBy id.UserID,
	now time.Time,
) (*CalibrationCertificate, error) {
	if strings.TrimSpace(number) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate_number cannot be empty")
	}
	if !certType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate_type: invalid certificate type")
	}
	if createdBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "created_by is required")
	}
	if err := validateCertificateDates(issueDate, expiryDate); err != nil {
		return nil, err
	}
	if valid, message := data.ValidateCorrelationData(); !valid {
		return nil, dErrors.Newf(dErrors.CodeValidation, "calibration_data: %s", message)
	}

	return &CalibrationCertificate{
		ID:                certID,
		CertificateNumber: number,
		Version:           1,
		Status:            CertificateStatusDraft,
		CertificateType:   certType,
		IssueDate:         issueDate,
		ExpiryDate:        expiryDate,
		CalibrationData:   data,
		CreatedBy:         createdBy,
		NonConformities:   []string{},
		CorrectiveActions: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func validateCertificateDates(issue, expiry time.Time) error {
	if issue.IsZero() || expiry.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "issue_date and expiry_date are required")
	}
	if !expiry.After(issue) {
		return dErrors.New(dErrors.CodeInvariantViolation, "expiry_date: Expiry date must be after issue date")
	}
	return nil
}

// CanSubmitForReview checks whether the certificate may enter the QA queue.
// Only drafts qualify.
func (c *CalibrationCertificate) CanSubmitForReview() error {
	if !c.Status.CanTransitionTo(CertificateStatusPendingReview) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"status: Invalid status transition from %s to %s", c.Status, CertificateStatusPendingReview)
	}
	return nil
}

// ApplySubmitForReview moves the draft into PENDING_REVIEW. Call
// CanSubmitForReview first.
func (c *CalibrationCertificate) ApplySubmitForReview(now time.Time) {
	c.Status = CertificateStatusPendingReview
	c.UpdatedAt = now
}

// QAReview carries a reviewer decision into ApplyQAReview.
type QAReview struct {
	Reviewer          id.UserID
	Decision          string
	Notes             string
	NonConformities   []string
	CorrectiveActions []string
}

// CanReview checks whether a QA review may be applied in the current state.
// A reviewer identity is required even though role authorization happens at
// the access layer.
func (c *CalibrationCertificate) CanReview(review QAReview) error {
	if review.Reviewer.IsNil() {
		return dErrors.New(dErrors.CodeForbidden, "reviewer is required for QA review")
	}
	target := CertificateStatusRejected
	if strings.EqualFold(review.Decision, "approved") {
		target = CertificateStatusApproved
	}
	if !c.Status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"status: Invalid status transition from %s to %s", c.Status, target)
	}
	return nil
}

// ApplyQAReview records the reviewer decision, stamps the review date, and
// appends (never replaces) non-conformities and corrective actions.
// Call CanReview first.
func (c *CalibrationCertificate) ApplyQAReview(review QAReview, now time.Time) {
	c.IsApproved = strings.EqualFold(review.Decision, "approved")
	if c.IsApproved {
		c.Status = CertificateStatusApproved
	} else {
		c.Status = CertificateStatusRejected
	}
	c.Reviewer = review.Reviewer
	c.ReviewDate = &now
	c.ReviewNotes = review.Notes
	c.NonConformities = pstrings.DedupeAndTrim(append(c.NonConformities, review.NonConformities...))
	c.CorrectiveActions = pstrings.DedupeAndTrim(append(c.CorrectiveActions, review.CorrectiveActions...))
	c.UpdatedAt = now
}

// CanSupersede checks whether a new version may be created from this
// certificate.
func (c *CalibrationCertificate) CanSupersede() error {
	if c.Status == CertificateStatusSuperseded {
		return dErrors.New(dErrors.CodeInvariantViolation, "certificate is already superseded")
	}
	return nil
}

// NewVersion builds the successor certificate: same number, version+1, DRAFT,
// issue date reset to today, everything else copied from the source. The
// caller is responsible for persisting the pair atomically and for applying
// supersession to the source via ApplySupersede.
func (c *CalibrationCertificate) NewVersion(newID id.CertificateID, now time.Time) *CalibrationCertificate {
	issue := now.Truncate(24 * time.Hour)
	return &CalibrationCertificate{
		ID:                newID,
		CertificateNumber: c.CertificateNumber,
		Version:           c.Version + 1,
		Status:            CertificateStatusDraft,
		CertificateType:   c.CertificateType,
		IssueDate:         issue,
		ExpiryDate:        c.ExpiryDate,
		CalibrationData:   c.CalibrationData.Clone(),
		CreatedBy:         c.CreatedBy,
		NonConformities:   []string{},
		CorrectiveActions: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ApplySupersede marks the source certificate as replaced by a newer version.
func (c *CalibrationCertificate) ApplySupersede(now time.Time) {
	c.Status = CertificateStatusSuperseded
	c.UpdatedAt = now
}
