package models

import (
	"time"

	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
)

// ReviewStatus is the workflow state of an instrument review. Unlike
// calibration records there is no transition table: any valid status may be
// set on update, and cancellation is always available.
type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "pending"
	ReviewStatusInProgress ReviewStatus = "in_progress"
	ReviewStatusCompleted  ReviewStatus = "completed"
	ReviewStatusCancelled  ReviewStatus = "cancelled"
)

func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusInProgress, ReviewStatusCompleted, ReviewStatusCancelled:
		return true
	}
	return false
}

// Priority ranks how urgently a review should be handled.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Review is a workflow item requesting inspection of an instrument,
// optionally mirrored to a ticket in an external system.
//
// ExternalTicketID and ExternalTicketURL are set only through the ticket
// bridge flow, never directly by a client.
type Review struct {
	ID                id.ReviewID     `json:"id"`
	InstrumentID      id.InstrumentID `json:"instrument_id"`
	RequestedBy       id.UserID       `json:"requested_by"`
	AssignedTo        id.UserID       `json:"assigned_to,omitempty"`
	Status            ReviewStatus    `json:"status"`
	Priority          Priority        `json:"priority"`
	Reason            string          `json:"reason"`
	ExternalTicketID  string          `json:"external_ticket_id,omitempty"`
	ExternalTicketURL string          `json:"external_ticket_url,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewReview constructs a pending review.
func NewReview(
	reviewID id.ReviewID,
	instrumentID id.InstrumentID,
	requestedBy id.UserID,
	priority Priority,
	reason string,
	now time.Time,
) (*Review, error) {
	if instrumentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "instrument is required")
	}
	if requestedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requested_by is required")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "priority: invalid priority %q", string(priority))
	}
	return &Review{
		ID:           reviewID,
		InstrumentID: instrumentID,
		RequestedBy:  requestedBy,
		Status:       ReviewStatusPending,
		Priority:     priority,
		Reason:       reason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyStatus sets the review status. Reviews accept any valid status value
// on update; the instrument cascade is the service's responsibility.
func (r *Review) ApplyStatus(target ReviewStatus, now time.Time) error {
	if !target.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "status: invalid status %q", string(target))
	}
	r.Status = target
	r.UpdatedAt = now
	return nil
}

// AttachTicket records the external ticket reference produced by the bridge.
func (r *Review) AttachTicket(ticketID, ticketURL string, now time.Time) {
	r.ExternalTicketID = ticketID
	r.ExternalTicketURL = ticketURL
	r.UpdatedAt = now
}

// HasTicket reports whether an external ticket already exists for the review.
func (r *Review) HasTicket() bool {
	return r.ExternalTicketID != ""
}
