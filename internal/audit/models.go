// Package audit keeps an append-only trail of workflow decisions:
// certificate reviews and supersessions, and instrument review status
// changes. Events are emitted from domain services and persisted by a
// background worker so the write path never blocks on the trail.
package audit

import (
	"time"

	id "metrolab/pkg/domain"
)

// Action names the recorded workflow decision.
type Action string

const (
	ActionCertificateReviewed   Action = "certificate.reviewed"
	ActionCertificateSuperseded Action = "certificate.superseded"
	ActionReviewOpened          Action = "review.opened"
	ActionReviewStatusChanged   Action = "review.status_changed"
)

// Event is one entry in the trail.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Actor      id.UserID `json:"actor"`
	Action     Action    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
}
