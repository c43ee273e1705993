package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"metrolab/internal/assets/models"
	"metrolab/internal/assets/scope"
	"metrolab/internal/audit"
	"metrolab/internal/platform/metrics"
	"metrolab/internal/tickets"
	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
	"metrolab/pkg/platform/sentinel"
)

// ReviewService manages instrument review workflows. Status changes cascade
// to the referenced instrument inside the same transaction; ticket mirroring
// is best-effort and never fails the write path.
type ReviewService struct {
	reviews     ReviewStore
	instruments InstrumentStore
	bridge      TicketBridge
	tx          TxRunner
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       *audit.Recorder
	clock       Clock
}

type ReviewOption func(*ReviewService)

func WithReviewLogger(logger *slog.Logger) ReviewOption {
	return func(s *ReviewService) { s.logger = logger }
}

func WithReviewMetrics(m *metrics.Metrics) ReviewOption {
	return func(s *ReviewService) { s.metrics = m }
}

func WithReviewClock(clock Clock) ReviewOption {
	return func(s *ReviewService) { s.clock = clock }
}

func WithReviewAudit(recorder *audit.Recorder) ReviewOption {
	return func(s *ReviewService) { s.audit = recorder }
}

// WithTicketBridge connects the external ticketing collaborator. Without it
// no ticket calls are attempted.
func WithTicketBridge(bridge TicketBridge) ReviewOption {
	return func(s *ReviewService) { s.bridge = bridge }
}

// NewReviewService constructs a ReviewService.
func NewReviewService(reviews ReviewStore, instruments InstrumentStore, tx TxRunner, opts ...ReviewOption) *ReviewService {
	s := &ReviewService{reviews: reviews, instruments: instruments, tx: tx, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReviewRequest is the payload for requesting an instrument review.
type CreateReviewRequest struct {
	InstrumentID id.InstrumentID
	Priority     models.Priority
	Reason       string
	AssignedTo   id.UserID
}

// Create opens a review and marks the instrument's review status pending in
// the same transaction. When the bridge is configured, a ticket is opened
// best-effort afterwards; a bridge failure leaves the review intact with no
// external reference.
func (s *ReviewService) Create(ctx context.Context, actor models.Actor, req CreateReviewRequest) (*models.Review, error) {
	instrument, err := s.findInstrument(ctx, req.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionWrite) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to request reviews in this department")
	}

	review, err := models.NewReview(
		id.ReviewID(uuid.New()),
		req.InstrumentID,
		actor.ID,
		req.Priority,
		req.Reason,
		s.clock(),
	)
	if err != nil {
		return nil, err
	}
	review.AssignedTo = req.AssignedTo

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Create(ctx, review); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create review")
		}
		instrument.ApplyReviewStatus(models.InstrumentReviewPending, review.UpdatedAt, s.clock())
		if err := s.instruments.Update(ctx, instrument); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update instrument review status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ticket := s.createTicket(ctx, review, instrument); ticket != nil {
		review.AttachTicket(ticket.TicketID, ticket.TicketURL, s.clock())
		if err := s.reviews.Update(ctx, review); err != nil {
			s.logWarn(ctx, "failed to persist ticket reference", "review_id", review.ID.String(), "error", err)
		}
	}

	s.record(audit.Event{
		Actor:      actor.ID,
		Action:     audit.ActionReviewOpened,
		EntityType: "review",
		EntityID:   review.ID.String(),
		Detail:     string(review.Priority),
	})
	s.logInfo(ctx, "review created",
		"review_id", review.ID.String(),
		"instrument_id", review.InstrumentID.String(),
		"priority", string(review.Priority))
	return review, nil
}

// UpdateReviewRequest carries a partial review update.
type UpdateReviewRequest struct {
	Status     *models.ReviewStatus
	Priority   *models.Priority
	Reason     *string
	AssignedTo *id.UserID
}

// Update applies field changes and propagates status to the instrument:
// completed stamps the instrument's last review date from the review's
// update timestamp, in_progress mirrors the status. Review and instrument
// writes commit together or not at all.
func (s *ReviewService) Update(ctx context.Context, actor models.Actor, reviewID id.ReviewID, req UpdateReviewRequest) (*models.Review, error) {
	var updated *models.Review
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		review, err := s.findReview(ctx, reviewID)
		if err != nil {
			return err
		}
		instrument, err := s.findInstrument(ctx, review.InstrumentID)
		if err != nil {
			return err
		}
		if !scope.Allows(actor, instrument, scope.ActionWrite) {
			return dErrors.New(dErrors.CodeForbidden, "not permitted to modify reviews in this department")
		}

		if req.Priority != nil {
			if !req.Priority.IsValid() {
				return dErrors.Newf(dErrors.CodeValidation, "priority: invalid priority %q", string(*req.Priority))
			}
			review.Priority = *req.Priority
		}
		if req.Reason != nil {
			review.Reason = *req.Reason
		}
		if req.AssignedTo != nil {
			review.AssignedTo = *req.AssignedTo
		}

		now := s.clock()
		if req.Status != nil {
			if err := review.ApplyStatus(*req.Status, now); err != nil {
				return err
			}
		} else {
			review.UpdatedAt = now
		}

		if err := s.reviews.Update(ctx, review); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update review")
		}

		switch review.Status {
		case models.ReviewStatusCompleted:
			instrument.ApplyReviewStatus(models.InstrumentReviewCompleted, review.UpdatedAt, now)
			if err := s.instruments.Update(ctx, instrument); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update instrument review status")
			}
		case models.ReviewStatusInProgress:
			instrument.ApplyReviewStatus(models.InstrumentReviewInProgress, review.UpdatedAt, now)
			if err := s.instruments.Update(ctx, instrument); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update instrument review status")
			}
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.bridge != nil {
		s.bridge.UpdateTicket(ctx, updated)
	}
	if updated.Status == models.ReviewStatusCompleted {
		s.count(func(m *metrics.Metrics) { m.ReviewsCompleted.Inc() })
	}
	if req.Status != nil {
		s.record(audit.Event{
			Actor:      actor.ID,
			Action:     audit.ActionReviewStatusChanged,
			EntityType: "review",
			EntityID:   updated.ID.String(),
			Detail:     string(updated.Status),
		})
	}
	s.logInfo(ctx, "review updated",
		"review_id", updated.ID.String(),
		"status", string(updated.Status))
	return updated, nil
}

// CreateTicket is the manual ticket action. It is idempotent: a review that
// already carries a ticket returns the existing reference without calling
// the bridge. When the bridge declines (disabled or unreachable) the caller
// gets a service-unavailable error; this is the only path where a bridge
// failure surfaces.
func (s *ReviewService) CreateTicket(ctx context.Context, actor models.Actor, reviewID id.ReviewID) (*tickets.Ticket, error) {
	review, err := s.findReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.HasTicket() {
		return &tickets.Ticket{TicketID: review.ExternalTicketID, TicketURL: review.ExternalTicketURL}, nil
	}

	instrument, err := s.findInstrument(ctx, review.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionWrite) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to modify reviews in this department")
	}

	ticket := s.createTicket(ctx, review, instrument)
	if ticket == nil {
		s.count(func(m *metrics.Metrics) { m.TicketsFailed.Inc() })
		return nil, dErrors.New(dErrors.CodeUnavailable, "Failed to create ticket in external system")
	}

	review.AttachTicket(ticket.TicketID, ticket.TicketURL, s.clock())
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist ticket reference")
	}
	return ticket, nil
}

// Get returns a review by id, subject to read scoping on its instrument.
func (s *ReviewService) Get(ctx context.Context, actor models.Actor, reviewID id.ReviewID) (*models.Review, error) {
	review, err := s.findReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	instrument, err := s.findInstrument(ctx, review.InstrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view reviews in this department")
	}
	return review, nil
}

// ListByInstrument returns all reviews for an instrument.
func (s *ReviewService) ListByInstrument(ctx context.Context, actor models.Actor, instrumentID id.InstrumentID) ([]*models.Review, error) {
	instrument, err := s.findInstrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(actor, instrument, scope.ActionRead) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view reviews in this department")
	}
	reviews, err := s.reviews.ListByInstrument(ctx, instrumentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}
	return reviews, nil
}

func (s *ReviewService) createTicket(ctx context.Context, review *models.Review, instrument *models.Instrument) *tickets.Ticket {
	if s.bridge == nil {
		return nil
	}
	ticket := s.bridge.CreateTicket(ctx, review, instrument)
	if ticket != nil {
		s.count(func(m *metrics.Metrics) { m.TicketsCreated.Inc() })
	}
	return ticket
}

func (s *ReviewService) findReview(ctx context.Context, reviewID id.ReviewID) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "review not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review")
	}
	return review, nil
}

func (s *ReviewService) findInstrument(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	instrument, err := s.instruments.FindByID(ctx, instrumentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "instrument not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load instrument")
	}
	return instrument, nil
}

func (s *ReviewService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *ReviewService) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *ReviewService) count(fn func(*metrics.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *ReviewService) record(event audit.Event) {
	if s.audit != nil {
		s.audit.Record(event)
	}
}
