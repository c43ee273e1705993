// Package tickets mirrors instrument reviews into an external ticketing
// system. The bridge is deliberately soft: when it is not configured it is a
// silent no-op, and any transport or API failure yields a nil result rather
// than an error, so the review write path never depends on the external
// system being up.
package tickets

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"metrolab/internal/assets/models"
	"metrolab/pkg/platform/circuit"
)

const (
	defaultTimeout = 10 * time.Second

	// While the breaker is open, only every probeInterval-th call goes out;
	// the rest are dropped without touching the network.
	probeInterval = 10
)

// Ticket is the external reference returned on successful creation.
type Ticket struct {
	TicketID  string `json:"ticket_id"`
	TicketURL string `json:"ticket_url"`
}

// Config carries the bridge endpoint settings. The bridge is enabled only
// when both APIURL and APIKey are present.
type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// Bridge is the HTTP client for the ticketing system. A circuit breaker
// keeps review writes from stalling on the request timeout for every call
// while the ticket system is down.
type Bridge struct {
	client  *resty.Client
	enabled bool
	logger  *slog.Logger
	breaker *circuit.Breaker
	skipped atomic.Int64
}

type Option func(*Bridge)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New builds the bridge. With incomplete configuration the returned bridge is
// disabled and every call returns nil without touching the network.
func New(cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		enabled: cfg.APIURL != "" && cfg.APIKey != "",
		breaker: circuit.New("ticket-bridge", circuit.WithFailureThreshold(3)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if !b.enabled {
		return b
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	b.client = resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return b
}

// Enabled reports whether the bridge has a configured endpoint.
func (b *Bridge) Enabled() bool { return b.enabled }

type createTicketRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	Assignee    string         `json:"assignee,omitempty"`
	Metadata    ticketMetadata `json:"metadata"`
}

type ticketMetadata struct {
	InstrumentID   string `json:"instrument_id"`
	InstrumentName string `json:"instrument_name"`
	ReviewID       string `json:"review_id"`
}

type updateTicketRequest struct {
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
}

type ticketResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateTicket opens a ticket for the review. The review's assigned user, if
// any, becomes the ticket assignee. Returns nil when the bridge is disabled
// or the call fails for any reason.
func (b *Bridge) CreateTicket(ctx context.Context, review *models.Review, instrument *models.Instrument) *Ticket {
	if !b.enabled || b.skip() {
		return nil
	}

	body := createTicketRequest{
		Title:       "Review required for " + instrument.Name,
		Description: review.Reason,
		Priority:    string(review.Priority),
		Assignee:    assigneeFrom(review),
		Metadata: ticketMetadata{
			InstrumentID:   instrument.ID.String(),
			InstrumentName: instrument.Name,
			ReviewID:       review.ID.String(),
		},
	}

	var created ticketResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&created).
		Post("/tickets")
	if err != nil {
		b.recordFailure()
		b.log("ticket create failed", "review_id", review.ID.String(), "error", err)
		return nil
	}
	if resp.IsError() {
		b.recordFailure()
		b.log("ticket create rejected", "review_id", review.ID.String(), "status", resp.StatusCode())
		return nil
	}
	b.recordSuccess()
	return &Ticket{TicketID: created.ID, TicketURL: created.URL}
}

// UpdateTicket pushes the review's current status to its existing ticket.
// Returns nil when disabled, when the review has no ticket, or on failure.
func (b *Bridge) UpdateTicket(ctx context.Context, review *models.Review) *Ticket {
	if !b.enabled || !review.HasTicket() || b.skip() {
		return nil
	}

	var updated ticketResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(updateTicketRequest{Status: string(review.Status), Assignee: assigneeFrom(review)}).
		SetResult(&updated).
		Patch("/tickets/" + review.ExternalTicketID)
	if err != nil {
		b.recordFailure()
		b.log("ticket update failed", "review_id", review.ID.String(), "error", err)
		return nil
	}
	if resp.IsError() {
		b.recordFailure()
		b.log("ticket update rejected", "review_id", review.ID.String(), "status", resp.StatusCode())
		return nil
	}
	b.recordSuccess()
	return &Ticket{TicketID: updated.ID, TicketURL: updated.URL}
}

func assigneeFrom(review *models.Review) string {
	if review.AssignedTo.IsNil() {
		return ""
	}
	return review.AssignedTo.String()
}

// skip drops the call while the breaker is open, letting every
// probeInterval-th call through to test whether the ticket system recovered.
func (b *Bridge) skip() bool {
	if !b.breaker.IsOpen() {
		return false
	}
	return b.skipped.Add(1)%probeInterval != 0
}

func (b *Bridge) recordFailure() {
	if _, change := b.breaker.RecordFailure(); change.Opened {
		b.log("ticket system circuit opened", "breaker", b.breaker.Name())
	}
}

func (b *Bridge) recordSuccess() {
	if _, change := b.breaker.RecordSuccess(); change.Closed {
		b.log("ticket system circuit closed", "breaker", b.breaker.Name())
	}
}

func (b *Bridge) log(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
