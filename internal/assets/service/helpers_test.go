package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"metrolab/internal/assets/models"
	instrumentstore "metrolab/internal/assets/store/instrument"
	"metrolab/internal/tickets"
	id "metrolab/pkg/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newActor(role models.Role, dept id.DepartmentID) models.Actor {
	return models.Actor{
		ID:           id.UserID(uuid.New()),
		Email:        "user@example.com",
		Role:         role,
		DepartmentID: dept,
	}
}

func seedInstrument(t *testing.T, store *instrumentstore.InMemory, dept id.DepartmentID) *models.Instrument {
	t.Helper()
	instrument, err := models.NewInstrument(
		id.InstrumentID(uuid.New()),
		"Spectrometer",
		"SN-"+uuid.NewString()[:8],
		"X200",
		"Acme Labs",
		models.CategoryAnalysis,
		id.LocationID(uuid.New()),
		dept,
		testNow,
	)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), instrument))
	return instrument
}

func validSubmissionData() models.CalibrationData {
	return models.CalibrationData{
		"standard_used": "NIST-123",
		"uncertainty":   0.05,
		"temperature": map[string]any{
			"measured_values":         []any{20.1, 25.0},
			"reference_values":        []any{20.0, 25.0},
			"correlation_coefficient": 0.999,
			"uncertainty":             0.1,
		},
	}
}

// stubBridge records calls and returns a canned ticket, or nil when failing.
type stubBridge struct {
	created int
	updated int
	fail    bool
}

func (b *stubBridge) CreateTicket(ctx context.Context, review *models.Review, instrument *models.Instrument) *tickets.Ticket {
	b.created++
	if b.fail {
		return nil
	}
	return &tickets.Ticket{TicketID: "TICK-1", TicketURL: "https://tickets.example.com/TICK-1"}
}

func (b *stubBridge) UpdateTicket(ctx context.Context, review *models.Review) *tickets.Ticket {
	b.updated++
	if b.fail || !review.HasTicket() {
		return nil
	}
	return &tickets.Ticket{TicketID: review.ExternalTicketID, TicketURL: review.ExternalTicketURL}
}
