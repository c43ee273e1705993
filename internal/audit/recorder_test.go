package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "metrolab/pkg/domain"
)

func TestRecorderStampsTimestamp(t *testing.T) {
	r := NewRecorder(1, nil)
	r.Record(Event{Action: ActionReviewOpened, EntityType: "review", EntityID: "r1"})

	got := <-r.Events()
	assert.False(t, got.Timestamp.IsZero())
}

func TestRecorderDropsWhenFull(t *testing.T) {
	r := NewRecorder(1, nil)
	r.Record(Event{EntityID: "first"})
	r.Record(Event{EntityID: "dropped"})

	got := <-r.Events()
	assert.Equal(t, "first", got.EntityID)
	select {
	case extra := <-r.Events():
		t.Fatalf("expected second event to be dropped, got %q", extra.EntityID)
	default:
	}
}

func TestWorkerPersistsEvents(t *testing.T) {
	store := NewInMemory()
	r := NewRecorder(8, nil)
	w := NewWorker(store, r.Events())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	actor := id.UserID(uuid.New())
	r.Record(Event{
		Actor:      actor,
		Action:     ActionCertificateReviewed,
		EntityType: "certificate",
		EntityID:   "c1",
		Detail:     "APPROVED",
	})
	r.Record(Event{
		Actor:      actor,
		Action:     ActionCertificateSuperseded,
		EntityType: "certificate",
		EntityID:   "c1",
	})

	require.Eventually(t, func() bool {
		events, err := store.ListByEntity(context.Background(), "certificate", "c1")
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByEntity(context.Background(), "certificate", "c1")
	require.NoError(t, err)
	assert.Equal(t, ActionCertificateReviewed, events[0].Action)
	assert.Equal(t, "APPROVED", events[0].Detail)
	assert.Equal(t, ActionCertificateSuperseded, events[1].Action)

	cancel()
	<-done
}
