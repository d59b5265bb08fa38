package server

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/pipeline"
)

func TestProgressHub_PublishReachesSubscriber(t *testing.T) {
	hub := NewProgressHub()
	runID := uuid.New()
	hub.Open(runID)

	events, cancel, ok := hub.Subscribe(runID)
	require.True(t, ok)
	defer cancel()

	hub.Publish(runID, pipeline.ProgressEvent{Step: "Step 1/5", Category: "audit", Message: "Auditing page"})

	select {
	case ev := <-events:
		assert.Equal(t, "Step 1/5", ev.Step)
		assert.Equal(t, "audit", ev.Category)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestProgressHub_SubscribeUnknownRun(t *testing.T) {
	hub := NewProgressHub()

	_, _, ok := hub.Subscribe(uuid.New())
	assert.False(t, ok)
}

func TestProgressHub_CloseClosesSubscribers(t *testing.T) {
	hub := NewProgressHub()
	runID := uuid.New()
	hub.Open(runID)

	events, _, ok := hub.Subscribe(runID)
	require.True(t, ok)

	hub.Close(runID)

	select {
	case _, open := <-events:
		assert.False(t, open, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}

	assert.False(t, hub.Active(runID))

	// Publishing after close is a no-op
	hub.Publish(runID, pipeline.ProgressEvent{Message: "late"})
}

func TestProgressHub_CancelDetachesSubscriber(t *testing.T) {
	hub := NewProgressHub()
	runID := uuid.New()
	hub.Open(runID)

	events, cancel, ok := hub.Subscribe(runID)
	require.True(t, ok)

	cancel()
	// Cancel twice is safe
	cancel()

	_, open := <-events
	assert.False(t, open, "channel should be closed after cancel")

	// Publish must not panic with the subscriber gone
	hub.Publish(runID, pipeline.ProgressEvent{Message: "after cancel"})
	hub.Close(runID)
}

func TestProgressHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewProgressHub()
	runID := uuid.New()
	hub.Open(runID)

	events, cancel, ok := hub.Subscribe(runID)
	require.True(t, ok)
	defer cancel()

	// Nobody reads; the buffer absorbs what it can and the rest is dropped
	for i := 0; i < subscriberBuffer+25; i++ {
		hub.Publish(runID, pipeline.ProgressEvent{Message: "event"})
	}

	assert.Equal(t, subscriberBuffer, len(events))
}

func TestProgressHub_MultipleSubscribers(t *testing.T) {
	hub := NewProgressHub()
	runID := uuid.New()
	hub.Open(runID)

	first, cancelFirst, ok := hub.Subscribe(runID)
	require.True(t, ok)
	defer cancelFirst()

	second, cancelSecond, ok := hub.Subscribe(runID)
	require.True(t, ok)
	defer cancelSecond()

	hub.Publish(runID, pipeline.ProgressEvent{Message: "fan out"})

	assert.Equal(t, "fan out", (<-first).Message)
	assert.Equal(t, "fan out", (<-second).Message)
}

func TestProgressHub_OpenIsIdempotent(t *testing.T) {
	hub := NewProgressHub()
	runID := uuid.New()

	hub.Open(runID)
	events, cancel, ok := hub.Subscribe(runID)
	require.True(t, ok)
	defer cancel()

	// A second Open must not discard existing subscribers
	hub.Open(runID)
	hub.Publish(runID, pipeline.ProgressEvent{Message: "still here"})

	select {
	case ev := <-events:
		assert.Equal(t, "still here", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("subscriber was dropped by a repeated Open")
	}
}
