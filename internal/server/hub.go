package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/a11y-remediator/internal/pipeline"
)

// subscriberBuffer is how many events a slow SSE client may fall behind
// before further events are dropped for that client.
const subscriberBuffer = 64

// ProgressHub fans pipeline progress events out to SSE subscribers.
// Each active run owns one stream; the stream is opened before the run
// goroutine starts and closed after the run's terminal status is stored.
type ProgressHub struct {
	mu      sync.RWMutex
	streams map[uuid.UUID]*runStream
}

// runStream tracks the subscribers of a single active run.
type runStream struct {
	mu   sync.Mutex
	subs map[chan pipeline.ProgressEvent]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{streams: make(map[uuid.UUID]*runStream)}
}

// Open registers a stream for a run that is about to start.
func (h *ProgressHub) Open(runID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.streams[runID]; !ok {
		h.streams[runID] = &runStream{subs: make(map[chan pipeline.ProgressEvent]struct{})}
	}
}

// Publish delivers an event to every subscriber of the run. Subscribers with
// full buffers miss the event rather than stall the publisher.
func (h *ProgressHub) Publish(runID uuid.UUID, ev pipeline.ProgressEvent) {
	h.mu.RLock()
	stream, ok := h.streams[runID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	for ch := range stream.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close tears down the run's stream and closes all subscriber channels.
func (h *ProgressHub) Close(runID uuid.UUID) {
	h.mu.Lock()
	stream, ok := h.streams[runID]
	delete(h.streams, runID)
	h.mu.Unlock()
	if !ok {
		return
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	for ch := range stream.subs {
		close(ch)
	}
	stream.subs = nil
}

// Subscribe attaches to a run's stream. The returned cancel function detaches
// the subscriber. ok is false when the run has no active stream.
func (h *ProgressHub) Subscribe(runID uuid.UUID) (events <-chan pipeline.ProgressEvent, cancel func(), ok bool) {
	h.mu.RLock()
	stream, found := h.streams[runID]
	h.mu.RUnlock()
	if !found {
		return nil, nil, false
	}

	ch := make(chan pipeline.ProgressEvent, subscriberBuffer)

	stream.mu.Lock()
	if stream.subs == nil {
		// Raced with Close; the stream is gone.
		stream.mu.Unlock()
		return nil, nil, false
	}
	stream.subs[ch] = struct{}{}
	stream.mu.Unlock()

	cancel = func() {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		if stream.subs == nil {
			return
		}
		if _, still := stream.subs[ch]; still {
			delete(stream.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, true
}

// Active reports whether a run currently has an open stream.
func (h *ProgressHub) Active(runID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.streams[runID]
	return ok
}
