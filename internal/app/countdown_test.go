package app

import (
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu      sync.Mutex
	ticks   int
	expired int
	done    chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{done: make(chan struct{}, 1)}
}

func (h *recordingHandler) onTick(*Countdown) {
	h.mu.Lock()
	h.ticks++
	h.mu.Unlock()
}

func (h *recordingHandler) onExpire(*Countdown) {
	h.mu.Lock()
	h.expired++
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ticks, h.expired
}

func TestCountdownTicksThenExpires(t *testing.T) {
	h := newRecordingHandler()
	startCountdown(time.Millisecond, 3, h)

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never expired")
	}
	ticks, expired := h.counts()
	if ticks != 3 || expired != 1 {
		t.Fatalf("expected 3 ticks and 1 expiry, got %d and %d", ticks, expired)
	}
}

func TestCountdownStopSilencesEvents(t *testing.T) {
	h := newRecordingHandler()
	c := startCountdown(20*time.Millisecond, 5, h)
	c.Stop()
	c.Stop()

	time.Sleep(150 * time.Millisecond)
	ticks, expired := h.counts()
	if ticks != 0 || expired != 0 {
		t.Fatalf("expected no events after stop, got %d ticks, %d expiries", ticks, expired)
	}
	if !c.Stopped() {
		t.Fatalf("expected countdown to report stopped")
	}
}
