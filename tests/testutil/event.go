// Package testutil holds helpers shared by the integration suites.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// RecordingHandler records every event it receives
type RecordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingHandler creates a handler for the given event types
func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (h *RecordingHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error
func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the recorded events
func (h *RecordingHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// HandledTypes lists the types of the recorded events in arrival order
func (h *RecordingHandler) HandledTypes() []string {
	events := h.Handled()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

// HandledCount returns the number of recorded events
func (h *RecordingHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError makes subsequent Handle calls fail with err
func (h *RecordingHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset clears recorded events and the configured error
func (h *RecordingHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = nil
	h.err = nil
}

// LedgerEvent is a bare event raised against a cash box
type LedgerEvent struct {
	shared.BaseDomainEvent
	Note string `json:"note"`
}

// NewLedgerEvent creates an event of eventType for a fresh cash box under scope
func NewLedgerEvent(eventType string, scope shared.RequestScope) *LedgerEvent {
	return &LedgerEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "CashBox", uuid.New(), scope),
		Note:            "test",
	}
}

// WaitForCondition polls condition until it holds or timeout elapses
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// WaitForEventCount waits until handler has recorded at least count events
func WaitForEventCount(t *testing.T, handler *RecordingHandler, count int, timeout time.Duration) bool {
	t.Helper()

	return WaitForCondition(t, func() bool {
		return handler.HandledCount() >= count
	}, timeout, 10*time.Millisecond)
}
