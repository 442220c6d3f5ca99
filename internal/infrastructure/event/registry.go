package event

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/erp/backoffice/internal/domain/shared"
)

// subscriptions is an immutable routing table; "" holds the catch-all list
type subscriptions map[string][]shared.EventHandler

const anyEventType = ""

// HandlerRegistry routes event types to subscribers. Writers copy the table
// under a mutex and swap it in, so Handlers never blocks a publish.
type HandlerRegistry struct {
	mu    sync.Mutex
	table atomic.Pointer[subscriptions]
}

func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{}
	r.table.Store(&subscriptions{})
	return r
}

// Register subscribes handler to eventTypes, or to every event when none
// are given. Registering the same pair twice is a no-op.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{anyEventType}
	}
	r.update(func(next subscriptions) {
		for _, t := range eventTypes {
			if !slices.Contains(next[t], handler) {
				next[t] = append(slices.Clone(next[t]), handler)
			}
		}
	})
}

// Unregister drops handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.update(func(next subscriptions) {
		for t, hs := range next {
			hs = slices.DeleteFunc(slices.Clone(hs), func(h shared.EventHandler) bool { return h == handler })
			if len(hs) == 0 {
				delete(next, t)
			} else {
				next[t] = hs
			}
		}
	})
}

// Handlers lists the subscribers of eventType, catch-all subscribers last
func (r *HandlerRegistry) Handlers(eventType string) []shared.EventHandler {
	table := *r.table.Load()
	if eventType == anyEventType {
		return slices.Clone(table[anyEventType])
	}
	return slices.Concat(table[eventType], table[anyEventType])
}

func (r *HandlerRegistry) update(fn func(subscriptions)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(subscriptions, len(*r.table.Load()))
	for t, hs := range *r.table.Load() {
		next[t] = hs
	}
	fn(next)
	r.table.Store(&next)
}
