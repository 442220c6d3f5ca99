package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/erp/backoffice/internal/domain/shared"
)

// EventSerializer encodes outbox payloads. Only registered event types can
// be written, so a payload that the processor could not decode later never
// reaches the outbox table.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer returns an empty serializer; see RegisterAllEvents
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// Register binds eventType to the concrete struct behind prototype
func (s *EventSerializer) Register(eventType string, prototype shared.DomainEvent) {
	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

func (s *EventSerializer) lookup(eventType string) (reflect.Type, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	return t, nil
}

// Serialize encodes event as the outbox payload
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("serialize: nil event")
	}
	if _, err := s.lookup(event.EventType()); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return payload, nil
}

// Deserialize rebuilds the event stored under eventType
func (s *EventSerializer) Deserialize(eventType string, payload []byte) (shared.DomainEvent, error) {
	t, err := s.lookup(eventType)
	if err != nil {
		return nil, err
	}

	target := reflect.New(t).Interface()
	if err := json.Unmarshal(payload, target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}

	decoded, ok := target.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s is registered to %s, which is not a domain event", eventType, t)
	}
	return decoded, nil
}

// IsRegistered reports whether eventType can be serialized
func (s *EventSerializer) IsRegistered(eventType string) bool {
	_, err := s.lookup(eventType)
	return err == nil
}

// RegisteredTypes lists the known event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.types))
	for name := range s.types {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
