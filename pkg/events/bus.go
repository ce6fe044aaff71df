// Package events carries session state out to the presentation layer.
// Handlers receive events synchronously in publish order; a snapshot
// delivered out of order could let a stale render win.
package events

import (
	"sync"
	"time"

	"github.com/stackpad/stackpad/pkg/logger"
)

// Event represents a generic event in the system
type Event struct {
	Type      string
	Payload   interface{}
	Source    string
	Timestamp time.Time
}

// Handler is a function that handles events
type Handler func(event Event)

// Bus provides decoupled communication between the session layer and the
// presentation layer
type Bus struct {
	handlers map[string][]Handler
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      logger.WithComponent("event_bus"),
	}
}

// Subscribe adds a handler for a specific event type. The type "*"
// receives all events.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.log.Debug("Handler subscribed", "eventType", eventType)
}

// Unsubscribe removes all handlers for a specific event type
func (b *Bus) Unsubscribe(eventType string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.handlers[eventType] = nil
}

// Publish delivers an event to all registered handlers, in order
func (b *Bus) Publish(eventType string, payload interface{}, source string) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Source:    source,
		Timestamp: time.Now(),
	}

	b.mutex.RLock()
	handlers := append([]Handler{}, b.handlers[eventType]...)
	handlers = append(handlers, b.handlers["*"]...)
	b.mutex.RUnlock()

	for _, handler := range handlers {
		b.deliver(event, handler)
	}
}

func (b *Bus) deliver(event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked", "type", event.Type, "error", r)
		}
	}()
	handler(event)
}

// Event type constants
const (
	// Session events
	EventStatusChanged      = "status_changed"
	EventTranscriptUpdated  = "transcript_updated"
	EventSuggestionsChanged = "suggestions_changed"
	EventNavigateRequested  = "navigate_requested"

	// Side channel events
	EventPreviewChanged  = "preview_changed"
	EventFileTreeChanged = "file_tree_changed"

	// Transport events
	EventConnected    = "connected"
	EventDisconnected = "disconnected"

	// Attachment events
	EventAttachmentsChanged = "attachments_changed"
)

// StatusPayload accompanies EventStatusChanged
type StatusPayload struct {
	Status string
}

// DisconnectPayload accompanies EventDisconnected
type DisconnectPayload struct {
	Code   int
	Reason string
}
