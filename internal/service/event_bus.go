// internal/service/event_bus.go
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// EventBus fans job and printer events out to filtered subscribers
type EventBus struct {
	subscribers map[uuid.UUID]*subscription
	events      chan *model.JobEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

type subscription struct {
	filter *model.EventFilter
	ch     chan *model.JobEvent
}

// NewEventBus creates a new event bus with the given publish buffer
func NewEventBus(bufferSize int, logger *zap.Logger) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		subscribers: make(map[uuid.UUID]*subscription),
		events:      make(chan *model.JobEvent, bufferSize),
		logger:      logger,
	}
}

// Run distributes published events until ctx is cancelled
func (eb *EventBus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			eb.closeAll()
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Publish queues an event; it never blocks the caller
func (eb *EventBus) Publish(event *model.JobEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe registers a subscriber; a nil filter receives everything
func (eb *EventBus) Subscribe(filter *model.EventFilter) (uuid.UUID, <-chan *model.JobEvent) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	id := uuid.New()
	sub := &subscription{filter: filter, ch: make(chan *model.JobEvent, 100)}
	eb.subscribers[id] = sub
	return id, sub.ch
}

// SetFilter replaces a subscriber's filter
func (eb *EventBus) SetFilter(id uuid.UUID, filter *model.EventFilter) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if sub, ok := eb.subscribers[id]; ok {
		sub.filter = filter
	}
}

// Unsubscribe removes a subscriber and closes its channel
func (eb *EventBus) Unsubscribe(id uuid.UUID) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if sub, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}

// SubscriberCount is the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	return len(eb.subscribers)
}

func (eb *EventBus) distributeEvent(event *model.JobEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for id, sub := range eb.subscribers {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber is slow, skip
			eb.logger.Debug("Subscriber channel full, skipping event",
				zap.String("subscriber_id", id.String()),
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}

func (eb *EventBus) closeAll() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for id, sub := range eb.subscribers {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}
