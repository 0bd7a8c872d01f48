package engine

import (
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/models"
)

type EventType string

const (
	EventAccountAdded   EventType = "account:added"
	EventAccountUpdated EventType = "account:updated"
	EventAccountRemoved EventType = "account:removed"
	EventPostScheduled  EventType = "post:scheduled"
	EventPostPublishing EventType = "post:publishing"
	EventPostPublished  EventType = "post:published"
	EventPostFailed     EventType = "post:failed"
	EventPostCancelled  EventType = "post:cancelled"
)

// Event is delivered to subscribed listeners for logging/monitoring/UI.
// Account and Post are snapshots; mutating them has no effect on the engine.
type Event struct {
	Type    EventType             `json:"type"`
	At      time.Time             `json:"at"`
	Account *models.Account       `json:"account,omitempty"`
	Post    *models.PostRequest   `json:"post,omitempty"`
	Result  *models.PublishResult `json:"result,omitempty"`
}

type Listener func(Event)

// Subscribe registers a listener for every engine event and returns an
// unsubscribe func. Listeners run synchronously on the emitting goroutine and
// should hand off anything slow.
func (e *Engine) Subscribe(fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListenerID
	e.nextListenerID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// emit delivers events to the current listener set. Callers must NOT hold e.mu.
func (e *Engine) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	e.mu.Lock()
	fns := make([]Listener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for i := range events {
		if events[i].At.IsZero() {
			events[i].At = e.now()
		}
		for _, fn := range fns {
			fn(events[i])
		}
	}
}
