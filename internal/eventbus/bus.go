package eventbus

import (
	"swarmctl/internal/datastructures"

	"github.com/google/uuid"
)

func New() *Bus {
	return &Bus{
		subscriptions: datastructures.NewSafeMap[string, *datastructures.SafeSet[Subscriber]](),
		handlers:      datastructures.NewSafeMap[Subscriber, Handler](),
	}
}

func NewSubscriber() Subscriber {
	return Subscriber{ID: uuid.New().String()}
}

// Subscribe registers handler for eventType, creating a new Subscriber if
// sub is the zero value. Returns the subscriber so the caller can
// Unsubscribe later.
func (b *Bus) Subscribe(eventType string, sub Subscriber, handler Handler) Subscriber {
	if sub.ID == "" {
		sub = NewSubscriber()
	}
	b.handlers.Set(sub, handler)

	set := b.subscriptions.GetOrDefault(eventType, datastructures.NewSafeSet[Subscriber]())
	set.Add(sub)
	return sub
}

func (b *Bus) Unsubscribe(eventType string, sub Subscriber) {
	if sub.ID == "" {
		return
	}
	if set, ok := b.subscriptions.Get(eventType); ok {
		set.Remove(sub)
	}
	b.handlers.Delete(sub)
}

// Publish dispatches event to every subscriber of its type, each in its own
// goroutine. A no-op for a nil event or an event type with no subscribers.
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}
	set, ok := b.subscriptions.Get(event.Type())
	if !ok {
		return
	}
	set.Iterate(func(sub Subscriber) bool {
		if handler, ok := b.handlers.Get(sub); ok {
			go handler(event)
		}
		return true
	})
}

func (b *Bus) PublishData(eventType string, data any) {
	b.Publish(NewEvent(eventType, data))
}
