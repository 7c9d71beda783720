package realtime

import (
	"encoding/json"
)

// Subscriber receives the data payload of events of the type it was
// registered under. Registrations are keyed by the Subscriber value, so
// implementations must be comparable; pointer types are the usual choice.
type Subscriber interface {
	Deliver(data json.RawMessage)
}

type typedSubscriber struct {
	eventType string
	fn        func(Notification)
	onError   func(error)
}

func (s *typedSubscriber) Deliver(data json.RawMessage) {
	n, err := Decode(Event{Type: s.eventType, Data: data})
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return
	}
	s.fn(n)
}

// Typed decodes data as eventType before handing it to fn. Payloads that do
// not decode are passed to onError, which may be nil.
func Typed(eventType string, fn func(Notification), onError func(error)) Subscriber {
	return &typedSubscriber{eventType: eventType, fn: fn, onError: onError}
}

// Subscribe registers s for eventType. Registering the same subscriber twice
// has no further effect.
func (c *Channel) Subscribe(eventType string, s Subscriber) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	set, ok := c.subs[eventType]
	if !ok {
		set = make(map[Subscriber]struct{})
		c.subs[eventType] = set
	}
	set[s] = struct{}{}
}

// Unsubscribe removes s from eventType. Unknown registrations are ignored.
func (c *Channel) Unsubscribe(eventType string, s Subscriber) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	set, ok := c.subs[eventType]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(c.subs, eventType)
	}
}

// subscribers snapshots the registrations for eventType so delivery runs
// without holding the lock.
func (c *Channel) subscribers(eventType string) []Subscriber {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	set := c.subs[eventType]
	out := make([]Subscriber, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}
