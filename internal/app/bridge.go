package app

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/timekeeper/client/internal/realtime"
	"github.com/timekeeper/client/internal/routes"
)

// EventMsg carries one decoded realtime event into the program. Err is set
// when the payload did not decode; Notification is then nil.
type EventMsg struct {
	Type         string
	Notification realtime.Notification
	Err          error
	At           time.Time
}

// AlertMsg shows a transient toast.
type AlertMsg struct {
	Level   realtime.Level
	Message string
}

// StateMsg reports a realtime channel state change.
type StateMsg struct {
	Stream string
	State  realtime.State
}

// NavigateMsg ends the dashboard; Destination is where the user must go next.
type NavigateMsg struct {
	Destination string
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Relay forwards messages to a program attached after the collaborators that
// send to it were built. Messages sent before Attach are dropped.
type Relay struct {
	mu sync.RWMutex
	to Sender
}

func (r *Relay) Attach(s Sender) {
	r.mu.Lock()
	r.to = s
	r.mu.Unlock()
}

func (r *Relay) Send(msg tea.Msg) {
	r.mu.RLock()
	to := r.to
	r.mu.RUnlock()
	if to != nil {
		to.Send(msg)
	}
}

// Alerter turns channel alerts into AlertMsg.
func Alerter(s Sender) realtime.Alerter {
	return realtime.AlerterFunc(func(level realtime.Level, message string) {
		s.Send(AlertMsg{Level: level, Message: message})
	})
}

// Navigator turns navigation requests into NavigateMsg.
func Navigator(s Sender) routes.Navigator {
	return routes.NavigatorFunc(func(dest string) {
		s.Send(NavigateMsg{Destination: dest})
	})
}

// StateHook reports the state changes of the channel named stream.
func StateHook(s Sender, stream string) func(realtime.State) {
	return func(st realtime.State) {
		s.Send(StateMsg{Stream: stream, State: st})
	}
}

// Subscribable is the subscription half of *realtime.Channel.
type Subscribable interface {
	Subscribe(eventType string, s realtime.Subscriber)
	Unsubscribe(eventType string, s realtime.Subscriber)
}

// Forward subscribes s to every event type in types on ch, decoding each
// payload into its notification. The returned function removes the
// subscriptions.
func Forward(s Sender, ch Subscribable, types ...string) func() {
	subs := make(map[string]realtime.Subscriber, len(types))
	for _, t := range types {
		sub := realtime.Typed(t, func(n realtime.Notification) {
			s.Send(EventMsg{Type: t, Notification: n, At: time.Now()})
		}, func(err error) {
			s.Send(EventMsg{Type: t, Err: err, At: time.Now()})
		})
		subs[t] = sub
		ch.Subscribe(t, sub)
	}
	return func() {
		for t, sub := range subs {
			ch.Unsubscribe(t, sub)
		}
	}
}
