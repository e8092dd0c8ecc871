// Package eventbus provides in-process pub/sub for live progress
// events: container terminal output and chat stream chunks. Topics are
// arbitrary strings ("container:<id>", "chat").
package eventbus

import (
	"sync"
	"time"
)

// Event is one progress event published on a topic.
type Event struct {
	// Type is the event kind: "command", "output", "error" for terminal
	// log lines; "status" for lifecycle changes; "chunk" and "done" for
	// chat streaming.
	Type      string    `json:"type"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Bus provides pub/sub for progress events.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan *Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]chan *Event)}
}

// Subscribe creates a channel that receives events for a topic.
func (b *Bus) Subscribe(topic string) chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *Event, 64)
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers and closes it.
func (b *Bus) Unsubscribe(topic string, ch chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s == ch {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers of a topic.
func (b *Bus) Publish(topic string, event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is too slow.
		}
	}
}
