package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Topic names a channel and fixes the payload type carried on it
type Topic[P any] struct {
	name string
}

// Name returns the topic name
func (t Topic[P]) Name() string {
	return t.name
}

// Bus delivers notifications between views that hold independent state.
// Delivery is synchronous on the publisher's goroutine, at most once per
// subscriber per publish, and subscribers that join late see nothing earlier.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]*subscription
}

type subscription struct {
	id      uint64
	handler func(any)
	// active is cleared on unsubscribe, including mid-publish
	active atomic.Bool
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

// Subscribe registers handler for topic. The returned function removes the
// subscription; calling it more than once is harmless.
func Subscribe[P any](b *Bus, topic Topic[P], handler func(P)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	s := &subscription{
		id: id,
		handler: func(v any) {
			handler(v.(P))
		},
	}
	s.active.Store(true)
	b.subs[topic.name] = append(b.subs[topic.name], s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic.name, id) })
	}
}

// Publish delivers payload to every current subscriber of topic. A handler
// unsubscribed by an earlier handler of the same publish is skipped.
func Publish[P any](b *Bus, topic Topic[P], payload P) {
	b.mu.RLock()
	// Copy so handlers may subscribe or unsubscribe during delivery
	subs := append([]*subscription(nil), b.subs[topic.name]...)
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(topic.name, s, payload)
	}
}

// Subscribers returns how many handlers are registered for topic
func Subscribers[P any](b *Bus, topic Topic[P]) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic.name])
}

func deliver(topic string, s *subscription, payload any) {
	if !s.active.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("topic", topic).
				Uint64("subscription", s.id).
				Str("panic", fmt.Sprint(r)).
				Msg("Event handler panicked")
		}
	}()
	s.handler(payload)
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			s.active.Store(false)
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}
