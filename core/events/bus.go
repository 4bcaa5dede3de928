// Package events is a small typed publish/subscribe bus.
// Delivery is synchronous and in-process. A Bridge forwards messages
// to the watchers of other processes; typed subscribers only ever run
// in the process that published.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

// Topic is a named channel carrying payloads of type T.
type Topic[T any] struct {
	name string
}

func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

func (t Topic[T]) Name() string { return t.name }

// Scoped payloads are delivered to the SSE stream of one account.
type Scoped interface {
	EventAccountID() string
}

// Message is the untyped form of a published event.
type Message struct {
	Topic     string          `json:"topic"`
	AccountID string          `json:"account_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin,omitempty"`
}

// Bridge forwards published messages to other processes.
type Bridge interface {
	Forward(ctx context.Context, msg Message) error
}

type subscriber struct {
	id    uint64
	typed func(ctx context.Context, payload interface{})
}

type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	subs     map[string][]subscriber // {topic: subscribers}
	watchers map[uint64]func(ctx context.Context, msg Message)
	bridge   Bridge
	origin   string
	logger   core.Logger
}

func NewBus(logger core.Logger) *Bus {
	return &Bus{
		subs:     make(map[string][]subscriber),
		watchers: make(map[uint64]func(context.Context, Message)),
		origin:   newOrigin(),
		logger:   logger,
	}
}

// SetBridge makes the bus forward every published message through br.
func (b *Bus) SetBridge(br Bridge) {
	b.mu.Lock()
	b.bridge = br
	b.mu.Unlock()
}

func (b *Bus) Origin() string { return b.origin }

// Publish delivers payload to the subscribers of topic, then forwards it to the bridge.
func Publish[T any](ctx context.Context, b *Bus, topic Topic[T], payload T) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error(fmt.Sprintf("events: marshalling %s payload: %v", topic.name, err), err)
		return
	}
	msg := Message{Topic: topic.name, Payload: raw, Origin: b.origin}
	if s, ok := any(payload).(Scoped); ok {
		msg.AccountID = s.EventAccountID()
	}

	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs[topic.name]...)
	watchers := b.watcherList()
	bridge := b.bridge
	b.mu.RUnlock()

	for _, sub := range subs {
		b.safely(topic.name, func() { sub.typed(ctx, payload) })
	}
	for _, w := range watchers {
		w := w
		b.safely(topic.name, func() { w(ctx, msg) })
	}

	if bridge != nil {
		if err := bridge.Forward(ctx, msg); err != nil {
			b.logger.Error(fmt.Sprintf("events: forwarding %s: %v", topic.name, err), errors.Wrap(err, "forwarding"))
		}
	}
}

// Subscribe registers fn for topic messages published on this bus.
// Bridged messages never reach fn, so side effects run once per Publish.
// The returned func unsubscribes.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(ctx context.Context, payload T)) (unsubscribe func()) {
	sub := subscriber{
		typed: func(ctx context.Context, payload interface{}) { fn(ctx, payload.(T)) },
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[topic.name] = append(b.subs[topic.name], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic.name]
		for i, s := range subs {
			if s.id == sub.id {
				b.subs[topic.name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Watch registers fn for every message on every topic, local or bridged.
func (b *Bus) Watch(fn func(ctx context.Context, msg Message)) (unwatch func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.watchers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}
}

// Deliver hands a message received from another process to the watchers.
// Messages this bus published itself are skipped.
func (b *Bus) Deliver(ctx context.Context, msg Message) {
	if msg.Origin == b.origin {
		return
	}

	b.mu.RLock()
	watchers := b.watcherList()
	b.mu.RUnlock()

	for _, w := range watchers {
		w := w
		b.safely(msg.Topic, func() { w(ctx, msg) })
	}
}

// must be called with b.mu held
func (b *Bus) watcherList() []func(context.Context, Message) {
	list := make([]func(context.Context, Message), 0, len(b.watchers))
	for _, w := range b.watchers {
		list = append(list, w)
	}
	return list
}

// safely runs fn, isolating the publisher from subscriber panics.
func (b *Bus) safely(topic string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic: %v", r)
			b.logger.Error(fmt.Sprintf("events: subscriber of %s panicked", topic), err)
		}
	}()
	fn()
}
