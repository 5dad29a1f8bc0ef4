// Package memory provides an in-process distribution layer.
// Envelopes are delivered synchronously to subscribers and kept in a bounded
// per-topic history. Used for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/domain/record"
	"github.com/artpar/hsdsgate/ports"
)

// ErrClosed is returned by Send on a closed channel.
var ErrClosed = errors.New("memory: channel closed")

// DefaultHistory is the number of envelopes kept per topic.
const DefaultHistory = 1000

// Handler receives envelopes published on a subscribed topic.
type Handler func(ctx context.Context, env record.Envelope) error

// Bus fans published envelopes out to subscribers.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[string][]Handler
	history    map[string][]record.Envelope
	heartbeats []record.Heartbeat
	failSend   map[string]error
	failCreate map[string]error
	open       map[string]int
	created    int
	limit      int
	logger     zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers:   make(map[string][]Handler),
		history:    make(map[string][]record.Envelope),
		failSend:   make(map[string]error),
		failCreate: make(map[string]error),
		open:       make(map[string]int),
		limit:      DefaultHistory,
		logger:     logger,
	}
}

// Subscribe registers a handler for a topic. "*" receives every topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// FailSends makes every Send on topic return err. A nil err clears it.
func (b *Bus) FailSends(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failSend, topic)
		return
	}
	b.failSend[topic] = err
}

// FailCreate makes CreateChannel for topic return err.
func (b *Bus) FailCreate(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCreate[topic] = err
}

// Messages returns the envelopes published on topic, oldest first.
func (b *Bus) Messages(topic string) []record.Envelope {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]record.Envelope, len(b.history[topic]))
	copy(out, b.history[topic])
	return out
}

// Heartbeats returns the heartbeats received so far.
func (b *Bus) Heartbeats() []record.Heartbeat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]record.Heartbeat, len(b.heartbeats))
	copy(out, b.heartbeats)
	return out
}

// OpenChannels returns the number of channels created and not yet closed.
func (b *Bus) OpenChannels() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, c := range b.open {
		n += c
	}
	return n
}

// OpenOn returns the number of open channels for one topic.
func (b *Bus) OpenOn(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open[topic]
}

// Created returns how many channels were ever created.
func (b *Bus) Created() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.created
}

// CreateChannel implements ports.ChannelFactory.
func (b *Bus) CreateChannel(_ context.Context, topic, recordType string) (ports.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failCreate[topic]; err != nil {
		return nil, fmt.Errorf("create channel %s: %w", topic, err)
	}
	b.open[topic]++
	b.created++

	b.logger.Debug().Str("topic", topic).Str("type", recordType).Msg("memory channel created")
	return &Channel{bus: b, topic: topic}, nil
}

// SendHeartbeat implements ports.HeartbeatSender.
func (b *Bus) SendHeartbeat(_ context.Context, hb record.Heartbeat) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heartbeats = append(b.heartbeats, hb)
	if len(b.heartbeats) > b.limit {
		b.heartbeats = b.heartbeats[len(b.heartbeats)-b.limit:]
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, topic string, env record.Envelope) error {
	b.mu.Lock()
	if err := b.failSend[topic]; err != nil {
		b.mu.Unlock()
		return err
	}
	h := append(b.history[topic], env)
	if len(h) > b.limit {
		h = h[len(h)-b.limit:]
	}
	b.history[topic] = h

	var matched []Handler
	matched = append(matched, b.handlers[topic]...)
	matched = append(matched, b.handlers["*"]...)
	b.mu.Unlock()

	for _, handler := range matched {
		if err := handler(ctx, env); err != nil {
			b.logger.Error().Err(err).Str("topic", topic).Msg("subscriber error")
		}
	}
	return nil
}

func (b *Bus) release(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open[topic] > 0 {
		b.open[topic]--
	}
}

// Channel is one topic on a Bus.
type Channel struct {
	bus    *Bus
	topic  string
	mu     sync.RWMutex
	closed bool
}

// Topic implements ports.Channel.
func (c *Channel) Topic() string {
	return c.topic
}

// Send implements ports.Channel.
func (c *Channel) Send(ctx context.Context, env record.Envelope) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return c.bus.deliver(ctx, c.topic, env)
}

// Close implements ports.Channel. Closing twice is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.bus.release(c.topic)
	return nil
}

var (
	_ ports.ChannelFactory  = (*Bus)(nil)
	_ ports.HeartbeatSender = (*Bus)(nil)
	_ ports.Channel         = (*Channel)(nil)
)
