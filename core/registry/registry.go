// Package registry owns the publishing channels of a running gateway.
//
// A Registry opens exactly one channel per catalog record type, all or
// nothing, and routes stamped records to them. Its lifecycle is one-way:
// Uninitialized, then Initialized, then ShutDown.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/core/schema"
	"github.com/artpar/hsdsgate/core/validation"
	"github.com/artpar/hsdsgate/domain/record"
	"github.com/artpar/hsdsgate/ports"
)

var (
	ErrNotInitialized     = errors.New("publisher not initialized")
	ErrAlreadyInitialized = errors.New("publisher already initialized")
	ErrShutDown           = errors.New("publisher shut down")
	ErrNoSuchChannel      = errors.New("no channel for record type")
	ErrPublishFailed      = errors.New("publish failed")
	ErrInvalidIdentity    = errors.New("invalid publisher identity")
)

// State is the lifecycle position of a Registry.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateShutDown:
		return "shut_down"
	default:
		return "not_initialized"
	}
}

// Observer is told about every publish attempt.
type Observer interface {
	ObservePublish(topic string, d time.Duration, err error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithObserver sets the publish observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// Registry maps record types to their channels.
type Registry struct {
	catalog  *schema.Catalog
	clock    ports.Clock
	ids      ports.IDGenerator
	logger   zerolog.Logger
	observer Observer

	// mu is held for reading by Publish and for writing by state transitions.
	mu        sync.RWMutex
	state     atomic.Int32
	identity  string
	channels  map[string]ports.Channel
	heartbeat ports.HeartbeatSender

	published atomic.Uint64
}

// New creates an uninitialized registry over catalog. clk stamps envelopes
// and heartbeats; ids supplies envelope message ids.
func New(catalog *schema.Catalog, clk ports.Clock, ids ports.IDGenerator, opts ...Option) *Registry {
	r := &Registry{
		catalog: catalog,
		clock:   clk,
		ids:     ids,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize binds identity and opens one channel per catalog type.
// If any channel fails to open, every channel opened so far is closed and
// the registry stays uninitialized.
func (r *Registry) Initialize(ctx context.Context, identity string, factory ports.ChannelFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.State() {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateShutDown:
		return ErrShutDown
	}

	if len(identity) > schema.MaxIDLength || !validation.IsIdentifier(identity) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}

	channels := make(map[string]ports.Channel, r.catalog.Len())
	for _, typeName := range r.catalog.Types() {
		topic, _ := r.catalog.Topic(typeName)
		ch, err := factory.CreateChannel(ctx, topic, typeName)
		if err != nil {
			closeErr := closeAll(channels)
			if closeErr != nil {
				r.logger.Warn().Err(closeErr).Msg("closing channels after failed initialization")
			}
			return &StartupError{Type: typeName, Topic: topic, Err: err}
		}
		channels[typeName] = ch
	}

	r.identity = identity
	r.channels = channels
	if hb, ok := factory.(ports.HeartbeatSender); ok {
		r.heartbeat = hb
	}
	r.state.Store(int32(StateInitialized))

	r.logger.Info().
		Str("source_id", identity).
		Int("channels", len(channels)).
		Msg("publisher initialized")
	return nil
}

// Publish stamps rec with the registry identity and sends it on the channel
// of typeName. A failed send is reported, not retried.
func (r *Registry) Publish(ctx context.Context, typeName string, rec *record.Record) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.State() != StateInitialized {
		return ErrNotInitialized
	}

	ch, ok := r.channels[typeName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchChannel, typeName)
	}

	rec.SetProvenance(r.identity)
	env := record.NewEnvelope(r.ids.New(), ch.Topic(), rec, r.clock.Now())

	start := time.Now()
	err := ch.Send(ctx, env)
	if r.observer != nil {
		r.observer.ObservePublish(ch.Topic(), time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, ch.Topic(), err)
	}

	r.published.Add(1)
	r.logger.Debug().
		Str("topic", ch.Topic()).
		Str("id", rec.ID()).
		Str("message_id", env.MessageID).
		Msg("record published")
	return nil
}

// Heartbeat announces liveness when the channel factory supports it.
func (r *Registry) Heartbeat(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.State() != StateInitialized {
		return ErrNotInitialized
	}
	if r.heartbeat == nil {
		return nil
	}
	return r.heartbeat.SendHeartbeat(ctx, record.Heartbeat{
		SourceID:  r.identity,
		Timestamp: r.clock.Now().UTC(),
		Published: r.published.Load(),
		Topics:    len(r.channels),
	})
}

// CanHeartbeat reports whether the bound factory accepts heartbeats.
func (r *Registry) CanHeartbeat() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.heartbeat != nil
}

// Shutdown closes every channel. Only the first call does any work.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := State(r.state.Swap(int32(StateShutDown)))
	if prev != StateInitialized {
		return nil
	}

	err := closeAll(r.channels)
	r.channels = nil
	r.heartbeat = nil

	r.logger.Info().
		Uint64("published", r.published.Load()).
		Msg("publisher shut down")
	return err
}

// State returns the current lifecycle state.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Initialized reports whether records can be published.
func (r *Registry) Initialized() bool {
	return r.State() == StateInitialized
}

// Published returns the number of records sent successfully.
func (r *Registry) Published() uint64 {
	return r.published.Load()
}

// Identity returns the bound source identity, empty before Initialize.
func (r *Registry) Identity() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity
}

func closeAll(channels map[string]ports.Channel) error {
	var errs []error
	for typeName, ch := range channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", typeName, err))
		}
	}
	return errors.Join(errs...)
}

// StartupError reports the channel that could not be created.
type StartupError struct {
	Type  string
	Topic string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("create channel %s for %s: %v", e.Topic, e.Type, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
