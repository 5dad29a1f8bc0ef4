// Package natsbus publishes envelopes to NATS, optionally through JetStream.
//
// Each topic maps to the subject <prefix>.d<domain>.<Topic>. With JetStream
// enabled a single stream captures every topic of the domain, and each
// envelope carries its message id for server-side deduplication.
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/adapters/codec"
	"github.com/artpar/hsdsgate/domain/record"
	"github.com/artpar/hsdsgate/ports"
)

// Errors returned by channels.
var (
	ErrNotConnected = errors.New("natsbus: not connected")
	ErrClosed       = errors.New("natsbus: channel closed")
)

// HeartbeatTopic is the subject suffix heartbeats are published on.
const HeartbeatTopic = "_heartbeat"

// Config configures the connection and subject layout.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration

	Username string
	Password string
	Token    string

	// TLS material. Certificate and key are used together.
	CertFile string
	KeyFile  string
	CAFile   string

	Prefix   string
	DomainID int

	JetStream bool
	Stream    string
	MaxAge    time.Duration
}

// Subject returns the subject a topic is published on.
func Subject(prefix string, domainID int, topic string) string {
	return fmt.Sprintf("%s.d%d.%s", prefix, domainID, topic)
}

// Factory owns the NATS connection shared by all channels.
type Factory struct {
	cfg    Config
	conn   *nats.Conn
	js     jetstream.JetStream
	codec  codec.Codec
	logger zerolog.Logger
}

// Connect dials NATS and, with JetStream enabled, ensures the stream exists.
func Connect(ctx context.Context, cfg Config, c codec.Codec, logger zerolog.Logger) (*Factory, error) {
	f := &Factory{cfg: cfg, codec: c, logger: logger}

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(cfg.URL, f.options()...)
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.URL, r.err)
		}
		f.conn = r.conn
	}

	if cfg.JetStream {
		js, err := jetstream.New(f.conn)
		if err != nil {
			f.conn.Close()
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:       cfg.Stream,
			Subjects:   []string{fmt.Sprintf("%s.d%d.>", cfg.Prefix, cfg.DomainID)},
			MaxAge:     cfg.MaxAge,
			Duplicates: 2 * time.Minute,
		})
		if err != nil {
			f.conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
		}
		f.js = js
	}

	logger.Info().
		Str("url", f.conn.ConnectedUrlRedacted()).
		Bool("jetstream", cfg.JetStream).
		Int("domain_id", cfg.DomainID).
		Msg("connected to NATS")

	return f, nil
}

func (f *Factory) options() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(f.cfg.MaxReconnects),
		nats.ReconnectWait(f.cfg.ReconnectWait),
		nats.Timeout(f.cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			f.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			f.logger.Info().Str("url", c.ConnectedUrlRedacted()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			f.logger.Debug().Msg("NATS connection closed")
		}),
	}
	if f.cfg.Name != "" {
		opts = append(opts, nats.Name(f.cfg.Name))
	}
	if f.cfg.Username != "" && f.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(f.cfg.Username, f.cfg.Password))
	}
	if f.cfg.Token != "" {
		opts = append(opts, nats.Token(f.cfg.Token))
	}
	if f.cfg.CertFile != "" && f.cfg.KeyFile != "" {
		opts = append(opts, nats.ClientCert(f.cfg.CertFile, f.cfg.KeyFile))
	}
	if f.cfg.CAFile != "" {
		opts = append(opts, nats.RootCAs(f.cfg.CAFile))
	}
	return opts
}

// CreateChannel implements ports.ChannelFactory.
func (f *Factory) CreateChannel(_ context.Context, topic, recordType string) (ports.Channel, error) {
	if f.conn == nil || f.conn.IsClosed() {
		return nil, ErrNotConnected
	}
	subject := Subject(f.cfg.Prefix, f.cfg.DomainID, topic)
	f.logger.Debug().Str("subject", subject).Str("type", recordType).Msg("NATS channel created")
	return &Channel{factory: f, topic: topic, subject: subject}, nil
}

// SendHeartbeat implements ports.HeartbeatSender.
func (f *Factory) SendHeartbeat(_ context.Context, hb record.Heartbeat) error {
	data, err := f.codec.Marshal(hb)
	if err != nil {
		return fmt.Errorf("encode heartbeat: %w", err)
	}
	if !f.conn.IsConnected() {
		return ErrNotConnected
	}
	return f.conn.Publish(Subject(f.cfg.Prefix, f.cfg.DomainID, HeartbeatTopic), data)
}

// Close drains pending messages and closes the connection.
func (f *Factory) Close() error {
	if f.conn == nil || f.conn.IsClosed() {
		return nil
	}
	if err := f.conn.Drain(); err != nil {
		f.conn.Close()
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// Channel publishes one topic.
type Channel struct {
	factory *Factory
	topic   string
	subject string

	mu     sync.RWMutex
	closed bool
}

// Topic implements ports.Channel.
func (c *Channel) Topic() string {
	return c.topic
}

// Subject returns the NATS subject of this channel.
func (c *Channel) Subject() string {
	return c.subject
}

// Send implements ports.Channel.
func (c *Channel) Send(ctx context.Context, env record.Envelope) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	data, err := c.factory.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := nats.NewMsg(c.subject)
	msg.Data = data
	msg.Header.Set("Content-Type", c.factory.codec.ContentType())
	msg.Header.Set("Hsds-Source-Id", env.SourceID)
	msg.Header.Set("Hsds-Type", env.Type)

	if c.factory.js != nil {
		if _, err := c.factory.js.PublishMsg(ctx, msg, jetstream.WithMsgID(env.MessageID)); err != nil {
			return fmt.Errorf("jetstream publish %s: %w", c.subject, err)
		}
		return nil
	}

	if !c.factory.conn.IsConnected() {
		return ErrNotConnected
	}
	msg.Header.Set(nats.MsgIdHdr, env.MessageID)
	if err := c.factory.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", c.subject, err)
	}
	return nil
}

// Close implements ports.Channel. The shared connection stays open.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var (
	_ ports.ChannelFactory  = (*Factory)(nil)
	_ ports.HeartbeatSender = (*Factory)(nil)
	_ ports.Channel         = (*Channel)(nil)
)
