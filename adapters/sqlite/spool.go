package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/adapters/codec"
	"github.com/artpar/hsdsgate/domain/record"
	"github.com/artpar/hsdsgate/ports"
)

// ErrClosed is returned by Send on a closed channel.
var ErrClosed = errors.New("sqlite: channel closed")

// Stored is one spooled envelope.
type Stored struct {
	Seq         int64
	MessageID   string
	Topic       string
	RecordType  string
	RecordID    string
	SourceID    string
	Codec       string
	Payload     []byte
	PublishedAt time.Time
}

// Spool is a channel factory whose channels append to the envelopes table.
type Spool struct {
	db     *DB
	codec  codec.Codec
	clock  ports.Clock
	logger zerolog.Logger
}

// NewSpool creates a spool over a migrated database.
func NewSpool(db *DB, c codec.Codec, clock ports.Clock, logger zerolog.Logger) *Spool {
	return &Spool{db: db, codec: c, clock: clock, logger: logger}
}

// CreateChannel implements ports.ChannelFactory.
func (s *Spool) CreateChannel(ctx context.Context, topic, recordType string) (ports.Channel, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("spool unavailable: %w", err)
	}
	return &Channel{spool: s, topic: topic, recordType: recordType}, nil
}

// SendHeartbeat implements ports.HeartbeatSender.
func (s *Spool) SendHeartbeat(ctx context.Context, hb record.Heartbeat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heartbeats (source_id, published, topics, beat_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			published = excluded.published,
			topics = excluded.topics,
			beat_at = excluded.beat_at`,
		hb.SourceID, int64(hb.Published), hb.Topics, hb.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

// LastHeartbeat returns the latest heartbeat of a gateway.
func (s *Spool) LastHeartbeat(ctx context.Context, sourceID string) (record.Heartbeat, error) {
	var (
		published int64
		beatAt    int64
		hb        = record.Heartbeat{SourceID: sourceID}
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT published, topics, beat_at FROM heartbeats WHERE source_id = ?", sourceID,
	).Scan(&published, &hb.Topics, &beatAt)
	if err != nil {
		return record.Heartbeat{}, fmt.Errorf("read heartbeat: %w", err)
	}
	hb.Published = uint64(published)
	hb.Timestamp = time.Unix(0, beatAt).UTC()
	return hb, nil
}

// Since returns up to limit envelopes of topic with a sequence above after.
func (s *Spool) Since(ctx context.Context, topic string, after int64, limit int) ([]Stored, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, message_id, topic, record_type, record_id, source_id, codec, payload, published_at
		FROM envelopes
		WHERE topic = ? AND seq > ?
		ORDER BY seq
		LIMIT ?`, topic, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query envelopes: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		var st Stored
		var at int64
		if err := rows.Scan(&st.Seq, &st.MessageID, &st.Topic, &st.RecordType, &st.RecordID,
			&st.SourceID, &st.Codec, &st.Payload, &at); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		st.PublishedAt = time.Unix(0, at).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// Count returns the number of spooled envelopes on topic.
func (s *Spool) Count(ctx context.Context, topic string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM envelopes WHERE topic = ?", topic).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count envelopes: %w", err)
	}
	return n, nil
}

// Purge deletes envelopes published more than retention ago.
func (s *Spool) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-retention).UnixNano()
	res, err := s.db.ExecContext(ctx, "DELETE FROM envelopes WHERE published_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge envelopes: %w", err)
	}
	return res.RowsAffected()
}

// RunPurge purges every interval until ctx is done.
func (s *Spool) RunPurge(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx, retention)
			if err != nil {
				s.logger.Error().Err(err).Msg("spool purge failed")
				continue
			}
			if n > 0 {
				s.logger.Info().Int64("deleted", n).Dur("retention", retention).Msg("spool purged")
			}
		}
	}
}

// Channel appends envelopes of one topic.
type Channel struct {
	spool      *Spool
	topic      string
	recordType string

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

	payload, err := c.spool.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	recordID, _ := env.Record["id"].(string)
	_, err = c.spool.db.ExecContext(ctx, `
		INSERT INTO envelopes (message_id, topic, record_type, record_id, source_id, codec, payload, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		env.MessageID, c.topic, env.Type, recordID, env.SourceID,
		c.spool.codec.Name(), payload, env.PublishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("spool envelope: %w", err)
	}
	return nil
}

// Close implements ports.Channel. The database stays open.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

var (
	_ ports.ChannelFactory  = (*Spool)(nil)
	_ ports.HeartbeatSender = (*Spool)(nil)
	_ ports.Channel         = (*Channel)(nil)
)
