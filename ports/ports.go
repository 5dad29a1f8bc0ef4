// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/hsdsgate/domain/record"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Distribution Ports
// -----------------------------------------------------------------------------

// Channel is a write-only publication route for one topic.
type Channel interface {
	// Topic returns the topic this channel publishes on.
	Topic() string

	// Send publishes one envelope. Failures are returned, never retried.
	Send(ctx context.Context, env record.Envelope) error

	// Close releases the channel. Further sends fail.
	Close() error
}

// ChannelFactory creates channels for the distribution layer in use.
type ChannelFactory interface {
	// CreateChannel opens the channel for topic, carrying records of recordType.
	CreateChannel(ctx context.Context, topic, recordType string) (Channel, error)
}

// HeartbeatSender is implemented by factories that can announce liveness
// outside of any record topic.
type HeartbeatSender interface {
	SendHeartbeat(ctx context.Context, hb record.Heartbeat) error
}
