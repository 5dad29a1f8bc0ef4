// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/hsdsgate/ports"
)

// UUID generates random UUIDs. Used for envelope message ids.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Timestamped generates record ids of the form <prefix><unix seconds>_<n>,
// where n is a process-wide monotonic counter. Ids stay unique within a
// process even when many are issued in the same second.
type Timestamped struct {
	prefix  string
	clock   ports.Clock
	counter atomic.Uint64
}

// NewTimestamped creates a timestamped generator.
func NewTimestamped(prefix string, clock ports.Clock) *Timestamped {
	return &Timestamped{prefix: prefix, clock: clock}
}

// New generates the next id.
func (g *Timestamped) New() string {
	n := g.counter.Add(1)
	return g.prefix + strconv.FormatInt(g.clock.Now().Unix(), 10) + "_" + strconv.FormatUint(n, 10)
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Timestamped)(nil)
	_ ports.IDGenerator = (*Sequential)(nil)
)
