package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/adapters/channel/memory"
	"github.com/artpar/hsdsgate/adapters/channel/natsbus"
	"github.com/artpar/hsdsgate/adapters/codec"
	"github.com/artpar/hsdsgate/adapters/sqlite"
	"github.com/artpar/hsdsgate/config"
	"github.com/artpar/hsdsgate/ports"
)

// Distribution is the opened channel factory plus whatever must run or be
// released alongside it.
type Distribution struct {
	Factory ports.ChannelFactory
	Driver  string

	// Spool is set for the sqlite driver.
	Spool *sqlite.Spool

	closer io.Closer
}

// Close releases the driver's connection or database.
func (d *Distribution) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// OpenDistribution opens the channel factory selected by cfg.Distribution.Driver.
func OpenDistribution(ctx context.Context, cfg config.Config, clk ports.Clock, logger zerolog.Logger) (*Distribution, error) {
	dc := cfg.Distribution
	logger = logger.With().Str("driver", dc.Driver).Logger()

	c, err := codec.ByName(dc.Codec)
	if err != nil {
		return nil, err
	}

	switch dc.Driver {
	case "memory":
		return &Distribution{Factory: memory.NewBus(logger), Driver: dc.Driver}, nil

	case "nats":
		nc := natsbus.Config{
			URL:           dc.NATS.URL,
			Name:          dc.NATS.Name,
			MaxReconnects: dc.NATS.MaxReconnects,
			ReconnectWait: dc.NATS.ReconnectWait,
			Timeout:       dc.NATS.Timeout,
			Username:      dc.NATS.Username,
			Password:      dc.NATS.Password,
			Token:         dc.NATS.Token,
			Prefix:        dc.TopicPrefix,
			DomainID:      dc.DomainID,
			JetStream:     dc.NATS.JetStream,
			Stream:        dc.NATS.Stream,
			MaxAge:        cfg.Data.PurgeTimeout,
		}
		if cfg.Security.Enabled {
			nc.CertFile = cfg.Security.IdentityCert
			nc.KeyFile = cfg.Security.IdentityKey
			nc.CAFile = cfg.Security.IdentityCA
		}

		dialCtx, cancel := context.WithTimeout(ctx, dc.NATS.Timeout)
		defer cancel()

		f, err := natsbus.Connect(dialCtx, nc, c, logger)
		if err != nil {
			return nil, err
		}
		return &Distribution{Factory: f, Driver: dc.Driver, closer: f}, nil

	case "sqlite":
		db, err := sqlite.Open(dc.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate spool: %w", err)
		}
		logger.Info().Str("path", dc.SQLite.Path).Str("codec", c.Name()).Msg("spool opened")
		spool := sqlite.NewSpool(db, c, clk, logger)
		return &Distribution{Factory: spool, Driver: dc.Driver, Spool: spool, closer: db}, nil
	}

	return nil, fmt.Errorf("unknown distribution driver %q", dc.Driver)
}

// purgeInterval is how often the spool is swept for a given retention.
func purgeInterval(retention time.Duration) time.Duration {
	interval := retention / 4
	if interval < time.Second {
		return time.Second
	}
	if interval > 5*time.Minute {
		return 5 * time.Minute
	}
	return interval
}
