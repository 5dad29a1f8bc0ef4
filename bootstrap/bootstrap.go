// Package bootstrap wires all dependencies and starts the gateway.
// Configuration comes from a YAML file, falling back to HSDSGATE_*
// environment variables.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/hsdsgate/adapters/clock"
	apihttp "github.com/artpar/hsdsgate/adapters/http"
	"github.com/artpar/hsdsgate/adapters/idgen"
	"github.com/artpar/hsdsgate/adapters/metrics"
	tlsid "github.com/artpar/hsdsgate/adapters/tls"
	"github.com/artpar/hsdsgate/app"
	"github.com/artpar/hsdsgate/config"
	"github.com/artpar/hsdsgate/core/registry"
	"github.com/artpar/hsdsgate/core/schema"
	"github.com/artpar/hsdsgate/core/validation"
	"github.com/artpar/hsdsgate/ports"
)

// Options adjust how New builds the application.
type Options struct {
	// ConfigPath is the YAML file to load and watch. When it does not exist
	// the environment is used instead.
	ConfigPath string

	// Config, when set, is used as is and nothing is watched.
	Config *config.Config

	// SourceID overrides gateway.source_id.
	SourceID string

	// Factory replaces the configured distribution driver.
	Factory ports.ChannelFactory

	// Listener replaces binding server.host:server.port.
	Listener net.Listener

	Clock  ports.Clock
	Stdout io.Writer
}

// App represents the running application.
type App struct {
	Logger       zerolog.Logger
	Config       config.Config
	Holder       *config.Holder
	Catalog      *schema.Catalog
	Registry     *registry.Registry
	Ingest       *app.IngestService
	Metrics      *metrics.Collector
	Distribution *Distribution
	Identity     *tlsid.Identity
	HTTPServer   *http.Server

	clock    ports.Clock
	factory  ports.ChannelFactory
	listener net.Listener
	logSinks io.Closer

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	errCh    chan error
	shutdown sync.Once
	err      error
}

// New creates and initializes the application. Every channel is open and
// the identity is bound when it returns; the listener is not yet bound.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, holderPath, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if opts.SourceID != "" {
		cfg.Gateway.SourceID = opts.SourceID
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger, sinks, err := NewLogger(cfg.Logging, stdout)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &App{
		Logger:   logger,
		Config:   cfg,
		Catalog:  schema.HSDS(),
		clock:    opts.Clock,
		listener: opts.Listener,
		logSinks: sinks,
		errCh:    make(chan error, 1),
	}
	if a.clock == nil {
		a.clock = clock.Real{}
	}

	logger.Info().
		Str("source_id", cfg.Gateway.SourceID).
		Str("driver", cfg.Distribution.Driver).
		Bool("strict_validation", cfg.Gateway.StrictValidation).
		Msg("initializing hsdsgate")

	if err := a.init(ctx, opts, holderPath); err != nil {
		a.release()
		sinks.Close()
		return nil, err
	}
	return a, nil
}

func loadConfig(opts Options) (config.Config, string, error) {
	if opts.Config != nil {
		return *opts.Config, "", nil
	}

	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return config.Config{}, "", err
	}
	holderPath := ""
	if opts.ConfigPath != "" {
		if _, statErr := os.Stat(opts.ConfigPath); statErr == nil {
			holderPath = opts.ConfigPath
		}
	}
	return *cfg, holderPath, nil
}

func (a *App) init(ctx context.Context, opts Options, holderPath string) error {
	cfg := a.Config

	if cfg.Security.Enabled {
		id, err := tlsid.LoadIdentity(cfg.Security, cfg.Gateway.SourceID)
		if err != nil {
			return fmt.Errorf("load identity: %w", err)
		}
		a.Identity = id
		a.Logger.Info().Str("subject", id.Leaf.Subject.String()).Msg("identity certificate loaded")
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		a.Logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.factory = opts.Factory
	if a.factory == nil {
		dist, err := OpenDistribution(ctx, cfg, a.clock, a.Logger)
		if err != nil {
			return fmt.Errorf("open distribution: %w", err)
		}
		a.Distribution = dist
		a.factory = dist.Factory
	}

	regOpts := []registry.Option{registry.WithLogger(a.Logger)}
	if a.Metrics != nil {
		regOpts = append(regOpts, registry.WithObserver(a.Metrics))
	}
	a.Registry = registry.New(a.Catalog, a.clock, idgen.UUID{}, regOpts...)
	if err := a.Registry.Initialize(ctx, cfg.Gateway.SourceID, a.factory); err != nil {
		return fmt.Errorf("initialize publisher: %w", err)
	}

	deps := app.IngestDeps{
		Catalog:   a.Catalog,
		Validator: validation.New(a.Catalog, validation.WithStrict(cfg.Gateway.StrictValidation)),
		Publisher: a.Registry,
		IDGen:     idgen.NewTimestamped("auto_", a.clock),
		Logger:    a.Logger,
	}
	if a.Metrics != nil {
		deps.Observer = a.Metrics
	}
	a.Ingest = app.NewIngestService(deps)

	a.initHTTPServer(metricsHandler)

	if holderPath != "" {
		h, err := config.NewHolder(holderPath, a.Logger)
		if err != nil {
			return err
		}
		a.Holder = h
		a.watchConfig()
	}

	return nil
}

func (a *App) initHTTPServer(metricsHandler http.Handler) {
	cfg := a.Config
	requests := &apihttp.Counter{}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Records: apihttp.NewRecordHandler(a.Ingest, cfg.Server.MaxBodyBytes, a.Logger),
		Health: apihttp.NewHealthHandler(apihttp.HealthDeps{
			Publisher:   a.Registry,
			Requests:    requests,
			Clock:       a.clock,
			SourceID:    cfg.Gateway.SourceID,
			RecordTypes: a.Catalog.Len(),
		}),
		Requests:       requests,
		AuthToken:      cfg.Server.AuthToken,
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		MetricsHandler: metricsHandler,
		EnableOpenAPI:  cfg.OpenAPI.Enabled,
	}, a.Logger)

	a.HTTPServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	a.HTTPServer.SetKeepAlivesEnabled(false)
}

// watchConfig applies live-reloadable settings when the config file changes.
func (a *App) watchConfig() {
	a.Logger.Info().Str("path", a.Holder.Path()).Msg("config reload enabled")
	a.Holder.OnChange(func(cfg *config.Config) {
		if err := ApplyLevel(cfg.Logging.Level); err != nil {
			a.Logger.Error().Err(err).Msg("apply log level")
		}
		if a.Metrics != nil {
			a.Metrics.ObserveReload(a.clock.Now(), nil)
		}
	})
	a.Holder.OnError(func(err error) {
		if a.Metrics != nil {
			a.Metrics.ObserveReload(a.clock.Now(), err)
		}
	})
}

// Start binds the listener and starts serving plus the background loops.
func (a *App) Start(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.HTTPServer.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", a.HTTPServer.Addr, err)
		}
		a.listener = ln
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	go func() {
		a.Logger.Info().Str("addr", ln.Addr().String()).Msg("starting http server")
		if err := a.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- err
		}
	}()

	if a.Registry.CanHeartbeat() {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runHeartbeat(loopCtx, a.Config.Data.HeartbeatInterval)
		}()
	}

	if a.Distribution != nil && a.Distribution.Spool != nil {
		retention := a.Config.Data.PurgeTimeout
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Distribution.Spool.RunPurge(loopCtx, retention, purgeInterval(retention))
		}()
	}

	if a.Holder != nil {
		if err := a.Holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.Holder.WatchSignals()
	}

	return nil
}

// Addr returns the bound listen address, or the configured one before Start.
func (a *App) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.HTTPServer.Addr
}

func (a *App) runHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := a.Registry.Heartbeat(ctx)
			if a.Metrics != nil {
				a.Metrics.ObserveHeartbeat(err)
			}
			if err != nil {
				a.Logger.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

// Run starts the application and blocks until ctx is done, a signal
// arrives, or the server fails. It always shuts down before returning.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.Shutdown()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case err := <-a.errCh:
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context done, shutting down")
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes
// every channel and the distribution layer. Only the first call does any work.
func (a *App) Shutdown() error {
	a.shutdown.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if a.HTTPServer != nil {
			if err := a.HTTPServer.Shutdown(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("http server shutdown error")
				errs = append(errs, err)
			}
		}
		if a.listener != nil {
			a.listener.Close()
		}

		if err := a.release(); err != nil {
			errs = append(errs, err)
		}

		a.Logger.Info().Uint64("published", a.Registry.Published()).Msg("shutdown complete")
		if a.logSinks != nil {
			a.logSinks.Close()
		}
		a.err = errors.Join(errs...)
	})
	return a.err
}

// release stops background work and closes the publisher and distribution.
func (a *App) release() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Holder != nil {
		a.Holder.Stop()
	}
	a.wg.Wait()

	var errs []error
	if a.Registry != nil {
		if err := a.Registry.Shutdown(); err != nil {
			a.Logger.Error().Err(err).Msg("publisher shutdown error")
			errs = append(errs, err)
		}
	}
	if a.Distribution != nil {
		if err := a.Distribution.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("distribution close error")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
