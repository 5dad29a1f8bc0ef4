package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/artpar/hsdsgate/adapters/metrics"
	_ "github.com/artpar/hsdsgate/docs/swagger" // swagger docs
	"github.com/artpar/hsdsgate/pkg/jsonapi"
)

// RouterConfig holds the handlers and options of the gateway router.
type RouterConfig struct {
	Records *RecordHandler
	Health  *HealthHandler
	// Requests counts every routed request.
	Requests  *Counter
	AuthToken string

	Metrics     *metrics.Collector
	MetricsPath string // served only when Metrics is set
	// MetricsHandler serves the metrics path. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
	EnableOpenAPI  bool
}

// NewRouter creates the gateway router.
//
// Every request below /api/v1/hsds must carry the bearer token, whether or
// not a route matches. Unmatched paths and methods get 404.
func NewRouter(cfg RouterConfig, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CloseConnection)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(NewRecovererMiddleware(logger))
	if cfg.Requests != nil {
		r.Use(cfg.Requests.Middleware)
	}
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/api/v1/health", cfg.Health.Liveness)
	r.Get("/api/v1/status", cfg.Health.Status)

	r.Route("/api/v1/hsds", func(r chi.Router) {
		r.Use(NewAuthMiddleware(cfg.AuthToken, cfg.Metrics))
		r.NotFound(notFound)
		r.MethodNotAllowed(notFound)

		r.Post("/{type}", cfg.Records.Create)
		r.Put("/{type}/{id}", cfg.Records.Update)
		r.Delete("/{type}/{id}", cfg.Records.Delete)
	})

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		h := cfg.MetricsHandler
		if h == nil {
			h = promhttp.Handler()
		}
		r.Handle(path, h)
	}

	if cfg.EnableOpenAPI {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteNotFound(w)
}

// CloseConnection asks the client to close the connection after the response.
func CloseConnection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

// NewAuthMiddleware rejects requests whose last Authorization header is not
// exactly "Bearer <token>".
func NewAuthMiddleware(token string, m *metrics.Collector) func(next http.Handler) http.Handler {
	expected := []byte("Bearer " + token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := r.Header.Values("Authorization")
			if len(values) == 0 {
				if m != nil {
					m.AuthFailures.WithLabelValues("missing").Inc()
				}
				jsonapi.WriteUnauthorized(w, "Unauthorized")
				return
			}
			if subtle.ConstantTimeCompare([]byte(values[len(values)-1]), expected) != 1 {
				if m != nil {
					m.AuthFailures.WithLabelValues("mismatch").Inc()
				}
				jsonapi.WriteUnauthorized(w, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Counter counts API requests.
type Counter struct {
	n atomic.Uint64
}

// Middleware increments the counter once per request.
func (c *Counter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.n.Add(1)
		next.ServeHTTP(w, r)
	})
}

// Requests returns the number of requests seen.
func (c *Counter) Requests() uint64 {
	return c.n.Load()
}

// NewRecovererMiddleware turns a panic into a generic 500.
func NewRecovererMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Error().
					Interface("panic", rvr).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("handler panic")
				jsonapi.WriteInternalError(w, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/swagger") {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := routePattern(r)
			m.RequestsTotal.WithLabelValues(r.Method, route, metrics.StatusClass(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the matched chi pattern, which keeps label
// cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/api/v1/health" || r.URL.Path == "/metrics" {
				return
			}

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
