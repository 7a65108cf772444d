// Package backend exposes the resolved data over HTTP: the status endpoint,
// the model listing, quota reporting, and the operational surface (health,
// metrics).
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cecil-the-coder/modelwatch/pkg/dashboard"
	"github.com/cecil-the-coder/modelwatch/pkg/quota"
	"github.com/cecil-the-coder/modelwatch/pkg/resolver"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Config holds the HTTP server settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string

	// RateLimit is requests per second across the API; Burst is the
	// token-bucket depth. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// PreferredSource reports the currently configured preferred source. Called
// once per request; there is no hot-reload contract beyond that.
type PreferredSource func() types.SourceName

// Server ties the router, handlers, and middleware together.
type Server struct {
	cfg        Config
	logger     *zap.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer wires all routes. A nil registry keeps metrics private and
// disables the /metrics endpoint.
func NewServer(
	cfg Config,
	logger *zap.Logger,
	chain *resolver.Chain,
	quotas *quota.Monitor,
	display *dashboard.Cache,
	preferred PreferredSource,
	registry *prometheus.Registry,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.Named("backend"),
		router: chi.NewRouter(),
	}

	s.router.Use(RequestID)
	s.router.Use(Logging(s.logger))
	s.router.Use(Recovery(s.logger))
	if cfg.RateLimit > 0 {
		s.router.Use(Throttle(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)))
	}
	var reg prometheus.Registerer
	if registry != nil {
		reg = registry
	}
	s.router.Use(NewHTTPMetrics(reg).Middleware)

	statusH := NewStatusHandler(chain, preferred, s.logger)
	modelsH := NewModelsHandler(chain, preferred, s.logger)
	quotasH := NewQuotaHandler(quotas)
	dashboardH := NewDashboardHandler(display)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": cfg.Version})
	})
	if registry != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", statusH.GetStatus)
		r.Get("/models", modelsH.ListModels)
		r.Get("/quotas", quotasH.ListQuotas)
		r.Get("/dashboard", dashboardH.GetDashboard)
	})

	return s
}

// Start begins listening and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("server listening", zap.String("addr", addr), zap.String("version", s.cfg.Version))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP lets the server act as a plain http.Handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
