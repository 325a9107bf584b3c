// Package server exposes the odds proxy over HTTP: it serves cached team
// views, refreshes them from the odds provider on a miss and maps every
// failure onto a JSON error response.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/briefing"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/cache"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/circuitbreaker"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/config"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/fetch"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/otel"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/transform"
)

// nbaDataEndpoint is the cache namespace for team views
const nbaDataEndpoint = "/api/v1/nba-data"

// availableEndpoints is listed in the body of unknown /api routes
var availableEndpoints = []string{
	"GET /api/v1/health",
	"GET /api/v1/nba-data",
	"GET /api/v1/win-probability?teamA=<id>&teamB=<id>",
	"POST /api/v1/briefing",
	"GET /api/v1/status",
}

// Briefer writes a displayable matchup preview. It must not fail.
type Briefer interface {
	Generate(ctx context.Context, a, b model.TeamView) string
}

// Deps are the collaborators a Server is built from. Nil fields are
// replaced by production implementations derived from the config.
type Deps struct {
	Client      fetch.Client
	Transformer *transform.Transformer
	Briefing    Briefer
	Now         func() time.Time
}

// Server represents the odds proxy instance
type Server struct {
	cfg         config.Config
	query       fetch.OddsQuery
	client      fetch.Client
	cache       *cache.ResponseCache
	transformer *transform.Transformer
	breaker     *circuitbreaker.CircuitBreaker
	limiter     *rate.Limiter
	briefing    Briefer
	metrics     *serverMetrics
	now         func() time.Time
	startTime   time.Time
	router      chi.Router
}

// New creates a server with its routes registered
func New(cfg config.Config, deps Deps) *Server {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		cfg: cfg,
		query: fetch.OddsQuery{
			Sport:      cfg.Odds.Sport,
			Regions:    cfg.Odds.Regions,
			Markets:    cfg.Odds.Markets,
			OddsFormat: cfg.Odds.OddsFormat,
		},
		metrics:     registerMetrics(),
		client:      deps.Client,
		transformer: deps.Transformer,
		briefing:    deps.Briefing,
		now:         now,
		startTime:   now(),
	}

	if s.client == nil {
		s.client = fetch.NewOddsClient(fetch.Options{
			BaseURL: cfg.Odds.BaseURL,
			APIKey:  cfg.Odds.APIKey,
			Timeout: cfg.Odds.Timeout,
			OnQuota: s.metrics.observeQuota,
		})
	}
	if s.transformer == nil {
		s.transformer = transform.New(nil)
	}
	if s.briefing == nil {
		s.briefing = briefing.New(briefing.Options{
			URL:     cfg.Briefing.APIURL,
			APIKey:  cfg.Briefing.APIKey,
			Model:   cfg.Briefing.Model,
			Timeout: cfg.Briefing.Timeout,
		})
	}

	s.cache = cache.New(cfg.Cache.TTL(), cfg.Cache.Enabled).
		WithClock(now).
		WithObserver(s.metrics.observeCache)

	if cfg.Breaker.Enabled {
		s.breaker = circuitbreaker.New(cfg.Breaker.FailureThreshold).
			WithResetDelay(cfg.Breaker.Cooldown).
			WithClock(now).
			WithStateCallback(s.metrics.observeBreaker).
			WithTripCallback(func(reason string) {
				logrus.Warnf("Circuit breaker tripped: %s", reason)
			})
	}

	if cfg.RateLimit.Enabled {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
		logrus.Infof("Rate limiting initialized: %v req/s, burst: %d", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	s.router = s.routes()

	logrus.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"environment":     cfg.Environment,
		"sport":           cfg.Odds.Sport,
		"cache_enabled":   cfg.Cache.Enabled,
		"cache_ttl":       cfg.Cache.TTL(),
		"circuit_breaker": cfg.Breaker.Enabled,
		"rate_limit":      cfg.RateLimit.Enabled,
		"metrics":         cfg.EnableMetrics,
	}).Info("Server initialized")

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(s.handleNotFound)
	r.Get("/health", s.handleHealth)
	if s.cfg.EnableMetrics {
		r.Handle("/metrics", s.metrics.handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter))
		}

		r.Get("/health", s.handleAPIHealth)
		r.Get("/nba-data", s.handleNBAData)
		r.Get("/win-probability", s.handleWinProbability)
		r.Post("/briefing", s.handleBriefing)
		r.Get("/status", s.handleStatus)
	})

	// Legacy path kept for older clients
	r.Get("/api/nba-data", s.handleLegacyRedirect)
	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("Server stopped")
	return nil
}

// loadTeams returns the current team views from the cache, refreshing
// them from the provider on a miss. The provider call is not cancelled
// when the inbound request is.
func (s *Server) loadTeams(ctx context.Context) (model.TeamMap, error) {
	key := cache.Key(nbaDataEndpoint, s.query.Params())
	if payload, ok := s.cache.Get(key); ok {
		if teams, ok := payload.(model.TeamMap); ok {
			return teams, nil
		}
	}

	if s.breaker != nil {
		if err := s.breaker.Allow(); err != nil {
			return nil, err
		}
	}

	ctx, span := otel.Tracer().Start(context.WithoutCancel(ctx), "nba-data.refresh")
	defer span.End()

	games, err := s.client.FetchOdds(ctx, s.query)
	s.recordUpstream(err)
	if err != nil {
		otel.RecordError(ctx, err)
		return nil, err
	}
	if len(games) == 0 {
		return nil, errNoData
	}

	teams := s.transformer.Transform(games)
	if len(teams) == 0 {
		return nil, errNoData
	}

	s.cache.Set(key, teams)
	logrus.WithFields(logrus.Fields{
		"games": len(games),
		"teams": len(teams),
	}).Debug("Team views refreshed")
	return teams, nil
}

// recordUpstream updates breaker and metrics with the outcome of a fetch
func (s *Server) recordUpstream(err error) {
	if err == nil {
		if s.breaker != nil {
			s.breaker.RecordSuccess()
		}
		return
	}

	kind, counts := upstreamFailureKind(err)
	s.metrics.upstreamErrors.WithLabelValues(kind).Inc()
	if counts && s.breaker != nil {
		s.breaker.RecordFailure(err.Error())
	}
}
