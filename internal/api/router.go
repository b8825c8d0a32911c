package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"midnight-chase/internal/config"
	"midnight-chase/internal/game"
	"midnight-chase/internal/metrics"
	"midnight-chase/internal/room"
)

// RoomsInterface defines the registry methods used by the HTTP API.
// This interface enables mocking for tests without running room tasks.
type RoomsInterface interface {
	// Rooms lists the live rooms
	Rooms() []room.Info
	// Snapshot returns the client view of one room
	Snapshot(code string) (game.Snapshot, bool)
	// Count returns the number of live rooms
	Count() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Rooms: mockRooms,
//	    RateLimitConfig: &config.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Rooms is the room registry (required)
	Rooms RoomsInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, uses config.DefaultRateLimit().
	RateLimitConfig *config.RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// StaticFilesDir is the directory holding the browser client.
	// If empty, defaults to "./public".
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	rooms       RoomsInterface
	rateLimiter *IPRateLimiter
	started     time.Time
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the rate limiter's cleanup goroutine:
//   - No room tasks are started
//   - No network listeners are opened
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := config.DefaultRateLimit()
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{
		rooms:       cfg.Rooms,
		rateLimiter: rateLimiter,
		started:     time.Now(),
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.handleListRooms)
		r.Get("/rooms/{code}", h.handleGetRoom)
		r.Get("/rooms/{code}/minimap.png", h.handleMinimap)
	})

	// Browser client
	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./public"
	}
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}

// requestMetrics records latency per route pattern, keeping label cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		metrics.RecordRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
