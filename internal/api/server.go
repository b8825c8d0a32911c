package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"midnight-chase/internal/config"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub that feeds the gateway.
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: No listener is opened until Start() is called.
// For testing HTTP endpoints, use Router() with httptest.
func NewServer(rooms RoomsInterface, handler MessageHandler, cfg config.AppConfig) *Server {
	s := &Server{
		wsHub: NewWebSocketHub(HubConfig{
			Handler:        handler,
			MaxConnections: cfg.Limits.MaxWSConnections,
			MaxPerIP:       cfg.Limits.MaxWSPerIP,
			AllowedOrigins: cfg.Server.CORSOrigins,
		}),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
	}

	s.router = NewRouter(RouterConfig{
		Rooms:          rooms,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.Server.CORSOrigins,
		StaticFilesDir: cfg.Server.StaticDir,
	})

	// WebSocket route needs the hub instance, so it is not part of NewRouter
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
	s.httpServer = &http.Server{Handler: s.router}

	return s
}

// Start serves HTTP on addr until Shutdown is called.
// Returns nil after a graceful shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎮 Client: http://localhost%s/", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
//
// Example:
//
//	server := api.NewServer(registry, gateway, config.Load())
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/rooms")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes every websocket and stops
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	// Hijacked websocket connections are not tracked by http.Server
	s.wsHub.CloseAll()
	s.rateLimiter.Stop()
	return err
}
