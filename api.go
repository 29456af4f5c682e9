package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"skyrelay/store"
)

// Version is the current bridge version. Set at build time via -ldflags.
var Version = "0.1.0-dev"

// APIServer provides a small HTTP admin surface alongside the webtransport
// bridge: health checks, peer/subscription/cache counts, and keybinding
// inspection/reload.
type APIServer struct {
	host     *TransportHost
	engine   *StreamEngine
	resolver *KeybindingResolver
	watcher  *KeyfileWatcher
	store    *store.Store
	echo     *echo.Echo
}

func NewAPIServer(host *TransportHost, engine *StreamEngine, resolver *KeybindingResolver, watcher *KeyfileWatcher, st *store.Store) *APIServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[api] %s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = jsonErrorHandler

	s := &APIServer{host: host, engine: engine, resolver: resolver, watcher: watcher, store: st, echo: e}
	s.registerRoutes()
	return s
}

func (s *APIServer) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/version", s.handleVersion)
	s.echo.GET("/api/subscriptions", s.handleSubscriptions)
	s.echo.GET("/api/keybindings", s.handleGetKeybindings)
	s.echo.POST("/api/keybindings/reload", s.handleReloadKeybindings)
	s.echo.GET("/api/metrics", s.handleMetrics)
}

// Run starts the Echo HTTP server on addr and blocks until ctx is cancelled.
func (s *APIServer) Run(ctx context.Context, addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutCtx); err != nil {
		log.Printf("[api] shutdown: %v", err)
	}
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Peers         int    `json:"peers"`
	Subscriptions int    `json:"subscriptions"`
}

func (s *APIServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Peers:         s.host.PeerCount(),
		Subscriptions: s.engine.ActiveCount(),
	})
}

// VersionResponse is the payload for GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

func (s *APIServer) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, VersionResponse{Version: Version})
}

// SubscriptionsResponse is the payload for GET /api/subscriptions.
type SubscriptionsResponse struct {
	Peers         int `json:"peers"`
	Subscriptions int `json:"subscriptions"`
	CacheEntries  int `json:"cache_entries"`
	CacheBytes    int `json:"cache_bytes"`
}

func (s *APIServer) handleSubscriptions(c echo.Context) error {
	entries, bytes := s.engine.CacheStats()
	return c.JSON(http.StatusOK, SubscriptionsResponse{
		Peers:         s.host.PeerCount(),
		Subscriptions: s.engine.ActiveCount(),
		CacheEntries:  entries,
		CacheBytes:    bytes,
	})
}

// KeybindingsResponse is the payload for GET /api/keybindings.
type KeybindingsResponse struct {
	Source string   `json:"source"`
	Count  int      `json:"count"`
	Names  []string `json:"names"`
}

func (s *APIServer) handleGetKeybindings(c echo.Context) error {
	table := s.resolver.Table()
	names := make([]string, 0, len(table.Entries))
	for name := range table.Entries {
		names = append(names, name)
	}
	return c.JSON(http.StatusOK, KeybindingsResponse{
		Source: table.Source,
		Count:  len(table.Entries),
		Names:  names,
	})
}

// ReloadResponse is the payload for POST /api/keybindings/reload.
type ReloadResponse struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// handleReloadKeybindings forces an out-of-cycle keyfile check rather than
// waiting for the watcher's next poll.
func (s *APIServer) handleReloadKeybindings(c echo.Context) error {
	s.watcher.checkOnce(nil)
	table := s.resolver.Table()
	return c.JSON(http.StatusOK, ReloadResponse{Source: table.Source, Count: len(table.Entries)})
}

// MetricsResponse includes runtime metrics for health monitoring.
type MetricsResponse struct {
	Status              string `json:"status"`
	Peers               int    `json:"peers"`
	Subscriptions       int    `json:"subscriptions"`
	UnresolvedCallbacks int    `json:"unresolved_callbacks"`
}

func (s *APIServer) handleMetrics(c echo.Context) error {
	resp := MetricsResponse{
		Status:        "ok",
		Peers:         s.host.PeerCount(),
		Subscriptions: s.engine.ActiveCount(),
	}
	if s.store != nil {
		if n, err := s.store.ResolveFailureCount(); err == nil {
			resp.UnresolvedCallbacks = n
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// jsonErrorHandler ensures all error responses have a consistent JSON body:
//
//	{"error": "message"}
//
// This replaces Echo's default handler which varies between text and JSON.
func jsonErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			c.NoContent(code) //nolint:errcheck
		} else {
			c.JSON(code, map[string]string{"error": msg}) //nolint:errcheck
		}
	}
}
