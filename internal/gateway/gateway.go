// ABOUTME: Gateway orchestrator that wires the registry, router, sessions, and proxy
// ABOUTME: behind an HTTP server, and manages startup and graceful shutdown.

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/parley-gateway/internal/agent"
	"github.com/2389/parley-gateway/internal/config"
	"github.com/2389/parley-gateway/internal/proxy"
	"github.com/2389/parley-gateway/internal/registry"
	"github.com/2389/parley-gateway/internal/router"
	"github.com/2389/parley-gateway/internal/session"
	"github.com/2389/parley-gateway/internal/stats"
)

// Gateway orchestrates the parley-gateway server components. It owns the
// HTTP server and the wired-together registry, router, session store,
// agent set, and conversation proxy.
type Gateway struct {
	config     *config.Config
	registry   *registry.Registry
	sessions   *session.Store
	counters   *stats.Counters
	proxy      *proxy.Proxy
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	agents, err := buildAgentSet(cfg, logger)
	if err != nil {
		return nil, err
	}

	rtr, err := buildRouter(cfg, reg, logger)
	if err != nil {
		return nil, err
	}

	clarifier, err := buildClarifier(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(cfg.Session.HistoryLimit, logger.With("component", "sessions"))
	counters := stats.NewCounters()

	px, err := proxy.New(proxy.Config{
		Registry:  reg,
		Router:    rtr,
		Sessions:  sessions,
		Agents:    agents,
		Counters:  counters,
		Clarifier: clarifier,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating proxy: %w", err)
	}

	gw := &Gateway{
		config:   cfg,
		registry: reg,
		sessions: sessions,
		counters: counters,
		proxy:    px,
		logger:   logger.With("component", "gateway"),
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/", gw.handleRoot)
	mux.Get("/health", gw.handleHealth)
	mux.Post("/agent_chat", gw.handleAgentChat)
	mux.Get("/session_status/{session_id}", gw.handleSessionStatus)
	mux.Post("/set_preference", gw.handleSetPreference)
	mux.Post("/execute_command", gw.handleExecuteCommand)
	mux.Post("/clear_session/{session_id}", gw.handleClearSession)
	mux.Post("/clear_chat_history", gw.handleClearChatHistory)
	mux.Get("/agent_status", gw.handleAgentStatus)

	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			stats.NewCollector(counters),
		)
		mux.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler returns the gateway's HTTP handler, for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// buildRegistry converts configured agents into registry descriptors.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	descriptors := make([]registry.Descriptor, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		descriptors = append(descriptors, registry.Descriptor{
			ID:             a.ID,
			Name:           a.Name,
			Keywords:       a.Keywords,
			Aliases:        a.Aliases,
			CapabilityTags: a.CapabilityTags,
		})
	}

	reg, err := registry.New(descriptors...)
	if err != nil {
		return nil, fmt.Errorf("building registry: %w", err)
	}
	return reg, nil
}

// buildAgentSet constructs the invoker for each configured agent type.
func buildAgentSet(cfg *config.Config, logger *slog.Logger) (*agent.Set, error) {
	set := agent.NewSet()

	for _, a := range cfg.Agents {
		var inv agent.Invoker
		switch a.Type {
		case "http":
			inv = agent.NewHTTPAgent(a.ID, a.Endpoint, a.Timeout, logger)
		case "math":
			inv = agent.NewMathAgent()
		case "echo":
			inv = agent.NewEchoAgent("")
		default:
			return nil, fmt.Errorf("agent %q: unknown type %q", a.ID, a.Type)
		}
		if err := set.Register(a.ID, inv); err != nil {
			return nil, fmt.Errorf("registering agent %q: %w", a.ID, err)
		}
	}

	return set, nil
}

// buildRouter compiles the boost patterns and constructs the keyword router.
func buildRouter(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) (*router.Router, error) {
	boosts, err := router.CompileBoosts(boostSpecs(cfg))
	if err != nil {
		return nil, fmt.Errorf("compiling boosts: %w", err)
	}

	rtr, err := router.New(router.Config{
		Registry:     reg,
		DefaultAgent: cfg.Routing.DefaultAgent,
		Boosts:       boosts,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building router: %w", err)
	}
	return rtr, nil
}

func boostSpecs(cfg *config.Config) []router.BoostSpec {
	specs := make([]router.BoostSpec, 0, len(cfg.Routing.Boosts))
	for _, b := range cfg.Routing.Boosts {
		specs = append(specs, router.BoostSpec{
			AgentID: b.Agent,
			Pattern: b.Pattern,
			Weight:  b.Weight,
		})
	}
	return specs
}

// buildClarifier maps the clarification config onto the proxy's heuristics.
// An empty config section falls back to the built-in defaults.
func buildClarifier(cfg *config.Config) (*proxy.Clarifier, error) {
	cc := cfg.Clarification
	if len(cc.AnaphoraWords) == 0 && len(cc.VaguePatterns) == 0 && len(cc.Params) == 0 {
		return proxy.NewClarifier(proxy.DefaultClarifierConfig())
	}

	clarifierCfg := proxy.ClarifierConfig{
		AnaphoraWords:   cc.AnaphoraWords,
		MinHistoryTurns: cc.MinHistoryTurns,
	}
	if clarifierCfg.MinHistoryTurns == 0 {
		clarifierCfg.MinHistoryTurns = 1
	}

	for _, pat := range cc.VaguePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("compiling vague pattern %q: %w", pat, err)
		}
		clarifierCfg.VaguePatterns = append(clarifierCfg.VaguePatterns, re)
	}

	for _, p := range cc.Params {
		re, err := regexp.Compile(p.ParamPattern)
		if err != nil {
			return nil, fmt.Errorf("compiling param pattern for rule %q: %w", p.Name, err)
		}
		clarifierCfg.Rules = append(clarifierCfg.Rules, proxy.ParamRule{
			Name:          p.Name,
			Keywords:      p.Keywords,
			ParamPattern:  re,
			PreferenceKey: p.PreferenceKey,
			HintLabel:     p.HintLabel,
			Prompt:        p.Prompt,
			Examples:      p.Examples,
			Suggestion:    p.Suggestion,
		})
	}

	return proxy.NewClarifier(clarifierCfg)
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")
	if err := g.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
