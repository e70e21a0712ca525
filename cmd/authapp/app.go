package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/browser"
	"github.com/jrsteele09/go-auth-session/credential/apple"
	"github.com/jrsteele09/go-auth-session/internal/config"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/router"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// app holds everything wired at startup. It is built once per command and
// closed at exit.
type app struct {
	cfg           config.Config
	backend       storage.Backend
	store         *storage.State
	client        *provider.Client
	router        *router.Router
	manager       *sessions.Manager
	metricsServer *http.Server
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if missing := config.Validate(cfg); len(missing) > 0 {
		log.Error().Err(autherrors.ErrConfigMissing).Strs("missing", missing).Msg("Auth provider is not configured")
	}

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := provider.New(cfg.GetProjectURL(), cfg.GetAnonKey(),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		provider.WithStorage(backend, cfg.GetStorageKey()),
		provider.WithRefreshMargin(cfg.GetRefreshMargin()),
	)

	loopback := browser.NewLoopbackSession(cfg.GetCallbackAddr(), browser.WithTimeout(cfg.GetBrowserTimeout()))
	appleRequester := apple.NewWebRequester(
		cfg.GetAppleClientID(),
		cfg.GetAppleRedirectURI(),
		loopback,
		apple.NewVerifier(ctx, cfg.GetAppleClientID()),
	)

	a := &app{
		cfg:     cfg,
		backend: backend,
		store:   storage.NewState(backend, cfg.GetStorageKey()),
		client:  client,
		router:  router.New(),
	}

	a.manager, err = sessions.NewManager(sessions.Deps{
		Auth:      client,
		Storage:   a.store,
		Apple:     appleRequester,
		Browser:   loopback,
		Navigator: a.router,
	},
		sessions.WithRedirectURI(cfg.GetRedirectURI()),
		sessions.WithGoogleQueryParams(cfg.GetGoogleQueryParams()),
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	if addr := cfg.GetMetricsAddr(); addr != "" {
		a.metricsServer = serveMetrics(addr)
	}
	return a, nil
}

// start mounts the session manager and waits until the stored session has
// been restored, then routes the index screen.
func (a *app) start(ctx context.Context) error {
	a.manager.Mount(ctx)
	a.client.StartAutoRefresh(ctx, time.Minute)

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.GetRequestTimeout()+5*time.Second)
	defer cancel()
	if err := a.manager.WaitUntilRestored(waitCtx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}

	state := a.manager.State()
	if decision := router.Resolve(state.IsLoading, state.Session != nil); decision.Redirect != "" {
		a.router.Replace(decision.Redirect)
	}
	return nil
}

func (a *app) email() string {
	return utils.Value(a.manager.State().User).Email
}

func (a *app) close() {
	a.manager.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("Pending storage writes did not finish")
	}
	if err := a.backend.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}
}

func serveMetrics(addr string) *http.Server {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	return server
}

func parseProvider(name string) (string, error) {
	switch strings.ToLower(name) {
	case "apple", "google":
		return strings.ToLower(name), nil
	default:
		return "", fmt.Errorf("unknown provider %q, expected apple or google", name)
	}
}
