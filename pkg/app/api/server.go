// Package api implements app.Runner for the session middleware process.
package api

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/drippyfi/dualchain-middleware/pkg/app/http"
	"github.com/drippyfi/dualchain-middleware/pkg/config"
	"github.com/drippyfi/dualchain-middleware/pkg/evm"
	"github.com/drippyfi/dualchain-middleware/pkg/network"
	"github.com/drippyfi/dualchain-middleware/pkg/reconcile"
	"github.com/drippyfi/dualchain-middleware/pkg/session"
	"github.com/drippyfi/dualchain-middleware/pkg/xaman"
	"github.com/drippyfi/dualchain-middleware/pkg/xrpl"
)

const defaultRequestTimeout = 60 * time.Second

// Server holds cfg to init the session middleware server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new session middleware server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting session middleware",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	var overrides map[string]network.Override
	if cfg.Networks.OverridesPath != "" {
		overrides, err = network.LoadOverrides(cfg.Networks.OverridesPath)
		if err != nil {
			return fmt.Errorf("load network overrides: %w", err)
		}
		logger.Info("Loaded network endpoint overrides", zap.Int("count", len(overrides)))
	}

	ledger, err := xrpl.NewClient(logger.Named("xrpl"), xrpl.Options{})
	if err != nil {
		return fmt.Errorf("create ledger client: %w", err)
	}

	bridge, err := xaman.New(xaman.Config{
		APIKey:     cfg.Agent.APIKey,
		BaseURL:    cfg.Agent.BaseURL,
		DetectHost: cfg.Agent.DetectHost,
	}, logger.Named("xaman"), xaman.Options{PollInterval: cfg.Agent.PollInterval})
	if err != nil {
		return fmt.Errorf("create agent bridge: %w", err)
	}

	engine := reconcile.New(reconcile.AssetConfig{
		Issuer:   cfg.Asset.Issuer,
		Currency: cfg.Asset.Currency,
	}, logger.Named("reconcile"))

	sidechain := evm.NewConnector(cfg.Sidechain.Address, logger.Named("evm"))
	defer sidechain.Close()

	facade, err := session.New(session.Deps{
		Ledger:    ledger,
		Bridge:    bridge,
		Engine:    engine,
		Sidechain: sidechain,
		Prefs:     network.NewFileStore(cfg.Preferences.Path),
		Overrides: overrides,
		Asset: session.AssetParams{
			Issuer:   cfg.Asset.Issuer,
			Currency: cfg.Asset.Currency,
			Limit:    cfg.Asset.TrustlineLimit,
		},
		RefreshInterval: cfg.Reconciliation.Interval,
		Logger:          logger.Named("session"),
	})
	if err != nil {
		return fmt.Errorf("create session facade: %w", err)
	}

	facade.Start(ctx)
	defer facade.Close()

	router := setupRouter(facade, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func setupRouter(facade *session.Facade, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	h := newHandler(facade, logger)

	r.Get("/health", h.health)
	r.Get("/networks", h.listNetworks)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Post("/connect", h.connectWallet)
		r.Post("/connect/close", h.closeConnectModal)
		r.Post("/authorized", h.authorized)
		r.Post("/disconnect", h.disconnectWallet)
		r.Post("/refresh", h.refresh)
		r.Post("/network", h.switchNetwork)
		r.Post("/network/toggle", h.toggleEnvironment)
		r.Post("/trustline", h.requestTrustLine)
		r.Get("/trustline/deeplink", h.trustLineDeepLink)
	})

	return r
}
