package main

import (
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tallyhour/tallyhour/internal/auth"
	"github.com/tallyhour/tallyhour/internal/config"
	"github.com/tallyhour/tallyhour/internal/distribution"
	"github.com/tallyhour/tallyhour/internal/kv/sqlite"
	"github.com/tallyhour/tallyhour/internal/ledger"
	"github.com/tallyhour/tallyhour/internal/metrics"
	"github.com/tallyhour/tallyhour/internal/middleware"
	"github.com/tallyhour/tallyhour/internal/registry"
	"github.com/tallyhour/tallyhour/internal/server"
	"github.com/tallyhour/tallyhour/internal/timer"
	"github.com/tallyhour/tallyhour/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	identity := registry.NewIdentity(store)
	membership := registry.NewMembership(store)
	cascade := ledger.NewCascade(store)
	timers := timer.New(store, cascade)
	distributor := distribution.New(store, cascade)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(identity)
	tokens := auth.NewTokenStore(store)

	authHandler := server.NewAuthHandler(authenticator, jwtManager, tokens)
	projectHandler := server.NewProjectHandler(membership, distributor, cfg.InviteTTL)
	ledgerHandler := server.NewLedgerHandler(cascade, timers)

	protected := http.NewServeMux()
	authHandler.RegisterProtected(protected)
	projectHandler.Register(protected)
	ledgerHandler.Register(protected)

	mux := http.NewServeMux()
	authHandler.Register(mux)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", middleware.RequireAuth(jwtManager, tokens, protected))

	handler := middleware.Logging(middleware.CORS(mux))

	// h2c allows HTTP/2 without TLS behind a terminating proxy.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := cfg.HTTPAddress()
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
