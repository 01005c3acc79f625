// Package app wires configuration, storage, services, and the HTTP server
// into a running gateway process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	agentclient "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/agent"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/events"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres"
	draftrepo "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/draft"
	listingrepo "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/listing"
	profilerepo "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/profile"
	safetyflagrepo "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/safetyflag"
	securityrepo "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/security"
	sessionrepo "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/postgres/session"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/vision"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/auth"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/draft"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/gateway"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/pinauth"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/router"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/safety"
	sessionsvc "github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/service/session"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/transport/middleware"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, connects to
// the database, builds the turn pipeline, and serves HTTP until ctx is
// cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting gateway",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	clock := clockwork.NewRealClock()
	tx := postgres.NewTxManager(pool)

	producer := events.NewProducer(cfg.Kafka)
	if producer != nil {
		defer producer.Close() //nolint:errcheck
		logger.Info("kafka producer enabled", slog.Any("brokers", cfg.Kafka.Brokers))
	}

	drafts := draftrepo.New(pool)

	pinAuth := pinauth.NewService(logger, securityrepo.New(pool), tx, clock, cfg.Pin)
	sessions := sessionsvc.NewManager(logger, sessionrepo.New(pool), drafts, tx, clock, cfg.Session)
	gate := safety.NewGate(logger, vision.NewClient(logger, cfg.Safety), safetyflagrepo.New(pool), producer, clock, cfg.Safety)
	intents := router.New(cfg.Router)
	fsm := draft.NewFSM(logger, drafts, listingrepo.New(pool), producer, clock)
	agent := agentclient.NewClient(logger, cfg.Agent)

	controller := gateway.NewController(logger, gate, profilerepo.New(pool), pinAuth, sessions, intents, fsm, agent, clock, cfg.Turn)

	var turnHandler *rest.TurnHandler
	if cfg.Auth.JWTSecret != "" {
		turnHandler = rest.NewTurnHandler(controller, auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer), logger)
	} else {
		turnHandler = rest.NewTurnHandler(controller, nil, logger)
	}
	healthHandler := rest.NewHealthHandler(pool, BuildVersion())

	server := newServer(cfg, logger, turnHandler, healthHandler)
	sweeper := sessionsvc.NewSweeper(logger, sessions, cfg.Session.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session sweeper: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("gateway stopped")
	return nil
}

func newServer(cfg *config.Config, logger *slog.Logger, turnHandler *rest.TurnHandler, healthHandler *rest.HealthHandler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /turn", turnHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.IdleTimeout)
	chain := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORS),
		rateLimiter.Limit(cfg.RateLimit.MaxPerMinute),
	)

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      chain(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
