package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"youthportal/api/internal/cache"
	"youthportal/api/internal/config"
	"youthportal/api/internal/database"
	"youthportal/api/internal/handlers"
	"youthportal/api/internal/jobs"
	"youthportal/api/internal/log"
	"youthportal/api/internal/metrics"
	"youthportal/api/internal/repository"
	"youthportal/api/internal/security"
	"youthportal/api/internal/server"
	"youthportal/api/internal/service"
	"youthportal/api/internal/session"
	"youthportal/api/internal/storage"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		Long: `Run the HTTP API and the maintenance scheduler.

Startup fails if PostgreSQL or the Redis session store cannot be reached;
the service never accepts requests it cannot authenticate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending database migrations before serving")

	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(cfg.Environment)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect postgres")
		return err
	}
	defer dbPool.Close()

	if migrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect redis")
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}()

	sessionRepo := repository.NewSessionRepository(redisClient, cfg.Session.KeyPrefix)
	sessions := session.NewManager(session.Options{
		Store:         sessionRepo,
		Timeout:       cfg.Session.Timeout,
		WarningWindow: cfg.Session.WarningWindow,
		Logger:        log.Component(logger, "sessions"),
		ExpiredGrace:  cfg.Session.ExpiredGrace,
	})
	if err := sessions.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("session store unavailable")
		return err
	}

	tokens := security.NewTokenIssuer(cfg.Security.JWTAccessSecret, cfg.Security.JWTAccessTTL)
	cookie := security.NewSessionCookie(cfg.Session.Secret, security.CookieOptions{
		Name:     cfg.Session.CookieName,
		Domain:   cfg.Session.CookieDomain,
		Secure:   cfg.Session.CookieSecure,
		SameSite: cfg.Session.SameSite(),
		MaxAge:   cfg.Session.Timeout,
	})
	m := metrics.New()

	authService := service.NewAuthService(
		repository.NewUserRepository(dbPool),
		sessions,
		tokens,
		log.Component(logger, "auth"),
	)

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Config:   cfg,
		Logger:   logger,
		Auth:     authService,
		Sessions: sessions,
		Cookie:   cookie,
		Tokens:   tokens,
		Metrics:  m,
		Database: dbPool,
	})
	httpServer := server.NewHTTPServer(cfg, logger, m, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs, sessionRepo, tempCleaner(ctx, cfg, logger), m, log.Component(logger, "jobs"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server exited cleanly")
	return nil
}

// tempCleaner returns nil when object storage is not configured, which
// leaves the cleanup job unscheduled.
func tempCleaner(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) jobs.TempCleaner {
	if cfg.Storage.Endpoint == "" {
		logger.Info().Msg("object storage not configured, temp cleanup disabled")
		return nil
	}
	store, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Warn().Err(err).Msg("object store init failed, temp cleanup disabled")
		return nil
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}
	return store
}
