package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/auth"
	"github.com/openclaw/sessionkeeper/internal/backup"
	"github.com/openclaw/sessionkeeper/internal/chat"
	"github.com/openclaw/sessionkeeper/internal/config"
	"github.com/openclaw/sessionkeeper/internal/database"
	"github.com/openclaw/sessionkeeper/internal/events"
	"github.com/openclaw/sessionkeeper/internal/handler"
	"github.com/openclaw/sessionkeeper/internal/jobs"
	"github.com/openclaw/sessionkeeper/internal/middleware"
	"github.com/openclaw/sessionkeeper/internal/phone"
	"github.com/openclaw/sessionkeeper/internal/proxy"
	"github.com/openclaw/sessionkeeper/internal/redis"
	"github.com/openclaw/sessionkeeper/internal/remote"
	"github.com/openclaw/sessionkeeper/internal/repository"
	"github.com/openclaw/sessionkeeper/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	egressPool, err := cfg.ProxyURLs()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid egress proxies")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewAccountSessionRepository(db.DB)

	resolver := proxy.NewResolver(egressPool, sessionRepo)
	connector := remote.NewGatewayConnector(cfg.RemoteGatewayURL, config.RemoteGatewayTimeout)
	botClient := chat.NewClient(cfg.BotAPIURL, cfg.BotToken, config.BotAPITimeout)
	surface := chat.NewSurface(botClient)
	backups := backup.NewWriter(cfg.BackupDir)
	publisher := events.NewPublisher(redisClient.Client)

	persister := auth.NewPersister(sessionRepo, backups, publisher, cfg.EncryptionKey)
	orchestrator := auth.NewOrchestrator(
		auth.NewStore(), surface, resolver, connector, phone.NewLocator(), persister,
		auth.Options{PasswordMaxAttempts: cfg.AuthPasswordMaxAttempts},
	)

	dedup := service.NewUpdateDeduplicator(redisClient.Client, config.UpdateDedupTTL)
	accountService := service.NewAccountService(sessionRepo, backups, cfg.EncryptionKey)

	webhookSecretMiddleware := middleware.NewWebhookSecretMiddleware(cfg.WebhookSecret)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	botHandler := handler.NewBotHandler(orchestrator, surface, dedup)
	adminHandler := handler.NewAdminHandler(accountService, orchestrator, adminAuthMiddleware.Handler)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"active":    orchestrator.Active(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/webhook", func(r chi.Router) {
		r.Use(webhookSecretMiddleware.Handler)
		r.Post("/", botHandler.Webhook)
	})

	r.Mount("/v1", adminHandler.Routes())

	reaperJob := jobs.NewReaperJob(orchestrator, cfg.AuthIdleTimeout(), config.ReaperJobInterval)
	reaperJob.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Int("egressProxies", resolver.Size()).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	reaperJob.Stop()

	// In-flight attempts are process-local; tell their users before exiting.
	if n := orchestrator.Shutdown(shutdownCtx); n > 0 {
		log.Info().Int("discarded", n).Msg("discarded in-flight authentications")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
