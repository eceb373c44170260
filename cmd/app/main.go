package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/azatarm-prog/telegive-giveaway/internal/clients"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/cache"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/config"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/logger"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/middleware"
	giveawayHTTP "github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/delivery/http"
	giveawayRepo "github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/repository/postgres"
	giveawayService "github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/service"
	healthHTTP "github.com/azatarm-prog/telegive-giveaway/internal/features/health/delivery/http"
	"github.com/azatarm-prog/telegive-giveaway/internal/platform/postgres"
	"github.com/azatarm-prog/telegive-giveaway/internal/platform/redis"
)

func main() {
	// Инициализируем конфигурацию (.env подхватывается внутри Load)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("telegive-giveaway", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("Starting giveaway service")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize Sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Инициализируем базу данных
	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	// Инициализируем Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := redis.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)

	// Клиенты коллабораторов
	authClient := clients.NewAuthClient(cfg.Services.AuthURL, cfg.Services.HealthTimeout)
	channelClient := clients.NewChannelClient(cfg.Services.ChannelURL, cfg.Services.HealthTimeout)
	participantClient := clients.NewParticipantClient(cfg.Services.ParticipantURL, cfg.Services.HealthTimeout)
	botClient := clients.NewBotClient(cfg.Services.BotURL, cfg.Services.HealthTimeout)
	mediaClient := clients.NewMediaClient(cfg.Services.MediaURL, cfg.Services.HealthTimeout)

	repo := giveawayRepo.NewRepository(postgresClient.GetDB())

	svc := giveawayService.NewService(
		repo,
		cacheService,
		authClient,
		channelClient,
		participantClient,
		botClient,
		mediaClient,
		giveawayService.Options{
			MaxWinnerCount:      cfg.Giveaway.MaxWinnerCount,
			ResultTokenLength:   cfg.Giveaway.ResultTokenLength,
			TokenMaxAttempts:    cfg.Giveaway.TokenMaxAttempts,
			CleanupDelayMinutes: cfg.Giveaway.CleanupDelayMinutes,
			StatsCacheTTL:       cfg.Giveaway.StatsCacheTTL,
		},
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID", "X-Service-Name"}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	giveawayHTTP.NewGiveawayHandler(svc).RegisterRoutes(api)
	healthHTTP.NewHealthHandler(postgresClient,
		authClient, channelClient, participantClient, botClient, mediaClient,
	).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
