package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dario/internal/config"
	"dario/internal/handler"
	"dario/internal/logger"
	"dario/internal/metrics"
	"dario/internal/middleware"
	"dario/internal/repository"
	"dario/internal/response"
	"dario/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.Logging.Level)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting dario")

	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()
	logger.Info().Str("database", cfg.PostgreSQL.Database).Msg("connected to PostgreSQL")

	m := metrics.NewMetrics(nil)
	hub := service.NewHub(m)

	broadcaster, closeBroadcaster := newBroadcaster(ctx, cfg, hub)
	defer closeBroadcaster()

	detector, closeDetector := newDetector(ctx, cfg)
	defer closeDetector()

	search := service.NewListingSearch(repo)
	ratings := service.NewRatingService(repo, m)
	chatbot := service.NewChatbot(
		service.ChatbotConfig{
			BotUserID: cfg.Chatbot.BotUserID,
			Language:  cfg.Chatbot.Language,
			Currency:  cfg.Chatbot.Currency,
		},
		detector,
		search,
		repo,
		broadcaster,
		m,
	)

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.Chatbot.RateLimitRPS, cfg.Chatbot.RateLimitBurst)
	go limiter.Run(ctx)

	evaluationHandler := handler.NewEvaluationHandler(ratings)
	chatbotHandler := handler.NewChatbotHandler(chatbot)
	realtimeHandler := handler.NewRealtimeHandler(ctx, chatbot, hub, limiter, cfg.Server.AllowedOrigins)
	searchHandler := handler.NewSearchHandler(search)
	embeddingHandler := handler.NewEmbeddingHandler(search)

	router := gin.New()
	router.Use(logger.GinLogger(), logger.GinRecovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 1 && cfg.Server.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "dario",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/", auth.AuthRequired())
	{
		evaluationHandler.Register(authed)

		authed.POST("/chatbot", limiter.Middleware(), chatbotHandler.Send)
		authed.GET("/chatbot", chatbotHandler.History)
		authed.GET("/chatbot/ws", realtimeHandler.Serve)
	}

	listings := router.Group("/api/v1/listings")
	{
		listings.GET("/search", searchHandler.Search)
		listings.GET("/:id", searchHandler.GetListing)
		listings.GET("/:id/similar", searchHandler.Similar)
		listings.POST("/embeddings/batch", auth.AuthRequired(), embeddingHandler.BatchUpdate)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, response.NewNotFound("endpoint not found"))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	// Shutdown does not track hijacked websocket connections
	if err := realtimeHandler.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("realtime connections did not close in time")
	}
	logger.Info().Msg("server stopped")
}

// newBroadcaster fans realtime events through Redis when configured, so that
// every replica reaches its own websocket clients. Otherwise events stay in
// this process.
func newBroadcaster(ctx context.Context, cfg *config.Config, hub *service.Hub) (service.Broadcaster, func()) {
	if cfg.Redis.Address == "" {
		logger.Info().Msg("realtime events delivered in-process")
		return hub, func() {}
	}

	client, err := service.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Address).Msg("failed to connect to Redis")
	}

	relay := service.NewRedisRelay(client, cfg.Redis.Channel, hub)
	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("realtime relay stopped")
		}
	}()

	return relay, func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close Redis client")
		}
	}
}

func newDetector(ctx context.Context, cfg *config.Config) (service.Detector, func()) {
	switch cfg.NLU.Provider {
	case "openai":
		logger.Info().Str("model", cfg.NLU.Model).Str("api_base", cfg.NLU.APIBase).Msg("using LLM intent detection")
		return service.NewLLMDetector(cfg.NLU.APIKey, cfg.NLU.APIBase, cfg.NLU.Model, cfg.NLU.Timeout), func() {}
	default:
		d, err := service.NewDialogflowDetector(ctx, cfg.NLU.ProjectID, cfg.NLU.CredentialsFile, cfg.NLU.LanguageCode)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Dialogflow client")
		}
		logger.Info().Str("project", cfg.NLU.ProjectID).Str("language", cfg.NLU.LanguageCode).Msg("using Dialogflow intent detection")
		return d, func() {
			if err := d.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close Dialogflow client")
			}
		}
	}
}
