package main

import (
	"log"

	"scanela-billing/internal/api"
	"scanela-billing/internal/config"
	"scanela-billing/internal/database"
	"scanela-billing/internal/metrics"
	"scanela-billing/internal/middleware"
	"scanela-billing/internal/services"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	if cfg.PaddleWebhookSecret == "" {
		logging.Warnf("PADDLE_WEBHOOK_SECRET is not set; every webhook will be rejected")
	}

	metrics.MustRegister()
	handler := buildHandler(cfg)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	// Setup routes
	api.SetupRoutes(r, handler)

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func buildHandler(cfg *config.Config) *api.Handler {
	var (
		cache  services.PlanCache
		ledger services.EventLedger
	)
	if database.RedisClient != nil {
		cache = services.NewRedisPlanCache(database.RedisClient, cfg.PlanCacheTTL)
		if cfg.WebhookDedupeEvents {
			ledger = services.NewRedisEventLedger(database.RedisClient, cfg.WebhookDedupeTTL)
		}
	} else {
		cache = services.NewMemoryPlanCache(cfg.PlanCacheTTL, cfg.PlanCacheMaxEntries)
		if cfg.WebhookDedupeEvents {
			ledger = services.NewMemoryEventLedger(cfg.WebhookDedupeTTL)
		}
	}

	var mirror services.MetadataMirror = services.NoopMetadataMirror{}
	if cfg.AuthURL != "" && cfg.AuthServiceKey != "" {
		mirror = services.NewAuthAdminMirror(cfg.AuthURL, cfg.AuthServiceKey)
	} else {
		logging.Warnf("AUTH_URL or AUTH_SERVICE_KEY not set; user metadata mirroring is disabled")
	}

	var auth services.Authenticator
	switch {
	case cfg.AuthJWTSecret != "":
		auth = services.NewJWTAuthenticator(cfg.AuthJWTSecret)
	case cfg.AuthURL != "":
		auth = services.NewRemoteAuthenticator(cfg.AuthURL, cfg.AuthServiceKey)
	default:
		logging.Warnf("No auth provider configured; billing endpoints will answer 401")
	}

	var mailer services.Mailer
	if brevo := services.NewBrevoService(); brevo != nil {
		mailer = brevo
	}

	events := services.NewEventLogger()
	reconciler := services.NewReconciler(cache)

	var opts []services.WebhookProcessorOption
	if ledger != nil {
		opts = append(opts, services.WithEventLedger(ledger))
	}
	processor := services.NewWebhookProcessor(services.NewUserResolver(), events, reconciler, mirror, opts...)

	paddle := services.NewPaddleClient(cfg.PaddleAPIKey, cfg.PaddleAPIBaseURL, cfg.PaddleTimeout)

	return &api.Handler{
		Verifier:  services.NewSignatureVerifier(cfg.PaddleWebhookSecret, cfg.PaddleWebhookTolerance),
		Processor: processor,
		Billing:   services.NewBillingService(paddle, processor, mirror, events, mailer, cache, cfg.PaddleSuccessURL),
		Plans:     services.NewPlanService(cache, mirror, events),
		Events:    events,
		Auth:      auth,
		AdminKey:  cfg.AdminAPIKey,
	}
}
