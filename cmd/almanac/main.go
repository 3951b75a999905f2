package main

import (
	"context"
	"time"

	"palmcosmic/internal/astro"
	"palmcosmic/internal/config"
	"palmcosmic/internal/dispatch"
	"palmcosmic/internal/generator"
	"palmcosmic/internal/handlers"
	"palmcosmic/internal/mailer"
	"palmcosmic/internal/store"
	"palmcosmic/pkg/cache"
	pkgconfig "palmcosmic/pkg/config"
	"palmcosmic/pkg/database"
	"palmcosmic/pkg/email"
	"palmcosmic/pkg/llm"
	"palmcosmic/pkg/logging"
	"palmcosmic/pkg/monitoring"
	"palmcosmic/pkg/redis"
	"palmcosmic/pkg/server"
	"palmcosmic/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("almanac")

	// Load environment variables
	pkgconfig.LoadEnv(logger)

	logger.Info("Starting Almanac (Horoscope Content API)")

	cfg := config.LoadConfig()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	if err := database.EnsureSchema(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}

	// Connect to Redis for the send guard
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := redis.NewClientFromURL(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// LLM provider
	llmConfig := llm.LoadConfig()
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure LLM provider")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("almanac", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("almanac", version.Version, version.GitCommit)

	// Add health checks
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))
	healthChecker.AddCheck("astro_engine", monitoring.HTTPServiceHealthCheck("astro-engine", cfg.AstroEngineURL+"/health"))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":     cfg.DatabaseURL,
		"ASTRO_ENGINE_URL": cfg.AstroEngineURL,
		"CRON_SECRET":      cfg.CronSecret,
		"LLM_API_KEY":      llmConfig.APIKey,
	}))

	// Create custom content pipeline metrics
	metrics := &handlers.AlmanacMetrics{
		Generations:  metricsCollector.NewCounter("content_generations_total", "Content generation batches", []string{"kind", "status"}),
		CacheLookups: metricsCollector.NewCounter("content_cache_lookups_total", "In-process content cache lookups", []string{"outcome"}),
		EmailsSent:   metricsCollector.NewCounter("daily_emails_total", "Daily emails by delivery status", []string{"status"}),
		DispatchRuns: metricsCollector.NewCounter("dispatch_runs_total", "Daily email dispatch runs", []string{"mode"}),
	}
	metrics.DBQueries, metrics.DBDuration, metrics.DBConnections = metricsCollector.CreateDatabaseMetrics()

	// Domain wiring
	contentStore := store.NewContentStore(db)
	sendGuard := store.NewSendGuard(redisClient, cfg.GuardTTL)
	factProvider := astro.NewClient(cfg.AstroEngineURL)

	engine := generator.NewEngine(contentStore, factProvider, provider, logger,
		generator.WithPacing(cfg.Pacing))

	sender := buildSender(cfg, logger)
	dispatcher := dispatch.NewDispatcher(contentStore, engine, sendGuard, sender, logger,
		cfg.TargetHour, cfg.DefaultTimezone, cfg.AppURL)

	memCache := cache.New(cache.Options{TTL: 5 * time.Minute, MaxEntries: 256}, cache.MetricsHooks{
		OnHit:  func(map[string]string) { metrics.CacheLookups.WithLabelValues("hit").Inc() },
		OnMiss: func(map[string]string) { metrics.CacheLookups.WithLabelValues("miss").Inc() },
	})

	// Initialize handlers
	handlers.Init(logger, engine, contentStore, dispatcher, memCache, cfg.CronSecret, metrics)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "almanac", healthChecker, metricsCollector)

	// Public read endpoints
	router.GET("/horoscope", handlers.GetHoroscope)
	router.GET("/insights", handlers.GetInsights)

	// Scheduled endpoints (secret-gated in the handlers)
	router.POST("/cron/generate-horoscopes", handlers.GenerateHoroscopes)
	router.POST("/cron/generate-insights", handlers.GenerateInsights)
	router.GET("/cron/daily-email", handlers.DailyEmail)

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("almanac", cfg.Port)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

// buildSender prefers the template mail API and falls back to plain
// SMTP when no API key is configured.
func buildSender(cfg config.Config, logger logging.Logger) mailer.Sender {
	if cfg.MailerAPIKey != "" {
		client := mailer.NewClient(cfg.MailerAPIURL, cfg.MailerAPIKey,
			mailer.WithSender(cfg.SenderEmail, cfg.SenderName))
		logger.Info("Using template mail API for daily emails")
		return mailer.NewTemplateSender(client, cfg.MailerTemplate)
	}

	logger.Info("No mail API key configured, using SMTP delivery")
	smtpSender := email.NewSender(email.Config{
		Host:           cfg.SMTPHost,
		Port:           cfg.SMTPPort,
		User:           cfg.SMTPUsername,
		Password:       cfg.SMTPPassword,
		From:           cfg.SenderEmail,
		FromName:       cfg.SenderName,
		UnsubscribeURL: cfg.UnsubscribeBase,
	})
	return mailer.NewSMTPSender(smtpSender)
}
