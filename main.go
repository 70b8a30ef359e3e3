package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"realtyhub/backend/internal/api"
	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/cache"
	"realtyhub/backend/internal/captcha"
	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/email"
	"realtyhub/backend/internal/events"
	"realtyhub/backend/internal/logger"
	"realtyhub/backend/internal/queue"
	"realtyhub/backend/internal/realtime"
	"realtyhub/backend/internal/services"
	"realtyhub/backend/internal/storage"
	"realtyhub/backend/internal/tasks"
	"realtyhub/backend/internal/workflow"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()
	logger.Setup(os.Getenv("APP_ENV"))

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Error().Err(err).Msg("Error disconnecting from MongoDB")
		}
	}()
	if err := db.EnsureIndexes(mongoDb, db.DefaultIndexes()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure indexes")
	}

	// Cache (Redis), also the task broker and event bus
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Error().Err(err).Msg("Error disconnecting from Redis")
		}
	}()

	table, err := workflow.Load(cfg.WorkflowStrict, cfg.WorkflowFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.WorkflowFile).Msg("Failed to load workflow table")
	}
	log.Info().Bool("strict", !table.IsPermissive()).Msg("Workflow table loaded")

	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config for S3 client")
	}
	s3Storage := storage.NewS3Storage(cfg, s3Client)

	taskClient := queue.NewClient(redisClient)
	defer taskClient.Close()

	publisher, closeEvents := setupEvents(cfg, redisClient)
	defer closeEvents()

	app := buildServices(cfg, mongoDb, redisClient, taskClient, s3Storage, publisher, table)
	bootstrapAdmins(ctx, cfg, app.users)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("port", cfg.ServiceApiPort).Msg("Service API listening")
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Service API ListenAndServe error")
		}
		log.Info().Msg("Service API server stopped")
	}()

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server

	log.Info().Str("mode", cfg.RunMode).Msg("Starting application")

	apiMode := func() {
		hub := realtime.NewHub(cfg.CorsOrigins)
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Run(ctx, func(ctx context.Context, handle func([]byte)) error {
				return events.Subscribe(ctx, redisClient, handle)
			})
		}()

		router := api.SetupRouter(ctx, api.RouterDeps{
			Config:       cfg,
			Review:       app.review,
			Applications: app.applications,
			Leads:        app.leads,
			Properties:   app.properties,
			Users:        app.users,
			Roles:        app.roles,
			Audit:        app.audit,
			Media:        app.media,
			Captcha:      captcha.NewTurnstileVerifier(cfg.CloudflareTurnstileSecretKey, cfg.CloudflareSiteVerifyURL, cfg.JwtSecret),
			Hub:          hub,
		})
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Str("port", cfg.ApiPort).Msg("Main API listening")
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Main API ListenAndServe error")
			}
			log.Info().Msg("Main API server stopped")
		}()
	}

	bgMode := func() {
		processor := tasks.NewTaskProcessor(cfg, buildEmailSender(cfg, redisClient), app.templates, s3Storage, app.properties, publisher)
		srv, mux := tasks.SetupServer(redisClient, processor)
		if err := srv.Start(mux); err != nil {
			log.Fatal().Err(err).Msg("Background task server error")
		}
		taskSrv = srv
		log.Info().Msg("Background task server started")
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatal().Str("mode", cfg.RunMode).Msg("Invalid run mode")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")
	case <-shutdownChan:
		log.Info().Msg("Shutdown requested via Service API")
	}
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("Service API server shutdown error")
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Main API server shutdown error")
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	log.Info().Msg("Server gracefully stopped")
}

type appServices struct {
	applications services.IApplicationService
	leads        services.ILeadService
	properties   services.IPropertyService
	audit        services.IAuditService
	roles        services.IRoleService
	users        services.IUserService
	templates    services.IEmailTemplateService
	media        services.IMediaService
	review       services.IReviewService
}

func buildServices(cfg *config.Config, mongoDb *mongo.Database, rdb *redis.Client, enqueuer queue.Enqueuer, store storage.IS3Storage, publisher events.Publisher, table *workflow.Table) *appServices {
	limits := services.ListLimits{Default: cfg.ListLimitDefault, Max: cfg.ListLimitMax}

	s := &appServices{
		applications: services.NewApplicationService(mongoDb, limits),
		leads:        services.NewLeadService(mongoDb, limits),
		properties:   services.NewPropertyService(mongoDb, limits),
		audit:        services.NewAuditService(mongoDb, limits),
		templates:    services.NewEmailTemplateService(mongoDb),
	}
	s.roles = services.NewRoleService(mongoDb, rdb, cfg, s.audit)
	s.users = services.NewUserService(mongoDb, s.leads, s.properties, s.audit, limits)
	s.media = services.NewMediaService(s.properties, store, enqueuer)
	s.review = services.NewReviewService(services.ReviewDeps{
		Applications: s.applications,
		Leads:        s.leads,
		Properties:   s.properties,
		Users:        s.users,
		Audit:        s.audit,
		Notifier:     services.NewNotificationService(enqueuer, cfg),
		Events:       publisher,
		Workflow:     table,
	})
	return s
}

// buildEmailSender returns the sender used by the email worker. Under
// MOCK_SERVICES messages are captured in Redis for the service API.
func buildEmailSender(cfg *config.Config, rdb *redis.Client) email.Sender {
	var primary email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		log.Info().Msg("MOCK_SERVICES enabled: capturing emails in Redis")
		primary = email.NewRedisSender(rdb)
	} else {
		primary = email.NewProviderChain(cfg, nil)
	}

	composite := email.NewCompositeEmailSender(primary)
	if path := os.Getenv("LOG_EMAILS"); path != "" {
		fileSender, err := email.NewFileEmailSender(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to initialize file email sender, proceeding without it")
		} else {
			composite.AddSender(fileSender)
			log.Info().Str("path", path).Msg("File email logger enabled")
		}
	}
	return composite
}

// setupEvents publishes record events on Redis for the live dashboard, and
// on RabbitMQ as well when RABBITMQ_URL is set.
func setupEvents(cfg *config.Config, rdb *redis.Client) (events.Publisher, func()) {
	redisPublisher := events.NewRedisPublisher(rdb)
	if cfg.RabbitMQURL == "" {
		return redisPublisher, func() {}
	}

	amqpPublisher := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsExchange)
	if err := amqpPublisher.Dial(); err != nil {
		// Publish redials on demand.
		log.Warn().Err(err).Msg("RabbitMQ unavailable at start-up")
	}
	return events.NewMultiPublisher(redisPublisher, amqpPublisher), func() {
		if err := amqpPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing RabbitMQ connection")
		}
	}
}

// bootstrapAdmins creates accounts for ADMIN_EMAILS that do not exist yet.
func bootstrapAdmins(ctx context.Context, cfg *config.Config, users services.IUserService) {
	if cfg.AdminBootstrapPassword == "" {
		return
	}
	for _, addr := range cfg.AdminEmails {
		user, created, err := users.EnsureUser(ctx, services.NewUserInput{
			Name:     addr,
			Email:    addr,
			Password: cfg.AdminBootstrapPassword,
			Role:     auth.RoleSuperAdmin,
		})
		if err != nil {
			log.Error().Err(err).Str("email", addr).Msg("Failed to bootstrap admin account")
			continue
		}
		if created {
			log.Info().Str("email", addr).Str("uid", user.ID).Msg("Bootstrapped admin account")
		}
	}
}
