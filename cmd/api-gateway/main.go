package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentorship-api/api/swagger"
	"github.com/noah-isme/mentorship-api/internal/handler"
	internalmiddleware "github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/repository"
	"github.com/noah-isme/mentorship-api/internal/scheduler"
	"github.com/noah-isme/mentorship-api/internal/service"
	"github.com/noah-isme/mentorship-api/pkg/cache"
	"github.com/noah-isme/mentorship-api/pkg/config"
	"github.com/noah-isme/mentorship-api/pkg/database"
	"github.com/noah-isme/mentorship-api/pkg/jobs"
	"github.com/noah-isme/mentorship-api/pkg/logger"
	"github.com/noah-isme/mentorship-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/mentorship-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mentorship-api/pkg/middleware/requestid"
	"github.com/noah-isme/mentorship-api/pkg/realtime"
	"github.com/noah-isme/mentorship-api/pkg/storage"
)

// @title Mentorship Platform API
// @version 1.0.0
// @description Mentor matching, request lifecycle, queries and notifications for university mentorship programmes.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			return err
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, falling back to in-process cache and realtime", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	hub := realtime.NewHub(cfg.Realtime.Buffer, logr)
	var broker realtime.Broker = realtime.NewMemoryBroker(hub)
	if redisClient != nil {
		broker = realtime.NewRedisBroker(redisClient, cfg.Realtime.Channel, hub, logr)
	}
	go func() {
		if err := broker.Run(ctx); err != nil {
			logr.Error("realtime broker stopped", zap.Error(err))
		}
	}()

	userRepo := repository.NewUserRepository(db)
	mentorRepo := repository.NewMentorRepository(db)
	menteeRepo := repository.NewMenteeRepository(db)
	mentorshipRepo := repository.NewMentorshipRepository(db)
	queryRepo := repository.NewQueryRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	exportRepo := repository.NewExportRepository(db)

	avatars, err := storage.NewLocalStorage(cfg.Avatars.StorageDir)
	if err != nil {
		return fmt.Errorf("init avatar storage: %w", err)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "mentorship-api",
	})
	userSvc := service.NewUserService(userRepo, mentorshipRepo, cacheSvc, validate, logr)
	profileSvc := service.NewProfileService(mentorRepo, menteeRepo, userRepo, avatars, cacheSvc, service.ProfileConfig{
		PublicBaseURL:   cfg.PublicBaseURL,
		AvatarMaxBytes:  cfg.Avatars.MaxBytes,
		AvatarMIMETypes: cfg.Avatars.AllowedMIMEs,
	}, validate, logr)
	capacitySvc := service.NewCapacityService(mentorRepo, cacheSvc, validate, logr)
	notificationSvc := service.NewNotificationService(mentorshipRepo, broker, metrics, logr)
	mentorshipSvc := service.NewMentorshipService(mentorshipRepo, mentorRepo, userRepo, notificationSvc, cacheSvc, metrics, validate, logr)
	querySvc := service.NewQueryService(queryRepo, userRepo, notificationSvc, metrics, service.QueryConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		ShareTTL:      cfg.Queries.ShareTTL,
		ExposeEmail:   cfg.Queries.ShareExposeEmail,
	}, validate, logr)
	directorySvc := service.NewDirectoryService(mentorRepo, mentorshipRepo, cacheSvc, metrics, cfg.Directory.CacheTTL, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Stats:       statsRepo,
		Mentors:     mentorRepo,
		Mentees:     menteeRepo,
		Mentorships: mentorshipRepo,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	var mail mailer.Mailer = mailer.NewLogMailer(logr)
	if cfg.Feedback.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(cfg.Feedback.SendGridAPIKey, cfg.Feedback.FromEmail, cfg.Feedback.FromName)
	}
	feedbackSvc := service.NewFeedbackService(mail, service.FeedbackConfig{ToEmail: cfg.Feedback.ToEmail}, validate, logr)

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	exportSvc := service.NewExportService(exportRepo, statsRepo, exportFiles,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		metrics, service.ExportConfig{
			PublicBaseURL: cfg.PublicBaseURL,
			APIPrefix:     cfg.APIPrefix,
			RetainFor:     cfg.Exports.RetainFor,
		}, validate, logr)

	var exportCleaner interface {
		Cleanup(ctx context.Context) (int, error)
	}
	if cfg.Exports.Enabled {
		queue := jobs.NewQueue("exports", exportSvc.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			OnFailure:  exportSvc.Fail,
			Logger:     logr,
		})
		exportSvc.AttachQueue(queue)
		queue.Start(ctx)
		defer queue.Stop()
		exportSvc.RecoverPending(ctx)
		exportCleaner = exportSvc
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(ctx, scheduler.Config{
			CapacityReconcile: cfg.Scheduler.CapacityReconcile,
			ExportCleanup:     cfg.Scheduler.ExportCleanup,
		}, capacitySvc, exportCleaner, metrics, logr)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Static("/static", cfg.Avatars.StorageDir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Mentorships:   handler.NewMentorshipHandler(mentorshipSvc),
		Profiles:      handler.NewProfileHandler(profileSvc, capacitySvc),
		Directory:     handler.NewDirectoryHandler(directorySvc),
		Queries:       handler.NewQueryHandler(querySvc),
		Notifications: handler.NewNotificationHandler(notificationSvc, cfg.Realtime.Heartbeat),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Users:         handler.NewUserHandler(userSvc),
		Exports:       handler.NewExportHandler(exportSvc),
		Feedback:      handler.NewFeedbackHandler(feedbackSvc),
	}, handler.Guards{
		Authenticate:       internalmiddleware.JWT(authSvc),
		AuthenticateStream: internalmiddleware.StreamJWT(authSvc),
		Audit: func(action, resource string) gin.HandlerFunc {
			return internalmiddleware.Audit(userRepo, logr, action, resource)
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
