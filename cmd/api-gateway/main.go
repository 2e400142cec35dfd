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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/fitcoach-api/api/swagger"
	"github.com/noah-isme/fitcoach-api/internal/handler"
	"github.com/noah-isme/fitcoach-api/internal/middleware"
	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/repository"
	"github.com/noah-isme/fitcoach-api/internal/service"
	"github.com/noah-isme/fitcoach-api/pkg/cache"
	"github.com/noah-isme/fitcoach-api/pkg/config"
	"github.com/noah-isme/fitcoach-api/pkg/database"
	"github.com/noah-isme/fitcoach-api/pkg/logger"
	"github.com/noah-isme/fitcoach-api/pkg/mailer"
	reqidmiddleware "github.com/noah-isme/fitcoach-api/pkg/middleware/requestid"
)

// @title FitCoach API
// @version 1.0.0
// @description Front-desk check-in admission and coach engagement scoring.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	app, err := buildApp(cfg, logr, db, redisClient)
	if err != nil {
		logr.Fatal("failed to wire services", zap.Error(err))
	}
	app.notifications.Start(ctx)
	defer app.notifications.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type app struct {
	router        *gin.Engine
	notifications *service.NotificationService
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*app, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	memberRepo := repository.NewMemberRepository(db)
	checkInRepo := repository.NewCheckInRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	coachRepo := repository.NewCoachRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	feedbackPublisher := repository.NewFeedbackPublisher(redisClient)

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Engagement.CacheTTL, logr, cfg.Engagement.CacheEnabled)

	var mail mailer.Sender
	if cfg.Mail.APIKey != "" {
		mail = mailer.NewResendSender(cfg.Mail.APIKey, cfg.Mail.From)
	}
	notificationSvc := service.NewNotificationService(service.NotificationServiceParams{
		Repo:    notificationRepo,
		Mail:    mail,
		Metrics: metrics,
		Logger:  logr,
		Config: service.NotificationServiceConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		},
	})

	feedbackSvc, err := service.NewFeedbackService(feedbackPublisher, logr, service.FeedbackServiceConfig{Enabled: cfg.CheckIn.FeedbackEnabled})
	if err != nil {
		return nil, fmt.Errorf("render feedback tones: %w", err)
	}

	checkInSvc := service.NewCheckInService(service.CheckInServiceParams{
		Members:  memberRepo,
		CheckIns: checkInRepo,
		History:  checkInRepo,
		Feedback: feedbackSvc,
		Alerts:   notificationSvc,
		Metrics:  metrics,
		Logger:   logr,
		Config: service.CheckInServiceConfig{
			Timeout:               cfg.CheckIn.Timeout,
			AtomicCreditDecrement: cfg.CheckIn.AtomicCreditDecrement,
			FlashDuration:         cfg.CheckIn.FlashDuration,
		},
	})

	engagementSvc := service.NewEngagementService(service.EngagementServiceParams{
		Coaches: coachRepo,
		Store:   engagementRepo,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config: service.EngagementServiceConfig{
			Timeout:        cfg.Engagement.Timeout,
			MaxConcurrency: cfg.Engagement.MaxConcurrency,
			CacheTTL:       cfg.Engagement.CacheTTL,
			AtRiskScore:    cfg.Engagement.AtRiskScore,
		},
	})

	var summarizer service.Summarizer
	if s := service.NewHTTPSummarizer(cfg.Insights.URL, cfg.Insights.APIKey, cfg.Insights.Timeout); s != nil {
		summarizer = s
	}
	insightSvc := service.NewInsightService(engagementSvc, summarizer, cfg.Insights.Timeout, logr)
	exportSvc := service.NewExportService(checkInRepo, engagementSvc, service.ExportConfig{}, logr, nil, nil)

	checkInHandler := handler.NewCheckInHandler(checkInSvc, exportSvc, feedbackSvc, validate)
	engagementHandler := handler.NewEngagementHandler(engagementSvc, exportSvc, insightSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.JWT(authSvc))

	frontDesk := []models.UserRole{models.RoleOwner, models.RoleManager, models.RoleStaff}
	gyms := api.Group("/gyms/:" + middleware.GymParam + "/check-ins")
	gyms.Use(middleware.RequireRoles(frontDesk...), middleware.GymScope())
	gyms.POST("", checkInHandler.CheckIn)
	gyms.GET("", checkInHandler.List)
	gyms.GET("/stats", checkInHandler.Stats)
	gyms.GET("/export", middleware.RequireRoles(models.RoleOwner, models.RoleManager), checkInHandler.Export)
	gyms.GET("/feedback/latest", checkInHandler.LatestFeedback)
	gyms.GET("/feedback/stream", checkInHandler.StreamFeedback)

	coaches := api.Group("/coaches/me")
	coaches.Use(middleware.RequireRoles(models.RoleCoach))
	coaches.GET("/engagement", engagementHandler.Engagement)
	coaches.GET("/engagement/at-risk", engagementHandler.AtRisk)
	coaches.GET("/engagement/export.pdf", engagementHandler.Export)
	coaches.GET("/clients/:clientId/insight", engagementHandler.Insight)

	return &app{router: r, notifications: notificationSvc}, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", reqidmiddleware.HeaderName}
	c.ExposeHeaders = []string{reqidmiddleware.HeaderName, "Content-Disposition"}
	return c
}
