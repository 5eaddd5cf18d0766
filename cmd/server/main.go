package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sayaka/teamboard/internal/channel"
	"github.com/sayaka/teamboard/internal/config"
	"github.com/sayaka/teamboard/internal/handler"
	"github.com/sayaka/teamboard/internal/repository"
	"github.com/sayaka/teamboard/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	reportRepo := repository.NewReportRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	audit := service.NewAuditRecorder(auditRepo)
	defer audit.Wait()

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		JWTSecret:          cfg.JWTSecret,
		FrontendURL:        cfg.FrontendURL,
	})

	prefSvc := service.NewPreferenceService(preferenceRepo, audit)

	notificationSvc := service.NewNotificationService(
		notificationRepo,
		prefSvc,
		userRepo,
		channel.NewAppSender(),
		channel.NewEmailSender(channel.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}),
		channel.NewPushSender(cfg.PushWebhookURL),
		audit,
		service.DispatcherConfig{
			SendTimeout:     cfg.SendTimeout,
			BulkConcurrency: cfg.BulkConcurrency,
			CleanupReadOnly: cfg.CleanupReadOnly,
		},
	)

	orgSvc := service.NewOrgService(orgRepo, notificationSvc, audit)
	projectSvc := service.NewProjectService(projectRepo, orgRepo, notificationSvc, audit)
	taskSvc := service.NewTaskService(taskRepo, projectRepo, orgRepo, notificationSvc, audit)
	meetingSvc := service.NewMeetingService(meetingRepo, orgRepo, notificationSvc, audit)
	reportSvc := service.NewReportService(reportRepo, orgRepo, orgRepo, notificationSvc, audit)
	articleSvc := service.NewArticleService(articleRepo, orgRepo, notificationSvc, audit)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	e.Use(handler.RequestLogger())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := handler.NewAuthHandler(authSvc)
	authHandler.Register(e.Group("/api/v1/auth"))

	api := e.Group("/api/v1", handler.JWTAuth(authSvc))
	api.GET("/auth/me", authHandler.Me)

	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	notificationHandler.Register(api.Group("/notifications"))
	handler.NewPreferenceHandler(prefSvc).Register(api.Group("/notification-preferences"))
	handler.NewOrgHandler(orgSvc).Register(api)
	handler.NewProjectHandler(projectSvc).Register(api)
	handler.NewTaskHandler(taskSvc).Register(api)
	handler.NewMeetingHandler(meetingSvc).Register(api)
	handler.NewReportHandler(reportSvc).Register(api)
	handler.NewArticleHandler(articleSvc).Register(api)

	internal := e.Group("/internal", handler.InternalKey(cfg.InternalAPIKey))
	notificationHandler.RegisterInternal(internal)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := service.NewSweeper(notificationSvc, service.SweeperConfig{
		Interval:        cfg.SweepInterval,
		CleanupInterval: cfg.CleanupInterval,
		RetentionDays:   cfg.CleanupDays,
	})
	go sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
