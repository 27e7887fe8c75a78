package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conexbot/internal/config"
	"conexbot/internal/infrastructure"
	"conexbot/internal/interfaces/http"
	"conexbot/internal/repository"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, flush := infrastructure.NewLogger(cfg.Env, cfg.Log)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pgClient.Close()

	// Repositories
	userRepo := repository.NewUserRepository(pgClient.Pool)
	mediaRepo := repository.NewMediaRepository(pgClient.Pool)
	usageRepo := repository.NewUsageRepository(pgClient.Pool)

	// External services
	waClient := infrastructure.NewWhatsAppClient(cfg.WhatsApp)
	mediaClient := infrastructure.NewMediaClient(cfg.Media)
	if cfg.WhatsApp.BaseURL == "" || cfg.WhatsApp.APIKey == "" {
		logger.Warn("WhatsApp provider not configured, instance operations will fail")
	}

	// Usecases
	saga := usecases.NewInstanceSaga(waClient)
	authUsecase := usecases.NewAuthUsecase(userRepo, saga, cfg.JWTSecret, cfg.TokenTTL)
	adminUsecase := usecases.NewUserAdminUsecase(userRepo, waClient, saga)
	profileUsecase := usecases.NewProfileUsecase(userRepo, infrastructure.ParseContactsFile)
	mediaUsecase := usecases.NewMediaUsecase(mediaRepo, mediaClient)
	whatsappUsecase := usecases.NewWhatsAppUsecase(waClient)

	broadcast, err := usecases.NewBroadcastService(userRepo, waClient, usageRepo, cfg.BroadcastWorkers)
	if err != nil {
		logger.Fatal("failed to start broadcast pool", zap.Error(err))
	}
	defer broadcast.Close()

	if err := authUsecase.EnsureAdmin(ctx, cfg.Admin); err != nil {
		logger.Warn("failed to ensure admin user", zap.Error(err))
	}

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), http.RequestLogger())

	flashes := infrastructure.NewFlashStore(cfg.SessionSecret, cfg.IsProduction())
	middleware := http.NewMiddleware(authUsecase, infrastructure.NewRateLimiter(5, 10), flashes)
	http.SetupRoutes(r, http.Deps{
		Auth:           authUsecase,
		Admin:          adminUsecase,
		Profile:        profileUsecase,
		Media:          mediaUsecase,
		WhatsApp:       whatsappUsecase,
		Broadcast:      broadcast,
		Flashes:        flashes,
		SecureCookies:  cfg.IsProduction(),
		MaxUploadBytes: cfg.Media.MaxBytes,
	}, middleware)

	srv := &nethttp.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
