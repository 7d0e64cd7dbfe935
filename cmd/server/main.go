package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Revology-Analytics/revify-portal/internal/auth"
	"github.com/Revology-Analytics/revify-portal/internal/config"
	"github.com/Revology-Analytics/revify-portal/internal/db"
	"github.com/Revology-Analytics/revify-portal/internal/filelist"
	"github.com/Revology-Analytics/revify-portal/internal/http/router"
	"github.com/Revology-Analytics/revify-portal/internal/logging"
	"github.com/Revology-Analytics/revify-portal/internal/registration"
	"github.com/Revology-Analytics/revify-portal/internal/security"
	"github.com/Revology-Analytics/revify-portal/internal/storage"
)

const (
	formSweepInterval = time.Minute
	formTTL           = 30 * time.Minute
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/app.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer database.Close()

	authService := auth.NewService(database, logger)
	if cfg.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, "Administrator", cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.WithError(err).Fatal("failed to bootstrap admin account")
		}
	}

	files, err := storage.NewFiles(database, cfg.UploadDir, cfg.MaxUploadSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize file storage")
	}

	fileList := filelist.NewController(files, cfg.RefreshInterval, logger)
	fileList.Start(ctx)
	defer fileList.Dispose()

	forms := registration.NewRegistry(authService, logger)
	go forms.Run(ctx, formSweepInterval, formTTL)

	r := router.Setup(router.Deps{
		DB:            database,
		Auth:          authService,
		Files:         files,
		FileList:      fileList,
		Registrations: forms,
		Sessions:      security.NewSessionStore([]byte(cfg.Secret), cfg.SecureCookies),
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	logger.WithField("port", cfg.Port).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("failed to start server")
	}
	logger.Info("server stopped")
}
