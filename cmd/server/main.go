package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hasker/backend/internal/config"
	"hasker/backend/internal/database"
	"hasker/backend/internal/logging"
	"hasker/backend/internal/mail"
	"hasker/backend/internal/migrations"
	"hasker/backend/internal/router"
	"hasker/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	// Swagger imports
	_ "hasker/backend/docs" // This is important for swag to find the generated docs
)

// @title           Hasker API
// @version         1.0
// @description     Questions, answers, votes and tags of the Hasker Q&A site.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	log := logging.New(cfg.AppEnv, cfg.LogLevel)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if cfg.AutoMigrate {
		log.Info("AUTO_MIGRATE is set, schema managed by GORM")
	} else if err := migrations.Up(cfg.DatabaseURL, log); err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	var (
		notifier service.Notifier
		mailer   *mail.Mailer
	)
	if cfg.MailEnabled() {
		mailer = mail.New(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			SiteURL:  cfg.SiteURL,
		}, log)
		notifier = mailer
	} else {
		log.Warn("SMTP is not configured, answer notifications are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := router.New(router.Deps{
		Config:   cfg,
		DB:       db,
		Log:      log,
		Notifier: notifier,
		Done:     ctx.Done(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "env": cfg.AppEnv}).Info("Server is running")
		log.Infof("Swagger UI is available at %s/api/swagger/index.html", cfg.SiteURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if mailer != nil {
		mailer.Wait()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
