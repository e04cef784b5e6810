package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/config"
	"github.com/Runteryaa/RunStore/internal/events"
	"github.com/Runteryaa/RunStore/internal/hash"
	"github.com/Runteryaa/RunStore/internal/httpserver"
	"github.com/Runteryaa/RunStore/internal/logging"
	"github.com/Runteryaa/RunStore/internal/middleware"
	"github.com/Runteryaa/RunStore/internal/models"
	"github.com/Runteryaa/RunStore/internal/repo"
	"github.com/Runteryaa/RunStore/internal/search"
	"github.com/Runteryaa/RunStore/internal/service"
)

// seedAdmin makes sure the fixed admin account exists before the first
// request is served.
func seedAdmin(ctx context.Context, r *repo.GormRepo, cfg *config.Config) error {
	_, err := r.FindUserByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	pwHash, err := hash.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &models.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: pwHash,
		Name:         cfg.AdminName,
		Role:         models.RoleAdmin,
	}
	return r.CreateUser(ctx, admin)
}

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := cfg.InitDB(initCtx)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}

	gormRepo := &repo.GormRepo{DB: db}

	if err := seedAdmin(initCtx, gormRepo, cfg); err != nil {
		cancel()
		log.Fatalf("admin seed error: %v", err)
	}
	cancel()

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	idx, err := search.New(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.ESIndex)
	if err != nil {
		logger.Warn("search index unavailable, falling back to database search", "error", err)
		idx = nil
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(middleware.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Repo:      gormRepo,
				JWTSecret: cfg.JWTSecret,
				TokenTTL:  cfg.TokenTTL,
			},
		},
		AppHandler: &httpserver.AppHTTP{
			Svc: &service.AppService{
				Repo:   gormRepo,
				Events: producer,
				Search: idx,
			},
		},
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
