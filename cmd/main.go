package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sharetrack/backend/internal/api/handler"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/localization"
	"sharetrack/backend/internal/ratelimit"
	"sharetrack/backend/internal/sharing"
	"sharetrack/backend/internal/storage"
	"sharetrack/backend/internal/trackhub"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupStorage(cfg config.Config) storage.Storage {
	if cfg.DatabaseDSN == "memory" {
		log.Println("WARNING: Using in-memory storage; nothing survives a restart.")
		return storage.NewMemory()
	}

	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis (optional last-location cache)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	}

	// 3. Migrations
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return storage.NewStorageService(db, rdb)
}

func main() {
	log.Println("Starting sharetrack backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	s := setupStorage(cfg)
	localizer, err := localization.Bundled()
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	// 2. Hub and sharing services
	hub := trackhub.NewManagerService(ratelimit.NewLimiter(cfg.LocationMinInterval), localizer, cfg.DefaultLocale)
	sessions := sharing.NewSessionManager(s, hub, cfg.SessionTTL)
	requests := sharing.NewRequestService(s, sessions, hub)
	chat := sharing.NewChatService(s, sessions, hub)
	hub.SetServices(requests, sessions, chat)
	hub.SetVerifier(issuer)
	sweeper := sharing.NewSweeper(sessions, cfg.SweepInterval, cfg.Retention)

	// 3. Background goroutines
	go hub.Run(ctx)
	go sweeper.Run(ctx)

	// 4. Gin and routing
	r := gin.Default()
	h := handler.NewHandler(hub, issuer, s, cfg.AuthMode)
	h.Routes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Listening on %s (auth mode %s)", cfg.HTTPAddr, cfg.AuthMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
}
