package main

import (
	"context"
	"ctchen222/Todo-Tracker/internal/api/controller"
	"ctchen222/Todo-Tracker/internal/api/repository"
	"ctchen222/Todo-Tracker/internal/api/service"
	"ctchen222/Todo-Tracker/internal/config"
	"ctchen222/Todo-Tracker/internal/db"
	"ctchen222/Todo-Tracker/internal/events"
	"ctchen222/Todo-Tracker/internal/hub"
	"ctchen222/Todo-Tracker/internal/logger"
	"ctchen222/Todo-Tracker/internal/server"
	"ctchen222/Todo-Tracker/internal/session"
	"ctchen222/Todo-Tracker/internal/telemetry"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize telemetry before the logger so the otelslog bridge picks up the provider
	shutdownTelemetry, err := telemetry.InitOtel(ctx, cfg.OtelEndpoint)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.LogLevel)
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize SQL DB
	DB, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer DB.Close()
	if err := db.InitializeDB(ctx, DB); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Create repositories
	userRepo := repository.NewUserRepository(DB)
	taskRepo := repository.NewTaskRepository(DB)

	// Create hub
	taskHub := hub.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	// Sessions and task events go through Redis when it is configured
	var (
		sessionStore session.Store    = session.NewMemoryStore()
		publisher    events.Publisher = taskHub
	)
	if cfg.RedisAddr != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to initialize redis: %v", err)
		}
		defer rdb.Close()

		sessionStore = session.NewRedisStore(rdb)
		publisher = events.NewRedisPublisher(rdb)
		go taskHub.RunRedisSubscriber(hubCtx, rdb)
	} else {
		slog.Warn("REDIS_CONNSTRING not set, sessions and task events stay in this process")
	}
	sessions := session.NewManager(sessionStore, cfg.SecretKey, cfg.SessionTTL)

	// Task sockets close when their session ends
	sessions.AddListener(taskHub)
	taskHub.CheckSessions(sessions.Active)
	go taskHub.Run(hubCtx)

	// Create services
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	authService := service.NewAuthService(userRepo, hasher, sessions)
	accountService := service.NewAccountService(userRepo, hasher, sessions)
	taskService := service.NewTaskService(taskRepo, publisher)

	// Create controllers
	cookie := controller.CookieConfig{
		TTL:    cfg.SessionTTL,
		Secure: cfg.Env == config.EnvProduction,
	}
	srv, err := server.NewServer(sessions, userRepo, server.Controllers{
		Auth:    controller.NewAuthController(authService, cookie),
		Tasks:   controller.NewTaskController(taskService),
		Account: controller.NewAccountController(accountService, sessions, cookie),
		Pages:   controller.NewPageController(taskHub),
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("http server started", "addr", cfg.Addr(), "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	stopHub()

	slog.Info("Server exiting")
}
