package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commissioning-backend/internal/auth"
	"commissioning-backend/internal/blob"
	"commissioning-backend/internal/config"
	"commissioning-backend/internal/database"
	"commissioning-backend/internal/handler"
	"commissioning-backend/internal/ingest"
	"commissioning-backend/internal/keylock"
	"commissioning-backend/internal/logger"
	"commissioning-backend/internal/middleware"
	"commissioning-backend/internal/repository"
	"commissioning-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "commissioning-backend"

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("configuration loaded", zap.String("driver", cfg.Database.Driver), zap.String("blobRoot", cfg.Blob.Root))

	// 2. Open the store
	repos, err := openRepositories(cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}

	// 3. Infrastructure
	layout, err := blob.NewLayout(cfg.Blob.Root)
	if err != nil {
		log.Fatal("failed to prepare blob root", zap.Error(err))
	}
	converter, err := ingest.NewConverter(cfg.Converter.Command, cfg.Converter.Timeout, cfg.Converter.MaxParallel, log)
	if err != nil {
		log.Fatal("invalid converter configuration", zap.Error(err))
	}
	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenExpiry)
	if err != nil {
		log.Fatal("invalid JWT configuration", zap.Error(err))
	}
	locks := keylock.New()

	// 4. Initialize services
	authService := service.NewAuthService(repos, tokens, log)
	projectService := service.NewProjectService(repos, layout, locks, log)
	roomTypeService := service.NewRoomTypeService(repos, layout, locks, log)
	roomConfigService := service.NewRoomConfigService(repos, layout, locks, converter, log)
	auditService := service.NewAuditService(repos, log)
	sweeperService := service.NewSweeperService(repos, layout, locks, cfg.Sweeper.Interval, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := authService.SeedUser(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal("failed to seed admin user", zap.Error(err))
	}

	// 5. Start background sweeper
	go sweeperService.Start(ctx)

	// 6. Setup Gin router
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.SecurityHeaders(), middleware.CORS(cfg))

	handler.Register(r, handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, log),
		Project:    handler.NewProjectHandler(projectService, log),
		RoomType:   handler.NewRoomTypeHandler(roomTypeService, log),
		RoomConfig: handler.NewRoomConfigHandler(roomConfigService, cfg.Server.MaxUploadBytes, log),
		Convert:    handler.NewConvertHandler(roomConfigService, cfg.Server.MaxUploadBytes, log),
		Audit:      handler.NewAuditHandler(auditService, log),
	}, tokens, serviceName)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Serve until a shutdown signal arrives
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Stop the sweeper before draining requests
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exited")
}

func openRepositories(cfg *config.Config, log *zap.Logger) (repository.Repositories, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using the in-memory store; data is lost on exit")
		return repository.NewMemoryRepositories()
	}
	db, err := database.Connect(cfg, log)
	if err != nil {
		return repository.Repositories{}, err
	}
	return repository.NewGormRepositories(db), nil
}
