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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"qrbook.backend/internal/bootstrap"
	"qrbook.backend/internal/config"
	"qrbook.backend/internal/domain/entities"
	"qrbook.backend/internal/infrastructure/jobs"
	"qrbook.backend/internal/infrastructure/mongostore"
	"qrbook.backend/internal/interfaces/http/handlers"
	"qrbook.backend/internal/interfaces/http/middleware"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/imageutil"
	"qrbook.backend/pkg/jwt"
	"qrbook.backend/pkg/logger"
	"qrbook.backend/pkg/redis"
	"qrbook.backend/pkg/validation"
)

const shutdownTimeout = 10 * time.Second

var (
	loadDotenv   = godotenv.Load
	loadCfg      = config.Load
	initLog      = logger.Init
	initRedis    = redis.Init
	openDB       = bootstrap.OpenPostgres
	connectMongo = mongostore.Connect
	newBlobStore = bootstrap.NewBlobStore
	runServer    = func(ctx context.Context, handler http.Handler, port string) error {
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := validation.RegisterGin(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, bootstrap.Dialers{
		OpenSQL:      openDB,
		ConnectMongo: connectMongo,
	})
	if err != nil {
		return err
	}
	defer stores.Close()

	blobs, err := newBlobStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)
	rdb := redis.GetClient()
	resetLimiter := redis.NewFixedWindowLimiter(rdb, "forgot-password:", cfg.Auth.ForgotPasswordLimit, cfg.Auth.ForgotPasswordWindow)

	cardUsecase := usecases.NewCardUsecase(
		stores.Cards,
		stores.Users,
		blobs,
		stores.UoW,
		imageutil.NewNormalizer(cfg.Cards.ImageMaxDimension),
		usecases.CardUsecaseConfig{
			PublicHost:     cfg.Cards.PublicHost,
			SweepBatchSize: cfg.Cards.SweepBatchSize,
			MaxImageBytes:  cfg.Cards.MaxImageBytes,
		},
	)
	userUsecase := usecases.NewUserUsecase(stores.Users, stores.UoW, jwtService, bootstrap.NewMailer(cfg.Mail), resetLimiter)
	userUsecase.SetResetAttemptLimiter(
		redis.NewFixedWindowLimiter(rdb, "reset-password:", cfg.Auth.ResetAttemptLimit, entities.ResetOTPLifetime),
	)

	cardHandler := handlers.NewCardHandler(cardUsecase, cfg.Cards.MaxImageBytes)
	userHandler := handlers.NewUserHandler(userUsecase)
	adminHandler := handlers.NewAdminHandler(userUsecase, cardUsecase)

	expiryJob := jobs.NewCardExpiryJob(cardUsecase, cfg.Cards.SweepSchedule)
	if err := expiryJob.Start(ctx); err != nil {
		return fmt.Errorf("failed to start card expiry job: %w", err)
	}
	defer expiryJob.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	// Request bodies above the image limit plus form overhead are spooled to disk
	r.MaxMultipartMemory = cfg.Cards.MaxImageBytes + 1<<20

	applyCORSMiddleware(r, cfg.Server.FrontendOrigin)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIRoutes(r, routeDeps{
		cardHandler:    cardHandler,
		userHandler:    userHandler,
		adminHandler:   adminHandler,
		authMiddleware: middleware.AuthMiddleware(jwtService),
		idempotency:    middleware.IdempotencyMiddleware(cfg.Auth.IdempotencyTTL),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	logger.Info(ctx, "QRbook backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("api", "http://localhost:"+cfg.Server.Port+"/api"),
		zap.String("health", "http://localhost:"+cfg.Server.Port+"/health"),
	)

	if err := runServer(ctx, r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info(context.Background(), "Server stopped")
	return nil
}
