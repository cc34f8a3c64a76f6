package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/ava/api/handler"
	"github.com/fastygo/ava/internal/config"
	"github.com/fastygo/ava/internal/infrastructure/buffer"
	"github.com/fastygo/ava/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/ava/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/ava/internal/infrastructure/redis"
	"github.com/fastygo/ava/internal/infrastructure/token"
	"github.com/fastygo/ava/internal/middleware"
	"github.com/fastygo/ava/internal/router"
	"github.com/fastygo/ava/internal/services"
	"github.com/fastygo/ava/internal/services/lifecycle"
	"github.com/fastygo/ava/pkg/httpcontext"
	"github.com/fastygo/ava/pkg/logger"
	"github.com/fastygo/ava/pkg/validation"
	"github.com/fastygo/ava/repository/postgres"
	redisRepo "github.com/fastygo/ava/repository/redis"
	adminUC "github.com/fastygo/ava/usecase/admin"
	authUC "github.com/fastygo/ava/usecase/auth"
	profileUC "github.com/fastygo/ava/usecase/profile"
	"github.com/fastygo/ava/usecase/provisioning"
	"github.com/fastygo/ava/usecase/routing"
)

const devJWTSecret = "ava-development-secret"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.JWT.Secret == "" {
		zapLogger.Warn("JWT_SECRET not set, using development secret")
		cfg.JWT.Secret = devJWTSecret
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	stopListening := manager.Listen(cancel)
	defer stopListening()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool, redisInfra.Pinger{Client: redisClient}, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	roleRepo := postgres.NewRoleRepository(pool)
	societyRepo := postgres.NewSocietyRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL)
	resetRepo := redisRepo.NewResetTokenRepository(redisClient)
	draftRepo := redisRepo.NewDraftRepository(redisClient, cfg.Session.DraftTTL)

	bufferProcessor, err := services.NewBufferProcessor(
		bufferStore,
		mon,
		profileRepo,
		societyRepo,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
			MaxSize:    cfg.Buffer.MaxSize,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		},
	)
	if err != nil {
		zapLogger.Fatal("failed to schedule buffer processor", zap.Error(err))
	}
	bufferProcessor.Start()
	manager.Register("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	bufferBridge := services.NewBufferBridge(bufferProcessor)
	validator := validation.New()
	issuer := token.NewIssuer(token.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.AccessTTL,
	})

	authUseCase := authUC.New(
		userRepo,
		roleRepo,
		sessionRepo,
		resetRepo,
		issuer,
		authUC.NewLogNotifier(zapLogger),
		validator,
		authUC.Config{
			SessionTTL: cfg.Session.TTL,
			ResetTTL:   cfg.Session.ResetTTL,
			ResetURL:   cfg.PublicURL + "/auth/reset",
		},
		zapLogger,
	)
	postLoginRouter := routing.New(profileRepo, zapLogger)
	provisioningFlow := provisioning.New(
		societyRepo,
		profileRepo,
		draftRepo,
		authUseCase,
		validator,
		provisioning.Config{RedirectDelay: cfg.Provisioning.RedirectDelay},
		zapLogger,
	)
	profileUseCase := profileUC.New(userRepo, profileRepo, roleRepo, societyRepo, bufferBridge, validator, zapLogger)
	adminUseCase := adminUC.New(societyRepo, profileRepo, bufferBridge, validator, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	draftCookie := apiHandler.CookieConfig{Secure: cfg.HTTP.SecureCookie, TTL: cfg.Session.DraftTTL}
	handlers := router.Handlers{
		Auth:      apiHandler.NewAuthHandler(authUseCase, postLoginRouter, validator, ctxAdapter, zapLogger),
		Profile:   apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Presignup: apiHandler.NewPresignupHandler(provisioningFlow, draftCookie, ctxAdapter, zapLogger),
		Admin:     apiHandler.NewAdminHandler(provisioningFlow, adminUseCase, ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(issuer, authUseCase, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, authMiddleware, middleware.AdminGuard)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
