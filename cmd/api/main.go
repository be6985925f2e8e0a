package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/background"
	"github.com/BradenHooton/haulgate/internal/config"
	"github.com/BradenHooton/haulgate/internal/database"
	"github.com/BradenHooton/haulgate/internal/handlers"
	"github.com/BradenHooton/haulgate/internal/metrics"
	middlewareCustom "github.com/BradenHooton/haulgate/internal/middleware"
	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/internal/repositories"
	"github.com/BradenHooton/haulgate/internal/routes"
	"github.com/BradenHooton/haulgate/internal/services"
	pkgauth "github.com/BradenHooton/haulgate/pkg/auth"
	pkghttp "github.com/BradenHooton/haulgate/pkg/http"
)

// storage groups the repositories behind the services
type storage struct {
	users      services.UserRepository
	challenges services.OTPChallengeRepository
	devices    services.TrustedDeviceRepository
	resends    services.ResendRepository
	cleanup    []background.Task
	health     routes.HealthChecker
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	emailService, err := newEmailService(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.DeviceTrustTTL,
	)
	hasher := pkgauth.NewPasswordHasher(cfg.Auth.BcryptCost)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 400, RandomDelayMs: 200})

	rateLimitService := services.NewRateLimitService(store.resends, services.RateLimitConfig{
		MaxResendsPerEmail: cfg.Auth.ResendLimit,
		ResendWindow:       cfg.Auth.ResendWindow,
	}, logger)
	otpService := services.NewOTPService(store.challenges, auth.NewOTPGenerator(), emailService, rateLimitService, logger, m, services.OTPConfig{
		TTL:         cfg.Auth.OTPTTL,
		MaxAttempts: cfg.Auth.OTPMaxAttempts,
	})
	trustedDevices := services.NewTrustedDeviceService(store.devices, tokenManager, cfg.Auth.DeviceTrustTTL, logger)
	authService := services.NewAuthService(store.users, hasher, tokenManager, otpService, trustedDevices, timingDelay, logger, m)

	if cfg.Auth.SeedDemoUsers {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := seedDemoUsers(seedCtx, store.users, hasher, logger); err != nil {
			logger.Error("failed to seed demo users", slog.Any("error", err))
		}
		cancel()
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, cfg.Auth.SupportEmail, ipConfig)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, routes.Config{
		LoginPerMinute:  cfg.Server.LoginRateLimit,
		ResendPerMinute: cfg.Auth.ResendLimit,
		IPConfig:        ipConfig,
	}, store.health, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupManager := background.NewCleanupManager(store.cleanup, logger, m, cfg.Auth.CleanupInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleanupManager.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		cleanupManager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

// openStorage returns postgres repositories when DB_HOST is set and
// in-memory ones otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if !cfg.Database.Enabled() {
		logger.Warn("DB_HOST not set, using in-memory storage")
		challenges := repositories.NewMemoryOTPChallengeRepository()
		devices := repositories.NewMemoryTrustedDeviceRepository()
		resends := repositories.NewMemoryResendRepository()
		return &storage{
			users:      repositories.NewMemoryUserRepository(),
			challenges: challenges,
			devices:    devices,
			resends:    resends,
			cleanup:    cleanupTasks(challenges.DeleteExpired, devices.DeleteExpired, resends.DeleteBefore, cfg),
			close:      func() {},
		}, nil
	}

	db, err := database.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	challenges := repositories.NewOTPChallengeRepository(db)
	devices := repositories.NewTrustedDeviceRepository(db)
	resends := repositories.NewResendRepository(db)
	return &storage{
		users:      repositories.NewUserRepository(db),
		challenges: challenges,
		devices:    devices,
		resends:    resends,
		cleanup:    cleanupTasks(challenges.DeleteExpired, devices.DeleteExpired, resends.DeleteBefore, cfg),
		health:     db,
		close:      db.Close,
	}, nil
}

func cleanupTasks(challenges, devices, resends background.PurgeFunc, cfg *config.Config) []background.Task {
	return []background.Task{
		{Name: "otp_challenges", Retention: time.Hour, Purge: challenges},
		{Name: "trusted_devices", Purge: devices},
		{Name: "otp_resends", Retention: cfg.Auth.ResendWindow, Purge: resends},
	}
}

func newEmailService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.EmailService, error) {
	if cfg.Email.Provider == "ses" {
		return services.NewAWSSESEmailService(ctx, cfg.Email.SESRegion, cfg.Email.From, logger)
	}
	if cfg.Server.Env == "production" {
		logger.Warn("EMAIL_PROVIDER=log in production: codes are only written to the log")
	}
	return services.NewLogEmailService(logger), nil
}

// demoPassword is shared by every seeded account
const demoPassword = "Haulgate-Demo-2024"

// seedDemoUsers creates one account per interesting login outcome
func seedDemoUsers(ctx context.Context, users services.UserRepository, hasher *pkgauth.PasswordHasher, logger *slog.Logger) error {
	hash, err := hasher.Hash(demoPassword)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	demo := []models.User{
		{Email: "operator@haulgate.test", UserType: models.UserTypeOperator, Status: models.StatusActive, MFAEnabled: true},
		{Email: "admin@haulgate.test", UserType: models.UserTypeAdmin, Status: models.StatusActive, MFAEnabled: true},
		{Email: "customer@haulgate.test", UserType: models.UserTypeCustomer, Status: models.StatusActive, MFAEnabled: false},
		{Email: "provider@haulgate.test", UserType: models.UserTypeProvider, Status: models.StatusActive, SubscriptionStatus: models.SubscriptionActive, MFAEnabled: true},
		{Email: "lapsed@haulgate.test", UserType: models.UserTypeBusiness, Status: models.StatusActive, SubscriptionStatus: models.SubscriptionLapsed, MFAEnabled: true},
		{Email: "unverified@haulgate.test", UserType: models.UserTypeCustomer, Status: models.StatusNotActivated},
		{Email: "pending@haulgate.test", UserType: models.UserTypeProvider, Status: models.StatusPending},
		{Email: "suspended@haulgate.test", UserType: models.UserTypeCustomer, Status: models.StatusSuspended},
		{Email: "deleted@haulgate.test", UserType: models.UserTypeCustomer, Status: models.StatusDeleted},
	}

	for i := range demo {
		u := demo[i]
		if _, err := users.GetByEmail(ctx, u.Email); err == nil {
			continue
		} else if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to check demo user %s: %w", u.Email, err)
		}

		u.PasswordHash = hash
		u.Name = "Demo " + u.UserType
		if _, err := users.Create(ctx, &u); err != nil {
			return fmt.Errorf("failed to create demo user %s: %w", u.Email, err)
		}
	}

	logger.Info("demo users ready", slog.Int("count", len(demo)), slog.String("password", demoPassword))
	return nil
}
