package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/drivehub/auth-service/internal/auth"
	"github.com/drivehub/auth-service/internal/config"
	"github.com/drivehub/auth-service/internal/health"
	"github.com/drivehub/auth-service/internal/logger"
	"github.com/drivehub/auth-service/internal/metrics"
	authmw "github.com/drivehub/auth-service/internal/middleware"
	"github.com/drivehub/auth-service/internal/repository"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	dbPool, err := setupDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// sqlx connection for the audit repository, sharing the same database
	sqlxDB, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to open sqlx connection", "error", err)
		os.Exit(1)
	}
	defer sqlxDB.Close()
	sqlxDB.SetMaxOpenConns(10)
	sqlxDB.SetMaxIdleConns(5)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	auditRepo := repository.NewLoginAuditRepository(sqlxDB)

	// Services
	hasher := auth.NewPasswordHasher(cfg.Auth.HashIterations)
	lockout := auth.NewLockoutPolicy(cfg.Auth.MaxLoginAttempts, cfg.Auth.LockoutDuration)

	authService := auth.NewAuthServiceWithAudit(
		userRepo,
		sessionRepo,
		auditRepo,
		hasher,
		lockout,
		cfg.Auth.SessionTTL,
		log,
	)

	// Handlers and middleware
	authHandler := auth.NewAuthHandler(authService)
	authMiddleware := authmw.NewAuthMiddleware(authService)
	loginLimiter := authmw.NewLoginRateLimiter()
	loggingMiddleware := authmw.NewLoggingMiddleware(log)

	healthHandler := health.NewHandler(health.Config{
		DBPool:  dbPool,
		Version: version,
	})

	// Database stats for /metrics
	dbStats := metrics.NewDBStatsCollector(dbPool, sqlxDB.DB, log)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	// Setup router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(loggingMiddleware.Handler)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Readiness)
	r.Get("/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler, authMiddleware.Authenticate, loginLimiter.Limit)
	})

	// Background sweep of expired session rows and old audit rows. Lazy expiry
	// on verify is the source of truth; the sweep only keeps the tables from
	// growing unbounded.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepStaleRows(sweepCtx, sessionRepo, auditRepo, time.Hour, log)

	// Create server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting auth service", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	healthHandler.SetReady(false)
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Connected to database",
		"db", cfg.Database.DBName,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
	)
	return pool, nil
}

// auditRetention is how long login attempt rows are kept before pruning
const auditRetention = 30 * 24 * time.Hour

// sweepStaleRows periodically deletes session rows past their expiry and
// audit rows past the retention window
func sweepStaleRows(ctx context.Context, sessions repository.SessionRepository, audit repository.LoginAuditRepository, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().UTC()

			deleted, err := sessions.DeleteExpiredBefore(ctx, now)
			if err != nil {
				log.Warn("Expired session sweep failed", "error", err)
			} else if deleted > 0 {
				metrics.SessionsSweptTotal.Add(float64(deleted))
				log.Info("Swept expired sessions", "deleted", deleted)
			}

			pruned, err := audit.DeleteOlderThan(ctx, now.Add(-auditRetention))
			if err != nil {
				log.Warn("Audit row sweep failed", "error", err)
			} else if pruned > 0 {
				log.Info("Pruned old login attempts", "deleted", pruned)
			}
		case <-ctx.Done():
			return
		}
	}
}
