// Command identityd serves the identity HTTP API.
//
// @title                       Identity Service API
// @version                     1.0
// @description                 User registration, login, bearer-token validation and role-protected user administration.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/config"
	"github.com/99minutos/identity-service/internal/infrastructure/db/sqldb"
	"github.com/99minutos/identity-service/internal/infrastructure/security"
	"github.com/99minutos/identity-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "identityd:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identityd",
	})

	driver := sqldb.Driver(cfg.DB.Driver)
	db, err := sqldb.Connect(ctx, sqldb.Config{Driver: driver, DSN: cfg.DB.DSN, Timeout: cfg.DB.Timeout})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := sqldb.Migrate(ctx, db, driver); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("database ready")

	users := sqldb.NewUserRepository()
	tx := sqldb.NewCoordinator(db, logger.With("tx"))
	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Hasher.Memory,
		Iterations:  cfg.Hasher.Iterations,
		Parallelism: cfg.Hasher.Parallelism,
	}, cfg.Hasher.Concurrency)

	credentials, err := service.NewCredentialService(users, tx, hasher, security.NewJWTCodec(), cfg.JWTSecret, logger.With("credentials"))
	if err != nil {
		return fmt.Errorf("credential service: JWT_SECRET is required: %w", err)
	}
	admin := service.NewUserAdminService(users, tx, credentials, logger.With("admin"))

	if cfg.Admin.Username != "" {
		if _, err := admin.BootstrapAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	e := api.NewRouter(api.Dependencies{
		Credentials: credentials,
		Admin:       admin,
		Ready:       map[string]handler.Pinger{"database": db},
		Logger:      logger.With("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
