package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	auth "github.com/good-food-maalsi/auth-service"
	"github.com/good-food-maalsi/auth-service/queue"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	if err := run(context.Background(), lgr); err != nil {
		lgr.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, lgr *glog.BaseLogger) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	bunDB, err := setupDatabase(cfg)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if err := runMigrations(cfg.DatabaseURL, lgr.GetLogger("migrate")); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(bunDB)
	if err := repo.Validate(); err != nil {
		return err
	}

	if err := repo.Roles().Seed(ctx); err != nil {
		return err
	}

	if err := ensureAdmin(ctx, repo, cfg, lgr.GetLogger("bootstrap")); err != nil {
		return err
	}

	publisher := queue.New(cfg.AMQPURL, lgr.GetLogger("queue"))
	defer publisher.Close()

	tokenService := auth.NewTokenService(cfg, lgr.GetLogger("tokens"))

	authenticator := auth.NewAuthenticator(repo, cfg).
		WithLogger(lgr.GetLogger("auth")).
		WithTokenService(tokenService)

	httpAuth, err := auth.NewHTTPAuthenticator(authenticator, auth.AccessValidator(tokenService), cfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(lgr.GetLogger("auth:http"))

	registerHandler := auth.NewRegisterUserHandler(
		repo,
		tokenService,
		publisher,
		cfg.QueueName,
		lgr.GetLogger("register"),
	)

	admin := auth.NewAdmin(repo).WithLogger(lgr.GetLogger("admin"))

	initMetrics()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "auth-service",
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))
	srv.Router().Use(instrumentRequests())

	srv.Router().Get("/healthz", func(c router.Context) error {
		return c.JSON(router.StatusOK, map[string]any{"status": "ok"})
	})

	auth.RegisterAuthRoutes(srv.Router(), auth.NewAuthController(
		auth.WithAuthRepository(repo),
		auth.WithAuthenticator(authenticator),
		auth.WithRouteAuthenticator(httpAuth),
		auth.WithRegisterHandler(registerHandler),
		auth.WithAuthLogger(lgr.GetLogger("auth:ctrl")),
	))

	auth.RegisterAdminRoutes(srv.Router(), auth.NewAdminController(
		auth.WithAdmin(admin),
		auth.WithAdminRouteAuthenticator(httpAuth),
		auth.WithAdminLogger(lgr.GetLogger("admin:ctrl")),
	))

	go func() {
		addr := ":" + cfg.MetricsPort
		lgr.Info("metrics listening", "addr", addr)
		if err := serveMetrics(addr); err != nil {
			lgr.Error("metrics server stopped", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	lgr.Info("http listening", "addr", addr)
	srv.Serve(addr)

	sig := waitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	return nil
}

func setupDatabase(cfg *Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseURL)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// runMigrations applies the embedded SQL migrations. Already applied versions
// are a no-op.
func runMigrations(databaseURL string, logger glog.Logger) error {
	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	source, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied", "version", version, "dirty", dirty)

	return nil
}

// ensureAdmin creates the bootstrap ADMIN account when credentials are
// configured and no account exists for that email yet.
func ensureAdmin(ctx context.Context, repo auth.RepositoryManager, cfg *Config, logger glog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Debug("admin bootstrap skipped, no credentials configured")
		return nil
	}

	email := auth.NormalizeEmail(cfg.AdminEmail)

	if _, err := repo.Users().GetByEmailWithRoles(ctx, email); err == nil {
		logger.Debug("admin account present", "email", email)
		return nil
	} else if !repository.IsRecordNotFound(err) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	return repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &auth.User{
			Username:      cfg.AdminUsername,
			Email:         email,
			PasswordHash:  hash,
			EmailVerified: true,
		}

		created, err := repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}

		role, err := repo.Roles().GetByNameTx(ctx, tx, auth.RoleAdmin)
		if err != nil {
			return err
		}

		if err := repo.Users().AssignRoleTx(ctx, tx, created.ID, role.ID); err != nil {
			return err
		}

		logger.Info("admin account created", "email", email, "user_id", created.ID)
		return nil
	})
}

func waitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
