package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"ledger/internal/auth"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/render"
	"ledger/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info"), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(logger, cfg); err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	ledgerSvc := services.NewLedgerService(res.Backend, auth.NewHasher(cfg.BcryptCost), res.Events)
	if cfg.AdminEmail != "" {
		admin, created, err := ledgerSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if !admin.IsAdmin() {
			logger.Warn("Bootstrap admin email belongs to a member account", log.FieldUserID, admin.ID)
		} else if created {
			logger.Info("Bootstrap admin created", log.FieldUserID, admin.ID)
		}
	} else if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend has no accounts; set LEDGER_ADMIN_EMAIL and LEDGER_ADMIN_PASSWORD")
	}
	statements := services.NewStatementService(res.Backend, render.NewFormatter(cfg.CurrencySymbol).In(cfg.Location()),
		services.WithLocation(cfg.Location()),
		services.WithStatementEvents(res.Events))
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, statements, tokens, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
		Store:              res.Backend,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"billing_timezone", cfg.BillingTimezone,
			"events_enabled", res.Events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
