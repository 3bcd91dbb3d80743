// Command ledger-admin bootstraps accounts directly against the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"ledger/internal/auth"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "login email")
	role := flag.String("role", string(core.RoleAdmin), "account role (admin|member)")
	flag.Parse()

	// The password comes from the environment so it stays out of shell history.
	password := os.Getenv("LEDGER_ADMIN_PASSWORD")
	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" || password == "" {
		cli.Usagef("usage: LEDGER_ADMIN_PASSWORD=... ledger-admin -name NAME -email EMAIL [-role admin|member]")
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	r, err := core.ParseRole(*role)
	if err != nil {
		cli.Fatal(logger, "Invalid role", err)
	}

	cfg := config.Load()
	if err := cfg.ValidateStorage(); err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		cli.Usagef("ledger-admin needs a persistent backend; with DATA_BACKEND=memory set LEDGER_ADMIN_EMAIL on the server instead")
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	// Events are for the running server; account bootstrap stays quiet.
	backendCfg.AMQPURL = ""

	ctx := context.Background()
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	svc := services.NewLedgerService(res.Backend, auth.NewHasher(cfg.BcryptCost), nil)
	u, err := svc.CreateUser(ctx, services.NewUser{Name: *name, Email: *email, Password: password, Role: r})
	if cerr := res.Cleanup(); cerr != nil {
		logger.Warn("Backend cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		cli.Fatal(logger, "Failed to create account", err)
	}
	fmt.Printf("created %s account %d for %s\n", u.Role, u.ID, u.Email)
}
