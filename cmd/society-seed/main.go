package main

import (
	"context"
	"os"
	"time"

	"society/internal/cli"
	"society/internal/ledger"
	"society/internal/log"
	"society/internal/services"
)

// society-seed creates the system admin that writes without an acting user
// are attributed to, and the delete permission flag. Running it again is
// harmless.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateSeed(); err != nil {
		logger.Error("Seed configuration invalid", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	res := cli.InitBackend(ctx, logger, &storeCfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	}()

	admin, created, err := services.EnsureAdmin(ctx, res.Store, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.Error("Failed to seed system admin", log.FieldError, err)
		os.Exit(1)
	}
	if created {
		logger.Info("System admin created", log.FieldUserID, admin.ID, "email", admin.Email)
	} else {
		logger.Info("System admin already present", log.FieldUserID, admin.ID)
	}

	v, err := res.Store.GetConfig(ctx, ledger.DeleteEnabledKey)
	if err != nil {
		logger.Error("Failed to read config", log.FieldError, err)
		os.Exit(1)
	}
	if v == "" {
		if err := res.Store.SetConfig(ctx, ledger.DeleteEnabledKey, ledger.FormatFlag(false)); err != nil {
			logger.Error("Failed to seed config", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Delete permission flag initialised", "enabled", false)
	}
}
