package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/auth"
	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/config"
	"github.com/NaikDeepak/village-mandi-sub001/internal/storage/postgres"
)

var errAdminCredentials = errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must both be set")

func newSeedAdminCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap admin from ADMIN_EMAIL and ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cfg.Auth.AdminEmail == "" || cfg.Auth.AdminPassword == "" {
				return errAdminCredentials
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), startupTimeout)
			defer cancel()

			pool, err := connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrate(ctx, pool, logger); err != nil {
				return err
			}

			clk := clock.NewSystem()
			svc := app.NewAuthService(postgres.NewUserRepository(pool), auth.NewTokenIssuer(cfg.Auth.JWTSecret, clk), nil, clk)
			return seedAdmin(ctx, svc, cfg, logger)
		},
	}
}

type adminSeeder interface {
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// seedAdmin is a no-op unless both admin credentials are configured. An
// existing account keeps its password.
func seedAdmin(ctx context.Context, svc adminSeeder, cfg config.Config, logger *zap.Logger) error {
	if cfg.Auth.AdminEmail == "" || cfg.Auth.AdminPassword == "" {
		logger.Debug("admin credentials not configured, skipping admin seed")
		return nil
	}
	created, err := svc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		logger.Info("created admin user", zap.String("email", cfg.Auth.AdminEmail))
	} else {
		logger.Info("admin user already exists", zap.String("email", cfg.Auth.AdminEmail))
	}
	return nil
}
