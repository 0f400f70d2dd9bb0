package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/config"
	"github.com/NaikDeepak/village-mandi-sub001/internal/logging"
)

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	ConfigPath string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mandi",
		Short:         "Virtual mandi pre-order marketplace API",
		Long:          "Apna Khet runs weekly produce batches: buyers pre-order before the cutoff, pay a 10% commitment, and settle once the batch is locked.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedAdminCommand(opts))

	return cmd
}

// setup loads .env, the config and the logger. The bootstrap logger only
// reports .env loading.
func setup(opts *rootOptions) (config.Config, *zap.Logger, error) {
	boot, err := logging.New("info", true)
	if err != nil {
		return config.Config{}, nil, err
	}
	config.LoadDotEnv(boot)
	_ = boot.Sync()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Development() || level == "debug")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}
