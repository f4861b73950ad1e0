package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/genie-widget/internal/config"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "genie-widget",
		Short:         "Chat widget that relays questions to an Answer Service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: console or json (overrides LOG_FORMAT)")

	rootCmd.AddCommand(newServeCmd(opts), newTUICmd(opts))
	return rootCmd
}

// loadConfig reads .env and the environment, then applies flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	// Load .env file
	envErr := godotenv.Load()

	if opts.logLevel != "" {
		os.Setenv("LOG_LEVEL", opts.logLevel)
	}
	if opts.logFormat != "" {
		os.Setenv("LOG_FORMAT", opts.logFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}
	return cfg, nil
}
