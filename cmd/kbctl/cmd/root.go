// Package cmd implements the kbctl commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"taxkb/internal/bootstrap"
	"taxkb/internal/config"
	"taxkb/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kbctl",
	Short: "Operate the tax-law knowledge base",
	Long:  `A command-line interface for ingesting documents into the tax-law knowledge base, searching it, and asking questions against it.`,
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the configuration file")
}

// loadConfigAndLogger reads the configuration and initializes logging. Every
// command starts here.
func loadConfigAndLogger() (*config.AppConfig, *logger.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.Logger.Level)
	return cfg, logger.New("kbctl"), nil
}

// buildApp connects to the configured backends. The caller must Close the
// returned app.
func buildApp(ctx context.Context) (*bootstrap.App, *config.AppConfig, error) {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return nil, nil, err
	}

	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	app, err := bootstrap.Build(buildCtx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}
