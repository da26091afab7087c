package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/cmd/cli/commands"
	"github.com/jc96818/sayitschedule-sub003/internal/config"
	"github.com/jc96818/sayitschedule-sub003/pkg/postgres"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
	"github.com/jc96818/sayitschedule-sub003/pkg/utils/logging"
)

var (
	configPath string

	// app is shared with every command; initApp fills it in before RunE fires
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sayitschedule",
		Short: "SayItSchedule CLI - Manage therapy session schedules",
		Long:  `A CLI tool for generating, copying and repairing weekly therapy session schedules.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.Logger != nil {
				app.Logger.Sync()
			}
			if app != nil && app.Database != nil {
				app.Database.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: sayitschedule_config.yaml)")

	// Add all commands
	rootCmd.AddCommand(commands.GenerateScheduleCmd(app))
	rootCmd.AddCommand(commands.CopyScheduleCmd(app))
	rootCmd.AddCommand(commands.RepairScheduleCmd(app))
	rootCmd.AddCommand(commands.AvailabilityCmd(app))
	rootCmd.AddCommand(commands.CheckSlotCmd(app))
	rootCmd.AddCommand(commands.ResolveRulesCmd(app))
	rootCmd.AddCommand(commands.ReleaseHoldCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, and proposer
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger("cli")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load configuration
	app.Logger.Debug("Loading configuration")
	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
	} else {
		app.Cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Connect to the database and apply pending migrations
	app.Logger.Debug("Connecting to database")
	app.Database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := app.Database.RunMigrations(app.Ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.Logger.Debug("Database initialized successfully")

	// Wire the proposer: a real client when an API key is available,
	// otherwise the null proposer and deterministic fallbacks apply
	app.Proposer = proposer.Null{}
	if app.Cfg.Proposer.Model != "" {
		if key := os.Getenv(app.Cfg.Proposer.APIKeyEnv); key != "" {
			app.Proposer = proposer.NewOpenAI(key, app.Cfg.Proposer.BaseURL, app.Cfg.Proposer.Model, app.Cfg.ProposerTimeout(), app.Logger)
			app.Logger.Info("Proposer configured", zap.String("model", app.Cfg.Proposer.Model))
		} else {
			app.Logger.Warn("Proposer API key not set, running without a proposer",
				zap.String("api_key_env", app.Cfg.Proposer.APIKeyEnv))
		}
	}

	return nil
}
