package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/sparkquest-backend/internal/app"
	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "sparkquest",
	Short:         "Gamified learning backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(logMode())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		svc, err := db.Open(db.ConfigFromEnv(log), log)
		if err != nil {
			return err
		}
		defer svc.Close()
		if err := db.AutoMigrateAll(svc.DB()); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Info("Schema is up to date", "driver", svc.Driver())
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [topics...]",
	Short: "Insert template questions for topics that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		topics := args
		if len(topics) == 0 {
			topics = a.Cfg.SeedTopics
		}
		if err := a.Services.Seed.EnsureSeededAll(ctx, topics); err != nil {
			return err
		}
		a.Log.Info("Seeding finished", "topics", topics)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().String("addr", "", "listen address (overrides PORT)")
		c.Flags().Bool("no-migrate", false, "skip AutoMigrate on startup")
	}
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, versionCmd)
}

func serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := app.New(ctx, !noMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	return a.Run(ctx, addr)
}

func logMode() string {
	if m := os.Getenv("LOG_MODE"); m != "" {
		return m
	}
	return "development"
}

// execute runs the command tree with explicit args.
func execute(ctx context.Context, args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
