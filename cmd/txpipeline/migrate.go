package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/txpipeline/internal/infrastructure/config"
	"github.com/iho/txpipeline/internal/infrastructure/logger"
	"github.com/iho/txpipeline/internal/infrastructure/postgres"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func newMigrateCmd(out io.Writer) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(out, postgres.RunMigrations, "migrations applied")
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(out, postgres.RunMigrationsDown, "migration rolled back")
		},
	}

	migrateCmd.AddCommand(up, down)
	return migrateCmd
}

func migrate(out io.Writer, fn func(string, zerolog.Logger) error, done string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errNoDatabase
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "migrate"})
	if err := fn(cfg.DatabaseURL, log); err != nil {
		return err
	}

	fmt.Fprintln(out, done)
	return nil
}
