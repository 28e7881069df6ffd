package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	jservice "complyledger/internal/jurisdiction/service"
	"complyledger/internal/platform/config"
	"complyledger/internal/platform/logger"
	"complyledger/internal/platform/postgres"
	"complyledger/migrations"
)

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the baseline jurisdiction rules (idempotent)",
		Long: `Write the GLOBAL FATF baseline and the EU MiCA rule, plus any rules from
--file or COMPLY_RULES_SEED_FILE. Codes that already exist are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if file != "" {
				cfg.RulesSeedFile = file
			}
			cfg.Review.Enabled = false
			a, err := buildApp(cmd.Context(), cfg, logger.New(cfg.LogLevel))
			if err != nil {
				return err
			}
			defer a.Close()
			return seedRules(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with extra seed rules")
	return cmd
}

func seedRules(ctx context.Context, a *app) error {
	rules := jservice.DefaultSeedRules()
	if a.cfg.RulesSeedFile != "" {
		extra, err := jservice.LoadSeedFile(a.cfg.RulesSeedFile)
		if err != nil {
			return err
		}
		rules = append(rules, extra...)
	}
	result, err := a.jurisdictions.Seed(ctx, rules)
	if err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	a.logger.InfoContext(ctx, "seed complete",
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("COMPLY_DATABASE_URL is required")
			}
			db, err := postgres.OpenDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			stmts, err := migrations.Statements()
			if err != nil {
				return err
			}
			if err := postgres.Migrate(cmd.Context(), db, stmts); err != nil {
				return err
			}
			logger.New(cfg.LogLevel).InfoContext(cmd.Context(), "migrations applied", "count", len(stmts))
			return nil
		},
	}
}
