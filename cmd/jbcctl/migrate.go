package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"justbecause/internal/adapter/repo"
	"justbecause/internal/infra"
	"justbecause/internal/migrations"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	run := func(name string, fn func(context.Context, *sql.DB) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: name + " schema migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := c.requireDatabase(); err != nil {
					return err
				}
				db, err := migrations.Open(c.databaseURL)
				if err != nil {
					return err
				}
				defer db.Close()
				return fn(cmd.Context(), db)
			},
		}
	}
	cmd.AddCommand(
		run("up", migrations.Up),
		run("down", migrations.Down),
		run("status", migrations.Status),
	)
	return cmd
}

func (c *cli) mergeLegacyCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "merge-legacy",
		Short: "Copy profiles from the legacy volunteer_profiles and ngo_profiles tables",
		Long: "Fills users.volunteer_profile and users.ngo_profile from the legacy tables.\n" +
			"Accounts that already have a profile are skipped, so the command is safe to rerun.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireDatabase(); err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: c.databaseURL})
			if err != nil {
				return err
			}
			defer pool.Close()

			report, err := repo.MergeLegacyProfiles(ctx, infra.NewSQLRunner(pool, c.logger), dryRun)
			if err != nil {
				return err
			}
			for _, t := range report.MissingTables {
				c.printf("skipped %s: table not found\n", t)
			}
			verb := "merged"
			if dryRun {
				verb = "would merge"
			}
			c.printf("%s %d volunteer and %d organisation profiles\n", verb, report.Volunteers, report.NGOs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report counts without writing")
	return cmd
}
