// Command jbcctl is the operator CLI: schema migrations, legacy data merges and
// account, settings and coupon maintenance against the production database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"justbecause/internal/bootstrap"
	"justbecause/internal/infra"
)

type cli struct {
	databaseURL string
	redisURL    string
	out         *os.File
	logger      zerolog.Logger
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{out: os.Stdout}
	root := &cobra.Command{
		Use:           "jbcctl",
		Short:         "Operate the JustBeCause Network backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.logger = infra.NewLogger(os.Getenv("APP_ENV")).With().Str("cmd", cmd.CommandPath()).Logger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	root.PersistentFlags().StringVar(&c.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL used to invalidate cached stats")

	root.AddCommand(
		c.migrateCmd(),
		c.mergeLegacyCmd(),
		c.userCmd(),
		c.settingsCmd(),
		c.couponCmd(),
	)
	return root
}

func (c *cli) requireDatabase() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return fmt.Errorf("DATABASE_URL or --database-url is required")
	}
	return nil
}

// services opens the database and wires the same services the api runs.
// Callers must close the returned backends.
func (c *cli) services(ctx context.Context) (*bootstrap.Services, *bootstrap.Backends, error) {
	if err := c.requireDatabase(); err != nil {
		return nil, nil, err
	}
	cfg := &infra.Config{
		AppEnv:          "cli",
		StorageDriver:   "postgres",
		DatabaseURL:     c.databaseURL,
		RedisURL:        c.redisURL,
		FrontendBaseURL: os.Getenv("FRONTEND_BASE_URL"),
	}
	b, err := bootstrap.Open(ctx, cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := bootstrap.Build(cfg, b, c.logger, bootstrap.Options{})
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return svc, b, nil
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
