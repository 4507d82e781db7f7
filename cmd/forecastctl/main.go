package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/app"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/andresuchdata/autopo-py/forecast-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

type contextKey string

const appKey contextKey = "app"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Postgres connection URL (uses the pgx driver); overrides DB_* settings",
		EnvVars: []string{"DATABASE_URL"},
	}
}

// loadConfig applies the global flags on top of the environment configuration.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()
	if url := c.String("db-url"); url != "" {
		cfg.Database.Driver = "pgx"
		cfg.Database.DSN = url
	}
	if kind := c.String("model"); kind != "" {
		cfg.Model.Kind = kind
	}
	logger.SetLevel(c.String("log-level"))
	return cfg
}

func initApp(c *cli.Context) error {
	application, err := app.New(c.Context, loadConfig(c))
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if err := application.Service.Reload(c.Context); err != nil {
		application.Close()
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	c.Context = context.WithValue(c.Context, appKey, application)
	return nil
}

func closeApp(c *cli.Context) error {
	if application, ok := c.Context.Value(appKey).(*app.App); ok && application != nil {
		return application.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *app.App {
	return c.Context.Value(appKey).(*app.App)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cliApp := &cli.App{
		Name:  "forecastctl",
		Usage: "Operate the SKU demand forecast service",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Model kind (http or baseline); overrides MODEL_KIND",
				EnvVars: []string{"FORECASTCTL_MODEL"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			backtestCommand(),
			abcCommand(),
			cacheCommand(),
			reportsCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("forecastctl failed")
	}
}
