package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/analytics"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/app"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/backtest"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/cache"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/storage"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the sales_history and sku_metrics tables",
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			db, err := postgres.NewDB(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(c.Context); err != nil {
				return err
			}
			fmt.Println("schema is up to date")
			return nil
		},
	}
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay forecasts over a past period and compare with realized sales",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "start",
				Usage:    "First day of the period (YYYY-MM-DD)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Period length in days",
				Value: 7,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Also write the report to this local file (.csv or .xlsx)",
			},
		},
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			start, err := time.Parse("2006-01-02", c.String("start"))
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}

			report, err := appFrom(c).Runner.Run(c.Context, start, c.Int("days"))
			if err != nil {
				return err
			}

			if out := c.String("out"); out != "" {
				format := strings.TrimPrefix(filepath.Ext(out), ".")
				data, err := backtest.Encode(report.Rows, format)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("failed writing %s: %w", out, err)
				}
			}

			if report.Key != "" {
				fmt.Fprintf(os.Stderr, "report stored as %s\n", report.Key)
			}
			return printJSON(report.Rows)
		},
	}
}

func abcCommand() *cli.Command {
	return &cli.Command{
		Name:   "abc",
		Usage:  "Print the ABC class of every SKU",
		Before: initApp,
		After:  closeApp,
		Action: func(c *cli.Context) error {
			ds := appFrom(c).Service.Dataset()
			classes := analytics.Classify(ds.History.AllRecords())

			names := make([]string, 0, len(classes))
			for name := range classes {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([]map[string]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, map[string]string{"item_name": name, "abc_class": string(classes[name])})
			}
			fmt.Fprintf(os.Stderr, "counts: %v\n", classes.Counts())
			return printJSON(rows)
		},
	}
}

func cacheCommand() *cli.Command {
	openCache := func(c *cli.Context) (cache.ForecastCache, error) {
		cfg := loadConfig(c)
		cfg.Cache.Enabled = true
		return cache.NewForecastCache(cfg.Cache)
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the forecast cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache statistics",
				Action: func(c *cli.Context) error {
					fc, err := openCache(c)
					if err != nil {
						return err
					}
					stats, err := fc.Stats(c.Context)
					if err != nil {
						return err
					}
					return printJSON(stats)
				},
			},
			{
				Name:  "flush",
				Usage: "Delete cached forecasts matching a pattern",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pattern", Value: "*", Usage: "Key pattern inside the forecast key space"},
				},
				Action: func(c *cli.Context) error {
					fc, err := openCache(c)
					if err != nil {
						return err
					}
					fmt.Printf("deleted %d entries\n", fc.InvalidateByPattern(c.Context, c.String("pattern")))
					return nil
				},
			},
			{
				Name:  "invalidate",
				Usage: "Delete cached forecasts that mention the given SKUs",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "item", Usage: "SKU name (repeatable)", Required: true},
				},
				Action: func(c *cli.Context) error {
					fc, err := openCache(c)
					if err != nil {
						return err
					}
					fmt.Printf("deleted %d entries\n", fc.InvalidateForItems(c.Context, c.StringSlice("item")))
					return nil
				},
			},
		},
	}
}

func reportsCommand() *cli.Command {
	openSink := func(c *cli.Context) (storage.ObjectStorage, string, error) {
		cfg := loadConfig(c)
		sink, err := storage.New(c.Context, app.StorageOptions(cfg))
		prefix := app.ReportPrefix(cfg)
		return sink, prefix, err
	}

	return &cli.Command{
		Name:  "reports",
		Usage: "List or download stored backtest reports",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored reports",
				Action: func(c *cli.Context) error {
					sink, prefix, err := openSink(c)
					if err != nil {
						return err
					}
					objects, err := sink.ListObjects(c.Context, prefix)
					if err != nil {
						return err
					}
					return printJSON(objects)
				},
			},
			{
				Name:  "fetch",
				Usage: "Download a stored report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true, Usage: "Report key as shown by list"},
					&cli.StringFlag{Name: "dest", Usage: "Destination path (defaults to the key's base name)"},
				},
				Action: func(c *cli.Context) error {
					sink, _, err := openSink(c)
					if err != nil {
						return err
					}
					dest := c.String("dest")
					if dest == "" {
						dest = filepath.Base(c.String("key"))
					}
					if err := sink.DownloadObject(c.Context, c.String("key"), dest); err != nil {
						return err
					}
					fmt.Printf("saved %s\n", dest)
					return nil
				},
			},
		},
	}
}
