package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/backtest"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/cache"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/dataset"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/model"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/service"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config  *config.Config
	DB      *postgres.DB
	Cache   cache.ForecastCache
	Service *service.ForecastService
	Runner  *backtest.Runner
}

// NewModel selects the model client from configuration.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("MODEL_ENDPOINT is required for the http model")
		}
		return model.NewHTTPModel(cfg.Endpoint, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	case "baseline":
		return model.Baseline{}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", cfg.Kind)
	}
}

// New connects the database and cache and builds the forecast service.
// The dataset is not loaded; call Service.Reload.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	settings, err := pipeline.NewSettingsStore(cfg.Calibration)
	if err != nil {
		return nil, fmt.Errorf("calibration settings: %w", err)
	}

	m, err := NewModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("forecast cache unavailable, continuing without it")
		forecastCache = cache.NewNoopForecastCache()
	}

	loader := dataset.NewLoader(postgres.NewHistoryRepository(db), postgres.NewMetricsRepository(db))
	svc := service.NewForecastService(
		loader,
		settings,
		m,
		pipeline.Options{LogTarget: cfg.Model.LogTarget},
		forecastCache,
		cfg.Cache.TTL(),
	)

	sink, err := storage.New(ctx, StorageOptions(cfg))
	if err != nil {
		log.Warn().Err(err).Str("sink", cfg.Storage.Sink).Msg("report sink unavailable, backtest reports will not be stored")
	}

	runner, err := backtest.NewRunner(svc, cfg.Backtest.Workers, sink, cfg.Backtest.Format, ReportPrefix(cfg))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		DB:      db,
		Cache:   forecastCache,
		Service: svc,
		Runner:  runner,
	}, nil
}

// StorageOptions maps the report sink configuration.
func StorageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Sink:     cfg.Storage.Sink,
		LocalDir: cfg.Backtest.OutputDir,
		S3: storage.S3Config{
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			UseSSL:    cfg.Storage.S3UseSSL,
		},
		Drive: storage.DriveConfig{
			CredentialsJSON: cfg.Storage.DriveCredentialsKey,
			FolderID:        cfg.Storage.DriveFolderID,
		},
	}
}

// ReportPrefix is the key prefix for stored reports. The local sink is
// already rooted at the output directory and gets none.
func ReportPrefix(cfg *config.Config) string {
	if cfg.Storage.Sink == "" || strings.EqualFold(cfg.Storage.Sink, storage.SinkLocal) {
		return ""
	}
	return cfg.Storage.S3Prefix
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
