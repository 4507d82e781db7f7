package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/dataset"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/model"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// Source supplies the live dataset, settings and model. *service.ForecastService satisfies it.
type Source interface {
	Dataset() *dataset.Dataset
	Settings() pipeline.Settings
	Model() model.Model
	ModelOptions() pipeline.Options
}

// Report is the outcome of one backtest run.
type Report struct {
	Start  time.Time            `json:"start"`
	Days   int                  `json:"days"`
	Format string               `json:"format"`
	Key    string               `json:"key,omitempty"`
	Rows   []domain.BacktestRow `json:"rows"`
}

// Runner executes backtests against the live dataset and stores the report.
type Runner struct {
	source  Source
	workers int
	sink    storage.ObjectStorage
	format  string
	prefix  string
}

// NewRunner builds a runner. sink may be nil, in which case reports are not stored.
func NewRunner(source Source, workers int, sink storage.ObjectStorage, format, prefix string) (*Runner, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return &Runner{
		source:  source,
		workers: workers,
		sink:    sink,
		format:  format,
		prefix:  prefix,
	}, nil
}

// Run backtests [start, start+days-1] and uploads the encoded report when a sink is set.
func (r *Runner) Run(ctx context.Context, start time.Time, days int) (*Report, error) {
	ds := r.source.Dataset()
	if ds == nil {
		return nil, fmt.Errorf("backtest: dataset not loaded")
	}

	exporter := NewExporter(r.source.Model(), r.source.ModelOptions(), r.workers)
	rows, err := exporter.Run(ctx, ds, r.source.Settings(), start, days)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	report := &Report{Start: start, Days: days, Format: r.format, Rows: rows}
	if r.sink == nil {
		return report, nil
	}

	data, err := Encode(rows, r.format)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	key := ReportKey(r.prefix, start, days, r.format)
	if err := r.sink.UploadObject(ctx, key, data); err != nil {
		return nil, fmt.Errorf("backtest: storing report: %w", err)
	}
	report.Key = key

	log.Info().Str("key", key).Int("rows", len(rows)).Msg("backtest report stored")
	return report, nil
}

// ReportKey names a stored report, e.g. backtest/retro_20240501_7d.csv.
func ReportKey(prefix string, start time.Time, days int, format string) string {
	return fmt.Sprintf("%sretro_%s_%dd.%s", prefix, start.Format("20060102"), days, format)
}
