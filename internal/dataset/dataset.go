package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/analytics"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/history"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// Dataset is the read-only state every forecast runs against.
// It is replaced as a whole on reload, never mutated.
type Dataset struct {
	History  *history.Index
	ABC      analytics.ABCClassMap
	Metrics  *analytics.MetricsTable
	LoadedAt time.Time
}

// Loader reads the dataset from its repositories.
type Loader struct {
	history repository.HistoryRepository
	metrics repository.MetricsRepository
}

func NewLoader(historyRepo repository.HistoryRepository, metricsRepo repository.MetricsRepository) *Loader {
	return &Loader{history: historyRepo, metrics: metricsRepo}
}

func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	records, err := l.history.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	rows, err := l.metrics.LoadMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}

	ds, err := Build(records, rows)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("records", ds.History.Len()).
		Int("items", len(ds.History.Items())).
		Int("metrics", ds.Metrics.Len()).
		Msg("forecast dataset loaded")
	return ds, nil
}

// Build indexes records and classifies SKUs.
func Build(records []domain.HistoricalRecord, metrics []domain.MetricsRow) (*Dataset, error) {
	idx, err := history.NewIndex(records)
	if err != nil {
		return nil, fmt.Errorf("index history: %w", err)
	}

	return &Dataset{
		History:  idx,
		ABC:      analytics.Classify(records),
		Metrics:  analytics.NewMetricsTable(metrics),
		LoadedAt: time.Now(),
	}, nil
}
