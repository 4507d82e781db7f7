package repository

import (
	"context"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

// HistoryRepository reads and writes the sales history table.
type HistoryRepository interface {
	LoadHistory(ctx context.Context) ([]domain.HistoricalRecord, error)
	InsertHistory(ctx context.Context, records []domain.HistoricalRecord) error
}

// MetricsRepository reads and writes per-SKU accuracy metrics.
type MetricsRepository interface {
	LoadMetrics(ctx context.Context) ([]domain.MetricsRow, error)
	UpsertMetrics(ctx context.Context, rows []domain.MetricsRow) error
}
