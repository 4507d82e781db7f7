package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type metricsRepository struct {
	db *DB
}

func NewMetricsRepository(db *DB) repository.MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) LoadMetrics(ctx context.Context) ([]domain.MetricsRow, error) {
	var rows []domain.MetricsRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT item_name, mape, mae FROM sku_metrics ORDER BY item_name`); err != nil {
		return nil, fmt.Errorf("error loading sku metrics: %w", err)
	}
	return rows, nil
}

func (r *metricsRepository) UpsertMetrics(ctx context.Context, rows []domain.MetricsRow) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO sku_metrics (item_name, mape, mae)
			VALUES (:item_name, :mape, :mae)
			ON CONFLICT (item_name)
			DO UPDATE SET mape = EXCLUDED.mape, mae = EXCLUDED.mae
		`
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
				return fmt.Errorf("failed to upsert metrics for %q: %w", row.ItemName, err)
			}
		}
		return nil
	})
}
