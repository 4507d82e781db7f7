package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type historyRow struct {
	ItemName   string          `db:"item_name"`
	Code       sql.NullString  `db:"code"`
	SaleDate   sql.NullTime    `db:"sale_date"`
	Quantity   float64         `db:"quantity"`
	SupplyQty  float64         `db:"supply_qty"`
	ShelfPrice sql.NullFloat64 `db:"shelf_price"`
	Stock      sql.NullFloat64 `db:"stock"`
	Pred       sql.NullFloat64 `db:"pred"`
	Group      sql.NullString  `db:"item_group"`
	Type       sql.NullString  `db:"item_type"`
	Features   sql.NullString  `db:"features"`
}

type historyRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

// LoadHistory returns every history row. A row without a sale date is an error.
func (r *historyRepository) LoadHistory(ctx context.Context) ([]domain.HistoricalRecord, error) {
	query := `
		SELECT item_name, code, sale_date, quantity, supply_qty, shelf_price,
			stock, pred, item_group, item_type, features
		FROM sales_history
		ORDER BY sale_date, item_name
	`

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error loading sales history: %w", err)
	}

	records := make([]domain.HistoricalRecord, 0, len(rows))
	for i, row := range rows {
		if !row.SaleDate.Valid {
			return nil, fmt.Errorf("sales_history row %d (%q) has no sale_date", i, row.ItemName)
		}

		rec := domain.HistoricalRecord{
			ItemName:   row.ItemName,
			Code:       row.Code.String,
			Date:       row.SaleDate.Time,
			Quantity:   row.Quantity,
			SupplyQty:  row.SupplyQty,
			ShelfPrice: nullFloat(row.ShelfPrice),
			Stock:      nullFloat(row.Stock),
			Pred:       nullFloat(row.Pred),
			Group:      row.Group.String,
			Type:       row.Type.String,
		}
		if row.Features.Valid && row.Features.String != "" {
			if err := json.Unmarshal([]byte(row.Features.String), &rec.Features); err != nil {
				return nil, fmt.Errorf("sales_history row %d (%q): decode features: %w", i, row.ItemName, err)
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func (r *historyRepository) InsertHistory(ctx context.Context, records []domain.HistoricalRecord) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO sales_history (
				item_name, code, sale_date, quantity, supply_qty, shelf_price,
				stock, pred, item_group, item_type, features
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)

		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			var features sql.NullString
			if len(rec.Features) > 0 {
				payload, err := json.Marshal(rec.Features)
				if err != nil {
					return fmt.Errorf("encode features of %q: %w", rec.ItemName, err)
				}
				features = sql.NullString{String: string(payload), Valid: true}
			}

			var saleDate sql.NullTime
			if !rec.Date.IsZero() {
				saleDate = sql.NullTime{Time: rec.Date, Valid: true}
			}

			if _, err := stmt.ExecContext(ctx,
				rec.ItemName,
				nullString(rec.Code),
				saleDate,
				rec.Quantity,
				rec.SupplyQty,
				rec.ShelfPrice,
				rec.Stock,
				rec.Pred,
				nullString(rec.Group),
				nullString(rec.Type),
				features,
			); err != nil {
				return fmt.Errorf("failed to insert history row for %q: %w", rec.ItemName, err)
			}
		}
		return nil
	})
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
