package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/dataset"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/model"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// LargeErrorThreshold is the absolute error from which a row is logged as a warning.
const LargeErrorThreshold = 30

// Exporter replays the forecast pipeline against past periods.
type Exporter struct {
	model   model.Model
	opts    pipeline.Options
	workers int
}

func NewExporter(m model.Model, opts pipeline.Options, workers int) *Exporter {
	if workers < 1 {
		workers = 1
	}
	return &Exporter{model: m, opts: opts, workers: workers}
}

// Run forecasts every SKU that has history before start and sales in
// [start, start+days-1], using only records dated before start.
// Rows follow the dataset's item order.
func (e *Exporter) Run(ctx context.Context, ds *dataset.Dataset, settings pipeline.Settings, start time.Time, days int) ([]domain.BacktestRow, error) {
	if ds == nil {
		return nil, fmt.Errorf("backtest needs a loaded dataset")
	}
	if days < 1 {
		return nil, fmt.Errorf("backtest days must be at least 1, got %d", days)
	}

	y, m, d := start.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days)
	period := domain.PeriodRange(start, days)

	view := ds.History.AsOf(start)
	aggregator := pipeline.NewAggregator(view, ds.ABC, e.model, e.opts)
	calculator := pipeline.NewInventoryCalculator(view)

	items := ds.History.Items()
	rows := make([]*domain.BacktestRow, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, name := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			records := ds.History.Records(name)
			if len(records) == 0 {
				return nil
			}
			code := records[len(records)-1].Code

			var (
				lastPast *domain.HistoricalRecord
				fact     float64
				supplied float64
				realized bool
			)
			for j := range records {
				rec := &records[j]
				switch {
				case rec.Date.Before(start):
					lastPast = rec
				case rec.Date.Before(end):
					realized = true
					fact += rec.Quantity
					supplied += rec.SupplyQty
				}
			}

			if lastPast == nil || !realized {
				return nil
			}
			if lastPast.Stock != nil && *lastPast.Stock <= 0 {
				return nil
			}

			result := aggregator.PredictPeriod(gctx, settings, pipeline.PeriodRequest{
				ItemName: name,
				Code:     code,
				Start:    start,
				Horizon:  days,
				UseFloor: false,
			})
			inventory := calculator.Calculate(settings, name, code, result.Quantity, nil)

			errValue := int(math.RoundToEven(float64(result.Quantity) - fact))
			if abs(errValue) >= LargeErrorThreshold {
				log.Warn().
					Str("item", name).
					Str("period", period).
					Int("predicted", result.Quantity).
					Float64("fact", fact).
					Int("error", errValue).
					Msg("large backtest error")
			}

			rows[i] = &domain.BacktestRow{
				ItemName:       name,
				Code:           code,
				Period:         period,
				Fact:           int(math.RoundToEven(fact)),
				Predicted:      result.Quantity,
				Error:          errValue,
				ActualOrder:    int(math.RoundToEven(supplied)),
				PredictedOrder: inventory.RecommendedOrder,
				SafetyStock:    inventory.SafetyStock,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.BacktestRow, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}

	log.Info().
		Str("period", period).
		Int("items", len(items)).
		Int("rows", len(out)).
		Msg("backtest finished")
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
