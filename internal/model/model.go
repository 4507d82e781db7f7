package model

import (
	"context"
	"math"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/features"
)

// Model is the trained demand regressor. It returns one raw score per row;
// scores may be in log1p space.
type Model interface {
	Predict(ctx context.Context, columns []string, rows [][]float64) ([]float64, error)
}

// Func adapts a plain function to Model.
type Func func(ctx context.Context, columns []string, rows [][]float64) ([]float64, error)

func (f Func) Predict(ctx context.Context, columns []string, rows [][]float64) ([]float64, error) {
	return f(ctx, columns, rows)
}

// Baseline predicts log1p of a blend of the 7 and 30 day averages.
// It stands in for the trained model in local runs.
type Baseline struct{}

func (Baseline) Predict(ctx context.Context, columns []string, rows [][]float64) ([]float64, error) {
	avg7, avg30 := -1, -1
	for i, col := range columns {
		switch col {
		case features.SalesAvg7:
			avg7 = i
		case features.SalesAvg30:
			avg30 = i
		}
	}

	out := make([]float64, len(rows))
	for r, row := range rows {
		var estimate float64
		if avg7 >= 0 && avg7 < len(row) {
			estimate += 0.6 * row[avg7]
		}
		if avg30 >= 0 && avg30 < len(row) {
			estimate += 0.4 * row[avg30]
		}
		out[r] = math.Log1p(math.Max(estimate, 0))
	}
	return out, nil
}
