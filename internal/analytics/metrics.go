package analytics

import (
	"math"
	"sort"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

const (
	// Used when the metrics table is empty.
	DefaultMAPE = 15.0
	DefaultMAE  = 0.5
)

type metricPair struct {
	mape *float64
	mae  *float64
}

// MetricsTable answers per-SKU accuracy lookups with corpus-mean fallbacks.
type MetricsTable struct {
	rows       map[string]metricPair
	scale      float64
	globalMAPE float64
	globalMAE  float64
}

// NewMetricsTable indexes the rows by SKU name. When the median MAPE is at
// most 1 the column is treated as a fraction and scaled to percent.
func NewMetricsTable(rows []domain.MetricsRow) *MetricsTable {
	t := &MetricsTable{
		rows:       make(map[string]metricPair, len(rows)),
		scale:      1,
		globalMAPE: DefaultMAPE,
		globalMAE:  DefaultMAE,
	}

	var mapes, maes []float64
	for _, row := range rows {
		pair := metricPair{mape: finite(row.MAPE), mae: finite(row.MAE)}
		t.rows[row.ItemName] = pair
		if pair.mape != nil {
			mapes = append(mapes, *pair.mape)
		}
		if pair.mae != nil {
			maes = append(maes, *pair.mae)
		}
	}

	if len(mapes) > 0 {
		if median(mapes) <= 1 {
			t.scale = 100
		}
		t.globalMAPE = mean(mapes) * t.scale
	}
	if len(maes) > 0 {
		t.globalMAE = mean(maes)
	}
	return t
}

// Get returns the MAPE (percent) and MAE of a SKU by exact name.
func (t *MetricsTable) Get(name string) (float64, float64) {
	mape, mae := t.globalMAPE, t.globalMAE
	pair, ok := t.rows[name]
	if !ok {
		return mape, mae
	}
	if pair.mape != nil {
		mape = *pair.mape * t.scale
	}
	if pair.mae != nil {
		mae = *pair.mae
	}
	return mape, mae
}

// Global returns the corpus means used as fallbacks.
func (t *MetricsTable) Global() (float64, float64) {
	return t.globalMAPE, t.globalMAE
}

func (t *MetricsTable) Len() int {
	return len(t.rows)
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
