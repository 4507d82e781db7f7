package pipeline

import (
	"math"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/history"
)

// Where the current stock figure came from.
const (
	StockSourceEvent   = "event"
	StockSourceHistory = "history"
	StockSourceNetFlow = "net_flow"
	StockSourceNone    = "none"
)

// InventoryMetrics is the replenishment recommendation for one SKU.
type InventoryMetrics struct {
	SafetyStock      int
	RecommendedOrder int
	CurrentStock     int
	StockSource      string
}

// InventoryCalculator derives safety stock and order quantity from history.
type InventoryCalculator struct {
	history history.Reader
}

func NewInventoryCalculator(reader history.Reader) *InventoryCalculator {
	return &InventoryCalculator{history: reader}
}

// Calculate computes the metrics for a forecast quantity. event may be nil.
func (ic *InventoryCalculator) Calculate(s Settings, name, code string, forecastQty int, event *domain.Event) InventoryMetrics {
	metrics := InventoryMetrics{}

	// 1. Safety stock = average daily sales over the window × safety days
	avgDaily, ok := ic.history.WindowedAverage(name, code, s.SafetyWindowDays, nil)
	if !ok {
		avgDaily = 0
	}
	metrics.SafetyStock = int(math.RoundToEven(avgDaily * float64(s.SafetyDays)))

	// 2. Current stock
	metrics.CurrentStock, metrics.StockSource = ic.CurrentStock(name, code, event)

	// 3. Recommended order = forecast + safety − stock, never negative
	metrics.RecommendedOrder = forecastQty + metrics.SafetyStock - metrics.CurrentStock
	if metrics.RecommendedOrder < 0 {
		metrics.RecommendedOrder = 0
	}

	return metrics
}

// CurrentStock resolves on-hand stock: event fields in priority order, then the
// latest historical stock, then the running net-flow estimate, then zero.
func (ic *InventoryCalculator) CurrentStock(name, code string, event *domain.Event) (int, string) {
	if event != nil {
		for _, v := range []*float64{event.StockInStore, event.Remaining, event.Stock} {
			if usable(v) {
				return int(math.Trunc(*v)), StockSourceEvent
			}
		}
	}

	if rec, ok := ic.history.LookupLatest(name, code); ok && usable(rec.Stock) {
		return int(math.Trunc(*rec.Stock)), StockSourceHistory
	}

	if v, ok := ic.history.NetFlowStock(name); ok && !math.IsNaN(v) {
		return int(math.RoundToEven(v)), StockSourceNetFlow
	}

	return 0, StockSourceNone
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
