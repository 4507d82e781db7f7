package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 {
	return &v
}

func stockIndex(t *testing.T) *history.Index {
	t.Helper()
	idx, err := history.NewIndex([]domain.HistoricalRecord{
		{ItemName: "Tracked", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Quantity: 4, SupplyQty: 10, Stock: fp(20)},
		{ItemName: "Tracked", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Quantity: 2, Stock: fp(18.7)},
		{ItemName: "Flow", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Quantity: 3, SupplyQty: 10},
		{ItemName: "Flow", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Quantity: 2, Stock: fp(math.NaN())},
	})
	require.NoError(t, err)
	return idx
}

func TestCalculateSafetyAndOrder(t *testing.T) {
	ic := NewInventoryCalculator(stockIndex(t))

	m := ic.Calculate(DefaultSettings(), "Tracked", "", 30, nil)

	assert.Equal(t, 9, m.SafetyStock)
	assert.Equal(t, 18, m.CurrentStock)
	assert.Equal(t, StockSourceHistory, m.StockSource)
	assert.Equal(t, 21, m.RecommendedOrder)
}

func TestCalculateOrderNeverNegative(t *testing.T) {
	ic := NewInventoryCalculator(stockIndex(t))
	event := &domain.Event{Stock: fp(500)}

	m := ic.Calculate(DefaultSettings(), "Tracked", "", 5, event)

	assert.Equal(t, 0, m.RecommendedOrder)
	assert.Equal(t, 500, m.CurrentStock)
}

func TestCurrentStockPriority(t *testing.T) {
	ic := NewInventoryCalculator(stockIndex(t))

	stock, src := ic.CurrentStock("Tracked", "", &domain.Event{StockInStore: fp(7), Remaining: fp(8), Stock: fp(9)})
	assert.Equal(t, 7, stock)
	assert.Equal(t, StockSourceEvent, src)

	stock, _ = ic.CurrentStock("Tracked", "", &domain.Event{Remaining: fp(8), Stock: fp(9)})
	assert.Equal(t, 8, stock)

	stock, _ = ic.CurrentStock("Tracked", "", &domain.Event{Stock: fp(9.9)})
	assert.Equal(t, 9, stock)

	stock, src = ic.CurrentStock("Flow", "", &domain.Event{})
	assert.Equal(t, 5, stock)
	assert.Equal(t, StockSourceNetFlow, src)

	stock, src = ic.CurrentStock("Missing", "", nil)
	assert.Equal(t, 0, stock)
	assert.Equal(t, StockSourceNone, src)
}

func TestCalculateUnknownSKU(t *testing.T) {
	ic := NewInventoryCalculator(stockIndex(t))

	m := ic.Calculate(DefaultSettings(), "Missing", "", 7, nil)

	assert.Equal(t, 0, m.SafetyStock)
	assert.Equal(t, 7, m.RecommendedOrder)
}
