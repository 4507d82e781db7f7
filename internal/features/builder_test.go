package features

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *history.Index {
	t.Helper()
	stock := 12.0
	idx, err := history.NewIndex([]domain.HistoricalRecord{
		{
			ItemName:  "Milk",
			Code:      "100",
			Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Quantity:  5,
			SupplyQty: 3,
			Stock:     &stock,
			Features: map[string]float64{
				ItemNameEnc: 42,
				SalesAvg7:   4.5,
				SalesStd7:   math.NaN(),
				Month:       1,
			},
		},
	})
	require.NoError(t, err)
	return idx
}

func TestBuildKnownSKU(t *testing.T) {
	b := NewBuilder(newTestIndex(t))
	target := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) // Saturday

	vec := b.Build("Milk", "", target, nil)

	require.Len(t, vec, len(Columns))
	assert.Equal(t, 42.0, vec.Get(ItemNameEnc))
	assert.Equal(t, -1.0, vec.Get(GroupEnc), "missing categorical column")
	assert.Equal(t, 4.5, vec.Get(SalesAvg7))
	assert.Equal(t, 0.0, vec.Get(SalesStd7), "NaN is replaced")
	assert.Equal(t, 3.0, vec.Get(SupplyQty))
	assert.Equal(t, 12.0, vec.Get(Stock))
	assert.Equal(t, 0.0, vec.Get(IsColdStart))

	assert.Equal(t, 6.0, vec.Get(Month))
	assert.Equal(t, 15.0, vec.Get(DayOfMonth))
	assert.Equal(t, 5.0, vec.Get(Weekday))
	assert.Equal(t, 2.0, vec.Get(Quarter))
	assert.Equal(t, 1.0, vec.Get(IsWeekend))
}

func TestBuildUnseenSKU(t *testing.T) {
	b := NewBuilder(newTestIndex(t))
	target := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC) // Wednesday
	price := 99.5

	vec := b.Build("NewItem", "X-1", target, &price)

	assert.Equal(t, HashEncoding("NewItem"), vec.Get(ItemNameEnc))
	assert.Equal(t, HashEncoding("X-1"), vec.Get(CodeEnc))
	assert.Less(t, vec.Get(ItemNameEnc), 100000.0)
	assert.Equal(t, 1.0, vec.Get(IsColdStart))
	assert.Greater(t, vec.Get(SalesAvg7), 0.0)
	assert.Equal(t, 99.5, vec.Get(ShelfPrice))
	assert.Equal(t, 2.0, vec.Get(Weekday))
	assert.Equal(t, 0.0, vec.Get(IsWeekend))
	assert.Equal(t, 1.0, vec.Get(Quarter))

	for i, v := range vec {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "column %s", Columns[i])
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(newTestIndex(t))
	target := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, b.Build("Ghost", "", target, nil), b.Build("Ghost", "", target, nil))
	assert.False(t, b.Known("Ghost", ""))
	assert.True(t, b.Known("Milk", "100"))
}

func TestVectorMapAndSet(t *testing.T) {
	vec := newVector()
	vec.Set(SalesLag1, 3)
	vec.Set("not_a_column", 9)

	m := vec.Map()
	assert.Len(t, m, len(Columns))
	assert.Equal(t, 3.0, m[SalesLag1])
	assert.Equal(t, 0.0, vec.Get("not_a_column"))
	assert.True(t, HasColumn(ShelfPrice))
}
