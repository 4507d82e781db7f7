package analytics

import (
	"sort"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

const (
	abcShareA = 0.70
	abcShareB = 0.90
)

// ABCClassMap maps SKU names to their volume class.
type ABCClassMap map[string]domain.ABCClass

// Class returns the class of a SKU, if it was classified.
func (m ABCClassMap) Class(name string) (domain.ABCClass, bool) {
	class, ok := m[name]
	return class, ok
}

// Counts returns how many SKUs fall into each class.
func (m ABCClassMap) Counts() map[domain.ABCClass]int {
	counts := map[domain.ABCClass]int{
		domain.ABCClassA: 0,
		domain.ABCClassB: 0,
		domain.ABCClassC: 0,
	}
	for _, class := range m {
		counts[class]++
	}
	return counts
}

// Classify ranks SKUs by total quantity sold and assigns A while the
// cumulative share stays within 70%, B within 90%, C otherwise.
// Ties keep first-appearance order. With no volume at all every SKU is C.
func Classify(records []domain.HistoricalRecord) ABCClassMap {
	type total struct {
		name   string
		volume float64
	}

	positions := make(map[string]int)
	var totals []total
	var grand float64
	for _, rec := range records {
		pos, ok := positions[rec.ItemName]
		if !ok {
			pos = len(totals)
			positions[rec.ItemName] = pos
			totals = append(totals, total{name: rec.ItemName})
		}
		totals[pos].volume += rec.Quantity
		grand += rec.Quantity
	}

	classes := make(ABCClassMap, len(totals))
	if grand <= 0 {
		for _, t := range totals {
			classes[t.name] = domain.ABCClassC
		}
		return classes
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].volume > totals[j].volume
	})

	var cumulative float64
	for _, t := range totals {
		cumulative += t.volume
		share := cumulative / grand
		switch {
		case share <= abcShareA:
			classes[t.name] = domain.ABCClassA
		case share <= abcShareB:
			classes[t.name] = domain.ABCClassB
		default:
			classes[t.name] = domain.ABCClassC
		}
	}
	return classes
}
