package history

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

// Reader answers the history lookups the forecast pipeline needs.
type Reader interface {
	LookupLatest(name, code string) (*domain.HistoricalRecord, bool)
	WindowedAverage(name, code string, window int, before *time.Time) (float64, bool)
	NetFlowStock(name string) (float64, bool)
	BiasRatio(name string) (float64, bool)
}

// Index is an immutable view of the historical dataset keyed by SKU name and code.
type Index struct {
	records []domain.HistoricalRecord
	byName  map[string][]int
	byCode  map[string][]int
	// netFlow[i] is the running supply minus sales of records[i]'s SKU up to and including i.
	netFlow []float64
	bias    map[string]float64
	items   []string
}

// NewIndex sorts the records by date and builds the lookup tables.
// A record without a date is a schema violation.
func NewIndex(records []domain.HistoricalRecord) (*Index, error) {
	sorted := make([]domain.HistoricalRecord, len(records))
	copy(sorted, records)

	for i, rec := range sorted {
		if rec.Date.IsZero() {
			return nil, fmt.Errorf("history record %d (%q) has no date", i, rec.ItemName)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	idx := &Index{
		records: sorted,
		byName:  make(map[string][]int),
		byCode:  make(map[string][]int),
		netFlow: make([]float64, len(sorted)),
		bias:    make(map[string]float64),
	}

	running := make(map[string]float64)
	predSum := make(map[string]float64)
	factSum := make(map[string]float64)
	seen := make(map[string]bool)

	for i, rec := range sorted {
		if !seen[rec.ItemName] {
			seen[rec.ItemName] = true
			idx.items = append(idx.items, rec.ItemName)
		}
		idx.byName[rec.ItemName] = append(idx.byName[rec.ItemName], i)
		if code := NormalizeCode(rec.Code); code != "" {
			idx.byCode[code] = append(idx.byCode[code], i)
		}

		running[rec.ItemName] += rec.SupplyQty - rec.Quantity
		idx.netFlow[i] = running[rec.ItemName]

		if rec.Pred != nil && !math.IsNaN(*rec.Pred) {
			predSum[rec.ItemName] += *rec.Pred
			factSum[rec.ItemName] += rec.Quantity
		}
	}

	for name, pred := range predSum {
		if pred > 0 {
			idx.bias[name] = factSum[name] / pred
		}
	}

	return idx, nil
}

// NormalizeCode trims a SKU code and drops a trailing ".0" left by numeric exports.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(code, 64); err == nil && f == math.Trunc(f) && strings.Contains(code, ".") {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return code
}

// Len returns the number of records.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Items returns SKU names in first-appearance order by date.
func (idx *Index) Items() []string {
	out := make([]string, len(idx.items))
	copy(out, idx.items)
	return out
}

// Records returns every record of a SKU name in date order.
func (idx *Index) Records(name string) []domain.HistoricalRecord {
	positions := idx.byName[name]
	out := make([]domain.HistoricalRecord, 0, len(positions))
	for _, pos := range positions {
		out = append(out, idx.records[pos])
	}
	return out
}

// AllRecords returns a copy of the sorted dataset.
func (idx *Index) AllRecords() []domain.HistoricalRecord {
	out := make([]domain.HistoricalRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

func (idx *Index) LookupLatest(name, code string) (*domain.HistoricalRecord, bool) {
	return idx.lookupLatest(name, code, nil)
}

func (idx *Index) WindowedAverage(name, code string, window int, before *time.Time) (float64, bool) {
	return idx.windowedAverage(name, code, window, before, nil)
}

func (idx *Index) NetFlowStock(name string) (float64, bool) {
	return idx.netFlowStock(name, nil)
}

// BiasRatio returns the unclipped fact/prediction ratio of a SKU.
func (idx *Index) BiasRatio(name string) (float64, bool) {
	ratio, ok := idx.bias[name]
	return ratio, ok
}

// AsOf returns a read-only view that only exposes records dated strictly before cutoff.
func (idx *Index) AsOf(cutoff time.Time) *View {
	return &View{index: idx, cutoff: cutoff}
}

func (idx *Index) lookupLatest(name, code string, cutoff *time.Time) (*domain.HistoricalRecord, bool) {
	if norm := NormalizeCode(code); norm != "" {
		if positions := idx.visible(idx.byCode[norm], cutoff); len(positions) > 0 {
			rec := idx.records[positions[len(positions)-1]]
			return &rec, true
		}
	}
	if positions := idx.visible(idx.byName[name], cutoff); len(positions) > 0 {
		rec := idx.records[positions[len(positions)-1]]
		return &rec, true
	}
	return nil, false
}

func (idx *Index) windowedAverage(name, code string, window int, before, cutoff *time.Time) (float64, bool) {
	positions := idx.visible(idx.matching(name, code), cutoff)
	if before != nil {
		positions = idx.visible(positions, before)
	}
	if len(positions) == 0 {
		return 0, false
	}
	if window > 0 && len(positions) > window {
		positions = positions[len(positions)-window:]
	}

	var total float64
	for _, pos := range positions {
		total += idx.records[pos].Quantity
	}
	return total / float64(len(positions)), true
}

func (idx *Index) netFlowStock(name string, cutoff *time.Time) (float64, bool) {
	positions := idx.visible(idx.byName[name], cutoff)
	if len(positions) == 0 {
		return 0, false
	}
	return idx.netFlow[positions[len(positions)-1]], true
}

// matching merges the name and code positions, keeping date order.
func (idx *Index) matching(name, code string) []int {
	byName := idx.byName[name]
	norm := NormalizeCode(code)
	if norm == "" {
		return byName
	}
	byCode := idx.byCode[norm]
	if len(byCode) == 0 {
		return byName
	}
	if len(byName) == 0 {
		return byCode
	}

	merged := make([]int, 0, len(byName)+len(byCode))
	i, j := 0, 0
	for i < len(byName) || j < len(byCode) {
		switch {
		case j >= len(byCode) || (i < len(byName) && byName[i] < byCode[j]):
			merged = append(merged, byName[i])
			i++
		case i >= len(byName) || byCode[j] < byName[i]:
			merged = append(merged, byCode[j])
			j++
		default:
			merged = append(merged, byName[i])
			i++
			j++
		}
	}
	return merged
}

// visible trims positions to the records dated strictly before cutoff.
// Positions are ascending and records are date-sorted, so a binary search suffices.
func (idx *Index) visible(positions []int, cutoff *time.Time) []int {
	if cutoff == nil {
		return positions
	}
	n := sort.Search(len(positions), func(i int) bool {
		return !idx.records[positions[i]].Date.Before(*cutoff)
	})
	return positions[:n]
}

var _ Reader = (*Index)(nil)
