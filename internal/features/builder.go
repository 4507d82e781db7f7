package features

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/history"
)

const unseenEncodingModulus = 100000

// newItemDefaults describe a typical freshly listed SKU.
var newItemDefaults = map[string]float64{
	GroupEnc:        -1,
	TypeEnc:         -1,
	SalesAvg7:       1,
	SalesAvg30:      1,
	SalesAvg90:      1,
	SalesAvg180:     1,
	SalesMin7:       0,
	SalesStd7:       0.5,
	SalesLag1:       1,
	SalesLag7:       1,
	SalesLag30:      1,
	SalesLag90:      1,
	SalesLag180:     1,
	SalesVs7dAvg:    1,
	DaysSinceSupply: 7,
	SupplyVsSales7d: 1,
	NoSupplyFlag:    1,
	IsColdStart:     1,
	ABCEnc:          domain.ABCClassC.Encoding(),
}

// Builder assembles model input rows from the historical index.
type Builder struct {
	history history.Reader
}

func NewBuilder(reader history.Reader) *Builder {
	return &Builder{history: reader}
}

// Build returns the feature vector of a SKU for target. It never fails:
// unknown SKUs get hashed encodings and new-item defaults.
func (b *Builder) Build(name, code string, target time.Time, price *float64) Vector {
	var vec Vector
	if rec, ok := b.history.LookupLatest(name, code); ok {
		vec = fromRecord(rec)
	} else {
		vec = unseen(name, code)
	}

	if price != nil && !math.IsNaN(*price) && !math.IsInf(*price, 0) {
		vec.Set(ShelfPrice, *price)
	}

	vec = vec.WithCalendar(target)
	sanitize(vec)
	return vec
}

// Known reports whether the SKU has any history.
func (b *Builder) Known(name, code string) bool {
	_, ok := b.history.LookupLatest(name, code)
	return ok
}

func fromRecord(rec *domain.HistoricalRecord) Vector {
	vec := newVector()
	for i, col := range Columns {
		value, ok := rec.Features[col]
		switch {
		case ok:
			vec[i] = value
		case CategoricalColumns[col]:
			vec[i] = -1
		default:
			vec[i] = 0
		}
	}

	if _, ok := rec.Features[SupplyQty]; !ok {
		vec.Set(SupplyQty, rec.SupplyQty)
	}
	if _, ok := rec.Features[Stock]; !ok && rec.Stock != nil {
		vec.Set(Stock, *rec.Stock)
	}
	if _, ok := rec.Features[ShelfPrice]; !ok && rec.ShelfPrice != nil {
		vec.Set(ShelfPrice, *rec.ShelfPrice)
	}
	return vec
}

func unseen(name, code string) Vector {
	vec := newVector()
	for col, value := range newItemDefaults {
		vec.Set(col, value)
	}
	vec.Set(ItemNameEnc, HashEncoding(name))
	if code != "" {
		vec.Set(CodeEnc, HashEncoding(history.NormalizeCode(code)))
	} else {
		vec.Set(CodeEnc, -1)
	}
	return vec
}

// HashEncoding maps an unseen categorical value into the encoder range.
// Distinct values can collide.
func HashEncoding(value string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return float64(h.Sum32() % unseenEncodingModulus)
}

func sanitize(vec Vector) {
	for i, col := range Columns {
		if math.IsNaN(vec[i]) || math.IsInf(vec[i], 0) {
			if CategoricalColumns[col] {
				vec[i] = -1
			} else {
				vec[i] = 0
			}
		}
	}
}
