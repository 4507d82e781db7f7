package history

import (
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

// View is an Index restricted to records dated before a cutoff.
// Bias ratios come from the validation split and are not restricted.
type View struct {
	index  *Index
	cutoff time.Time
}

func (v *View) Cutoff() time.Time {
	return v.cutoff
}

func (v *View) LookupLatest(name, code string) (*domain.HistoricalRecord, bool) {
	return v.index.lookupLatest(name, code, &v.cutoff)
}

func (v *View) WindowedAverage(name, code string, window int, before *time.Time) (float64, bool) {
	return v.index.windowedAverage(name, code, window, before, &v.cutoff)
}

func (v *View) NetFlowStock(name string) (float64, bool) {
	return v.index.netFlowStock(name, &v.cutoff)
}

func (v *View) BiasRatio(name string) (float64, bool) {
	return v.index.BiasRatio(name)
}

var _ Reader = (*View)(nil)
