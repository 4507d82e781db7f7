package pipeline

import (
	"math"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

type ratioBounds struct {
	min float64
	max float64
}

// boundsFor tightens the ratio band for A items and widens it for C and
// unclassified items. B keeps the configured band.
func boundsFor(class domain.ABCClass, s Settings) ratioBounds {
	var b ratioBounds
	switch class {
	case domain.ABCClassA:
		b = ratioBounds{min: s.MinRatio * 1.2, max: s.MaxRatio * 0.8}
	case domain.ABCClassB:
		b = ratioBounds{min: s.MinRatio, max: s.MaxRatio}
	default:
		b = ratioBounds{min: s.MinRatio * 0.8, max: s.MaxRatio * 1.3}
	}
	if b.min > b.max {
		b.min = b.max
	}
	return b
}

// calibrate pulls base toward historical when their ratio leaves the band.
// The result always lies in [min, max] * historical.
func calibrate(base, historical float64, b ratioBounds, alpha float64) float64 {
	ratio := base / historical
	switch {
	case ratio > b.max:
		blended := alpha*historical + (1-alpha)*base
		return math.Max(math.Min(blended, b.max*historical), b.min*historical)
	case ratio < b.min:
		return math.Max(base, b.min*historical)
	default:
		return base
	}
}
