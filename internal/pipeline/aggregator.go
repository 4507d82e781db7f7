package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/analytics"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/features"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/history"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/model"
	"github.com/rs/zerolog/log"
)

// Options describe the model the aggregator drives.
type Options struct {
	// LogTarget is set when the model was trained on log1p(quantity).
	LogTarget bool
}

// PeriodRequest asks for the total demand of one SKU over Horizon days from Start.
type PeriodRequest struct {
	ItemName string
	Code     string
	Start    time.Time
	Horizon  int
	Price    *float64
	UseFloor bool
}

// PeriodResult is the forecast with the intermediate totals of each stage.
type PeriodResult struct {
	Quantity   int
	BaseTotal  float64
	Calibrated float64
	Adjusted   float64
	RecentAvg  *float64
	ABCClass   domain.ABCClass
	Classified bool
	Bias       float64
	FailedDays int
	Fallback   bool
}

// Aggregator turns per-day model output into a bounded period forecast.
// It is bound to one history snapshot; settings are passed per call.
type Aggregator struct {
	history history.Reader
	builder *features.Builder
	abc     analytics.ABCClassMap
	model   model.Model
	opts    Options
}

func NewAggregator(reader history.Reader, abc analytics.ABCClassMap, m model.Model, opts Options) *Aggregator {
	return &Aggregator{
		history: reader,
		builder: features.NewBuilder(reader),
		abc:     abc,
		model:   m,
		opts:    opts,
	}
}

// PredictPeriod never fails; the returned quantity is at least 1.
func (a *Aggregator) PredictPeriod(ctx context.Context, s Settings, req PeriodRequest) PeriodResult {
	horizon := req.Horizon
	if horizon < 1 {
		horizon = 1
	}
	days := float64(horizon)
	start := truncateDay(req.Start)

	res := PeriodResult{Bias: 1}
	res.BaseTotal, res.FailedDays = a.baseTotal(ctx, req.ItemName, req.Code, start, horizon, req.Price)

	if avg, ok := a.history.WindowedAverage(req.ItemName, req.Code, s.FloorLookbackDays, &start); ok {
		res.RecentAvg = &avg
	}
	res.ABCClass, res.Classified = a.abc.Class(req.ItemName)

	// calibration
	res.Calibrated = res.BaseTotal
	if s.CalibrationEnabled && res.RecentAvg != nil && *res.RecentAvg > 0 {
		historical := *res.RecentAvg * days
		res.Calibrated = calibrate(res.BaseTotal, historical, boundsFor(res.ABCClass, s), s.Alpha)
		if res.Calibrated != res.BaseTotal {
			log.Info().
				Str("item", req.ItemName).
				Str("abc", string(res.ABCClass)).
				Float64("base", res.BaseTotal).
				Float64("calibrated", res.Calibrated).
				Float64("ratio_before", res.BaseTotal/historical).
				Float64("ratio_after", res.Calibrated/historical).
				Msg("forecast calibrated against history")
		}
	}

	// floor
	res.Adjusted = res.Calibrated
	if req.UseFloor && res.RecentAvg != nil {
		res.Adjusted = math.Max(res.Adjusted, *res.RecentAvg*s.FloorCoef*days)
	}

	// bias
	if s.ApplyBias {
		if ratio, ok := a.history.BiasRatio(req.ItemName); ok {
			res.Bias = math.Min(math.Max(ratio, s.BiasClipLower), s.BiasClipUpper)
		}
		res.Adjusted *= res.Bias
	}

	// fallback
	if res.Adjusted < 1 {
		res.Fallback = true
		res.Adjusted = days
		if res.RecentAvg != nil && *res.RecentAvg*days >= 1 {
			res.Adjusted = *res.RecentAvg * days
		}
	}

	res.Quantity = int(math.RoundToEven(res.Adjusted))
	if res.Quantity < 1 {
		res.Quantity = 1
	}
	return res
}

// baseTotal sums the daily estimates. A failed day reuses the last good estimate.
func (a *Aggregator) baseTotal(ctx context.Context, name, code string, start time.Time, horizon int, price *float64) (float64, int) {
	base := a.builder.Build(name, code, start, price)

	var total, last float64
	failed := 0
	for d := 0; d < horizon; d++ {
		date := start.AddDate(0, 0, d)
		daily, err := a.predictDay(ctx, base.WithCalendar(date))
		if err != nil {
			failed++
			log.Warn().
				Err(err).
				Str("item", name).
				Str("date", date.Format("2006-01-02")).
				Float64("substitute", last).
				Msg("daily prediction failed, reusing last estimate")
			daily = last
		}
		last = daily
		total += daily
	}
	return total, failed
}

func (a *Aggregator) predictDay(ctx context.Context, vec features.Vector) (float64, error) {
	out, err := a.model.Predict(ctx, features.Columns, [][]float64{vec})
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("model returned %d values for one row", len(out))
	}

	daily := out[0]
	if a.opts.LogTarget {
		daily = math.Expm1(daily)
	}
	if math.IsNaN(daily) || math.IsInf(daily, 0) {
		return 0, fmt.Errorf("model returned non-finite value %v", out[0])
	}
	return math.Max(daily, 0), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
