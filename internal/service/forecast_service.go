package service

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/cache"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/dataset"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/model"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/rs/zerolog/log"
)

// ErrDatasetNotLoaded is returned while no dataset has been loaded yet.
var ErrDatasetNotLoaded = errors.New("forecast dataset not loaded")

const unknownCode = "unknown"

// DatasetLoader produces a fresh dataset snapshot.
type DatasetLoader interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

type ForecastService struct {
	loader   DatasetLoader
	current  atomic.Pointer[dataset.Dataset]
	settings *pipeline.SettingsStore
	model    model.Model
	opts     pipeline.Options
	cache    cache.ForecastCache
	cacheTTL time.Duration
}

func NewForecastService(
	loader DatasetLoader,
	settings *pipeline.SettingsStore,
	m model.Model,
	opts pipeline.Options,
	forecastCache cache.ForecastCache,
	cacheTTL time.Duration,
) *ForecastService {
	if forecastCache == nil {
		forecastCache = cache.NewNoopForecastCache()
	}
	return &ForecastService{
		loader:   loader,
		settings: settings,
		model:    m,
		opts:     opts,
		cache:    forecastCache,
		cacheTTL: cacheTTL,
	}
}

// Reload swaps in a freshly loaded dataset. The forecast cache is left as is,
// so entries computed from the previous dataset stay until they expire.
func (s *ForecastService) Reload(ctx context.Context) error {
	ds, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	s.current.Store(ds)
	return nil
}

// Dataset returns the snapshot in use, or nil before the first load.
func (s *ForecastService) Dataset() *dataset.Dataset {
	return s.current.Load()
}

func (s *ForecastService) Settings() pipeline.Settings {
	return s.settings.Current()
}

// UpdateSettings applies a validated partial update and returns the old and new snapshots.
// Cached forecasts are not recomputed.
func (s *ForecastService) UpdateSettings(u pipeline.SettingsUpdate) (pipeline.Settings, pipeline.Settings, error) {
	old, updated, err := s.settings.Update(u)
	if err != nil {
		return old, updated, err
	}
	log.Info().Interface("old", old).Interface("new", updated).Msg("calibration settings updated")
	return old, updated, nil
}

func (s *ForecastService) Model() model.Model {
	return s.model
}

func (s *ForecastService) ModelOptions() pipeline.Options {
	return s.opts
}

func (s *ForecastService) Cache() cache.ForecastCache {
	return s.cache
}

// Forecast answers a validated request, from cache when possible.
// The second return value reports a cache hit.
func (s *ForecastService) Forecast(ctx context.Context, req *domain.ForecastRequest) (*domain.ForecastResponse, bool, error) {
	ds := s.current.Load()
	if ds == nil {
		return nil, false, ErrDatasetNotLoaded
	}

	key := cache.GenerateKey(req.RawSales(), req.Horizon)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	resp := s.compute(ctx, ds, s.settings.Current(), req)

	s.cache.Set(ctx, key, resp, s.cacheTTL)
	return resp, false, nil
}

func (s *ForecastService) compute(ctx context.Context, ds *dataset.Dataset, settings pipeline.Settings, req *domain.ForecastRequest) *domain.ForecastResponse {
	aggregator := pipeline.NewAggregator(ds.History, ds.ABC, s.model, s.opts)
	calculator := pipeline.NewInventoryCalculator(ds.History)

	globalMAPE, globalMAE := ds.Metrics.Global()
	resp := &domain.ForecastResponse{
		Summary: domain.ForecastSummary{
			MAPE:        roundTo(globalMAPE, 1),
			MAE:         roundTo(globalMAE, 2),
			DaysPredict: req.Horizon,
		},
		Items: make([]domain.ForecastItem, 0, len(req.Sales)),
	}

	for _, sale := range req.Sales {
		event := sale.Event
		result := aggregator.PredictPeriod(ctx, settings, pipeline.PeriodRequest{
			ItemName: event.ItemName,
			Code:     event.Code,
			Start:    sale.Start,
			Horizon:  req.Horizon,
			Price:    event.ShelfPrice,
			UseFloor: true,
		})
		inventory := calculator.Calculate(settings, event.ItemName, event.Code, result.Quantity, &event)
		mape, mae := ds.Metrics.Get(event.ItemName)

		code := event.Code
		if code == "" {
			code = unknownCode
		}

		var abc *string
		if class, ok := ds.ABC.Class(event.ItemName); ok {
			label := string(class)
			abc = &label
		}

		resp.Items = append(resp.Items, domain.ForecastItem{
			Period:           domain.PeriodRange(sale.Start, req.Horizon),
			ItemName:         event.ItemName,
			Code:             code,
			MAPE:             roundTo(mape, 1),
			MAE:              roundTo(mae, 2),
			Quantity:         result.Quantity,
			SafetyStock:      inventory.SafetyStock,
			RecommendedOrder: inventory.RecommendedOrder,
			ABCClass:         abc,
			CurrentStock:     inventory.CurrentStock,
		})
	}

	return resp
}

// MetricsSummary reports the corpus-wide accuracy figures.
func (s *ForecastService) MetricsSummary() (domain.MetricsSummary, error) {
	ds := s.current.Load()
	if ds == nil {
		return domain.MetricsSummary{}, ErrDatasetNotLoaded
	}
	mape, mae := ds.Metrics.Global()
	return domain.MetricsSummary{
		TotalItems: len(ds.History.Items()),
		AvgMAPE:    roundTo(mape, 2),
		AvgMAE:     roundTo(mae, 2),
	}, nil
}

func (s *ForecastService) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		Status:       "degraded",
		CacheHealthy: s.cache.Healthy(ctx),
	}
	if ds := s.current.Load(); ds != nil {
		status.Status = "ok"
		status.DatasetLoaded = true
		status.ItemCount = len(ds.History.Items())
		status.LoadedAt = ds.LoadedAt
	}
	return status
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
