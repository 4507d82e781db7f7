package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/cache"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/dataset"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/model"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context) (*dataset.Dataset, error)

func (f loaderFunc) Load(ctx context.Context) (*dataset.Dataset, error) {
	return f(ctx)
}

func fptr(v float64) *float64 {
	return &v
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	var records []domain.HistoricalRecord
	for d := 1; d <= 30; d++ {
		records = append(records, domain.HistoricalRecord{
			ItemName: "X",
			Code:     "42",
			Date:     time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC),
			Quantity: 10,
			Stock:    fptr(25),
		})
	}
	ds, err := dataset.Build(records, []domain.MetricsRow{{ItemName: "X", MAPE: fptr(12.34), MAE: fptr(1.5)}})
	require.NoError(t, err)
	return ds
}

type countingModel struct {
	calls atomic.Int64
}

func (m *countingModel) Predict(ctx context.Context, columns []string, rows [][]float64) ([]float64, error) {
	m.calls.Add(1)
	return make([]float64, len(rows)), nil
}

func newTestService(t *testing.T, c cache.ForecastCache, m model.Model) *ForecastService {
	t.Helper()
	settings, err := pipeline.NewSettingsStore(pipeline.DefaultSettings())
	require.NoError(t, err)
	ds := testDataset(t)
	svc := NewForecastService(loaderFunc(func(ctx context.Context) (*dataset.Dataset, error) {
		return ds, nil
	}), settings, m, pipeline.Options{}, c, time.Hour)
	require.NoError(t, svc.Reload(context.Background()))
	return svc
}

func mustParse(t *testing.T, body string) *domain.ForecastRequest {
	t.Helper()
	req, err := ParsePredictRequest([]byte(body))
	require.NoError(t, err)
	return req
}

func TestForecastAssemblesResponse(t *testing.T) {
	svc := newTestService(t, nil, &countingModel{})

	resp, cached, err := svc.Forecast(context.Background(), mustParse(t, `{
		"days_count": 7,
		"events": [
			{"type": "sale", "period": "2024-04-01", "item_name": "X", "code": "42", "stock_in_store": 5},
			{"type": "supply", "period": "2024-04-01", "item_name": "X", "quantity": 100},
			{"period": "2024-04-01", "item_name": "NewItem"}
		]
	}`))

	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 7, resp.Summary.DaysPredict)
	assert.Equal(t, 12.3, resp.Summary.MAPE)
	assert.Equal(t, 1.5, resp.Summary.MAE)
	require.Len(t, resp.Items, 2)

	x := resp.Items[0]
	assert.Equal(t, "X", x.ItemName)
	assert.Equal(t, "2024-04-01 - 2024-04-07", x.Period)
	assert.Equal(t, "42", x.Code)
	assert.Equal(t, 60, x.Quantity)
	assert.Equal(t, 30, x.SafetyStock)
	assert.Equal(t, 5, x.CurrentStock)
	assert.Equal(t, 85, x.RecommendedOrder)
	require.NotNil(t, x.ABCClass)
	assert.Equal(t, "C", *x.ABCClass)

	fresh := resp.Items[1]
	assert.Equal(t, "unknown", fresh.Code)
	assert.Equal(t, 7, fresh.Quantity)
	assert.Nil(t, fresh.ABCClass)
	assert.Equal(t, 0, fresh.CurrentStock)
	assert.Equal(t, 7, fresh.RecommendedOrder)
}

func TestForecastUsesCache(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	m := &countingModel{}
	svc := newTestService(t, cache.NewRedisForecastCache(client, time.Hour), m)
	body := `{"days_count": 3, "events": [{"period": "2024-04-01", "item_name": "X"}]}`

	first, cached, err := svc.Forecast(context.Background(), mustParse(t, body))
	require.NoError(t, err)
	assert.False(t, cached)
	calls := m.calls.Load()

	second, cached, err := svc.Forecast(context.Background(), mustParse(t, `{"events": [{"item_name": "X", "period": "2024-04-01"}], "days_count": 3}`))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, m.calls.Load(), "cache hit must not call the model")
}

func TestForecastIsDeterministic(t *testing.T) {
	svc := newTestService(t, nil, model.Baseline{})
	body := `{"days_count": 14, "events": [{"period": "2024-04-01", "item_name": "X"}, {"period": "2024-04-03", "item_name": "Y"}]}`

	a, _, err := svc.Forecast(context.Background(), mustParse(t, body))
	require.NoError(t, err)
	b, _, err := svc.Forecast(context.Background(), mustParse(t, body))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	for _, item := range a.Items {
		assert.GreaterOrEqual(t, item.Quantity, 1)
	}
}

func TestForecastBeforeLoad(t *testing.T) {
	settings, err := pipeline.NewSettingsStore(pipeline.DefaultSettings())
	require.NoError(t, err)
	svc := NewForecastService(loaderFunc(func(ctx context.Context) (*dataset.Dataset, error) {
		return nil, errors.New("database unavailable")
	}), settings, model.Baseline{}, pipeline.Options{}, nil, time.Hour)

	assert.Error(t, svc.Reload(context.Background()))

	_, _, err = svc.Forecast(context.Background(), mustParse(t, `{"days_count": 1, "events": [{"period": "2024-04-01", "item_name": "X"}]}`))
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	_, err = svc.MetricsSummary()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	health := svc.Health(context.Background())
	assert.False(t, health.DatasetLoaded)
	assert.Equal(t, "degraded", health.Status)
}

func TestUpdateSettingsAffectsLaterForecasts(t *testing.T) {
	svc := newTestService(t, nil, &countingModel{})
	req := mustParse(t, `{"days_count": 7, "events": [{"period": "2024-04-01", "item_name": "X"}]}`)

	coef := 0.5
	_, updated, err := svc.UpdateSettings(pipeline.SettingsUpdate{FloorCoef: &coef})
	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.FloorCoef)

	resp, _, err := svc.Forecast(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 35, resp.Items[0].Quantity)

	bad := 2.0
	_, _, err = svc.UpdateSettings(pipeline.SettingsUpdate{Alpha: &bad})
	var cfgErr *pipeline.ConfigValidationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0.5, svc.Settings().FloorCoef)
}

func TestMetricsSummaryAndHealth(t *testing.T) {
	svc := newTestService(t, nil, &countingModel{})

	summary, err := svc.MetricsSummary()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalItems)
	assert.Equal(t, 12.34, summary.AvgMAPE)

	health := svc.Health(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.ItemCount)
	assert.False(t, health.CacheHealthy)
}
