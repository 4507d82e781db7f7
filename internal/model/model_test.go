package model

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPModelPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "b"}, req.Columns)

		preds := make([]float64, len(req.Rows))
		for i, row := range req.Rows {
			preds[i] = row[0] + row[1]
		}
		_ = json.NewEncoder(w).Encode(predictResponse{Predictions: preds})
	}))
	defer srv.Close()

	m := NewHTTPModel(srv.URL, time.Second)
	out, err := m.Predict(context.Background(), []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})

	require.NoError(t, err)
	assert.Equal(t, []float64{3, 7}, out)
}

func TestHTTPModelErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/short" {
			_ = json.NewEncoder(w).Encode(predictResponse{Predictions: []float64{}})
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPModel(srv.URL, time.Second).Predict(context.Background(), []string{"a"}, [][]float64{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = NewHTTPModel(srv.URL+"/short", time.Second).Predict(context.Background(), []string{"a"}, [][]float64{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 predictions")
}

func TestBaseline(t *testing.T) {
	out, err := Baseline{}.Predict(context.Background(),
		[]string{features.SalesAvg30, "x", features.SalesAvg7},
		[][]float64{{10, 99, 5}, {0, 0, 0}})

	require.NoError(t, err)
	assert.InDelta(t, math.Log1p(7), out[0], 1e-9)
	assert.Equal(t, 0.0, out[1])
}
