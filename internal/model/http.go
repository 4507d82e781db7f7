package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

type predictRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// HTTPModel calls a model server that accepts {"columns", "rows"} and
// answers {"predictions"}.
type HTTPModel struct {
	endpoint string
	client   *http.Client
}

func NewHTTPModel(endpoint string, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPModel{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *HTTPModel) Predict(ctx context.Context, columns []string, rows [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Columns: columns, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if len(out.Predictions) != len(rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(out.Predictions), len(rows))
	}
	return out.Predictions, nil
}
