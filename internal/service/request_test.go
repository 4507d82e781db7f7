package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredictRequest(t *testing.T) {
	req, err := ParsePredictRequest([]byte(`{
		"days_count": 14,
		"events": [
			{"type": "sale", "period": "2024-05-01T10:30:00Z", "item_name": "Milk", "code": "100", "shelf_price": 1.5, "note": "promo"},
			{"type": "supply", "period": "2024-05-01", "item_name": "Milk", "quantity": 50}
		]
	}`))

	require.NoError(t, err)
	assert.Equal(t, 14, req.Horizon)
	require.Len(t, req.Sales, 1)

	sale := req.Sales[0]
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), sale.Start)
	assert.Equal(t, "100", sale.Event.Code)
	require.NotNil(t, sale.Event.ShelfPrice)
	assert.Equal(t, 1.5, *sale.Event.ShelfPrice)
	assert.Equal(t, "promo", sale.Raw["note"])
	assert.Len(t, req.RawSales(), 1)
}

func TestParseForecastRequest(t *testing.T) {
	req, err := ParseForecastRequest([]byte(`[
		{"days_count": 7},
		{"period": "2024-05-01", "item_name": "Milk"},
		{"period": "2024-05-02", "item_name": "Bread", "stock": 3}
	]`))

	require.NoError(t, err)
	assert.Equal(t, 7, req.Horizon)
	require.Len(t, req.Sales, 2)
	assert.Equal(t, 3.0, *req.Sales[1].Event.Stock)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{`,
		"missing horizon":  `{"events": [{"period": "2024-05-01", "item_name": "Milk"}]}`,
		"horizon too long": `{"days_count": 61, "events": [{"period": "2024-05-01", "item_name": "Milk"}]}`,
		"zero horizon":     `{"days_count": 0, "events": [{"period": "2024-05-01", "item_name": "Milk"}]}`,
		"empty events":     `{"days_count": 7, "events": []}`,
		"bad date":         `{"days_count": 7, "events": [{"period": "yesterday", "item_name": "Milk"}]}`,
		"missing period":   `{"days_count": 7, "events": [{"item_name": "Milk"}]}`,
		"missing name":     `{"days_count": 7, "events": [{"period": "2024-05-01"}]}`,
		"unknown type":     `{"days_count": 7, "events": [{"type": "refund", "period": "2024-05-01", "item_name": "Milk"}]}`,
		"only supply":      `{"days_count": 7, "events": [{"type": "supply", "period": "2024-05-01", "item_name": "Milk"}]}`,
		"bad quantity":     `{"days_count": 7, "events": [{"period": "2024-05-01", "item_name": "Milk", "quantity": "many"}]}`,
	}

	for name, body := range cases {
		_, err := ParsePredictRequest([]byte(body))
		var malformedErr *MalformedRequestError
		assert.True(t, errors.As(err, &malformedErr), name)
	}

	for name, body := range map[string]string{
		"empty list":     `[]`,
		"no header":      `[{"period": "2024-05-01", "item_name": "Milk"}]`,
		"only header":    `[{"days_count": 7}]`,
		"object instead": `{"days_count": 7}`,
	} {
		_, err := ParseForecastRequest([]byte(body))
		var malformedErr *MalformedRequestError
		assert.True(t, errors.As(err, &malformedErr), name)
	}
}

func TestRawSalesKeepLargeIntegers(t *testing.T) {
	a, err := ParsePredictRequest([]byte(`{"days_count": 7, "events": [{"period": "2024-05-01", "item_name": "Milk", "ref": 9007199254740993}]}`))
	require.NoError(t, err)
	b, err := ParsePredictRequest([]byte(`{"days_count": 7, "events": [{"period": "2024-05-01", "item_name": "Milk", "ref": 9007199254740992}]}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("9007199254740993"), a.RawSales()[0]["ref"])
	assert.NotEqual(t, cache.GenerateKey(a.RawSales(), a.Horizon), cache.GenerateKey(b.RawSales(), b.Horizon))
}
