package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
)

// MaxHorizon is the longest forecast period accepted, in days.
const MaxHorizon = 60

var periodLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// MalformedRequestError is returned for requests rejected before forecasting.
type MalformedRequestError struct {
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return "malformed request: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedRequestError{Reason: fmt.Sprintf(format, args...)}
}

type predictPayload struct {
	DaysCount *int              `json:"days_count"`
	Events    []json.RawMessage `json:"events"`
}

// ParsePredictRequest parses {"days_count": N, "events": [...]}.
func ParsePredictRequest(body []byte) (*domain.ForecastRequest, error) {
	var payload predictPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed("invalid JSON body: %v", err)
	}
	return buildRequest(payload.DaysCount, payload.Events)
}

// ParseForecastRequest parses [{"days_count": N}, event, event, ...].
func ParseForecastRequest(body []byte) (*domain.ForecastRequest, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, malformed("invalid JSON body: %v", err)
	}
	if len(items) == 0 {
		return nil, malformed("empty request")
	}

	var header struct {
		DaysCount *int `json:"days_count"`
	}
	if err := json.Unmarshal(items[0], &header); err != nil || header.DaysCount == nil {
		return nil, malformed("first element must carry days_count")
	}
	return buildRequest(header.DaysCount, items[1:])
}

func buildRequest(daysCount *int, events []json.RawMessage) (*domain.ForecastRequest, error) {
	if daysCount == nil {
		return nil, malformed("days_count is required")
	}
	if *daysCount < 1 || *daysCount > MaxHorizon {
		return nil, malformed("days_count must be between 1 and %d", MaxHorizon)
	}
	if len(events) == 0 {
		return nil, malformed("events must not be empty")
	}

	req := &domain.ForecastRequest{Horizon: *daysCount}
	for i, rawEvent := range events {
		var event domain.Event
		if err := json.Unmarshal(rawEvent, &event); err != nil {
			return nil, malformed("event %d: %v", i, err)
		}

		switch event.Type {
		case "", domain.EventTypeSale:
		case domain.EventTypeSupply:
			continue
		default:
			return nil, malformed("event %d: unknown type %q", i, event.Type)
		}

		if strings.TrimSpace(event.ItemName) == "" {
			return nil, malformed("event %d: item_name is required", i)
		}
		start, err := parsePeriod(event.Period)
		if err != nil {
			return nil, malformed("event %d: %v", i, err)
		}

		// json.Number keeps large integers exact for the cache key.
		var raw map[string]any
		dec := json.NewDecoder(bytes.NewReader(rawEvent))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed("event %d: %v", i, err)
		}

		req.Sales = append(req.Sales, domain.SaleItem{Event: event, Start: start, Raw: raw})
	}

	if len(req.Sales) == 0 {
		return nil, malformed("no sale events")
	}
	return req, nil
}

func parsePeriod(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("period is required")
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable period %q", value)
}
