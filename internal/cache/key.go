package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const forecastKeyPrefix = "ml_forecast:"

// GenerateKey derives the cache key of a forecast request from the raw sale
// objects and the horizon. Object keys are serialized in sorted order, so
// field order does not matter; any added, removed or changed field does.
func GenerateKey(items []map[string]any, horizon int) string {
	normalized := make([]any, 0, len(items))
	for _, item := range items {
		normalized = append(normalized, normalizeValue(item))
	}

	payload, err := json.Marshal(normalized)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", normalized))
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", payload, horizon)))
	return forecastKeyPrefix + hex.EncodeToString(sum[:])
}

// normalizeValue maps values encoding/json cannot represent to strings.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, json.Number:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Sprint(val)
		}
		return val
	case float32:
		return normalizeValue(float64(val))
	case int, int32, int64, uint, uint32, uint64:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return fmt.Sprint(val)
	}
}
