package domain

import "time"

// HistoricalRecord is one day of sales history for a SKU.
type HistoricalRecord struct {
	ItemName   string
	Code       string
	Date       time.Time
	Quantity   float64
	SupplyQty  float64
	ShelfPrice *float64
	Stock      *float64
	// Pred is the model prediction on the validation split, when the row belongs to it.
	Pred     *float64
	Group    string
	Type     string
	Features map[string]float64
}

// MetricsRow carries the offline accuracy metrics of a SKU.
type MetricsRow struct {
	ItemName string   `json:"item_name" db:"item_name"`
	MAPE     *float64 `json:"mape" db:"mape"`
	MAE      *float64 `json:"mae" db:"mae"`
}

const (
	EventTypeSale   = "sale"
	EventTypeSupply = "supply"
)

// Event is a single entry of a forecast request.
type Event struct {
	Type         string   `json:"type"`
	Period       string   `json:"period"`
	ItemName     string   `json:"item_name"`
	Code         string   `json:"code,omitempty"`
	Group        string   `json:"group,omitempty"`
	Kind         string   `json:"kind,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty"`
	ShelfPrice   *float64 `json:"shelf_price,omitempty"`
	DiscountPct  *float64 `json:"discount_pct,omitempty"`
	StockInStore *float64 `json:"stock_in_store,omitempty"`
	Remaining    *float64 `json:"remaining,omitempty"`
	Stock        *float64 `json:"stock,omitempty"`
}

// IsSale reports whether the event is a sale. Events without a type are sales.
func (e Event) IsSale() bool {
	return e.Type == "" || e.Type == EventTypeSale
}

// SaleItem is a validated sale event together with its raw payload.
type SaleItem struct {
	Event Event
	Start time.Time
	Raw   map[string]any
}

// ForecastRequest is a validated forecast request.
type ForecastRequest struct {
	Horizon int
	Sales   []SaleItem
}

// RawSales returns the raw sale payloads in request order.
func (r ForecastRequest) RawSales() []map[string]any {
	raw := make([]map[string]any, 0, len(r.Sales))
	for _, item := range r.Sales {
		raw = append(raw, item.Raw)
	}
	return raw
}

type ForecastSummary struct {
	MAPE        float64 `json:"mape"`
	MAE         float64 `json:"mae"`
	DaysPredict int     `json:"days_predict"`
}

type ForecastItem struct {
	Period           string  `json:"period"`
	ItemName         string  `json:"item_name"`
	Code             string  `json:"code"`
	MAPE             float64 `json:"mape"`
	MAE              float64 `json:"mae"`
	Quantity         int     `json:"quantity"`
	SafetyStock      int     `json:"safety_stock"`
	RecommendedOrder int     `json:"recommended_order"`
	ABCClass         *string `json:"abc_class"`
	CurrentStock     int     `json:"current_stock"`
}

// ForecastResponse is what the forecast endpoints return and what the cache stores.
type ForecastResponse struct {
	Summary ForecastSummary `json:"summary"`
	Items   []ForecastItem  `json:"items"`
}

// ItemNames returns the SKU names present in the response.
func (r *ForecastResponse) ItemNames() []string {
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		names = append(names, item.ItemName)
	}
	return names
}

type CacheStats struct {
	Enabled          bool   `json:"enabled"`
	RedisVersion     string `json:"redis_version,omitempty"`
	UsedMemory       string `json:"used_memory,omitempty"`
	ConnectedClients int    `json:"connected_clients,omitempty"`
	UptimeSeconds    int64  `json:"uptime_seconds,omitempty"`
	KeyCount         int    `json:"key_count"`
}

type MetricsSummary struct {
	TotalItems int     `json:"total_items"`
	AvgMAPE    float64 `json:"avg_mape"`
	AvgMAE     float64 `json:"avg_mae"`
}

type HealthStatus struct {
	Status        string    `json:"status"`
	DatasetLoaded bool      `json:"dataset_loaded"`
	ItemCount     int       `json:"item_count"`
	LoadedAt      time.Time `json:"loaded_at,omitempty"`
	CacheHealthy  bool      `json:"cache_healthy"`
}

// BacktestRow compares a retrospective forecast with realized sales.
type BacktestRow struct {
	ItemName       string `json:"item_name"`
	Code           string `json:"code"`
	Period         string `json:"period"`
	Fact           int    `json:"fact"`
	Predicted      int    `json:"predicted"`
	Error          int    `json:"error"`
	ActualOrder    int    `json:"actual_order"`
	PredictedOrder int    `json:"predicted_order"`
	SafetyStock    int    `json:"safety_stock"`
}

const periodLayout = "2006-01-02"

// PeriodRange formats the inclusive window of days starting at start, e.g. "2024-04-01 - 2024-04-07".
func PeriodRange(start time.Time, days int) string {
	if days < 1 {
		days = 1
	}
	return start.Format(periodLayout) + " - " + start.AddDate(0, 0, days-1).Format(periodLayout)
}
