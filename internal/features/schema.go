package features

// Column names of the trained model's feature schema, in model order.
const (
	ItemNameEnc      = "item_name_enc"
	CodeEnc          = "code_enc"
	GroupEnc         = "group_enc"
	TypeEnc          = "type_enc"
	SalesAvg7        = "sales_avg_7"
	SalesAvg30       = "sales_avg_30"
	SalesMin7        = "sales_min_7"
	SalesStd7        = "sales_std_7"
	SalesLag1        = "sales_lag_1"
	SalesLag7        = "sales_lag_7"
	SalesLag30       = "sales_lag_30"
	SalesVs7dAvg     = "sales_vs_7d_avg"
	SalesPctChange1d = "sales_pct_change_1d"
	SalesPctChange7d = "sales_pct_change_7d"
	SalesLag90       = "sales_lag_90"
	SalesLag180      = "sales_lag_180"
	SalesAvg90       = "sales_avg_90"
	SalesAvg180      = "sales_avg_180"
	SupplyQty        = "supply_qty"
	SupplyLag1       = "supply_lag_1"
	SupplyLag7       = "supply_lag_7"
	Stock            = "stock"
	DaysSinceSupply  = "days_since_supply"
	SupplyVsSales7d  = "supply_vs_sales_7d"
	IsSupplyDay      = "is_supply_day"
	Month            = "month"
	Weekday          = "weekday"
	DayOfMonth       = "day_of_month"
	Quarter          = "quarter"
	IsWeekend        = "is_weekend"
	IsHolidayImpact  = "is_holiday_impact"
	NoSalesFlag      = "no_sales_flag"
	NoSupplyFlag     = "no_supply_flag"
	IsMissingMin7    = "is_missing_min_7"
	IsOutOfStock     = "is_out_of_stock"
	IsColdStart      = "is_cold_start"
	ABCEnc           = "abc_enc"
	ShelfLife        = "shelf_life"
	HasShelfLife     = "has_shelf_life"
	ShelfPrice       = "shelf_price"
)

// Columns is the fixed model input schema.
var Columns = []string{
	ItemNameEnc, CodeEnc, GroupEnc, TypeEnc,
	SalesAvg7, SalesAvg30, SalesMin7, SalesStd7,
	SalesLag1, SalesLag7, SalesLag30,
	SalesVs7dAvg, SalesPctChange1d, SalesPctChange7d,
	SalesLag90, SalesLag180, SalesAvg90, SalesAvg180,
	SupplyQty, SupplyLag1, SupplyLag7, Stock,
	DaysSinceSupply, SupplyVsSales7d, IsSupplyDay,
	Month, Weekday, DayOfMonth, Quarter, IsWeekend, IsHolidayImpact,
	NoSalesFlag, NoSupplyFlag, IsMissingMin7, IsOutOfStock, IsColdStart,
	ABCEnc, ShelfLife, HasShelfLife, ShelfPrice,
}

// CategoricalColumns hold label encodings; a missing value is -1 rather than 0.
var CategoricalColumns = map[string]bool{
	ItemNameEnc: true,
	CodeEnc:     true,
	GroupEnc:    true,
	TypeEnc:     true,
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, name := range Columns {
		m[name] = i
	}
	return m
}()

// HasColumn reports whether name is part of the schema.
func HasColumn(name string) bool {
	_, ok := columnIndex[name]
	return ok
}
