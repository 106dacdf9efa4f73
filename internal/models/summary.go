package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KPIs are the scalar metrics shown above the charts. AverageOrderValue is zero and
// AverageDefined is false when the view has no rows.
type KPIs struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	AverageDefined    bool            `json:"average_defined"`
	UniqueOrders      int             `json:"unique_orders"`
	Rows              int             `json:"rows"`
}

type MonthlyData struct {
	Month string          `json:"month"`
	Start time.Time       `json:"start"`
	Sales decimal.Decimal `json:"sales"`
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Rows     int             `json:"rows"`
}

// Summary bundles every output of one pipeline pass.
type Summary struct {
	Selection    FilterSelection   `json:"selection"`
	KPIs         KPIs              `json:"kpis"`
	MonthlySales []MonthlyData     `json:"monthly_sales"`
	ProductLines []CategoryRevenue `json:"product_lines"`
	Countries    []CategoryRevenue `json:"countries"`
	Orders       []Order           `json:"-"`
}
