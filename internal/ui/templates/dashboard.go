// Package templates holds the dashboard page and the fragments patched over SSE.
// Every element that is replaced on a filter change carries a stable id.
package templates

import "sales-dashboard/internal/models"

//go:generate templ generate

const (
	PageTitle = "Sales Performance Dashboard"

	IDKPIs         = "kpis"
	IDMonthlyChart = "chart-monthly"
	IDProductChart = "chart-product-lines"
	IDCountryChart = "chart-countries"
	IDProductTable = "table-product-lines"
	IDCountryTable = "table-countries"
	IDOrders       = "orders"
	IDDownloads    = "downloads"
)

// Charts carries pre-rendered SVG documents.
type Charts struct {
	Monthly      string
	ProductLines string
	Countries    string
}

// OrderTable is a window of the filtered view with every source column, in source
// order. Total counts the whole view, not just Rows.
type OrderTable struct {
	Header []string
	Rows   [][]string
	Total  int
}

type DashboardPage struct {
	Options models.FilterOptions
	Summary models.Summary
	Charts  Charts
	Orders  OrderTable
}
