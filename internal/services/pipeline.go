package services

import (
	"slices"
	"time"

	"github.com/hashicorp/go-set/v2"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const (
	monthFormat         = "2006-01"
	DefaultTopCountries = 10
)

// Filter returns the orders matching sel. Within a dimension values are OR-ed, across
// dimensions AND-ed; an empty dimension matches everything. The input is not modified.
func Filter(orders []models.Order, sel models.FilterSelection) []models.Order {
	territories := set.From(sel.Territories)
	productLines := set.From(sel.ProductLines)

	view := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if territories.Size() > 0 && (!o.HasTerritory() || !territories.Contains(o.Territory)) {
			continue
		}
		if productLines.Size() > 0 && (!o.HasProductLine() || !productLines.Contains(o.ProductLine)) {
			continue
		}
		view = append(view, o)
	}
	return view
}

// ComputeKPIs reduces a view to total revenue, mean sale per row and distinct orders.
// The mean is rounded half-up to cents.
func ComputeKPIs(view []models.Order) models.KPIs {
	kpis := models.KPIs{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		Rows:              len(view),
	}
	if len(view) == 0 {
		return kpis
	}

	orderNumbers := set.New[string](len(view))
	total := decimal.Zero
	for _, o := range view {
		total = total.Add(o.Sales)
		orderNumbers.Insert(o.OrderNumber)
	}

	kpis.TotalRevenue = total
	kpis.AverageOrderValue = total.DivRound(decimal.NewFromInt(int64(len(view))), 2)
	kpis.AverageDefined = true
	kpis.UniqueOrders = orderNumbers.Size()
	return kpis
}

// MonthStart truncates t to midnight UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlySales sums sales per calendar month, ascending. Months without rows are
// omitted rather than zero-filled.
func MonthlySales(view []models.Order) []models.MonthlyData {
	groups := make(map[time.Time]decimal.Decimal)
	for _, o := range view {
		month := MonthStart(o.OrderDate)
		groups[month] = groups[month].Add(o.Sales)
	}

	result := make([]models.MonthlyData, 0, len(groups))
	for month, sales := range groups {
		result = append(result, models.MonthlyData{
			Month: month.Format(monthFormat),
			Start: month,
			Sales: sales,
		})
	}
	slices.SortFunc(result, func(a, b models.MonthlyData) int {
		return a.Start.Compare(b.Start)
	})
	return result
}

// Rank groups the view by key, sums sales and sorts descending. Ties keep the order in
// which their key was first seen. limit <= 0 keeps every group.
func Rank(view []models.Order, key func(models.Order) string, limit int) []models.CategoryRevenue {
	index := make(map[string]int)
	result := make([]models.CategoryRevenue, 0)

	for _, o := range view {
		k := key(o)
		i, ok := index[k]
		if !ok {
			i = len(result)
			index[k] = i
			result = append(result, models.CategoryRevenue{Category: k, Revenue: decimal.Zero})
		}
		result[i].Revenue = result[i].Revenue.Add(o.Sales)
		result[i].Rows++
	}

	slices.SortStableFunc(result, func(a, b models.CategoryRevenue) int {
		return b.Revenue.Cmp(a.Revenue)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func RankProductLines(view []models.Order) []models.CategoryRevenue {
	return Rank(view, func(o models.Order) string { return o.ProductLine }, 0)
}

func RankCountries(view []models.Order, limit int) []models.CategoryRevenue {
	return Rank(view, func(o models.Order) string { return o.Country }, limit)
}

// Summarize runs one full recomputation for sel over the dataset.
func Summarize(orders []models.Order, sel models.FilterSelection, topCountries int) models.Summary {
	view := Filter(orders, sel)
	return models.Summary{
		Selection:    sel,
		KPIs:         ComputeKPIs(view),
		MonthlySales: MonthlySales(view),
		ProductLines: RankProductLines(view),
		Countries:    RankCountries(view, topCountries),
		Orders:       view,
	}
}

// Options lists the distinct filterable values in first-seen order. A missing value
// contributes no option since it can never be selected.
func Options(orders []models.Order) models.FilterOptions {
	territories := set.New[string](0)
	productLines := set.New[string](0)
	opts := models.FilterOptions{
		Territories:  make([]string, 0),
		ProductLines: make([]string, 0),
	}
	for _, o := range orders {
		if o.HasTerritory() && territories.Insert(o.Territory) {
			opts.Territories = append(opts.Territories, o.Territory)
		}
		if o.HasProductLine() && productLines.Insert(o.ProductLine) {
			opts.ProductLines = append(opts.ProductLines, o.ProductLine)
		}
	}
	return opts
}
