package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return doc
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"350", "$350.00"},
		{"116.666", "$116.67"},
		{"1234.5", "$1,234.50"},
		{"10032628.85", "$10,032,628.85"},
		{"-42.1", "-$42.10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)), "FormatMoney(%s)", tt.in)
	}
}

func TestKPICards(t *testing.T) {
	doc := render(t, KPICards(models.KPIs{
		TotalRevenue:      decimal.RequireFromString("350"),
		AverageOrderValue: decimal.RequireFromString("116.67"),
		AverageDefined:    true,
		UniqueOrders:      3,
		Rows:              3,
	}))

	assert.Equal(t, 1, doc.Find("#"+IDKPIs).Length())
	assert.Equal(t, "$350.00", doc.Find(".total-revenue .value").Text())
	assert.Equal(t, "$116.67", doc.Find(".avg-order-value .value").Text())
	assert.Equal(t, "3", doc.Find(".unique-orders .value").Text())
}

func TestKPICards_UndefinedAverage(t *testing.T) {
	doc := render(t, KPICards(models.KPIs{}))

	assert.Equal(t, "$0.00", doc.Find(".total-revenue .value").Text())
	assert.Equal(t, "N/A", doc.Find(".avg-order-value .value").Text())
	assert.Equal(t, "0", doc.Find(".unique-orders .value").Text())
}

func TestRankingTable(t *testing.T) {
	doc := render(t, RankingTable(IDCountryTable, "Country", []models.CategoryRevenue{
		{Category: "France", Revenue: decimal.RequireFromString("100"), Rows: 1},
		{Category: "<Germany>", Revenue: decimal.RequireFromString("50"), Rows: 1},
	}))

	rows := doc.Find("#" + IDCountryTable + " tbody tr")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "France", rows.Eq(0).Find("td").Eq(1).Text())
	assert.Equal(t, "<Germany>", rows.Eq(1).Find("td").Eq(1).Text(), "category names are escaped, not interpreted")
	assert.Equal(t, "$50.00", rows.Eq(1).Find("strong").Text())
}

func TestRankingTable_Empty(t *testing.T) {
	doc := render(t, RankingTable(IDProductTable, "Product Line", nil))
	assert.Equal(t, 1, doc.Find("tr.empty").Length())
}

func TestOrdersTable(t *testing.T) {
	doc := render(t, OrdersTable(OrderTable{
		Header: []string{"ORDERNUMBER", "SALES", "CUSTOMERNAME", "ORDERDATE"},
		Rows: [][]string{
			{"10107", "2871", "Land of Toys Inc.", "2003-02-24 00:00:00"},
			{"10121", "2765.9", "<Reims> Collectables", "2003-05-07 00:00:00"},
		},
		Total: 5,
	}))

	headers := doc.Find("#" + IDOrders + " thead th")
	require.Equal(t, 4, headers.Length())
	assert.Equal(t, "CUSTOMERNAME", headers.Eq(2).Text())

	rows := doc.Find("#" + IDOrders + " tbody tr")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, 4, rows.First().Find("td").Length())
	assert.Equal(t, "<Reims> Collectables", rows.Eq(1).Find("td").Eq(2).Text())
	assert.Equal(t, "Showing 2 of 5 rows", doc.Find(".caption").Text())
}

func TestOrdersTable_Empty(t *testing.T) {
	doc := render(t, OrdersTable(OrderTable{Header: []string{"ORDERNUMBER"}}))
	assert.Equal(t, 0, doc.Find("tbody tr").Length())
	assert.Equal(t, "Showing 0 of 0 rows", doc.Find(".caption").Text())
}

func TestDownloads_CarrySelection(t *testing.T) {
	doc := render(t, Downloads(models.FilterSelection{
		Territories:  []string{"EMEA"},
		ProductLines: []string{"Classic Cars"},
	}))

	links := doc.Find("#" + IDDownloads + " a")
	require.Equal(t, 2, links.Length())
	csvHref, _ := links.Eq(0).Attr("href")
	xlsxHref, _ := links.Eq(1).Attr("href")
	assert.Equal(t, "/export/csv?product_line=Classic+Cars&territory=EMEA", csvHref)
	assert.Equal(t, "/export/xlsx?product_line=Classic+Cars&territory=EMEA", xlsxHref)
}

func TestDashboard(t *testing.T) {
	page := DashboardPage{
		Options: models.FilterOptions{
			Territories:  []string{"EMEA", "NA"},
			ProductLines: []string{"Classic Cars", "Motorcycles"},
		},
		Summary: models.Summary{
			KPIs: models.KPIs{TotalRevenue: decimal.RequireFromString("350"), AverageDefined: true, AverageOrderValue: decimal.RequireFromString("116.67"), UniqueOrders: 3},
		},
		Charts: Charts{Monthly: `<svg id="monthly-svg"></svg>`},
	}

	doc := render(t, Dashboard(page))

	assert.Equal(t, PageTitle, doc.Find("title").Text())
	assert.Equal(t, 2, doc.Find(`input[name="territories"]`).Length())
	assert.Equal(t, 2, doc.Find(`input[name="productLines"]`).Length())
	assert.Equal(t, 1, doc.Find("#"+IDMonthlyChart+" svg#monthly-svg").Length(), "chart svg is embedded unescaped")

	for _, heading := range []string{"Key Metrics", "Sales Over Time", "Top Product Lines", "Sales by Country (Top 10)", "Download Filtered Data"} {
		found := false
		doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
			if s.Text() == heading {
				found = true
			}
		})
		assert.True(t, found, "missing section %q", heading)
	}

	for _, id := range []string{IDKPIs, IDProductChart, IDCountryChart, IDProductTable, IDCountryTable, IDOrders, IDDownloads} {
		assert.Equal(t, 1, doc.Find("#"+id).Length(), "missing element #%s", id)
	}
}
