package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrder(number, date, sales, territory, productLine, country string) models.Order {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.Order{
		OrderNumber: number,
		OrderDate:   d,
		Sales:       decimal.RequireFromString(sales),
		Territory:   territory,
		ProductLine: productLine,
		Country:     country,
	}
}

// createTestAnalytics holds 350.00 of sales across three orders; EMEA alone is 150.00.
func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics()
	a.SetData([]models.Order{
		testOrder("10100", "2003-01-15", "100", "EMEA", "Classic Cars", "France"),
		testOrder("10101", "2003-02-10", "200", "NA", "Motorcycles", "USA"),
		testOrder("10102", "2003-02-20", "50", "EMEA", "Motorcycles", "France"),
	})
	return a
}

const wideCSV = `ORDERNUMBER,QUANTITYORDERED,SALES,ORDERDATE,PRODUCTLINE,CUSTOMERNAME,COUNTRY,TERRITORY
10107,30,2871,2/24/2003 0:00,Motorcycles,Land of Toys Inc.,USA,NA
10121,34,2765.9,5/7/2003 0:00,Motorcycles,"Reims, Collectables",France,EMEA
10134,41,3884.34,7/1/2003 0:00,Classic Cars,Lyon Souveniers,France,EMEA
`

// wideAnalytics is loaded from a CSV carrying columns beyond the required set.
func wideAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	ds, err := services.ReadDataset(context.Background(), strings.NewReader(wideCSV), services.LoadOptions{Encoding: "utf-8"})
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	a := services.NewAnalytics()
	a.SetDataset(ds)
	return a
}

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope")
	}
	if err := json.Unmarshal(envelope.Data, into); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.FilterSelection
	}{
		{"empty", "", models.FilterSelection{}},
		{"repeated", "territory=EMEA&territory=NA", models.FilterSelection{Territories: []string{"EMEA", "NA"}}},
		{"both", "territory=APAC&product_line=Classic+Cars", models.FilterSelection{
			Territories:  []string{"APAC"},
			ProductLines: []string{"Classic Cars"},
		}},
		{"blanks and duplicates", "territory=&territory=EMEA&territory=EMEA", models.FilterSelection{Territories: []string{"EMEA"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/summary?"+tt.query, nil)
			got := parseSelection(r)
			if strings.Join(got.Territories, "|") != strings.Join(tt.want.Territories, "|") {
				t.Errorf("Territories = %v, want %v", got.Territories, tt.want.Territories)
			}
			if strings.Join(got.ProductLines, "|") != strings.Join(tt.want.ProductLines, "|") {
				t.Errorf("ProductLines = %v, want %v", got.ProductLines, tt.want.ProductLines)
			}
		})
	}
}

func TestAPIHandlers_HandleKPIs(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		query       string
		wantRevenue string
		wantAverage string
		wantDefined bool
		wantOrders  int
	}{
		{"", "350", "116.67", true, 3},
		{"?territory=EMEA", "150", "75", true, 2},
		{"?territory=APAC", "0", "0", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := get(t, h.HandleKPIs, "/api/kpis"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
				t.Errorf("Cache-Control = %q", cc)
			}

			var kpis models.KPIs
			decodeData(t, w, &kpis)
			if !kpis.TotalRevenue.Equal(decimal.RequireFromString(tt.wantRevenue)) {
				t.Errorf("TotalRevenue = %s, want %s", kpis.TotalRevenue, tt.wantRevenue)
			}
			if !kpis.AverageOrderValue.Equal(decimal.RequireFromString(tt.wantAverage)) {
				t.Errorf("AverageOrderValue = %s, want %s", kpis.AverageOrderValue, tt.wantAverage)
			}
			if kpis.AverageDefined != tt.wantDefined {
				t.Errorf("AverageDefined = %v", kpis.AverageDefined)
			}
			if kpis.UniqueOrders != tt.wantOrders {
				t.Errorf("UniqueOrders = %d, want %d", kpis.UniqueOrders, tt.wantOrders)
			}
		})
	}
}

func TestAPIHandlers_HandleMonthlySales(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	var months []models.MonthlyData
	decodeData(t, get(t, h.HandleMonthlySales, "/api/monthly-sales"), &months)

	if len(months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(months))
	}
	if months[0].Month != "2003-01" || months[1].Month != "2003-02" {
		t.Errorf("months out of order: %s, %s", months[0].Month, months[1].Month)
	}
	if !months[1].Sales.Equal(decimal.NewFromInt(250)) {
		t.Errorf("February sales = %s, want 250", months[1].Sales)
	}
}

func TestAPIHandlers_Rankings(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	var products []models.CategoryRevenue
	decodeData(t, get(t, h.HandleProductLines, "/api/product-lines"), &products)
	if len(products) != 2 || products[0].Category != "Motorcycles" || products[1].Category != "Classic Cars" {
		t.Errorf("unexpected product ranking %+v", products)
	}

	var countries []models.CategoryRevenue
	decodeData(t, get(t, h.HandleCountries, "/api/countries?product_line=Motorcycles"), &countries)
	if len(countries) != 2 || countries[0].Category != "USA" || !countries[1].Revenue.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected country ranking %+v", countries)
	}
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	var summary models.Summary
	decodeData(t, get(t, h.HandleSummary, "/api/summary?territory=NA"), &summary)

	if summary.KPIs.Rows != 1 {
		t.Errorf("Rows = %d, want 1", summary.KPIs.Rows)
	}
	if len(summary.Selection.Territories) != 1 || summary.Selection.Territories[0] != "NA" {
		t.Errorf("selection not echoed: %+v", summary.Selection)
	}
	if summary.Orders != nil {
		t.Error("orders should not be serialised in the summary")
	}
}

func TestAPIHandlers_HandleOrders(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	var page OrdersPage
	decodeData(t, get(t, h.HandleOrders, "/api/orders?limit=2&offset=1"), &page)

	if page.Total != 3 || page.Limit != 2 || page.Offset != 1 {
		t.Errorf("unexpected paging %+v", page)
	}
	if len(page.Orders) != 2 || page.Orders[0].OrderNumber != "10101" {
		t.Errorf("unexpected orders %+v", page.Orders)
	}

	decodeData(t, get(t, h.HandleOrders, "/api/orders?offset=10"), &page)
	if page.Total != 3 || len(page.Orders) != 0 {
		t.Errorf("offset past the end should return no rows, got %+v", page)
	}
}

func TestAPIHandlers_HandleOrders_AllColumns(t *testing.T) {
	h := NewAPIHandlers(wideAnalytics(t), testLogger())

	var page OrdersPage
	decodeData(t, get(t, h.HandleOrders, "/api/orders?territory=EMEA"), &page)

	if len(page.Columns) != 8 || page.Columns[5] != "CUSTOMERNAME" {
		t.Fatalf("Columns = %v", page.Columns)
	}
	if len(page.Rows) != 2 || len(page.Rows[0]) != 8 {
		t.Fatalf("Rows = %v", page.Rows)
	}
	if page.Rows[0][5] != "Reims, Collectables" {
		t.Errorf("customer cell = %q", page.Rows[0][5])
	}
	if page.Rows[0][1] != "34" {
		t.Errorf("quantity cell = %q", page.Rows[0][1])
	}
}

func TestAPIHandlers_HandleOrders_Validation(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	for _, query := range []string{"limit=0", "limit=abc", "limit=5000", "offset=-1", "offset=x"} {
		t.Run(query, func(t *testing.T) {
			w := get(t, h.HandleOrders, "/api/orders?"+query)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestAPIHandlers_SetPageSize(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())
	h.SetPageSize(1)

	var page OrdersPage
	decodeData(t, get(t, h.HandleOrders, "/api/orders"), &page)
	if page.Limit != 1 || len(page.Orders) != 1 {
		t.Errorf("default page size not applied: %+v", page)
	}

	h.SetPageSize(0)
	if h.pageSize != 1 {
		t.Errorf("non-positive page size should be ignored, got %d", h.pageSize)
	}
}

func TestAPIHandlers_HandleFilters(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	var opts models.FilterOptions
	decodeData(t, get(t, h.HandleFilters, "/api/filters"), &opts)

	if strings.Join(opts.Territories, ",") != "EMEA,NA" {
		t.Errorf("Territories = %v", opts.Territories)
	}
	if strings.Join(opts.ProductLines, ",") != "Classic Cars,Motorcycles" {
		t.Errorf("ProductLines = %v", opts.ProductLines)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())
	if w := get(t, h.HandleHealth, "/health"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	empty := NewAPIHandlers(services.NewAnalytics(), testLogger())
	if w := get(t, empty.HandleHealth, "/health"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status with no data = %d, want 503", w.Code)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger())

	var stats map[string]any
	decodeData(t, get(t, h.HandleStats, "/admin/stats"), &stats)
	if stats["record_count"] != float64(3) {
		t.Errorf("record_count = %v", stats["record_count"])
	}
}

func TestDownloadHandlers_ExportCSV(t *testing.T) {
	h := NewDownloadHandlers(createTestAnalytics(), testLogger())

	w := get(t, h.HandleExportCSV, "/export/csv?territory=EMEA")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="filtered_sales_data.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	want := "ORDERNUMBER,ORDERDATE,SALES,TERRITORY,PRODUCTLINE,COUNTRY\n" +
		"10100,2003-01-15 00:00:00,100,EMEA,Classic Cars,France\n" +
		"10102,2003-02-20 00:00:00,50,EMEA,Motorcycles,France\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestDownloadHandlers_ExportCSV_EmptyView(t *testing.T) {
	h := NewDownloadHandlers(createTestAnalytics(), testLogger())

	w := get(t, h.HandleExportCSV, "/export/csv?territory=Japan")
	if got := w.Body.String(); got != "ORDERNUMBER,ORDERDATE,SALES,TERRITORY,PRODUCTLINE,COUNTRY\n" {
		t.Errorf("empty export should carry only the header, got %q", got)
	}
}

func TestDownloadHandlers_ExportXLSX(t *testing.T) {
	h := NewDownloadHandlers(createTestAnalytics(), testLogger())

	w := get(t, h.HandleExportXLSX, "/export/xlsx")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "filtered_sales_data.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	// xlsx files are zip archives
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("body is not a zip archive")
	}
}

func TestDownloadHandlers_ExportFailure(t *testing.T) {
	a := createTestAnalytics()
	ds := a.Dataset()
	broken := *ds
	broken.Orders = []models.Order{{OrderNumber: "1", Cells: []string{"only", "two"}}}
	a.SetDataset(&broken)

	h := NewDownloadHandlers(a, testLogger())
	w := get(t, h.HandleExportCSV, "/export/csv")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "EXPORT_FAILED") {
		t.Errorf("body = %s", w.Body.String())
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Error("failed export must not look like a download")
	}
}

func TestDownloadHandlers_Charts(t *testing.T) {
	h := NewDownloadHandlers(createTestAnalytics(), testLogger())

	for path, handler := range map[string]http.HandlerFunc{
		"/charts/monthly.svg":       h.HandleMonthlyChart,
		"/charts/product-lines.svg": h.HandleProductLineChart,
		"/charts/countries.svg":     h.HandleCountryChart,
	} {
		t.Run(path, func(t *testing.T) {
			w := get(t, handler, path+"?"+url.Values{"territory": {"EMEA"}}.Encode())
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(w.Body.String(), "<svg") {
				t.Error("body is not an SVG document")
			}
		})
	}
}
