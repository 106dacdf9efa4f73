package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

// SSEHandlers recompute the dashboard for the selection held in the browser's
// signals and patch every dependent fragment in place.
type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	tableRows int
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger, tableRows int) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
		tableRows: tableRows,
	}
}

// summarySignal is pushed back so client-side expressions can show counts
// without parsing the fragments.
type summarySignal struct {
	Rows         int `json:"rows"`
	UniqueOrders int `json:"uniqueOrders"`
}

func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	logger := observability.RequestLogger(r.Context(), h.logger)

	var sel models.FilterSelection
	if err := datastar.ReadSignals(r, &sel); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequest("could not read filter signals").WithDetails(err.Error()), requestID)
		return
	}
	sel.Territories = splitValues(sel.Territories)
	sel.ProductLines = splitValues(sel.ProductLines)

	summary := h.analytics.Summary(sel)
	chartSVGs, err := renderCharts(summary)
	if err != nil {
		errors.WriteError(w, h.logger, errors.RenderWrap(err, "charts"), requestID)
		return
	}
	orders, err := orderTable(h.analytics.Dataset(), summary.Orders, h.tableRows)
	if err != nil {
		errors.WriteError(w, h.logger, errors.RenderWrap(err, "orders table"), requestID)
		return
	}

	fragments := []templ.Component{
		templates.KPICards(summary.KPIs),
		templates.ChartPanel(templates.IDMonthlyChart, chartSVGs.Monthly),
		templates.ChartPanel(templates.IDProductChart, chartSVGs.ProductLines),
		templates.RankingTable(templates.IDProductTable, "Product Line", summary.ProductLines),
		templates.ChartPanel(templates.IDCountryChart, chartSVGs.Countries),
		templates.RankingTable(templates.IDCountryTable, "Country", summary.Countries),
		templates.OrdersTable(orders),
		templates.Downloads(summary.Selection),
	}

	htmls := make([]string, 0, len(fragments))
	for _, c := range fragments {
		html, err := renderString(r.Context(), c)
		if err != nil {
			errors.WriteError(w, h.logger, errors.RenderWrap(err, "dashboard fragment"), requestID)
			return
		}
		htmls = append(htmls, html)
	}

	signals, err := json.Marshal(map[string]summarySignal{
		"_summary": {Rows: summary.KPIs.Rows, UniqueOrders: summary.KPIs.UniqueOrders},
	})
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "could not encode signals"), requestID)
		return
	}

	sse := datastar.NewSSE(w, r)
	for i, html := range htmls {
		if err := sse.PatchElements(html); err != nil {
			logger.Warn("patch elements failed", "fragment", i, "error", err)
			return
		}
	}
	if err := sse.PatchSignals(signals); err != nil {
		logger.Warn("patch signals failed", "error", err)
		return
	}

	logger.Debug("dashboard patched",
		"territories", fmt.Sprint(sel.Territories),
		"product_lines", fmt.Sprint(sel.ProductLines),
		"rows", summary.KPIs.Rows,
	)
}
