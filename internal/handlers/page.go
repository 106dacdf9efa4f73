package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout    = 10 * time.Second
	defaultTableRows = 100
)

// PageHandlers serves the full dashboard document with no filters applied.
type PageHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	tableRows int
}

func NewPageHandlers(analytics *services.Analytics, logger *slog.Logger, tableRows int) *PageHandlers {
	return &PageHandlers{
		analytics: analytics,
		logger:    logger,
		tableRows: tableRows,
	}
}

func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		errors.WriteError(w, h.logger, errors.NotFound("page not found"), observability.GetRequestID(r.Context()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	summary := h.analytics.Summary(models.FilterSelection{})
	chartSVGs, err := renderCharts(summary)
	if err != nil {
		errors.WriteError(w, h.logger, errors.RenderWrap(err, "charts"), observability.GetRequestID(ctx))
		return
	}
	orders, err := orderTable(h.analytics.Dataset(), summary.Orders, h.tableRows)
	if err != nil {
		errors.WriteError(w, h.logger, errors.RenderWrap(err, "orders table"), observability.GetRequestID(ctx))
		return
	}

	page := templates.DashboardPage{
		Options: h.analytics.Options(),
		Summary: summary,
		Charts:  chartSVGs,
		Orders:  orders,
	}

	var buf bytes.Buffer
	if err := templates.Dashboard(page).Render(ctx, &buf); err != nil {
		errors.WriteError(w, h.logger, errors.RenderWrap(err, "dashboard"), observability.GetRequestID(ctx))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// orderTable lays out the first limit orders of the view with every source column.
func orderTable(ds *models.Dataset, orders []models.Order, limit int) (templates.OrderTable, error) {
	if limit <= 0 {
		limit = defaultTableRows
	}
	rows, err := export.Rows(ds, orders[:min(limit, len(orders))])
	if err != nil {
		return templates.OrderTable{}, err
	}
	return templates.OrderTable{Header: ds.Header, Rows: rows, Total: len(orders)}, nil
}

func renderString(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
