package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// DownloadHandlers serves the filtered view as files and the charts as SVG.
type DownloadHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewDownloadHandlers(analytics *services.Analytics, logger *slog.Logger) *DownloadHandlers {
	return &DownloadHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type writeFunc func(io.Writer, *models.Dataset, []models.Order) error

func (h *DownloadHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, formatCSV, export.CSVFileName, export.CSVContentType+"; charset=utf-8", export.WriteCSV)
}

func (h *DownloadHandlers) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, formatXLSX, export.XLSXFileName, export.XLSXContentType, export.WriteXLSX)
}

// serveExport renders into memory first so a failure can still be reported as JSON.
func (h *DownloadHandlers) serveExport(w http.ResponseWriter, r *http.Request, format, filename, contentType string, write writeFunc) {
	ctx, span := observability.StartSpan(r.Context(), "export "+format)
	defer span.Finish(h.logger)

	sel := parseSelection(r)
	ds := h.analytics.Dataset()
	view := h.analytics.View(sel)
	span.SetTag("rows", strconv.Itoa(len(view)))

	var buf bytes.Buffer
	if err := write(&buf, ds, view); err != nil {
		span.SetError(err)
		observability.ExportsTotal.WithLabelValues(format, "error").Inc()
		errors.WriteError(w, h.logger, errors.ExportWrap(err, format), observability.GetRequestID(ctx))
		return
	}
	observability.ExportsTotal.WithLabelValues(format, "ok").Inc()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		observability.RequestLogger(ctx, h.logger).Warn("export write interrupted", "format", format, "error", err)
	}
}

func (h *DownloadHandlers) HandleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	summary := h.analytics.Summary(parseSelection(r))
	h.serveChart(w, r, "monthly chart", func(out io.Writer) error {
		return charts.MonthlySVG(out, summary.MonthlySales)
	})
}

func (h *DownloadHandlers) HandleProductLineChart(w http.ResponseWriter, r *http.Request) {
	summary := h.analytics.Summary(parseSelection(r))
	h.serveChart(w, r, "product line chart", func(out io.Writer) error {
		return charts.RankingSVG(out, productChartTitle, summary.ProductLines)
	})
}

func (h *DownloadHandlers) HandleCountryChart(w http.ResponseWriter, r *http.Request) {
	summary := h.analytics.Summary(parseSelection(r))
	h.serveChart(w, r, "country chart", func(out io.Writer) error {
		return charts.RankingSVG(out, countryChartTitle, summary.Countries)
	})
}

func (h *DownloadHandlers) serveChart(w http.ResponseWriter, r *http.Request, what string, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		errors.WriteError(w, h.logger, errors.RenderWrap(err, what), observability.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", charts.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

const (
	productChartTitle = "Top Product Lines by Sales"
	countryChartTitle = "Top Countries by Sales"
)

// renderCharts draws the three dashboard charts for summary.
func renderCharts(summary models.Summary) (templates.Charts, error) {
	var monthly, products, countries bytes.Buffer

	if err := charts.MonthlySVG(&monthly, summary.MonthlySales); err != nil {
		return templates.Charts{}, fmt.Errorf("monthly chart: %w", err)
	}
	if err := charts.RankingSVG(&products, productChartTitle, summary.ProductLines); err != nil {
		return templates.Charts{}, fmt.Errorf("product line chart: %w", err)
	}
	if err := charts.RankingSVG(&countries, countryChartTitle, summary.Countries); err != nil {
		return templates.Charts{}, fmt.Errorf("country chart: %w", err)
	}

	return templates.Charts{
		Monthly:      monthly.String(),
		ProductLines: products.String(),
		Countries:    countries.String(),
	}, nil
}
