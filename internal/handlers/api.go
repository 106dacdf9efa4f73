package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-set/v2"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const (
	queryTerritory   = "territory"
	queryProductLine = "product_line"

	defaultPageSize = 100
	maxPageSize     = 1000
	version         = "1.0.0"
)

var noStore = map[string]string{"Cache-Control": "no-store"}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	pageSize  int
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		pageSize:  defaultPageSize,
	}
}

// SetPageSize changes the default number of rows returned by /api/orders.
func (h *APIHandlers) SetPageSize(n int) {
	if n > 0 {
		h.pageSize = min(n, maxPageSize)
	}
}

// parseSelection reads repeated territory and product_line parameters.
// Blank values and duplicates are dropped.
func parseSelection(r *http.Request) models.FilterSelection {
	q := r.URL.Query()
	return models.FilterSelection{
		Territories:  splitValues(q[queryTerritory]),
		ProductLines: splitValues(q[queryProductLine]),
	}
}

func splitValues(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := set.New[string](len(raw))
	var out []string
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" && seen.Insert(v) {
			out = append(out, v)
		}
	}
	return out
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Summary(parseSelection(r)), noStore)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Summary(parseSelection(r)).KPIs, noStore)
}

func (h *APIHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Summary(parseSelection(r)).MonthlySales, noStore)
}

func (h *APIHandlers) HandleProductLines(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Summary(parseSelection(r)).ProductLines, noStore)
}

func (h *APIHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Summary(parseSelection(r)).Countries, noStore)
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Options(), map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}

// OrdersPage is one window of the filtered view. Rows carries every source column,
// in Columns order, alongside the parsed orders.
type OrdersPage struct {
	Total   int            `json:"total"`
	Offset  int            `json:"offset"`
	Limit   int            `json:"limit"`
	Columns []string       `json:"columns"`
	Rows    [][]string     `json:"rows"`
	Orders  []models.Order `json:"orders"`
}

func (h *APIHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	limit, err := intParam(r, "limit", h.pageSize)
	if err != nil || limit <= 0 || limit > maxPageSize {
		errors.WriteError(w, h.logger, errors.Validation("limit must be between 1 and "+strconv.Itoa(maxPageSize)).
			WithDetails("limit="+r.URL.Query().Get("limit")), requestID)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		errors.WriteError(w, h.logger, errors.Validation("offset must be a non-negative integer").
			WithDetails("offset="+r.URL.Query().Get("offset")), requestID)
		return
	}

	ds := h.analytics.Dataset()
	view := h.analytics.View(parseSelection(r))
	start := min(offset, len(view))
	end := min(start+limit, len(view))

	rows, err := export.Rows(ds, view[start:end])
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "could not lay out orders"), requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, OrdersPage{
		Total:   len(view),
		Offset:  offset,
		Limit:   limit,
		Columns: ds.Header,
		Rows:    rows,
		Orders:  view[start:end],
	}, noStore)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	records := len(h.analytics.Dataset().Orders)
	if records == 0 {
		errors.WriteError(w, h.logger, errors.ServiceUnavailable("no sales data loaded"), observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"records":   records,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
