package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	analytics        *services.Analytics
	mux              *http.ServeMux
	logger           *slog.Logger
	pageHandlers     *handlers.PageHandlers
	apiHandlers      *handlers.APIHandlers
	sseHandlers      *handlers.SSEHandlers
	downloadHandlers *handlers.DownloadHandlers
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, cfg *config.Config) *Server {
	apiHandlers := handlers.NewAPIHandlers(analytics, logger)
	apiHandlers.SetPageSize(cfg.Dashboard.TableRows)

	s := &Server{
		analytics:        analytics,
		mux:              http.NewServeMux(),
		logger:           logger,
		pageHandlers:     handlers.NewPageHandlers(analytics, logger, cfg.Dashboard.TableRows),
		apiHandlers:      apiHandlers,
		sseHandlers:      handlers.NewSSEHandlers(analytics, logger, cfg.Dashboard.TableRows),
		downloadHandlers: handlers.NewDownloadHandlers(analytics, logger),
	}
	s.setupRoutes(cfg.Metrics)
	return s
}

func (s *Server) setupRoutes(metrics config.MetricsConfig) {
	// Dashboard routes
	s.mux.HandleFunc("GET /", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/monthly-sales", s.apiHandlers.HandleMonthlySales)
	s.mux.HandleFunc("GET /api/product-lines", s.apiHandlers.HandleProductLines)
	s.mux.HandleFunc("GET /api/countries", s.apiHandlers.HandleCountries)
	s.mux.HandleFunc("GET /api/orders", s.apiHandlers.HandleOrders)
	s.mux.HandleFunc("GET /api/filters", s.apiHandlers.HandleFilters)

	// Downloads and charts
	s.mux.HandleFunc("GET /export/csv", s.downloadHandlers.HandleExportCSV)
	s.mux.HandleFunc("GET /export/xlsx", s.downloadHandlers.HandleExportXLSX)
	s.mux.HandleFunc("GET /charts/monthly.svg", s.downloadHandlers.HandleMonthlyChart)
	s.mux.HandleFunc("GET /charts/product-lines.svg", s.downloadHandlers.HandleProductLineChart)
	s.mux.HandleFunc("GET /charts/countries.svg", s.downloadHandlers.HandleCountryChart)

	// Datastar SSE endpoint
	s.mux.HandleFunc("GET /sse/dashboard", s.sseHandlers.HandleDashboard)

	if metrics.Enabled {
		s.mux.Handle("GET "+metrics.Path, promhttp.Handler())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
