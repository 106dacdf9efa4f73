package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Analytics owns the read-only dataset shared by every session and runs the pipeline
// for each selection it is handed.
type Analytics struct {
	mu           sync.RWMutex
	dataset      *models.Dataset
	options      models.FilterOptions
	topCountries int
	logger       *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		dataset:      &models.Dataset{Orders: make([]models.Order, 0)},
		options:      Options(nil),
		topCountries: DefaultTopCountries,
		logger:       slog.Default(),
	}
}

// SetTopCountries changes the length of the country ranking; n <= 0 is ignored.
func (a *Analytics) SetTopCountries(n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.topCountries = n
}

func (a *Analytics) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

func (a *Analytics) SetDataset(ds *models.Dataset) {
	options := Options(ds.Orders)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dataset = ds
	a.options = options
	observability.DatasetRecords.Set(float64(len(ds.Orders)))
}

// SetData installs orders under the standard column layout, for tests and tools
// that build orders in memory.
func (a *Analytics) SetData(orders []models.Order) {
	a.SetDataset(&models.Dataset{
		Header: []string{ColumnOrderNumber, ColumnOrderDate, ColumnSales, ColumnTerritory, ColumnProductLine, ColumnCountry},
		Columns: models.ColumnIndex{
			OrderNumber: 0,
			OrderDate:   1,
			Sales:       2,
			Territory:   3,
			ProductLine: 4,
			Country:     5,
		},
		Orders:   orders,
		LoadedAt: time.Now(),
	})
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string, opts LoadOptions) error {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "load dataset")
	defer span.Finish(a.logger)
	span.SetTag("file", filename)

	a.logger.Info("processing CSV file", "filename", filename, "encoding", opts.Encoding)

	ds, err := LoadDataset(ctx, filename, opts)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load dataset: %w", err)
	}
	a.SetDataset(ds)
	span.SetTag("records", strconv.Itoa(len(ds.Orders)))

	duration := time.Since(start)
	count := len(ds.Orders)
	a.logger.Info("csv processing complete",
		"records", count,
		"columns", len(ds.Header),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

func (a *Analytics) Dataset() *models.Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset
}

func (a *Analytics) Options() models.FilterOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

// Summary recomputes every dashboard output for sel from scratch.
func (a *Analytics) Summary(sel models.FilterSelection) models.Summary {
	timer := prometheus.NewTimer(observability.PipelineDuration)
	defer timer.ObserveDuration()

	a.mu.RLock()
	orders := a.dataset.Orders
	top := a.topCountries
	a.mu.RUnlock()

	return Summarize(orders, sel, top)
}

// View returns only the filtered orders, for the table and downloads.
func (a *Analytics) View(sel models.FilterSelection) []models.Order {
	a.mu.RLock()
	orders := a.dataset.Orders
	a.mu.RUnlock()

	return Filter(orders, sel)
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":  len(a.dataset.Orders),
		"columns":       len(a.dataset.Header),
		"source":        a.dataset.Source,
		"loaded_at":     a.dataset.LoadedAt,
		"territories":   len(a.options.Territories),
		"product_lines": len(a.options.ProductLines),
		"top_countries": a.topCountries,
	}
}
