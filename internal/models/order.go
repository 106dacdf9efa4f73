package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one line item of the sales dataset. Orders are never mutated after load.
type Order struct {
	OrderNumber string          `json:"order_number"`
	OrderDate   time.Time       `json:"order_date"`
	Sales       decimal.Decimal `json:"sales"`
	Territory   string          `json:"territory,omitempty"`
	ProductLine string          `json:"product_line"`
	Country     string          `json:"country"`

	// Cells holds every source column, aligned with Dataset.Header.
	Cells []string `json:"-"`
}

// HasTerritory reports whether the territory cell was present in the source.
func (o Order) HasTerritory() bool {
	return o.Territory != ""
}

func (o Order) HasProductLine() bool {
	return o.ProductLine != ""
}

// ColumnIndex records where each required column sits in the source header.
type ColumnIndex struct {
	OrderNumber int
	OrderDate   int
	Sales       int
	Territory   int
	ProductLine int
	Country     int
}

type Dataset struct {
	Header   []string
	Columns  ColumnIndex
	Orders   []Order
	Source   string
	LoadedAt time.Time
}

// FilterSelection is the live state of the two multiselect filters.
// An empty slice means "no restriction" for that dimension.
type FilterSelection struct {
	Territories  []string `json:"territories"`
	ProductLines []string `json:"productLines"`
}

func (f FilterSelection) IsEmpty() bool {
	return len(f.Territories) == 0 && len(f.ProductLines) == 0
}

type FilterOptions struct {
	Territories  []string `json:"territories"`
	ProductLines []string `json:"product_lines"`
}
