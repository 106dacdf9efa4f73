package templates

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const notAvailable = "N/A"

// FormatMoney renders d as dollars with thousands separators and two decimals.
func FormatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatAverage renders the average order value, or N/A when it is undefined.
func FormatAverage(k models.KPIs) string {
	if !k.AverageDefined {
		return notAvailable
	}
	return FormatMoney(k.AverageOrderValue)
}

// SelectionQuery encodes sel as the query string understood by the API and downloads.
func SelectionQuery(sel models.FilterSelection) string {
	v := url.Values{}
	for _, t := range sel.Territories {
		v.Add("territory", t)
	}
	for _, p := range sel.ProductLines {
		v.Add("product_line", p)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
