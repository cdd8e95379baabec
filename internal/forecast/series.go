// Package forecast projects per-category spending a fixed horizon past
// each category's last observed date.
package forecast

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one categorized transaction amount.
type Row struct {
	Category string
	Date     time.Time
	Amount   decimal.Decimal // absolute amount
}

// Point is the total spend of a category on one date.
type Point struct {
	Date  time.Time
	Total float64
}

// Series is the daily spend history of one category. It holds one point per
// distinct date with at least one transaction; days without transactions
// are absent rather than zero.
type Series struct {
	Category string
	Points   []Point
}

// Len returns the number of distinct dates.
func (s Series) Len() int { return len(s.Points) }

// Last returns the most recent point. The series must be non-empty.
func (s Series) Last() Point { return s.Points[len(s.Points)-1] }

// Values returns the totals in date order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Total
	}
	return out
}

// BuildSeries groups rows by category and sums amounts per date. Series are
// returned sorted by category, points sorted by date. Sums are exact; the
// conversion to float happens once per date.
func BuildSeries(rows []Row) []Series {
	byCat := make(map[string]map[time.Time]decimal.Decimal)
	for _, r := range rows {
		day := time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, time.UTC)
		days, ok := byCat[r.Category]
		if !ok {
			days = make(map[time.Time]decimal.Decimal)
			byCat[r.Category] = days
		}
		days[day] = days[day].Add(r.Amount)
	}

	out := make([]Series, 0, len(byCat))
	for cat, days := range byCat {
		s := Series{Category: cat, Points: make([]Point, 0, len(days))}
		for d, total := range days {
			s.Points = append(s.Points, Point{Date: d, Total: total.InexactFloat64()})
		}
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Date.Before(s.Points[j].Date) })
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
