package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Aggregate computes summary statistics over transactions.
func Aggregate(rows []model.Transaction) model.SummaryStats {
	var stats model.SummaryStats
	activeDays := make(map[time.Time]struct{})
	categories := make(map[string]struct{})
	spend, credits := decimal.Zero, decimal.Zero

	for _, tx := range rows {
		stats.Transactions++
		activeDays[tx.Date] = struct{}{}
		if tx.Category != "" {
			categories[tx.Category] = struct{}{}
		}
		if tx.IsCredit {
			credits = credits.Add(tx.AmountAbs)
		} else {
			spend = spend.Add(tx.AmountAbs)
		}
		if stats.FirstDate.IsZero() || tx.Date.Before(stats.FirstDate) {
			stats.FirstDate = tx.Date
		}
		if tx.Date.After(stats.LastDate) {
			stats.LastDate = tx.Date
		}
	}

	stats.ActiveDays = len(activeDays)
	stats.Categories = len(categories)
	stats.TotalSpend = spend.InexactFloat64()
	stats.TotalCredits = credits.InexactFloat64()
	if stats.ActiveDays > 0 {
		stats.SpendPerDay = stats.TotalSpend / float64(stats.ActiveDays)
	}
	return stats
}

// AggregateCategories computes per-category totals of absolute amounts,
// sorted by total descending.
func AggregateCategories(preds []model.Prediction) []model.CategoryStats {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	grand := decimal.Zero

	for _, p := range preds {
		totals[p.Predicted] = totals[p.Predicted].Add(p.AmountAbs)
		counts[p.Predicted]++
		grand = grand.Add(p.AmountAbs)
	}

	cats := make([]model.CategoryStats, 0, len(totals))
	for name, total := range totals {
		cs := model.CategoryStats{
			Category:     name,
			Transactions: counts[name],
			Total:        total.InexactFloat64(),
		}
		cs.Average = cs.Total / float64(cs.Transactions)
		if !grand.IsZero() {
			cs.SharePercent = total.Div(grand).InexactFloat64() * 100
		}
		cats = append(cats, cs)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Total != cats[j].Total {
			return cats[i].Total > cats[j].Total
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

// AggregateMonths computes per-month, per-category totals in month order.
func AggregateMonths(preds []model.Prediction) []model.MonthlyStats {
	type acc struct {
		total decimal.Decimal
		cats  map[string]decimal.Decimal
	}
	byMonth := make(map[string]*acc)

	for _, p := range preds {
		a, ok := byMonth[p.Month]
		if !ok {
			a = &acc{cats: make(map[string]decimal.Decimal)}
			byMonth[p.Month] = a
		}
		a.total = a.total.Add(p.AmountAbs)
		a.cats[p.Predicted] = a.cats[p.Predicted].Add(p.AmountAbs)
	}

	months := make([]model.MonthlyStats, 0, len(byMonth))
	for m, a := range byMonth {
		ms := model.MonthlyStats{
			Month:      m,
			Total:      a.total.InexactFloat64(),
			ByCategory: make(map[string]float64, len(a.cats)),
		}
		for c, v := range a.cats {
			ms.ByCategory[c] = v.InexactFloat64()
		}
		months = append(months, ms)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

// FilterByTime returns transactions dated within [since, until]. A zero
// bound is open.
func FilterByTime(rows []model.Transaction, since, until time.Time) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return rows
	}
	var out []model.Transaction
	for _, tx := range rows {
		if !since.IsZero() && tx.Date.Before(since) {
			continue
		}
		if !until.IsZero() && tx.Date.After(until) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// FilterPredictionsByTime is FilterByTime over predictions.
func FilterPredictionsByTime(preds []model.Prediction, since, until time.Time) []model.Prediction {
	if since.IsZero() && until.IsZero() {
		return preds
	}
	var out []model.Prediction
	for _, p := range preds {
		if !since.IsZero() && p.Date.Before(since) {
			continue
		}
		if !until.IsZero() && p.Date.After(until) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterByCategory returns predictions whose category contains the
// substring, case-insensitively.
func FilterByCategory(preds []model.Prediction, category string) []model.Prediction {
	if category == "" {
		return preds
	}
	needle := strings.ToLower(category)
	var out []model.Prediction
	for _, p := range preds {
		if strings.Contains(strings.ToLower(p.Predicted), needle) {
			out = append(out, p)
		}
	}
	return out
}

// FilterForecasts returns forecast rows whose category contains the
// substring, case-insensitively.
func FilterForecasts(table []model.Forecast, category string) []model.Forecast {
	if category == "" {
		return table
	}
	needle := strings.ToLower(category)
	var out []model.Forecast
	for _, f := range table {
		if strings.Contains(strings.ToLower(f.Category), needle) {
			out = append(out, f)
		}
	}
	return out
}
