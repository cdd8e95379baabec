// Package budget checks forecasts against spending limits.
package budget

import (
	"sort"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Limits are the configured spending thresholds. A zero Monthly disables
// the global check; categories without an entry are not checked.
type Limits struct {
	Monthly    float64
	Categories map[string]float64
}

// DefaultLimits returns the stock per-category and monthly budgets.
func DefaultLimits() Limits {
	return Limits{
		Monthly: 20000,
		Categories: map[string]float64{
			"Food":          5000,
			"Shopping":      7000,
			"Transport":     3000,
			"Utilities":     4000,
			"Entertainment": 2000,
		},
	}
}

// Evaluate compares a forecast table against limits.
//
// Category limits are checked only for forecasts dated at the table's
// latest target date. The monthly limit is checked against the sum of all
// forecasts falling in each target month.
func Evaluate(table []model.Forecast, limits Limits) model.BudgetReport {
	report := model.BudgetReport{MonthlyTotals: make(map[string]float64)}
	if len(table) == 0 {
		return report
	}

	var latest time.Time
	for _, fc := range table {
		if fc.TargetDate.After(latest) {
			latest = fc.TargetDate
		}
		report.MonthlyTotals[fc.TargetDate.Format("2006-01")] += fc.Predicted
	}

	for _, fc := range table {
		if !fc.TargetDate.Equal(latest) {
			continue
		}
		limit, ok := limits.Categories[fc.Category]
		if !ok {
			continue
		}
		report.Checked++
		if fc.Predicted > limit {
			report.Alerts = append(report.Alerts, model.BudgetAlert{
				Scope:     model.ScopeCategory,
				Key:       fc.Category,
				Predicted: fc.Predicted,
				Limit:     limit,
			})
		}
	}
	sort.Slice(report.Alerts, func(i, j int) bool { return report.Alerts[i].Key < report.Alerts[j].Key })

	if limits.Monthly > 0 {
		months := make([]string, 0, len(report.MonthlyTotals))
		for m := range report.MonthlyTotals {
			months = append(months, m)
		}
		sort.Strings(months)
		for _, m := range months {
			report.Checked++
			if total := report.MonthlyTotals[m]; total > limits.Monthly {
				report.Alerts = append(report.Alerts, model.BudgetAlert{
					Scope:     model.ScopeMonthly,
					Key:       m,
					Predicted: total,
					Limit:     limits.Monthly,
				})
			}
		}
	}

	return report
}
