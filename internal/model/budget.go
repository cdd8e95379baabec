package model

// Alert scopes.
const (
	ScopeCategory = "category"
	ScopeMonthly  = "monthly"
)

// BudgetAlert flags a forecast that exceeds its configured limit.
type BudgetAlert struct {
	Scope     string // ScopeCategory or ScopeMonthly
	Key       string // category name or "2006-01" month
	Predicted float64
	Limit     float64
}

// Overage returns how far the forecast exceeds the limit.
func (a BudgetAlert) Overage() float64 {
	return a.Predicted - a.Limit
}

// BudgetReport is the outcome of checking a forecast table against limits.
type BudgetReport struct {
	Alerts        []BudgetAlert
	Checked       int
	MonthlyTotals map[string]float64
}

// OK reports whether no limit was exceeded.
func (r BudgetReport) OK() bool {
	return len(r.Alerts) == 0
}
