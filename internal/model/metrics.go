package model

import "time"

// SummaryStats holds the top-level aggregate across all transactions.
type SummaryStats struct {
	Transactions int
	Categories   int
	ActiveDays   int
	FirstDate    time.Time
	LastDate     time.Time

	TotalSpend   float64 // sum of AmountAbs over debits
	TotalCredits float64 // sum of AmountAbs over credits
	SpendPerDay  float64
}

// CategoryStats holds aggregated spend for a single category.
type CategoryStats struct {
	Category     string
	Transactions int
	Total        float64
	Average      float64
	SharePercent float64
}

// MonthlyStats holds per-category spend for one calendar month.
type MonthlyStats struct {
	Month      string
	Total      float64
	ByCategory map[string]float64
}

// ClassMetrics holds held-out evaluation metrics for one label.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}
