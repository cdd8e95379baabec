package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryOther is the catch-all label produced by keyword bootstrapping.
// It is never used as a training target, so it can never be predicted.
const CategoryOther = "Other"

// DefaultCategories is the built-in label set, in keyword rule order.
var DefaultCategories = []string{
	"Food",
	"Shopping",
	"Transport",
	"Subscription",
	"Groceries",
	"Entertainment",
	"Utilities",
	"Income",
	CategoryOther,
}

// Canonical column names of the input CSV.
const (
	ColTransactionID = "transaction_id"
	ColDate          = "date"
	ColAmount        = "amount"
	ColType          = "type"
	ColDescription   = "description"
	ColMode          = "mode"
	ColCategory      = "category"
)

// CanonicalColumns lists the input columns in their canonical order.
var CanonicalColumns = []string{
	ColTransactionID,
	ColDate,
	ColAmount,
	ColType,
	ColDescription,
	ColMode,
	ColCategory,
}

// Transaction is one cleaned row of the input ledger.
type Transaction struct {
	Line          int // 1-based data line in the source file
	TransactionID string
	Date          time.Time
	Amount        decimal.Decimal
	AmountAbs     decimal.Decimal
	Type          string
	Description   string
	DescClean     string
	Mode          string
	Category      string
	IsCredit      bool

	Month     string // "2006-01"
	DayOfWeek string
	IsWeekend bool

	// Extra holds non-canonical columns keyed by normalized header.
	Extra map[string]string
}

// Field returns the value of a column by normalized name, covering both
// canonical and extra columns. The bool reports whether it was present.
func (t Transaction) Field(name string) (string, bool) {
	switch name {
	case ColTransactionID:
		return t.TransactionID, t.TransactionID != ""
	case ColType:
		return t.Type, t.Type != ""
	case ColDescription:
		return t.Description, t.Description != ""
	case ColMode:
		return t.Mode, t.Mode != ""
	case ColCategory:
		return t.Category, t.Category != ""
	}
	v, ok := t.Extra[name]
	return v, ok
}

// Rejection records an input row dropped during preprocessing.
type Rejection struct {
	Source        string // input file, when known
	Line          int
	TransactionID string
	Field         string
	Value         string
	Reason        string
}

// Prediction pairs a transaction with its assigned category.
type Prediction struct {
	Transaction
	Predicted string
}
