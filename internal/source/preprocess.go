package source

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Rejection reasons.
const (
	ReasonMissingDate   = "missing date"
	ReasonInvalidDate   = "unparseable date"
	ReasonMissingAmount = "missing amount"
	ReasonInvalidAmount = "non-numeric amount"
)

var (
	errEmptyDate   = errors.New("empty date")
	errEmptyAmount = errors.New("empty amount")
)

// Date layouts tried in order. Slash and dash forms are month-first, with
// the day-first form tried only when month-first cannot parse.
var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/1/2",
	"2006/1/2 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"1-2-2006",
	"2-1-2006",
	"1.2.2006",
	"2.1.2006",
	"1/2/06",
	"2/1/06",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Mon, 2 Jan 2006",
	"20060102",
}

// ParseDate parses a date leniently and truncates it to a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyDate
	}

	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParseAmount parses a signed decimal amount. Thousands separators, currency
// symbols and non-finite values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}
	return decimal.NewFromString(s)
}

// NormalizeDescription lowercases s, replaces every character outside
// [a-z0-9 ] with a space, collapses runs of whitespace and trims.
// U+0130 lowercases to "i" followed by a combining dot, so it leaves a
// separator after the i.
func NormalizeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if r == 'İ' {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte('i')
			pending = true
			continue
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// IsCredit reports whether a transaction type denotes a credit.
func IsCredit(txType string) bool {
	return strings.Contains(strings.ToLower(txType), "credit")
}

// Preprocess cleans a raw table into typed transactions. Rows whose date or
// amount cannot be parsed are returned in Result.Rejected and excluded from
// Result.Rows; every other row is kept in input order.
func Preprocess(t Table) Result {
	res := Result{
		Columns: withCanonical(t.Columns),
		Rows:    make([]model.Transaction, 0, len(t.Rows)),
	}

	for i, row := range t.Rows {
		line := i + 1
		id := row[model.ColTransactionID]

		rawDate := row[model.ColDate]
		date, err := ParseDate(rawDate)
		if err != nil {
			reason := ReasonInvalidDate
			if errors.Is(err, errEmptyDate) {
				reason = ReasonMissingDate
			}
			res.Rejected = append(res.Rejected, model.Rejection{
				Line: line, TransactionID: id, Field: model.ColDate, Value: rawDate, Reason: reason,
			})
			continue
		}

		rawAmount := row[model.ColAmount]
		amount, err := ParseAmount(rawAmount)
		if err != nil {
			reason := ReasonInvalidAmount
			if errors.Is(err, errEmptyAmount) {
				reason = ReasonMissingAmount
			}
			res.Rejected = append(res.Rejected, model.Rejection{
				Line: line, TransactionID: id, Field: model.ColAmount, Value: rawAmount, Reason: reason,
			})
			continue
		}

		tx := model.Transaction{
			Line:          line,
			TransactionID: id,
			Date:          date,
			Amount:        amount,
			AmountAbs:     amount.Abs(),
			Type:          row[model.ColType],
			Description:   row[model.ColDescription],
			Mode:          row[model.ColMode],
			Category:      row[model.ColCategory],
			Month:         date.Format("2006-01"),
			DayOfWeek:     date.Weekday().String(),
			IsWeekend:     date.Weekday() == time.Saturday || date.Weekday() == time.Sunday,
		}
		tx.DescClean = NormalizeDescription(tx.Description)
		tx.IsCredit = IsCredit(tx.Type)

		for col, v := range row {
			if isCanonical(col) {
				continue
			}
			if tx.Extra == nil {
				tx.Extra = make(map[string]string)
			}
			tx.Extra[col] = v
		}

		res.Rows = append(res.Rows, tx)
	}

	return res
}

// ToTable renders cleaned transactions back into a raw table with the
// canonical columns first and extra columns after, sorted by name.
// Preprocess(ToTable(rows)) reproduces rows.
func ToTable(rows []model.Transaction) Table {
	extras := make(map[string]struct{})
	for _, tx := range rows {
		for k := range tx.Extra {
			extras[k] = struct{}{}
		}
	}
	extraCols := make([]string, 0, len(extras))
	for k := range extras {
		extraCols = append(extraCols, k)
	}
	sort.Strings(extraCols)

	t := Table{
		Columns: append(append([]string{}, model.CanonicalColumns...), extraCols...),
		Rows:    make([]RawRow, 0, len(rows)),
	}
	for _, tx := range rows {
		row := RawRow{
			model.ColDate:   tx.Date.Format("2006-01-02"),
			model.ColAmount: tx.Amount.String(),
		}
		setIf(row, model.ColTransactionID, tx.TransactionID)
		setIf(row, model.ColType, tx.Type)
		setIf(row, model.ColDescription, tx.Description)
		setIf(row, model.ColMode, tx.Mode)
		setIf(row, model.ColCategory, tx.Category)
		for k, v := range tx.Extra {
			setIf(row, k, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func setIf(row RawRow, col, v string) {
	if v != "" {
		row[col] = v
	}
}

func isCanonical(col string) bool {
	for _, c := range model.CanonicalColumns {
		if c == col {
			return true
		}
	}
	return false
}

// withCanonical returns cols with any missing canonical columns appended,
// so downstream code sees the full canonical schema.
func withCanonical(cols []string) []string {
	out := append([]string{}, cols...)
	for _, c := range model.CanonicalColumns {
		found := false
		for _, have := range cols {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			out = append(out, c)
		}
	}
	return out
}
