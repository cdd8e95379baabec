package source

import (
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/spendcast/internal/model"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Swiggy Order #123", "swiggy order 123"},
		{"  UBER   *Trip  ", "uber trip"},
		{"AMAZON.IN/PAY", "amazon in pay"},
		{"tab\tand\nnewline", "tab and newline"},
		{"Café Coffee Day", "caf coffee day"},
		{"İstanbul café", "i stanbul caf"},
		{"KİM", "ki m"},
		{"***", ""},
		{"", ""},
		{"already clean", "already clean"},
	}
	for _, tt := range tests {
		if got := NormalizeDescription(tt.in); got != tt.want {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func FuzzNormalizeDescription(f *testing.F) {
	f.Add("Swiggy Order #123")
	f.Add("  spaces  ")
	f.Add("ÜBER-ride 42!!")
	f.Add("İstanbul café")
	f.Fuzz(func(t *testing.T, s string) {
		out := NormalizeDescription(s)
		if out != strings.TrimSpace(out) {
			t.Fatalf("output not trimmed: %q", out)
		}
		if strings.Contains(out, "  ") {
			t.Fatalf("output has double space: %q", out)
		}
		for _, r := range out {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' '
			if !ok {
				t.Fatalf("output has %q: %q", r, out)
			}
		}
		if NormalizeDescription(out) != out {
			t.Fatalf("not idempotent: %q", out)
		}
	})
}

func TestParseDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01", day(2024, 1, 1)},
		{"2024-3-7", day(2024, 3, 7)},
		{"2024-01-15 18:30:00", day(2024, 1, 15)},
		{"2024-01-15T23:59:59Z", day(2024, 1, 15)},
		{"2024/02/29", day(2024, 2, 29)},
		{"01/02/2024", day(2024, 1, 2)}, // month first
		{"25/12/2024", day(2024, 12, 25)},
		{"05-Mar-2024", day(2024, 3, 5)},
		{"Mar 5, 2024", day(2024, 3, 5)},
		{"5 March 2024", day(2024, 3, 5)},
		{" 2024-01-01 ", day(2024, 1, 1)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "not-a-date", "2024-13-45", "yesterday"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) succeeded, want error", bad)
		}
	}
}

func TestParseAmount(t *testing.T) {
	good := map[string]string{
		"120":     "120",
		"-45.50":  "-45.5",
		" 12.5 ":  "12.5",
		"+7":      "7",
		"1e3":     "1000",
		"0.00001": "0.00001",
	}
	for in, want := range good {
		got, err := ParseAmount(in)
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", in, err)
			continue
		}
		if got.String() != want {
			t.Errorf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}

	for _, bad := range []string{"", "abc", "1,200", "$5", "NaN", "Inf"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Errorf("ParseAmount(%q) succeeded, want error", bad)
		}
	}
}

func TestIsCredit(t *testing.T) {
	tests := map[string]bool{
		"Credit":      true,
		"CREDIT CARD": true,
		"upi-credit":  true,
		"Debit":       false,
		"":            false,
		"cred":        false,
	}
	for in, want := range tests {
		if got := IsCredit(in); got != want {
			t.Errorf("IsCredit(%q) = %v, want %v", in, got, want)
		}
	}
}

func sampleTable(t *testing.T) Table {
	t.Helper()
	csv := strings.Join([]string{
		" Transaction_ID ,DATE,Amount,Type,Description,Mode,Note",
		"t1,2024-01-01,120,Debit,Swiggy Order #1,UPI,lunch",
		"t2,2024-01-15,-80.5,Credit Card,UBER *Trip,Card,",
		"t3,garbage,10,Debit,Broken date,UPI,",
		"t4,2024-02-03,ten,Debit,Broken amount,UPI,",
		"t5,,10,Debit,Missing date,UPI,",
		"t6,2024-02-10,,Debit,Missing amount,UPI,",
		"t7,2024-02-10,300,,,Cash,",
	}, "\n")
	tbl, err := ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return tbl
}

func TestPreprocess_Partition(t *testing.T) {
	res := Preprocess(sampleTable(t))

	if len(res.Rows) != 3 {
		t.Fatalf("Rows = %d, want 3", len(res.Rows))
	}
	if len(res.Rejected) != 4 {
		t.Fatalf("Rejected = %d, want 4", len(res.Rejected))
	}

	wantReasons := map[string]string{
		"t3": ReasonInvalidDate,
		"t4": ReasonInvalidAmount,
		"t5": ReasonMissingDate,
		"t6": ReasonMissingAmount,
	}
	for _, rej := range res.Rejected {
		if want := wantReasons[rej.TransactionID]; rej.Reason != want {
			t.Errorf("%s reason = %q, want %q", rej.TransactionID, rej.Reason, want)
		}
	}
	if res.Rejected[0].Line != 3 {
		t.Errorf("first rejection line = %d, want 3", res.Rejected[0].Line)
	}
}

func TestPreprocess_Fields(t *testing.T) {
	res := Preprocess(sampleTable(t))

	first := res.Rows[0]
	if first.DescClean != "swiggy order 1" {
		t.Errorf("DescClean = %q", first.DescClean)
	}
	if first.Month != "2024-01" || first.DayOfWeek != "Monday" || first.IsWeekend {
		t.Errorf("temporal fields = %q %q %v", first.Month, first.DayOfWeek, first.IsWeekend)
	}
	if first.Extra["note"] != "lunch" {
		t.Errorf("Extra[note] = %q, want lunch", first.Extra["note"])
	}

	second := res.Rows[1]
	if !second.IsCredit {
		t.Error("Credit Card row should be a credit")
	}
	if second.AmountAbs.String() != "80.5" {
		t.Errorf("AmountAbs = %s, want 80.5", second.AmountAbs)
	}

	// Null description and type still produce a valid row.
	third := res.Rows[2]
	if third.DescClean != "" || third.IsCredit {
		t.Errorf("null fields: DescClean=%q IsCredit=%v", third.DescClean, third.IsCredit)
	}
	if !third.IsWeekend || third.DayOfWeek != "Saturday" {
		t.Errorf("2024-02-10 weekend = %v %q", third.IsWeekend, third.DayOfWeek)
	}
}

func TestPreprocess_Invariants(t *testing.T) {
	res := Preprocess(sampleTable(t))
	for _, tx := range res.Rows {
		if tx.Date.IsZero() {
			t.Errorf("row %d has zero date", tx.Line)
		}
		if tx.AmountAbs.IsNegative() || !tx.AmountAbs.Equal(tx.Amount.Abs()) {
			t.Errorf("row %d AmountAbs = %s for Amount %s", tx.Line, tx.AmountAbs, tx.Amount)
		}
		if tx.DescClean != NormalizeDescription(tx.DescClean) {
			t.Errorf("row %d DescClean not normalized: %q", tx.Line, tx.DescClean)
		}
	}
}

func TestPreprocess_MissingColumnsSynthesized(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("date,amount\n2024-01-01,5\n"))
	if err != nil {
		t.Fatal(err)
	}
	res := Preprocess(tbl)
	if len(res.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(res.Rows))
	}
	for _, col := range model.CanonicalColumns {
		if !res.HasColumn(col) {
			t.Errorf("canonical column %q missing from result", col)
		}
	}
	if res.Rows[0].Description != "" || res.Rows[0].TransactionID != "" {
		t.Errorf("synthesized columns should be null: %+v", res.Rows[0])
	}
}

func TestPreprocess_FixedPoint(t *testing.T) {
	first := Preprocess(sampleTable(t))

	var sb strings.Builder
	if err := WriteCSV(&sb, ToTable(first.Rows)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	tbl, err := ReadCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	second := Preprocess(tbl)

	if len(second.Rejected) != 0 {
		t.Fatalf("second pass rejected %d rows", len(second.Rejected))
	}
	if len(second.Rows) != len(first.Rows) {
		t.Fatalf("rows %d -> %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		a, b := first.Rows[i], second.Rows[i]
		if !a.Date.Equal(b.Date) || !a.Amount.Equal(b.Amount) || a.DescClean != b.DescClean ||
			a.IsCredit != b.IsCredit || a.TransactionID != b.TransactionID || a.Extra["note"] != b.Extra["note"] {
			t.Errorf("row %d changed:\n first  %+v\n second %+v", i, a, b)
		}
	}
}

func BenchmarkPreprocess(b *testing.B) {
	rows := make([]RawRow, 5000)
	for i := range rows {
		rows[i] = RawRow{
			model.ColDate:        "2024-01-15",
			model.ColAmount:      "-1234.56",
			model.ColType:        "Debit",
			model.ColDescription: "ZOMATO*Order 8812 Bangalore",
		}
	}
	tbl := Table{Columns: model.CanonicalColumns, Rows: rows}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Preprocess(tbl)
	}
}
