package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jask/moneyql/internal/dates"
)

// ErrMissingColumns is returned for a data row shorter than the layout needs.
var ErrMissingColumns = errors.New("missing columns")

// RowError pins a parse failure to a 1-based line of the source file.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d %s %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Options tune how parsed rows are classified.
type Options struct {
	// Inverse flips the spending/income interpretation of every row in the batch.
	Inverse bool
}

// Row is one candidate transaction read from a CSV file.
type Row struct {
	Line        int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Inverted    bool
}

// ReadFile loads every record of a comma separated file, or of the first
// sheet of an .xlsx workbook.
func ReadFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadWorkbook(f)
	}
	return Read(f)
}

// ReadWorkbook loads the rows of the first sheet of an .xlsx workbook.
func ReadWorkbook(r io.Reader) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return rows, nil
}

// Read loads every record from r. Records may have differing field counts.
func Read(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// ParseRows converts raw records into rows using layout. Any bad row fails the
// whole batch; no partial result is returned.
func ParseRows(rows [][]string, layout Layout, opts Options) ([]Row, error) {
	need := max(layout.DateCol, layout.AmountCol, layout.DescCol, layout.CreditCol) + 1
	out := make([]Row, 0, len(rows))
	for i := layout.firstDataRow(); i < len(rows); i++ {
		rec := rows[i]
		line := i + 1
		if isBlank(rec) {
			continue
		}
		if len(rec) < need {
			return nil, &RowError{Row: line, Err: fmt.Errorf("%w: expected at least %d, got %d", ErrMissingColumns, need, len(rec))}
		}

		dateRaw := strings.TrimSpace(rec[layout.DateCol])
		parsed, err := time.Parse(layout.DateFormat, dateRaw)
		if err != nil {
			return nil, &RowError{Row: line, Column: "date", Value: dateRaw, Err: &dates.ParseError{Input: dateRaw, Reason: "expected layout " + layout.DateFormat}}
		}

		amount, rowErr := rowAmount(rec, layout)
		if rowErr != nil {
			rowErr.Row = line
			return nil, rowErr
		}

		out = append(out, Row{
			Line:        line,
			Date:        dates.Day(parsed),
			Amount:      amount,
			Description: description(rec, layout),
			Inverted:    opts.Inverse,
		})
	}
	return out, nil
}

func rowAmount(rec []string, layout Layout) (decimal.Decimal, *RowError) {
	if layout.CreditCol < 0 {
		raw := strings.TrimSpace(rec[layout.AmountCol])
		v, err := ParseAmount(raw)
		if err != nil {
			return decimal.Zero, &RowError{Column: "amount", Value: raw, Err: err}
		}
		return v, nil
	}

	debitRaw := strings.TrimSpace(rec[layout.AmountCol])
	creditRaw := strings.TrimSpace(rec[layout.CreditCol])
	if debitRaw == "" && creditRaw == "" {
		return decimal.Zero, &RowError{Column: "amount", Err: errors.New("debit and credit both empty")}
	}
	total := decimal.Zero
	if debitRaw != "" {
		v, err := ParseAmount(debitRaw)
		if err != nil {
			return decimal.Zero, &RowError{Column: "debit", Value: debitRaw, Err: err}
		}
		total = total.Sub(v.Abs())
	}
	if creditRaw != "" {
		v, err := ParseAmount(creditRaw)
		if err != nil {
			return decimal.Zero, &RowError{Column: "credit", Value: creditRaw, Err: err}
		}
		total = total.Add(v.Abs())
	}
	return total, nil
}

func description(rec []string, layout Layout) string {
	return strings.TrimSpace(rec[layout.DescCol])
}

// ParseAmount accepts values such as "-4.50", "$1,200.00", "(30.00)" and "+12".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}
	if negative {
		v = v.Neg()
	}
	return v, nil
}
