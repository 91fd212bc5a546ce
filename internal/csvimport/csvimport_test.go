package csvimport

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneyql/internal/dates"
)

func mustRead(t *testing.T, content string) [][]string {
	t.Helper()
	rows, err := Read(strings.NewReader(content))
	require.NoError(t, err)
	return rows
}

func TestClassifyHeaderedFile(t *testing.T) {
	t.Parallel()

	rows := mustRead(t, "Description,Date,Amount\nCoffee Shop,2022-07-05,-4.50\nSalary,2022-07-31,2000.00\n")
	layout, err := Classify(rows, 0)
	require.NoError(t, err)
	require.True(t, layout.HasHeader)
	require.Equal(t, 1, layout.DateCol)
	require.Equal(t, 2, layout.AmountCol)
	require.Equal(t, 0, layout.DescCol)
	require.Equal(t, -1, layout.CreditCol)
	require.Equal(t, "2006-01-02", layout.DateFormat)

	parsed, err := ParseRows(rows, layout, Options{})
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, "Coffee Shop", parsed[0].Description)
	require.Equal(t, "-4.5", parsed[0].Amount.String())
	require.Equal(t, time.Date(2022, time.July, 5, 0, 0, 0, 0, time.UTC), parsed[0].Date)
	require.Equal(t, 2, parsed[0].Line)
}

func TestClassifyHeaderlessFileUsesFixedOrder(t *testing.T) {
	t.Parallel()

	rows := mustRead(t, "3/02/2026,203.92,PAYMENT THANKYOU 528417\n2/02/2026,-20,DAN MURPHY'S/580 MELBOURN, SPOTSWOOD\n")
	layout, err := Classify(rows, 0)
	require.NoError(t, err)
	require.False(t, layout.HasHeader)
	require.Equal(t, HeaderlessLayout().DateCol, layout.DateCol)
	require.Equal(t, "2/1/2006", layout.DateFormat)

	parsed, err := ParseRows(rows, layout, Options{Inverse: true})
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), parsed[0].Date)
	require.Equal(t, "DAN MURPHY'S/580 MELBOURN", parsed[1].Description)
	require.Equal(t, "-20", parsed[1].Amount.String())
	require.True(t, parsed[1].Inverted)
}

func TestHeaderlessDescriptionIgnoresTrailingColumns(t *testing.T) {
	t.Parallel()

	rows := mustRead(t, "05/07/2022,-4.50,Coffee Shop,995.50\n31/07/2022,2000.00,Salary,2995.50\n")
	layout, err := Classify(rows, 0)
	require.NoError(t, err)
	require.False(t, layout.HasHeader)

	parsed, err := ParseRows(rows, layout, Options{})
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, "Coffee Shop", parsed[0].Description)
	require.Equal(t, "Salary", parsed[1].Description)
	require.Equal(t, "2000", parsed[1].Amount.String())
}

func TestDetectHeaderNeedsAllThreeRoles(t *testing.T) {
	t.Parallel()

	_, ok := DetectHeader([]string{"Date", "Amount", "Balance"})
	require.False(t, ok)

	l, ok := DetectHeader([]string{"Transaction Date", "Narrative", "Debit Amount", "Credit Amount", "Balance"})
	require.True(t, ok)
	require.Equal(t, 0, l.DateCol)
	require.Equal(t, 1, l.DescCol)
	require.Equal(t, 2, l.AmountCol)
	require.Equal(t, 3, l.CreditCol)
}

func TestDebitCreditColumns(t *testing.T) {
	t.Parallel()

	rows := mustRead(t, "Date,Narrative,Debit Amount,Credit Amount\n05/07/2022,COLES,12.40,\n06/07/2022,REFUND,,3.00\n")
	layout, err := Classify(rows, 0)
	require.NoError(t, err)

	parsed, err := ParseRows(rows, layout, Options{})
	require.NoError(t, err)
	require.Equal(t, "-12.4", parsed[0].Amount.String())
	require.Equal(t, "3", parsed[1].Amount.String())
	require.Equal(t, time.July, parsed[0].Date.Month())
}

func TestDetectDateFormatPrefersDayFirst(t *testing.T) {
	t.Parallel()

	format, err := DetectDateFormat([]string{"05/07/2022", "12/07/2022"})
	require.NoError(t, err)
	require.Equal(t, "2/1/2006", format)

	// 07/31 cannot be day-first, so month-first wins for the batch.
	format, err = DetectDateFormat([]string{"07/05/2022", "07/31/2022"})
	require.NoError(t, err)
	require.Equal(t, "1/2/2006", format)

	format, err = DetectDateFormat([]string{"5 Jul 2022"})
	require.NoError(t, err)
	require.Equal(t, "2 Jan 2006", format)
}

func TestClassifyUnrecognizedDateFormat(t *testing.T) {
	t.Parallel()

	rows := mustRead(t, "date,amount,description\nyesterday,-1,x\n")
	_, err := Classify(rows, 0)
	require.ErrorIs(t, err, ErrDateFormatUnrecognized)
}

func TestParseRowsFailsWholeBatch(t *testing.T) {
	t.Parallel()

	rows := mustRead(t, "2022-07-05,-4.50,Coffee\n2022-07-06,abc,Lunch\n2022-07-07,-3,Tea\n")
	layout, err := Classify(rows, 0)
	require.NoError(t, err)

	parsed, err := ParseRows(rows, layout, Options{})
	require.Nil(t, parsed)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	require.Equal(t, 2, rowErr.Row)
	require.Equal(t, "amount", rowErr.Column)

	// A date that breaks the adopted format after the sampled rows.
	rows = mustRead(t, "2022-07-05,-4.50,Coffee\n2022/07/06,-1,Lunch\n")
	layout, err = Classify(rows, 1)
	require.NoError(t, err)
	_, err = ParseRows(rows, layout, Options{})
	require.ErrorAs(t, err, &rowErr)
	require.Equal(t, "date", rowErr.Column)
	require.True(t, errors.Is(err, dates.ErrDateParse))

	rows = mustRead(t, "2022-07-05,-4.50\n")
	_, err = ParseRows(rows, HeaderlessLayout(), Options{})
	require.ErrorIs(t, err, ErrMissingColumns)
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"-4.50":     "-4.5",
		"$1,200.00": "1200",
		"(30.00)":   "-30",
		"+12":       "12",
		" 7 ":       "7",
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got.String(), in)
	}
	for _, in := range []string{"", "abc", "$"} {
		_, err := ParseAmount(in)
		require.Error(t, err, in)
	}
}

func TestReadFileStripsBOMAndBlankRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffDate,Amount,Description\n\n2022-07-05,-1,x\n"), 0o644))
	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Date", rows[0][0])

	layout, err := Classify(rows, 0)
	require.NoError(t, err)
	require.True(t, layout.HasHeader)
	parsed, err := ParseRows(rows, layout, Options{})
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
