// Package csvimport decides how a bank export CSV is laid out (header row,
// column roles, date format) and turns its rows into candidate transactions.
package csvimport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultSampleRows is how many non-empty date values are checked when
// choosing a date format.
const DefaultSampleRows = 5

// ErrDateFormatUnrecognized means no known date layout parsed every sampled value.
var ErrDateFormatUnrecognized = errors.New("csv date format unrecognized")

// DateFormats is tried in order; the first layout that parses every sampled
// value wins. Day-first layouts come before month-first ones.
var DateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2/1/2006",
	"1/2/2006",
	"2006/01/02",
	"2-1-2006",
	"2.1.2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"20060102",
}

var (
	dateHeader        = regexp.MustCompile(`(?i)date|time|posted`)
	descriptionHeader = regexp.MustCompile(`(?i)description|narrative|details|memo|payee|merchant|particulars`)
	amountHeader      = regexp.MustCompile(`(?i)amount|total|value`)
	debitHeader       = regexp.MustCompile(`(?i)debit`)
	creditHeader      = regexp.MustCompile(`(?i)credit`)
)

// Layout describes where the three logical fields live in a CSV file.
type Layout struct {
	HasHeader  bool
	DateCol    int
	AmountCol  int
	DescCol    int
	CreditCol  int // -1 unless the file splits amounts into debit/credit columns; AmountCol is then the debit column
	DateFormat string
}

// HeaderlessLayout is the fixed column order assumed when row 0 is data.
func HeaderlessLayout() Layout {
	return Layout{DateCol: 0, AmountCol: 1, DescCol: 2, CreditCol: -1}
}

func (l Layout) String() string {
	return fmt.Sprintf("header=%t date=%d amount=%d description=%d credit=%d format=%q",
		l.HasHeader, l.DateCol, l.AmountCol, l.DescCol, l.CreditCol, l.DateFormat)
}

func (l Layout) firstDataRow() int {
	if l.HasHeader {
		return 1
	}
	return 0
}

// Classify inspects raw rows and returns the layout to import them with.
// sample bounds the number of date values used for format detection.
func Classify(rows [][]string, sample int) (Layout, error) {
	layout := HeaderlessLayout()
	if len(rows) > 0 {
		if hdr, ok := DetectHeader(rows[0]); ok {
			layout = hdr
		}
	}
	if sample <= 0 {
		sample = DefaultSampleRows
	}

	var values []string
	for _, rec := range rows[min(layout.firstDataRow(), len(rows)):] {
		if isBlank(rec) || layout.DateCol >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[layout.DateCol])
		if v == "" {
			continue
		}
		values = append(values, v)
		if len(values) == sample {
			break
		}
	}
	if len(values) == 0 {
		layout.DateFormat = DateFormats[0]
		return layout, nil
	}
	format, err := DetectDateFormat(values)
	if err != nil {
		return layout, err
	}
	layout.DateFormat = format
	return layout, nil
}

// DetectHeader reports whether row looks like a header, i.e. it names a date,
// an amount and a description column.
func DetectHeader(row []string) (Layout, bool) {
	l := Layout{HasHeader: true, DateCol: -1, AmountCol: -1, DescCol: -1, CreditCol: -1}
	taken := map[int]bool{}

	find := func(re *regexp.Regexp) int {
		for i, cell := range row {
			if taken[i] {
				continue
			}
			if re.MatchString(strings.TrimSpace(cell)) {
				taken[i] = true
				return i
			}
		}
		return -1
	}

	l.DateCol = find(dateHeader)
	l.DescCol = find(descriptionHeader)

	debit, credit := -1, -1
	for i, cell := range row {
		if taken[i] {
			continue
		}
		switch {
		case debitHeader.MatchString(cell) && debit < 0:
			debit = i
		case creditHeader.MatchString(cell) && credit < 0:
			credit = i
		}
	}
	if debit >= 0 && credit >= 0 {
		taken[debit], taken[credit] = true, true
		l.AmountCol, l.CreditCol = debit, credit
	} else {
		l.AmountCol = find(amountHeader)
	}

	if l.DateCol < 0 || l.AmountCol < 0 || l.DescCol < 0 {
		return Layout{}, false
	}
	return l, true
}

// DetectDateFormat returns the first layout in DateFormats that parses all values.
func DetectDateFormat(values []string) (string, error) {
	for _, layout := range DateFormats {
		ok := true
		for _, v := range values {
			if _, err := time.Parse(layout, strings.TrimSpace(v)); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout, nil
		}
	}
	return "", fmt.Errorf("%w: sampled %q", ErrDateFormatUnrecognized, values)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
