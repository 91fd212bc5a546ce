// Package dates resolves the partial date expressions accepted in filters
// (full dates, year-months, bare months and years) into inclusive day ranges.
package dates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISO is the canonical on-disk and display layout for calendar dates.
const ISO = "2006-01-02"

// ErrDateParse is matched by every malformed date expression.
var ErrDateParse = errors.New("date parse")

// ParseError reports a date expression that could not be understood.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid date %q", e.Input)
	}
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrDateParse }

// Kind identifies the precision of a date expression.
type Kind int

const (
	KindDay Kind = iota
	KindYearMonth
	KindMonth
	KindYear
)

func (k Kind) String() string {
	switch k {
	case KindDay:
		return "day"
	case KindYearMonth:
		return "year-month"
	case KindMonth:
		return "month"
	case KindYear:
		return "year"
	}
	return "unknown"
}

// Expr is an unresolved date expression. Bare months only become concrete
// once a reference date is supplied to Resolve.
type Expr struct {
	Kind  Kind
	Year  int
	Month time.Month
	Day   int
}

// String renders the expression in the form it was written.
func (e Expr) String() string {
	switch e.Kind {
	case KindDay:
		return fmt.Sprintf("%04d-%02d-%02d", e.Year, int(e.Month), e.Day)
	case KindYearMonth:
		return fmt.Sprintf("%04d-%02d", e.Year, int(e.Month))
	case KindMonth:
		return strconv.Itoa(int(e.Month))
	case KindYear:
		return strconv.Itoa(e.Year)
	}
	return ""
}

// Range is an inclusive span of calendar days. Start and End are UTC midnights.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar day of t lies inside the range.
func (r Range) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	if r.Start.Equal(r.End) {
		return r.Start.Format(ISO)
	}
	return r.Start.Format(ISO) + ".." + r.End.Format(ISO)
}

// Day truncates t to its calendar day, expressed as a UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(ISO, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ParseError{Input: s, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// ParseExpr accepts YYYY-MM-DD, YYYY-MM, a bare month 1-12 or a four digit year.
func ParseExpr(s string) (Expr, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Expr{}, &ParseError{Input: s, Reason: "empty"}
	}
	switch strings.Count(raw, "-") {
	case 2:
		t, err := ParseDay(raw)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: KindDay, Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	case 1:
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			return Expr{}, &ParseError{Input: s, Reason: "expected YYYY-MM"}
		}
		return Expr{Kind: KindYearMonth, Year: t.Year(), Month: t.Month()}, nil
	case 0:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Expr{}, &ParseError{Input: s, Reason: "not a number"}
		}
		if len(raw) == 4 {
			return Expr{Kind: KindYear, Year: n}, nil
		}
		if n < 1 || n > 12 {
			return Expr{}, &ParseError{Input: s, Reason: "month must be between 1 and 12"}
		}
		return Expr{Kind: KindMonth, Month: time.Month(n)}, nil
	}
	return Expr{}, &ParseError{Input: s}
}

// ResolveMonthYear returns the year of the most recent occurrence of month m
// that is not in the future relative to now.
func ResolveMonthYear(m time.Month, now time.Time) int {
	if m <= now.Month() {
		return now.Year()
	}
	return now.Year() - 1
}

// MonthRange spans the first to the last day of the given month.
func MonthRange(year int, m time.Month) Range {
	start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, 1, -1)}
}

// Resolve turns e into a concrete inclusive range using now as the reference
// date for bare months.
func Resolve(e Expr, now time.Time) (Range, error) {
	switch e.Kind {
	case KindDay:
		d := time.Date(e.Year, e.Month, e.Day, 0, 0, 0, 0, time.UTC)
		if d.Month() != e.Month || d.Day() != e.Day {
			return Range{}, &ParseError{Input: e.String(), Reason: "no such day"}
		}
		return Range{Start: d, End: d}, nil
	case KindYearMonth:
		if e.Month < time.January || e.Month > time.December {
			return Range{}, &ParseError{Input: e.String(), Reason: "month must be between 1 and 12"}
		}
		return MonthRange(e.Year, e.Month), nil
	case KindMonth:
		if e.Month < time.January || e.Month > time.December {
			return Range{}, &ParseError{Input: e.String(), Reason: "month must be between 1 and 12"}
		}
		return MonthRange(ResolveMonthYear(e.Month, now), e.Month), nil
	case KindYear:
		start := time.Date(e.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: start, End: start.AddDate(1, 0, -1)}, nil
	}
	return Range{}, &ParseError{Input: e.String(), Reason: "unknown expression kind"}
}
