// Package render formats statement results for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/filtering"
	"github.com/jask/moneyql/internal/service"
	"github.com/jask/moneyql/internal/statement"
)

const defaultDescWidth = 40

// Options control formatting.
type Options struct {
	DateFormat     string
	CurrencySymbol string
	// Color enables lipgloss styling; plain text otherwise.
	Color bool
	// DescWidth caps the description column. Zero means 40.
	DescWidth int
}

func (o Options) style(s lipgloss.Style, text string) string {
	if !o.Color {
		return text
	}
	return s.Render(text)
}

// Result renders one statement result.
func Result(res service.Result, opts Options) string {
	var b strings.Builder
	if res.DryRun {
		b.WriteString(opts.style(dryRunStyle, "(dry run, nothing was changed)"))
		b.WriteString("\n")
	}

	switch res.Kind {
	case statement.KindSelect:
		switch {
		case res.Scalar != nil:
			b.WriteString(res.Aggregate + " = " + opts.style(scalarStyle, scalar(res, opts)))
		case res.Groups != nil:
			if len(res.Groups) > 0 {
				b.WriteString(Groups(res.Groups, opts))
			}
			b.WriteString(summary(opts, "%s", plural(len(res.Groups), "label")))
		case res.Proposals != nil:
			b.WriteString(proposals(res.Proposals, opts))
			b.WriteString(summary(opts, "%s", plural(len(res.Proposals), "row")))
		default:
			if len(res.Transactions) > 0 {
				b.WriteString(Table(res.Transactions, opts))
			}
			b.WriteString(summary(opts, "%s", plural(len(res.Transactions), "row")))
		}
	case statement.KindImport:
		if len(res.Transactions) > 0 {
			b.WriteString(Table(res.Transactions, opts))
		}
		b.WriteString(summary(opts, "imported %s from %s", plural(res.Affected, "transaction"), res.Path))
	case statement.KindInsert:
		b.WriteString(Table(res.Transactions, opts))
		b.WriteString(summary(opts, "inserted %s", plural(res.Affected, "transaction")))
	case statement.KindLabel:
		b.WriteString(summary(opts, "labelled %s", plural(res.Affected, "transaction")))
	case statement.KindDelete:
		b.WriteString(summary(opts, "deleted %s", plural(res.Affected, "transaction")))
	case statement.KindExport:
		b.WriteString(summary(opts, "exported %s to %s", plural(res.Affected, "transaction"), res.Path))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Error renders a failed statement.
func Error(err error, opts Options) string {
	return opts.style(errorStyle, "error: ") + err.Error()
}

func scalar(res service.Result, opts Options) string {
	if strings.HasPrefix(res.Aggregate, filtering.Count.String()) {
		return res.Scalar.String()
	}
	return Money(*res.Scalar, opts.CurrencySymbol)
}

// Money formats an amount with at least two decimal places, e.g. "-$4.50".
func Money(v decimal.Decimal, symbol string) string {
	s := v.Abs().StringFixed(max(2, -v.Exponent()))
	if v.IsNegative() {
		return "-" + symbol + s
	}
	return symbol + s
}

// Table renders transactions with one row per transaction.
func Table(txns []database.Transaction, opts Options) string {
	rows := make([][]string, len(txns))
	for i, t := range txns {
		rows[i] = transactionCells(t, opts)
	}
	return table([]string{"ID", "Account", "Date", "Amount", "Description", "Labels"}, rows, func(col int, row int, cell string) string {
		switch col {
		case 3:
			if txns[row].Class() == filtering.Income {
				return opts.style(creditStyle, cell)
			}
			return opts.style(debitStyle, cell)
		case 5:
			return opts.style(labelStyle, cell)
		}
		return cell
	}, opts)
}

// Groups renders per-label totals.
func Groups(groups []filtering.LabelTotal, opts Options) string {
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{g.Label, strconv.Itoa(g.Count), Money(g.Total, opts.CurrencySymbol)}
	}
	return table([]string{"Label", "Rows", "Amount"}, rows, func(col, row int, cell string) string {
		switch col {
		case 0:
			return opts.style(labelStyle, cell)
		case 2:
			if groups[row].Total.IsNegative() {
				return opts.style(debitStyle, cell)
			}
			return opts.style(creditStyle, cell)
		}
		return cell
	}, opts)
}

func proposals(ps []service.Proposal, opts Options) string {
	rows := make([][]string, len(ps))
	for i, p := range ps {
		cells := transactionCells(p.Transaction, opts)
		rows[i] = append(cells, strings.Join(p.Labels, ", "))
	}
	return table([]string{"ID", "Account", "Date", "Amount", "Description", "Labels", "Proposed"}, rows, func(col int, _ int, cell string) string {
		if col == 6 {
			return opts.style(labelStyle, cell)
		}
		return cell
	}, opts)
}

func transactionCells(t database.Transaction, opts Options) []string {
	layout := opts.DateFormat
	if layout == "" {
		layout = "2006-01-02"
	}
	id := ""
	if t.ID > 0 {
		id = strconv.FormatInt(t.ID, 10)
	}
	width := opts.DescWidth
	if width <= 0 {
		width = defaultDescWidth
	}
	return []string{
		id,
		t.Account,
		t.Date.Format(layout),
		Money(t.Amount, opts.CurrencySymbol),
		ansi.Truncate(t.Description, width, "…"),
		strings.Join(t.Labels, ", "),
	}
}

// table pads every column to its widest cell before styling, so colour codes
// never affect alignment.
func table(header []string, rows [][]string, style func(col, row int, cell string) string, opts Options) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	line := make([]string, len(header))
	for i, h := range header {
		line[i] = padRight(h, widths[i])
	}
	b.WriteString(opts.style(headerStyle, strings.TrimRight(strings.Join(line, "  "), " ")))
	b.WriteString("\n")
	for ri, r := range rows {
		for i, c := range r {
			cell := padRight(c, widths[i])
			if i == len(r)-1 {
				cell = c
			}
			line[i] = style(i, ri, cell)
		}
		b.WriteString(strings.TrimRight(strings.Join(line[:len(r)], "  "), " "))
		b.WriteString("\n")
	}
	return b.String()
}

// padRight pads s with spaces so its visual width equals width.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func summary(opts Options, format string, args ...any) string {
	return opts.style(summaryStyle, fmt.Sprintf(format, args...)) + "\n"
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
