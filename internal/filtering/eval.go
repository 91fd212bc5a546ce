package filtering

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/dates"
)

// Eval reports whether row satisfies n. A nil tree matches everything.
func Eval(n *Node, r Row, env Env) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case NodeAnd:
		return Eval(n.Left, r, env) && Eval(n.Right, r, env)
	case NodeOr:
		return Eval(n.Left, r, env) || Eval(n.Right, r, env)
	}
	return evalPredicate(n.Pred, r, env)
}

func evalPredicate(p Predicate, r Row, env Env) bool {
	switch p.Field {
	case FieldDate:
		rng, err := dates.Resolve(p.Date, env.Now)
		if err != nil {
			return false
		}
		return compareDate(p.Op, rng, dates.Day(r.Date))
	case FieldAmount:
		return compareNumber(p.Op, r.Amount.Cmp(p.Number))
	case FieldSpending:
		if r.Class() != Spending {
			return false
		}
		return compareNumber(p.Op, r.Amount.Abs().Cmp(p.Number.Abs()))
	case FieldIncome:
		if r.Class() != Income {
			return false
		}
		return compareNumber(p.Op, r.Amount.Abs().Cmp(p.Number.Abs()))
	case FieldID:
		return compareNumber(p.Op, cmpInt(r.ID, p.ID))
	case FieldLabel:
		switch p.Op {
		case OpEq:
			return r.HasLabel(p.Text)
		case OpNe:
			return !r.HasLabel(p.Text)
		case OpIsNull:
			return len(r.Labels) == 0
		case OpIsNotNull:
			return len(r.Labels) > 0
		}
	case FieldDescription:
		switch p.Op {
		case OpEq:
			return strings.EqualFold(strings.TrimSpace(r.Description), p.Text)
		case OpNe:
			return !strings.EqualFold(strings.TrimSpace(r.Description), p.Text)
		case OpLike:
			return Like(r.Description, p.Text)
		}
	}
	return false
}

func compareDate(op Op, rng dates.Range, day time.Time) bool {
	switch op {
	case OpEq:
		return rng.Contains(day)
	case OpNe:
		return !rng.Contains(day)
	case OpLt:
		return day.Before(rng.Start)
	case OpLe:
		return !day.After(rng.End)
	case OpGt:
		return day.After(rng.End)
	case OpGe:
		return !day.Before(rng.Start)
	}
	return false
}

func compareNumber(op Op, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Like is a case-insensitive free-text match. Without wildcards the pattern
// matches as a substring; '%' splits it into pieces that must appear in order.
func Like(text, pattern string) bool {
	text = strings.ToLower(text)
	pattern = strings.ToLower(pattern)
	if !strings.Contains(pattern, "%") {
		return strings.Contains(text, pattern)
	}
	for _, piece := range strings.Split(pattern, "%") {
		if piece == "" {
			continue
		}
		i := strings.Index(text, piece)
		if i < 0 {
			return false
		}
		text = text[i+len(piece):]
	}
	return true
}

// Scope restricts an aggregate to one classification or to every row.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeSpending
	ScopeIncome
)

func (s Scope) String() string {
	switch s {
	case ScopeSpending:
		return "spending"
	case ScopeIncome:
		return "income"
	}
	return "*"
}

// Includes reports whether row falls under the scope.
func (s Scope) Includes(r Row) bool {
	switch s {
	case ScopeSpending:
		return r.Class() == Spending
	case ScopeIncome:
		return r.Class() == Income
	}
	return true
}

// AggregateKind selects SUM or COUNT.
type AggregateKind int

const (
	Sum AggregateKind = iota
	Count
)

func (k AggregateKind) String() string {
	if k == Count {
		return "COUNT"
	}
	return "SUM"
}

// Aggregate folds rows already matched by a filter. SUM adds signed amounts
// of rows in scope; COUNT counts them.
func Aggregate(kind AggregateKind, scope Scope, rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if !scope.Includes(r) {
			continue
		}
		if kind == Count {
			total = total.Add(decimal.NewFromInt(1))
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}

// LabelTotal is the signed sum of amounts for one label.
type LabelTotal struct {
	Label string
	Total decimal.Decimal
	Count int
}

// SumByLabel adds each row's amount to every label it carries. Unlabelled rows
// are skipped, and a row with two labels counts towards both. The result is
// sorted by label and never nil.
func SumByLabel(rows []Row) []LabelTotal {
	idx := map[string]int{}
	out := []LabelTotal{}
	for _, r := range rows {
		for _, l := range r.Labels {
			i, ok := idx[l]
			if !ok {
				i = len(out)
				idx[l] = i
				out = append(out, LabelTotal{Label: l, Total: decimal.Zero})
			}
			out[i].Total = out[i].Total.Add(r.Amount)
			out[i].Count++
		}
	}
	slices.SortFunc(out, func(a, b LabelTotal) int { return strings.Compare(a.Label, b.Label) })
	return out
}
