// Package filtering holds the WHERE-clause tree produced by the statement
// parser and evaluates it against transactions.
package filtering

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/dates"
)

// Field is a filterable transaction attribute.
type Field int

const (
	FieldDate Field = iota
	FieldAmount
	FieldSpending
	FieldIncome
	FieldLabel
	FieldDescription
	FieldID
)

var fieldNames = map[Field]string{
	FieldDate:        "date",
	FieldAmount:      "amount",
	FieldSpending:    "spending",
	FieldIncome:      "income",
	FieldLabel:       "label",
	FieldDescription: "description",
	FieldID:          "id",
}

func (f Field) String() string { return fieldNames[f] }

// LookupField maps a (case-insensitive) field name or synonym to a Field.
func LookupField(name string) (Field, bool) {
	switch strings.ToLower(name) {
	case "date":
		return FieldDate, true
	case "amount":
		return FieldAmount, true
	case "spending":
		return FieldSpending, true
	case "income":
		return FieldIncome, true
	case "label", "labels":
		return FieldLabel, true
	case "description", "desc":
		return FieldDescription, true
	case "id":
		return FieldID, true
	}
	return 0, false
}

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
	OpIsNull
	OpIsNotNull
)

var opNames = map[Op]string{
	OpEq:        "=",
	OpNe:        "!=",
	OpLt:        "<",
	OpLe:        "<=",
	OpGt:        ">",
	OpGe:        ">=",
	OpLike:      "LIKE",
	OpIsNull:    "IS NULL",
	OpIsNotNull: "IS NOT NULL",
}

func (o Op) String() string { return opNames[o] }

// Allowed reports whether op may be applied to field.
func (f Field) Allowed(op Op) bool {
	switch f {
	case FieldDate, FieldAmount, FieldSpending, FieldIncome, FieldID:
		return op <= OpGe
	case FieldLabel:
		return op == OpEq || op == OpNe || op == OpIsNull || op == OpIsNotNull
	case FieldDescription:
		return op == OpEq || op == OpNe || op == OpLike
	}
	return false
}

// Predicate is one atomic comparison. Only the value slot matching Field is used.
type Predicate struct {
	Field  Field
	Op     Op
	Number decimal.Decimal
	Text   string
	Date   dates.Expr
	ID     int64
}

// NodeKind tags a Node.
type NodeKind int

const (
	NodePredicate NodeKind = iota
	NodeAnd
	NodeOr
)

// Node is a filter tree. Leaves carry a Predicate; And/Or nodes carry both children.
type Node struct {
	Kind  NodeKind
	Left  *Node
	Right *Node
	Pred  Predicate
}

// Leaf wraps a predicate.
func Leaf(p Predicate) *Node { return &Node{Kind: NodePredicate, Pred: p} }

// And joins two trees. A nil side yields the other.
func And(l, r *Node) *Node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return &Node{Kind: NodeAnd, Left: l, Right: r}
}

// Or joins two trees. A nil side yields the other.
func Or(l, r *Node) *Node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return &Node{Kind: NodeOr, Left: l, Right: r}
}

// String renders n in canonical form; And/Or children are parenthesised when
// they bind looser than their parent.
func String(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeAnd:
		return group(n.Left) + " AND " + group(n.Right)
	case NodeOr:
		return String(n.Left) + " OR " + group(n.Right)
	}
	return n.Pred.String()
}

func group(n *Node) string {
	// AND binds tighter and is associative; a nested OR always needs parens.
	if n != nil && n.Kind == NodeOr {
		return "(" + String(n) + ")"
	}
	return String(n)
}

func (p Predicate) String() string {
	var value string
	switch p.Field {
	case FieldDate:
		value = p.Date.String()
	case FieldAmount, FieldSpending, FieldIncome:
		value = p.Number.String()
	case FieldID:
		value = strconv.FormatInt(p.ID, 10)
	default:
		value = quote(p.Text)
	}
	if p.Op == OpIsNull || p.Op == OpIsNotNull {
		return fmt.Sprintf("%s %s", p.Field, p.Op)
	}
	return fmt.Sprintf("%s %s %s", p.Field, p.Op, value)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Class is the spending/income classification of a transaction.
type Class int

const (
	Income Class = iota
	Spending
)

func (c Class) String() string {
	if c == Spending {
		return "spending"
	}
	return "income"
}

// Classify returns Spending when the amount, after applying the inversion
// flag, is negative and Income otherwise.
func Classify(amount decimal.Decimal, inverted bool) Class {
	if inverted {
		amount = amount.Neg()
	}
	if amount.IsNegative() {
		return Spending
	}
	return Income
}

// Row is the view of a transaction the evaluator needs.
type Row struct {
	ID          int64
	Account     string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Labels      []string
	Inverted    bool
}

// Class classifies the row.
func (r Row) Class() Class { return Classify(r.Amount, r.Inverted) }

// HasLabel reports exact membership of label in the row's label set.
func (r Row) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Env carries evaluation context.
type Env struct {
	// Now anchors bare-month date expressions.
	Now time.Time
}

// NormalizeLabels trims labels, drops empties and removes duplicates while
// keeping first-seen order. The result is never nil.
func NormalizeLabels(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
