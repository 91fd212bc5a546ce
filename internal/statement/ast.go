// Package statement tokenizes and parses the query language into typed
// statements.
package statement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/filtering"
)

// Kind names a statement variant.
type Kind int

const (
	KindImport Kind = iota
	KindSelect
	KindLabel
	KindInsert
	KindDelete
	KindExport
)

var kindNames = map[Kind]string{
	KindImport: "IMPORT",
	KindSelect: "SELECT",
	KindLabel:  "LABEL",
	KindInsert: "INSERT",
	KindDelete: "DELETE",
	KindExport: "EXPORT",
}

func (k Kind) String() string { return kindNames[k] }

// Statement is one of *Import, *Select, *Label, *Insert, *Delete or *Export.
type Statement interface {
	Kind() Kind
	// Mutates reports whether executing the statement can change the store.
	Mutates() bool
	sealed()
}

// Import loads a CSV file into an account.
type Import struct {
	Account string
	Path    string
	Inverse bool
	DryRun  bool
}

// TargetKind selects what a SELECT returns.
type TargetKind int

const (
	TargetAll TargetKind = iota
	TargetID
	TargetSpending
	TargetIncome
	TargetSum
	TargetCount
	TargetAuto
)

// Target is the projection of a SELECT. ID is set for TargetID; Scope for
// TargetSum and TargetCount.
type Target struct {
	Kind  TargetKind
	ID    int64
	Scope filtering.Scope
}

// OrderBy sorts a SELECT result. Field is FieldDate, FieldAmount or FieldID.
type OrderBy struct {
	Field filtering.Field
	Desc  bool
}

// Select queries transactions. An empty Account means every account.
// GroupByLabel replaces the rows with one signed total per label.
type Select struct {
	Target       Target
	Account      string
	Where        *filtering.Node
	OrderBy      *OrderBy
	Limit        int
	GroupByLabel bool
}

// Label replaces the label set of the addressed transactions. Exactly one of
// IDs and Where is set, unless All is true. Auto asks the labeller instead of
// using Labels; an empty Labels clears the set.
type Label struct {
	IDs    []int64
	Where  *filtering.Node
	All    bool
	Labels []string
	Auto   bool
}

// Row is one literal INSERT tuple.
type Row struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Labels      []string
}

// Insert adds literal rows to an account.
type Insert struct {
	Account string
	Rows    []Row
}

// Delete removes transactions by id.
type Delete struct {
	IDs []int64
}

// Export writes transactions to a file. An empty Account means every account.
type Export struct {
	Account string
	Path    string
}

func (*Import) Kind() Kind { return KindImport }
func (*Select) Kind() Kind { return KindSelect }
func (*Label) Kind() Kind  { return KindLabel }
func (*Insert) Kind() Kind { return KindInsert }
func (*Delete) Kind() Kind { return KindDelete }
func (*Export) Kind() Kind { return KindExport }

func (s *Import) Mutates() bool { return !s.DryRun }
func (*Select) Mutates() bool   { return false }
func (*Label) Mutates() bool    { return true }
func (*Insert) Mutates() bool   { return true }
func (*Delete) Mutates() bool   { return true }
func (*Export) Mutates() bool   { return false }

func (*Import) sealed() {}
func (*Select) sealed() {}
func (*Label) sealed()  {}
func (*Insert) sealed() {}
func (*Delete) sealed() {}
func (*Export) sealed() {}
