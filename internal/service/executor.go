// Package service executes parsed statements against the transaction store.
package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/filtering"
	"github.com/jask/moneyql/internal/labeller"
	"github.com/jask/moneyql/internal/logger"
	"github.com/jask/moneyql/internal/statement"
)

// Executor runs statements one at a time against Store.
type Executor struct {
	Store *database.Store
	// Labeller proposes labels for auto(). Nil means no rules, so only the
	// similarity fallback applies.
	Labeller *labeller.Engine
	// Clock is the reference "now" for bare months and relative dates.
	Clock func() time.Time
	// SampleRows bounds date format detection during IMPORT.
	SampleRows int

	last []database.Transaction
}

// Proposal pairs a transaction with the labels auto() would give it.
type Proposal struct {
	Transaction database.Transaction
	Labels      []string
}

// Result is the outcome of one statement.
type Result struct {
	Kind   statement.Kind
	DryRun bool
	// Transactions holds selected rows, or the rows a mutation touched.
	Transactions []database.Transaction
	// Scalar is set for SUM and COUNT targets.
	Scalar    *decimal.Decimal
	Aggregate string
	// Groups is non-nil for GROUP BY label, in label order.
	Groups    []filtering.LabelTotal
	Proposals []Proposal
	Affected  int
	// Path is the file an IMPORT read or an EXPORT wrote.
	Path string
}

// Exec parses and runs a single statement.
func (e *Executor) Exec(ctx context.Context, src string) (Result, error) {
	st, err := statement.Parse(src)
	if err != nil {
		return Result{}, err
	}
	return e.Run(ctx, st)
}

// DryRun parses and evaluates a single statement without changing the store.
func (e *Executor) DryRun(ctx context.Context, src string) (Result, error) {
	st, err := statement.Parse(src)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, st, true)
}

// ExecScript parses every statement in src before running any of them, then
// runs them in order. It stops at the first failure and returns the results
// of the statements that completed.
func (e *Executor) ExecScript(ctx context.Context, src string) ([]Result, error) {
	return e.script(ctx, src, false)
}

// DryRunScript is ExecScript without changes to the store. Each statement is
// evaluated against the unchanged store.
func (e *Executor) DryRunScript(ctx context.Context, src string) ([]Result, error) {
	return e.script(ctx, src, true)
}

func (e *Executor) script(ctx context.Context, src string, dry bool) ([]Result, error) {
	stmts, err := statement.ParseScript(src)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(stmts))
	for i, st := range stmts {
		res, err := e.run(ctx, st, dry)
		if err != nil {
			return results, fmt.Errorf("statement %d (%s): %w", i+1, st.Kind(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Run executes an already parsed statement.
func (e *Executor) Run(ctx context.Context, st statement.Statement) (Result, error) {
	return e.run(ctx, st, false)
}

func (e *Executor) run(ctx context.Context, st statement.Statement, dry bool) (Result, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	var (
		res Result
		err error
	)
	switch s := st.(type) {
	case *statement.Import:
		res, err = e.importFile(ctx, s, dry || s.DryRun)
	case *statement.Select:
		res, err = e.selectRows(s)
	case *statement.Label:
		res, err = e.label(ctx, s, dry)
	case *statement.Insert:
		res, err = e.insert(ctx, s, dry)
	case *statement.Delete:
		res, err = e.delete(ctx, s, dry)
	case *statement.Export:
		res, err = e.export(s, dry)
	default:
		return Result{}, fmt.Errorf("unsupported statement %T", st)
	}
	res.Kind = st.Kind()
	// Reads are never marked as dry runs; nothing was held back.
	res.DryRun = res.DryRun || (dry && st.Mutates())
	if err != nil {
		log.Debug().Err(err).Str("kind", st.Kind().String()).Bool("dry_run", dry).Msg("statement failed")
		return Result{}, err
	}
	log.Debug().
		Str("kind", res.Kind.String()).
		Int("affected", res.Affected).
		Bool("dry_run", res.DryRun).
		Dur("duration", time.Since(start)).
		Msg("statement executed")
	return res, nil
}

func (e *Executor) env() filtering.Env {
	return filtering.Env{Now: e.now()}
}

func (e *Executor) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Executor) checkAccount(account string) error {
	if account != "" && !e.Store.HasAccount(account) {
		return &statement.SemanticError{Msg: fmt.Sprintf("unknown account %q", account)}
	}
	return nil
}

func (e *Executor) selectRows(s *statement.Select) (Result, error) {
	if err := e.checkAccount(s.Account); err != nil {
		return Result{}, err
	}
	rows := e.Store.Find(database.Query{Account: s.Account, Where: s.Where, Env: e.env()})

	switch s.Target.Kind {
	case statement.TargetSum, statement.TargetCount:
		kind := filtering.Sum
		if s.Target.Kind == statement.TargetCount {
			kind = filtering.Count
		}
		v := filtering.Aggregate(kind, s.Target.Scope, toRows(rows))
		return Result{
			Scalar:    &v,
			Aggregate: fmt.Sprintf("%s(%s)", kind, s.Target.Scope),
			Affected:  len(rows),
		}, nil
	case statement.TargetID:
		rows = slices.DeleteFunc(rows, func(t database.Transaction) bool { return t.ID != s.Target.ID })
	case statement.TargetSpending:
		rows = slices.DeleteFunc(rows, func(t database.Transaction) bool { return t.Class() != filtering.Spending })
	case statement.TargetIncome:
		rows = slices.DeleteFunc(rows, func(t database.Transaction) bool { return t.Class() != filtering.Income })
	}

	sortRows(rows, s.OrderBy)
	if s.Limit > 0 && len(rows) > s.Limit {
		rows = rows[:s.Limit]
	}
	e.last = slices.Clone(rows)
	if s.GroupByLabel {
		return Result{Groups: filtering.SumByLabel(toRows(rows)), Affected: len(rows)}, nil
	}
	res := Result{Transactions: rows, Affected: len(rows)}
	if s.Target.Kind == statement.TargetAuto {
		corpus := toRows(e.Store.Find(database.Query{}))
		engine := e.engine()
		for _, t := range rows {
			res.Proposals = append(res.Proposals, Proposal{Transaction: t, Labels: engine.Propose(t.Row(), corpus)})
		}
	}
	return res, nil
}

func sortRows(rows []database.Transaction, by *statement.OrderBy) {
	if by == nil {
		return
	}
	slices.SortStableFunc(rows, func(a, b database.Transaction) int {
		var c int
		switch by.Field {
		case filtering.FieldDate:
			c = a.Date.Compare(b.Date)
		case filtering.FieldAmount:
			c = a.Amount.Cmp(b.Amount)
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if by.Desc {
			return -c
		}
		return c
	})
}

func (e *Executor) label(ctx context.Context, s *statement.Label, dry bool) (Result, error) {
	var targets []database.Transaction
	if s.Where != nil || s.All {
		targets = e.Store.FindByPredicate(s.Where, e.env())
	} else {
		var err error
		if targets, err = e.byIDs(s.IDs); err != nil {
			return Result{}, err
		}
	}

	var corpus []filtering.Row
	if s.Auto {
		corpus = toRows(e.Store.Find(database.Query{}))
	}
	updates := make(map[int64][]string, len(targets))
	for i, t := range targets {
		labels := s.Labels
		if s.Auto {
			labels = e.engine().Propose(t.Row(), corpus)
		}
		targets[i].Labels = filtering.NormalizeLabels(labels)
		updates[t.ID] = targets[i].Labels
	}

	res := Result{Transactions: targets, Affected: len(targets), DryRun: dry}
	if dry {
		return res, nil
	}
	if err := e.Store.ReplaceLabelsBatch(ctx, updates); err != nil {
		return Result{}, err
	}
	return res, nil
}

// byIDs resolves an id list, failing with every unknown id at once.
func (e *Executor) byIDs(ids []int64) ([]database.Transaction, error) {
	var (
		out     []database.Transaction
		missing []int64
		seen    = map[int64]bool{}
	)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, err := e.Store.FindByID(id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		out = append(out, t)
	}
	if len(missing) > 0 {
		return nil, &database.NotFoundError{IDs: missing}
	}
	return out, nil
}

func (e *Executor) insert(ctx context.Context, s *statement.Insert, dry bool) (Result, error) {
	rows := make([]database.NewTransaction, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = database.NewTransaction{
			Date:        r.Date,
			Amount:      r.Amount,
			Description: r.Description,
			Labels:      r.Labels,
		}
	}
	if dry {
		return Result{Transactions: preview(s.Account, rows), Affected: len(rows), DryRun: true}, nil
	}
	inserted, err := e.Store.Insert(ctx, s.Account, rows, database.InsertOptions{})
	if err != nil {
		return Result{}, err
	}
	return Result{Transactions: inserted, Affected: len(inserted)}, nil
}

func (e *Executor) delete(ctx context.Context, s *statement.Delete, dry bool) (Result, error) {
	targets, err := e.byIDs(s.IDs)
	if err != nil {
		return Result{}, err
	}
	res := Result{Transactions: targets, Affected: len(targets), DryRun: dry}
	if dry {
		return res, nil
	}
	if err := e.Store.DeleteByIDs(ctx, s.IDs); err != nil {
		return Result{}, err
	}
	return res, nil
}

var similarityOnly = labeller.Empty()

func (e *Executor) engine() *labeller.Engine {
	if e.Labeller == nil {
		return similarityOnly
	}
	return e.Labeller
}

// preview renders rows that have not been stored yet. Their ids are zero.
func preview(account string, rows []database.NewTransaction) []database.Transaction {
	out := make([]database.Transaction, len(rows))
	for i, r := range rows {
		out[i] = database.Transaction{
			Account:     account,
			Date:        r.Date,
			Amount:      r.Amount,
			Description: r.Description,
			Inverted:    r.Inverted,
			Labels:      filtering.NormalizeLabels(r.Labels),
		}
	}
	return out
}

func toRows(txns []database.Transaction) []filtering.Row {
	out := make([]filtering.Row, len(txns))
	for i, t := range txns {
		out[i] = t.Row()
	}
	return out
}
