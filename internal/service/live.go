package service

import (
	"context"
	"slices"

	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/filtering"
)

// Live is the surface an interactive view uses: it shows the rows of the
// last SELECT and edits their labels through the same store.
type Live struct {
	exec *Executor
}

// Live returns the interactive boundary for e.
func (e *Executor) Live() *Live { return &Live{exec: e} }

// LastResults returns a copy of the rows produced by the most recent SELECT.
func (l *Live) LastResults() []database.Transaction {
	out := make([]database.Transaction, len(l.exec.last))
	for i, t := range l.exec.last {
		t.Labels = slices.Clone(t.Labels)
		out[i] = t
	}
	return out
}

// SetLabels replaces the label set of one transaction. It fails with
// database.ErrNotFound for an unknown id.
func (l *Live) SetLabels(ctx context.Context, id int64, labels []string) error {
	labels = filtering.NormalizeLabels(labels)
	if err := l.exec.Store.ReplaceLabels(ctx, id, labels); err != nil {
		return err
	}
	for i := range l.exec.last {
		if l.exec.last[i].ID == id {
			l.exec.last[i].Labels = slices.Clone(labels)
		}
	}
	return nil
}
