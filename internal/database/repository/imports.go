package repository

import (
	"context"
)

// ImportRepo stores import history.
type ImportRepo struct{ q Querier }

func NewImportRepo(q Querier) *ImportRepo { return &ImportRepo{q: q} }

func (r *ImportRepo) Add(ctx context.Context, b ImportBatch) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO imports(id, account, source, rows, inverted, imported_at)
	VALUES(?, ?, ?, ?, ?, ?)
	`, b.ID, b.Account, b.Source, b.Rows, b.Inverted, b.ImportedAt.UTC())
	return err
}

// List returns batches oldest first.
func (r *ImportRepo) List(ctx context.Context) ([]ImportBatch, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, account, source, rows, inverted, imported_at FROM imports ORDER BY imported_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(&b.ID, &b.Account, &b.Source, &b.Rows, &b.Inverted, &b.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
