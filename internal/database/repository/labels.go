package repository

import (
	"context"
)

// LabelRepo handles transaction labels.
type LabelRepo struct {
	q Querier
}

func NewLabelRepo(q Querier) *LabelRepo { return &LabelRepo{q: q} }

// Replace stores labels as the complete label set of a transaction.
func (r *LabelRepo) Replace(ctx context.Context, transactionID int64, labels []string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM transaction_labels WHERE transaction_id = ?`, transactionID); err != nil {
		return err
	}
	for i, l := range labels {
		if _, err := r.q.ExecContext(ctx, `
		INSERT INTO transaction_labels(transaction_id, label, position) VALUES (?, ?, ?)
		ON CONFLICT(transaction_id, label) DO NOTHING;
		`, transactionID, l, i); err != nil {
			return err
		}
	}
	return nil
}

// All returns every label set keyed by transaction id, in applied order.
func (r *LabelRepo) All(ctx context.Context) (map[int64][]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT transaction_id, label FROM transaction_labels ORDER BY transaction_id, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64][]string{}
	for rows.Next() {
		var (
			id    int64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = append(out[id], label)
	}
	return out, rows.Err()
}
