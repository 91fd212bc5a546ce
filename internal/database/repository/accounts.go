package repository

import (
	"context"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	q Querier
}

func NewAccountRepo(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

func (r *AccountRepo) Insert(ctx context.Context, a Account) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO accounts(name, created_at) VALUES (?, ?)
	ON CONFLICT(name) DO NOTHING;
	`, a.Name, a.CreatedAt.UTC())
	return err
}

// List returns accounts in creation order.
func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT name, created_at FROM accounts ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
