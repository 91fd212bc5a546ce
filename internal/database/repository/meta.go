package repository

import (
	"context"
	"database/sql"
	"errors"
)

// MetaRepo stores snapshot-wide key/value settings such as the id allocator.
type MetaRepo struct{ q Querier }

func NewMetaRepo(q Querier) *MetaRepo { return &MetaRepo{q: q} }

func (r *MetaRepo) Put(ctx context.Context, key, value string) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO meta(key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value;
	`, key, value)
	return err
}

// Get returns "" with ok=false when key is absent.
func (r *MetaRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
