package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TransactionRepo handles transactions.
type TransactionRepo struct {
	q Querier
}

func NewTransactionRepo(q Querier) *TransactionRepo { return &TransactionRepo{q: q} }

// Insert writes t and its label set.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO transactions(id, account, date, amount, description, inverted, import_id)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`,
		t.ID, t.Account, t.Date.Format(dayLayout), t.Amount.String(), t.Description, t.Inverted, t.ImportID)
	if err != nil {
		return fmt.Errorf("insert transaction %d: %w", t.ID, err)
	}
	if len(t.Labels) == 0 {
		return nil
	}
	return NewLabelRepo(r.q).Replace(ctx, t.ID, t.Labels)
}

// List returns every transaction in id order with labels attached.
func (r *TransactionRepo) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, account, date, amount, description, inverted, import_id FROM transactions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels, err := NewLabelRepo(r.q).All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Labels = labels[out[i].ID]
	}
	return out, nil
}

// Count returns the number of stored transactions.
func (r *TransactionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var (
		t       Transaction
		day     string
		amount  string
		batchID sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Account, &day, &amount, &t.Description, &t.Inverted, &batchID); err != nil {
		return Transaction{}, err
	}
	d, err := time.Parse(dayLayout, day)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %d date %q: %w", t.ID, day, err)
	}
	t.Date = d
	if err := t.Amount.UnmarshalText([]byte(amount)); err != nil {
		return Transaction{}, fmt.Errorf("transaction %d amount %q: %w", t.ID, amount, err)
	}
	if batchID.Valid {
		t.ImportID = &batchID.String
	}
	return t, nil
}
