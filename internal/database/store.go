// Package database owns the durable transaction store. State lives in memory
// and every successful mutation is persisted as a complete SQLite snapshot
// that atomically replaces the previous file.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/filtering"
)

// Options configure Open.
type Options struct {
	// NoLock skips the advisory process lock. Only tests should set it.
	NoLock bool
	Logger *zerolog.Logger
	// Clock stamps accounts and import batches; defaults to Now.
	Clock func() time.Time
}

// Store is the transaction store. It is not safe for concurrent use; callers
// serialise statements.
type Store struct {
	path  string
	lock  *flock.Flock
	db    *Database
	log   zerolog.Logger
	clock func() time.Time
}

// Open loads the snapshot at path, or starts an empty database if the file
// does not exist yet. It fails with ErrStoreLocked if another process holds
// the store.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	s := &Store{path: path, log: zerolog.Nop(), clock: opts.Clock}
	if opts.Logger != nil {
		s.log = *opts.Logger
	}
	if s.clock == nil {
		s.clock = Now
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &IOError{Op: "create directory", Path: filepath.Dir(path), Err: err}
	}
	if !opts.NoLock {
		s.lock = flock.New(path + ".lock")
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, &IOError{Op: "lock", Path: s.lock.Path(), Err: err}
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStoreLocked, path)
		}
	}

	_, statErr := os.Stat(path)
	switch {
	case errors.Is(statErr, os.ErrNotExist):
		s.db = newDatabase(uuid.NewString())
		s.log.Debug().Str("path", path).Msg("starting empty database")
	case statErr != nil:
		s.unlock()
		return nil, &IOError{Op: "stat", Path: path, Err: statErr}
	default:
		d, err := readSnapshot(ctx, path)
		if err != nil {
			s.unlock()
			return nil, &IOError{Op: "read snapshot", Path: path, Err: err}
		}
		s.db = d
		s.log.Debug().Str("path", path).Int("transactions", len(d.Transactions)).Msg("loaded snapshot")
	}
	return s, nil
}

// Close releases the process lock.
func (s *Store) Close() error {
	return s.unlock()
}

func (s *Store) unlock() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

// Path is the backing snapshot file.
func (s *Store) Path() string { return s.path }

// commit applies fn to a copy of the state, persists the copy and only then
// makes it current.
func (s *Store) commit(ctx context.Context, op string, fn func(d *Database) error) error {
	next := s.db.clone()
	if err := fn(next); err != nil {
		return err
	}
	start := time.Now()
	if err := writeSnapshot(ctx, s.path, next); err != nil {
		return &IOError{Op: "write snapshot", Path: s.path, Err: err}
	}
	s.db = next
	s.log.Debug().
		Str("op", op).
		Str("path", s.path).
		Int("transactions", len(next.Transactions)).
		Dur("duration", time.Since(start)).
		Msg("snapshot written")
	return nil
}

// NewTransaction is a row to insert; the store assigns the id.
type NewTransaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Inverted    bool
	Labels      []string
}

// InsertOptions describe where inserted rows came from.
type InsertOptions struct {
	// ImportSource, when set, records the rows as one import batch.
	ImportSource string
}

// Insert adds rows to account as one atomic batch, creating the account if
// needed, and returns the stored transactions.
func (s *Store) Insert(ctx context.Context, account string, rows []NewTransaction, opts InsertOptions) ([]Transaction, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, errors.New("account name is required")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var inserted []Transaction
	err := s.commit(ctx, "insert", func(d *Database) error {
		now := s.clock().UTC()
		d.ensureAccount(account, now)

		var batchID *string
		if opts.ImportSource != "" {
			b := ImportBatch{
				ID:         uuid.NewString(),
				Account:    account,
				Source:     opts.ImportSource,
				Rows:       len(rows),
				Inverted:   slices.ContainsFunc(rows, func(r NewTransaction) bool { return r.Inverted }),
				ImportedAt: now,
			}
			d.Imports = append(d.Imports, b)
			batchID = &b.ID
		}

		inserted = make([]Transaction, 0, len(rows))
		for _, r := range rows {
			t := Transaction{
				ID:          d.NextID,
				Account:     account,
				Date:        r.Date,
				Amount:      r.Amount,
				Description: r.Description,
				Inverted:    r.Inverted,
				ImportID:    batchID,
				Labels:      filtering.NormalizeLabels(r.Labels),
			}
			d.NextID++
			d.Transactions = append(d.Transactions, t)
			inserted = append(inserted, copyTransaction(t))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// DeleteByIDs removes every listed transaction, or none of them if any id is
// unknown. Ids are never handed out again.
func (s *Store) DeleteByIDs(ctx context.Context, ids []int64) error {
	if missing := s.db.missing(ids); len(missing) > 0 {
		return &NotFoundError{IDs: missing}
	}
	return s.commit(ctx, "delete", func(d *Database) error {
		d.Transactions = slices.DeleteFunc(d.Transactions, func(t Transaction) bool {
			return slices.Contains(ids, t.ID)
		})
		return nil
	})
}

// ReplaceLabels sets labels as the complete label set of one transaction.
func (s *Store) ReplaceLabels(ctx context.Context, id int64, labels []string) error {
	return s.ReplaceLabelsBatch(ctx, map[int64][]string{id: labels})
}

// ReplaceLabelsBatch replaces the label sets of several transactions
// atomically. Unknown ids fail the whole batch.
func (s *Store) ReplaceLabelsBatch(ctx context.Context, updates map[int64][]string) error {
	ids := make([]int64, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if missing := s.db.missing(ids); len(missing) > 0 {
		return &NotFoundError{IDs: missing}
	}
	if len(ids) == 0 {
		return nil
	}
	return s.commit(ctx, "replace labels", func(d *Database) error {
		for _, id := range ids {
			d.Transactions[d.index(id)].Labels = filtering.NormalizeLabels(updates[id])
		}
		return nil
	})
}

// Query selects transactions. Zero values match everything.
type Query struct {
	Account string
	Where   *filtering.Node
	Env     filtering.Env
}

// Find returns copies of matching transactions in insertion order.
func (s *Store) Find(q Query) []Transaction {
	var out []Transaction
	for _, t := range s.db.Transactions {
		if q.Account != "" && t.Account != q.Account {
			continue
		}
		if !filtering.Eval(q.Where, t.Row(), q.Env) {
			continue
		}
		out = append(out, copyTransaction(t))
	}
	return out
}

// FindByPredicate evaluates tree against every transaction.
func (s *Store) FindByPredicate(tree *filtering.Node, env filtering.Env) []Transaction {
	return s.Find(Query{Where: tree, Env: env})
}

// FindByID returns a copy of one transaction.
func (s *Store) FindByID(id int64) (Transaction, error) {
	i := s.db.index(id)
	if i < 0 {
		return Transaction{}, &NotFoundError{IDs: []int64{id}}
	}
	return copyTransaction(s.db.Transactions[i]), nil
}

// HasAccount reports whether name has been created.
func (s *Store) HasAccount(name string) bool { return s.db.hasAccount(name) }

// ListAccounts returns accounts in creation order.
func (s *Store) ListAccounts() []Account { return slices.Clone(s.db.Accounts) }

// Imports returns the import history, oldest first.
func (s *Store) Imports() []ImportBatch { return slices.Clone(s.db.Imports) }

// Len is the number of stored transactions.
func (s *Store) Len() int { return len(s.db.Transactions) }

// NextID is the id the next inserted transaction will receive.
func (s *Store) NextID() int64 { return s.db.NextID }
