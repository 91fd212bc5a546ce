package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/jask/moneyql/internal/database/repository"
)

const (
	metaNextID     = "next_id"
	metaInstanceID = "instance_id"
)

// writeSnapshot writes d as a complete SQLite file next to path, flushes it
// and renames it over path. A failure at any step leaves path untouched.
func writeSnapshot(ctx context.Context, path string, d *Database) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
			_ = os.Remove(tmp + "-journal")
		}
	}()

	db, err := openSQLite(tmp, false)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("migrate snapshot: %w", err)
	}
	if err := WithTx(db, func(tx *sql.Tx) error { return fill(ctx, tx, d) }); err != nil {
		db.Close()
		return fmt.Errorf("fill snapshot: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return syncFile(dir)
}

func fill(ctx context.Context, q repository.Querier, d *Database) error {
	meta := repository.NewMetaRepo(q)
	if err := meta.Put(ctx, metaNextID, strconv.FormatInt(d.NextID, 10)); err != nil {
		return err
	}
	if err := meta.Put(ctx, metaInstanceID, d.InstanceID); err != nil {
		return err
	}

	accounts := repository.NewAccountRepo(q)
	for _, a := range d.Accounts {
		if err := accounts.Insert(ctx, a); err != nil {
			return err
		}
	}
	imports := repository.NewImportRepo(q)
	for _, b := range d.Imports {
		if err := imports.Add(ctx, b); err != nil {
			return err
		}
	}
	txns := repository.NewTransactionRepo(q)
	for _, t := range d.Transactions {
		if err := txns.Insert(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// readSnapshot loads a snapshot written by writeSnapshot.
func readSnapshot(ctx context.Context, path string) (*Database, error) {
	db, err := openSQLite(path, true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, dirty, err := SchemaVersion(db); err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	} else if dirty {
		return nil, errors.New("snapshot schema is dirty")
	}

	meta := repository.NewMetaRepo(db)
	raw, ok, err := meta.Get(ctx, metaNextID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("snapshot has no id allocator")
	}
	next, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("snapshot id allocator %q: %w", raw, err)
	}
	instance, _, err := meta.Get(ctx, metaInstanceID)
	if err != nil {
		return nil, err
	}

	d := newDatabase(instance)
	d.NextID = next
	if d.Accounts, err = repository.NewAccountRepo(db).List(ctx); err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if d.Imports, err = repository.NewImportRepo(db).List(ctx); err != nil {
		return nil, fmt.Errorf("read imports: %w", err)
	}
	txns := repository.NewTransactionRepo(db)
	if d.Transactions, err = txns.List(ctx); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	n, err := txns.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	if n != len(d.Transactions) {
		return nil, fmt.Errorf("snapshot holds %d transactions but %d were read", n, len(d.Transactions))
	}
	for _, t := range d.Transactions {
		if t.ID >= d.NextID {
			return nil, fmt.Errorf("transaction id %d is not below allocator %d", t.ID, d.NextID)
		}
	}
	return d, nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return nil
}
