package database

import (
	"slices"
	"sort"
	"time"

	"github.com/jask/moneyql/internal/database/repository"
)

type (
	Account     = repository.Account
	Transaction = repository.Transaction
	ImportBatch = repository.ImportBatch
)

// Database is the whole store state. Transactions are kept in id order,
// which is also insertion order.
type Database struct {
	InstanceID   string
	NextID       int64
	Accounts     []Account
	Transactions []Transaction
	Imports      []ImportBatch
}

func newDatabase(instanceID string) *Database {
	return &Database{InstanceID: instanceID, NextID: 1}
}

func (d *Database) clone() *Database {
	c := &Database{
		InstanceID:   d.InstanceID,
		NextID:       d.NextID,
		Accounts:     slices.Clone(d.Accounts),
		Transactions: make([]Transaction, len(d.Transactions)),
		Imports:      slices.Clone(d.Imports),
	}
	for i, t := range d.Transactions {
		c.Transactions[i] = copyTransaction(t)
	}
	return c
}

func copyTransaction(t Transaction) Transaction {
	t.Labels = slices.Clone(t.Labels)
	if t.ImportID != nil {
		id := *t.ImportID
		t.ImportID = &id
	}
	return t
}

// index returns the position of id, or -1.
func (d *Database) index(id int64) int {
	i := sort.Search(len(d.Transactions), func(i int) bool { return d.Transactions[i].ID >= id })
	if i < len(d.Transactions) && d.Transactions[i].ID == id {
		return i
	}
	return -1
}

func (d *Database) hasAccount(name string) bool {
	for _, a := range d.Accounts {
		if a.Name == name {
			return true
		}
	}
	return false
}

func (d *Database) ensureAccount(name string, now time.Time) {
	if !d.hasAccount(name) {
		d.Accounts = append(d.Accounts, Account{Name: name, CreatedAt: now})
	}
}

// missing returns the ids not present, in the order given, without duplicates.
func (d *Database) missing(ids []int64) []int64 {
	var out []int64
	for _, id := range ids {
		if d.index(id) < 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
