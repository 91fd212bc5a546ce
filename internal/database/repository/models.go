package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/filtering"
)

// Account represents an account row.
type Account struct {
	Name      string
	CreatedAt time.Time
}

// Transaction represents a transaction row with its label set.
type Transaction struct {
	ID          int64
	Account     string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	// Inverted flips the spending/income classification; Amount keeps its stored sign.
	Inverted bool
	ImportID *string
	Labels   []string
}

// Row is the evaluator's view of t. Labels are shared, not copied.
func (t Transaction) Row() filtering.Row {
	return filtering.Row{
		ID:          t.ID,
		Account:     t.Account,
		Date:        t.Date,
		Amount:      t.Amount,
		Description: t.Description,
		Labels:      t.Labels,
		Inverted:    t.Inverted,
	}
}

// Class classifies t as spending or income.
func (t Transaction) Class() filtering.Class { return filtering.Classify(t.Amount, t.Inverted) }

// ImportBatch records one committed IMPORT.
type ImportBatch struct {
	ID         string
	Account    string
	Source     string
	Rows       int
	Inverted   bool
	ImportedAt time.Time
}
