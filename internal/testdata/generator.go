// Package testdata generates deterministic sample transactions.
package testdata

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneyql/internal/database"
)

var descriptions = []string{
	"UBER EATS* SUSHI",
	"AMAZON.COM*XYZ",
	"WOOLWORTHS 1234 MELBOURNE",
	"SPOTIFY P1A2B3",
	"COLES 0423",
	"SALARY ACME PTY",
	"REFUND AMAZON.COM",
}

// Rows returns n transactions dated within the 90 days before end. The same
// seed always yields the same rows. Roughly one in five rows is income.
func Rows(seed int64, n int, end time.Time) []database.NewTransaction {
	rng := rand.New(rand.NewSource(seed))
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]database.NewTransaction, n)
	for i := range out {
		cents := int64(rng.Intn(20000) + 50)
		if rng.Intn(5) != 0 {
			cents = -cents
		}
		out[i] = database.NewTransaction{
			Date:        end.AddDate(0, 0, -rng.Intn(90)),
			Amount:      decimal.New(cents, -2),
			Description: descriptions[rng.Intn(len(descriptions))],
		}
	}
	return out
}

// Seed inserts n generated rows into account as one batch.
func Seed(ctx context.Context, store *database.Store, account string, seed int64, n int, end time.Time) ([]database.Transaction, error) {
	return store.Insert(ctx, account, Rows(seed, n, end), database.InsertOptions{})
}
