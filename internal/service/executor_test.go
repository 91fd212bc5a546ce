package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/moneyql/internal/csvimport"
	"github.com/jask/moneyql/internal/database"
	"github.com/jask/moneyql/internal/labeller"
	"github.com/jask/moneyql/internal/statement"
)

func august2022() time.Time { return time.Date(2022, time.August, 15, 9, 0, 0, 0, time.UTC) }

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	store, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "money.db"), database.Options{NoLock: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &Executor{Store: store, Clock: august2022}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func exec(t *testing.T, e *Executor, src string) Result {
	t.Helper()
	res, err := e.Exec(context.Background(), src)
	require.NoError(t, err, src)
	return res
}

func resultIDs(res Result) []int64 {
	out := make([]int64, len(res.Transactions))
	for i, tx := range res.Transactions {
		out[i] = tx.ID
	}
	return out
}

const julyCSV = `date,description,amount
2022-07-05,Coffee Shop,-4.50
2022-07-31,Salary,2000.00
`

func TestImportThenAggregate(t *testing.T) {
	e := newExecutor(t)
	path := writeFile(t, "july.csv", julyCSV)

	res := exec(t, e, "IMPORT amex FROM '"+path+"';")
	require.Equal(t, 2, res.Affected)
	require.Equal(t, []int64{1, 2}, resultIDs(res))
	require.Len(t, e.Store.Imports(), 1)

	res = exec(t, e, "SELECT spending;")
	require.Equal(t, []int64{1}, resultIDs(res))
	require.True(t, res.Transactions[0].Amount.Equal(decimal.RequireFromString("-4.50")))
	res = exec(t, e, "SELECT income;")
	require.Equal(t, []int64{2}, resultIDs(res))

	res = exec(t, e, "SELECT COUNT(*) WHERE date = 7;")
	require.NotNil(t, res.Scalar)
	require.Equal(t, "2", res.Scalar.String())
	require.Equal(t, "COUNT(*)", res.Aggregate)

	res = exec(t, e, "SELECT SUM(spending) WHERE date = 7;")
	require.Equal(t, "-4.5", res.Scalar.String())
	require.True(t, res.Scalar.Equal(decimal.RequireFromString("-4.50")))

	sumAll := exec(t, e, "SELECT SUM(*) WHERE date = 7;").Scalar
	sumIncome := exec(t, e, "SELECT SUM(income) WHERE date = 7;").Scalar
	require.True(t, sumAll.Equal(res.Scalar.Add(*sumIncome)))

	res = exec(t, e, "SELECT COUNT(*) WHERE date = 8;")
	require.Equal(t, "0", res.Scalar.String())
}

func TestImportInverseFlipsClassification(t *testing.T) {
	e := newExecutor(t)
	path := writeFile(t, "card.csv", "2022-07-05,45.00,BOOKSHOP\n")

	exec(t, e, "IMPORT visa FROM '"+path+"' (inverse);")
	res := exec(t, e, "SELECT spending;")
	require.Len(t, res.Transactions, 1)
	require.True(t, res.Transactions[0].Inverted)
	require.Equal(t, "BOOKSHOP", res.Transactions[0].Description)
}

func TestImportIsAtomic(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, "INSERT INTO amex VALUES (2022-07-01, 'Rent', -1200);")

	bad := writeFile(t, "bad.csv", `date,description,amount
2022-07-05,Coffee Shop,-4.50
2022-07-06,Bakery,abc
`)
	_, err := e.Exec(context.Background(), "IMPORT amex FROM '"+bad+"';")
	var rowErr *csvimport.RowError
	require.ErrorAs(t, err, &rowErr)
	require.Equal(t, 3, rowErr.Row)
	require.Equal(t, 1, e.Store.Len())
	require.Empty(t, e.Store.Imports())

	dates := writeFile(t, "dates.csv", "date,description,amount\nyesterday,Coffee,-1\n")
	_, err = e.Exec(context.Background(), "IMPORT amex FROM '"+dates+"';")
	require.ErrorIs(t, err, csvimport.ErrDateFormatUnrecognized)
	require.Equal(t, 1, e.Store.Len())

	_, err = e.Exec(context.Background(), "IMPORT amex FROM '"+filepath.Join(t.TempDir(), "absent.csv")+"';")
	require.ErrorIs(t, err, database.ErrIO)
}

func TestImportDryRunDoesNotPersist(t *testing.T) {
	e := newExecutor(t)
	path := writeFile(t, "july.csv", julyCSV)

	res := exec(t, e, "IMPORT amex FROM '"+path+"' (dryrun);")
	require.True(t, res.DryRun)
	require.Equal(t, 2, res.Affected)
	require.Equal(t, []int64{0, 0}, resultIDs(res))
	require.Zero(t, e.Store.Len())
	require.False(t, e.Store.HasAccount("amex"))

	res, err := e.DryRun(context.Background(), "IMPORT amex FROM '"+path+"';")
	require.NoError(t, err)
	require.True(t, res.DryRun)
	require.Zero(t, e.Store.Len())
}

func TestLabelReplacesWholeSet(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, "INSERT INTO amex VALUES (2022-07-02, 'Bakery', -8.20);")

	exec(t, e, "LABEL 1 grocery bread;")
	got, err := e.Store.FindByID(1)
	require.NoError(t, err)
	require.Equal(t, []string{"grocery", "bread"}, got.Labels)

	exec(t, e, "LABEL 1 dining;")
	got, err = e.Store.FindByID(1)
	require.NoError(t, err)
	require.Equal(t, []string{"dining"}, got.Labels)

	_, err = e.Exec(context.Background(), "LABEL 1 2 coffee;")
	require.ErrorIs(t, err, database.ErrNotFound)
	got, _ = e.Store.FindByID(1)
	require.Equal(t, []string{"dining"}, got.Labels)
}

func TestLabelWhereAndUpdate(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, `INSERT INTO amex VALUES
		(2022-07-02, 'UBER TRIP', -18),
		(2022-07-03, 'Uber Eats', -31.40),
		(2022-07-04, 'Salary', 2000);`)

	res := exec(t, e, "LABEL WHERE description LIKE 'uber' transport;")
	require.Equal(t, []int64{1, 2}, resultIDs(res))

	exec(t, e, "UPDATE SET label = 'dining, takeaway' WHERE description LIKE 'eats';")
	got, _ := e.Store.FindByID(2)
	require.Equal(t, []string{"dining", "takeaway"}, got.Labels)

	res = exec(t, e, "SELECT * WHERE label = transport;")
	require.Equal(t, []int64{1}, resultIDs(res))

	res = exec(t, e, "SELECT * WHERE label IS NULL;")
	require.Equal(t, []int64{3}, resultIDs(res))

	res, err := e.DryRun(context.Background(), "UPDATE SET label = 'x';")
	require.NoError(t, err)
	require.Equal(t, 3, res.Affected)
	got, _ = e.Store.FindByID(3)
	require.Empty(t, got.Labels)
}

func TestAutoPreviewAndApply(t *testing.T) {
	e := newExecutor(t)
	engine, err := labeller.New([]labeller.Rule{{Pattern: "coffee", Labels: []string{"cafe"}}}, labeller.Options{})
	require.NoError(t, err)
	e.Labeller = engine

	exec(t, e, `INSERT INTO amex VALUES
		(2022-07-05, 'Coffee Shop', -4.50),
		(2022-07-06, 'COLES 0423 MELBOURNE', -80, 'grocery'),
		(2022-07-07, 'COLES 0424 MELBOURNE', -60);`)

	res := exec(t, e, "SELECT auto() WHERE label IS NULL;")
	require.Len(t, res.Proposals, 2)
	require.Equal(t, []string{"cafe"}, res.Proposals[0].Labels)
	require.Equal(t, []string{"grocery"}, res.Proposals[1].Labels)
	got, _ := e.Store.FindByID(1)
	require.Empty(t, got.Labels)

	exec(t, e, "LABEL 1 3 auto();")
	got, _ = e.Store.FindByID(1)
	require.Equal(t, []string{"cafe"}, got.Labels)
	got, _ = e.Store.FindByID(3)
	require.Equal(t, []string{"grocery"}, got.Labels)
}

func TestDeleteIsAllOrNothing(t *testing.T) {
	e := newExecutor(t)
	for i := 1; i <= 10; i++ {
		exec(t, e, "INSERT INTO amex VALUES (2022-07-01, 'Row', -1);")
	}

	_, err := e.Exec(context.Background(), "DELETE 10 11;")
	var nf *database.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, []int64{11}, nf.IDs)
	_, err = e.Store.FindByID(10)
	require.NoError(t, err)

	res := exec(t, e, "DELETE 9, 10;")
	require.Equal(t, 2, res.Affected)
	require.Equal(t, 8, e.Store.Len())

	res = exec(t, e, "INSERT INTO amex VALUES (2022-07-02, 'Next', -2);")
	require.Equal(t, []int64{11}, resultIDs(res))
}

func TestSelectScopingOrderingAndErrors(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, `INSERT INTO amex VALUES (2022-07-03, 'B', -30), (2022-07-01, 'A', -10);`)
	exec(t, e, `INSERT INTO visa VALUES (2022-07-02, 'C', -20);`)

	require.Equal(t, []int64{1, 2, 3}, resultIDs(exec(t, e, "SELECT *;")))
	require.Equal(t, []int64{3}, resultIDs(exec(t, e, "SELECT * FROM visa;")))
	require.Equal(t, []int64{2, 3, 1}, resultIDs(exec(t, e, "SELECT * ORDER BY date;")))
	require.Equal(t, []int64{1, 3}, resultIDs(exec(t, e, "SELECT * ORDER BY amount LIMIT 2;")))
	require.Equal(t, []int64{2}, resultIDs(exec(t, e, "SELECT 2;")))
	require.Empty(t, exec(t, e, "SELECT 99;").Transactions)
	require.Equal(t, []int64{1}, resultIDs(exec(t, e, "SELECT * WHERE spending > 25 OR id = 99;")))

	_, err := e.Exec(context.Background(), "SELECT * FROM mastercard;")
	var sem *statement.SemanticError
	require.ErrorAs(t, err, &sem)
	require.Contains(t, err.Error(), "mastercard")

	_, err = e.Exec(context.Background(), "SELECT * WHERE colour = 'red';")
	require.ErrorAs(t, err, &sem)

	var syn *statement.SyntaxError
	_, err = e.Exec(context.Background(), "SELECT * WHERE amount >;")
	require.ErrorAs(t, err, &syn)
}

func TestExecScriptStopsAtFirstFailure(t *testing.T) {
	e := newExecutor(t)

	results, err := e.ExecScript(context.Background(), `
		INSERT INTO amex VALUES (2022-07-01, 'Rent', -1200);
		-- comment lines are ignored
		DELETE 5;
		INSERT INTO amex VALUES (2022-07-02, 'Never', -1);
	`)
	require.ErrorIs(t, err, database.ErrNotFound)
	require.Len(t, results, 1)
	require.Equal(t, 1, e.Store.Len())

	// A script that fails to parse runs nothing.
	_, err = e.ExecScript(context.Background(), "INSERT INTO amex VALUES (2022-07-03, 'x', -1); SELEC *;")
	require.Error(t, err)
	require.Equal(t, 1, e.Store.Len())
}

func TestLiveBoundary(t *testing.T) {
	e := newExecutor(t)
	live := e.Live()
	require.Empty(t, live.LastResults())

	exec(t, e, `INSERT INTO amex VALUES (2022-07-01, 'Rent', -1200), (2022-07-02, 'Cafe', -5);`)
	exec(t, e, "SELECT spending;")

	last := live.LastResults()
	require.Len(t, last, 2)
	last[0].Labels = append(last[0].Labels, "mutated")
	require.Empty(t, live.LastResults()[0].Labels)

	require.NoError(t, live.SetLabels(context.Background(), 2, []string{"coffee", " coffee "}))
	require.Equal(t, []string{"coffee"}, live.LastResults()[1].Labels)
	got, _ := e.Store.FindByID(2)
	require.Equal(t, []string{"coffee"}, got.Labels)

	require.ErrorIs(t, live.SetLabels(context.Background(), 42, []string{"x"}), database.ErrNotFound)
}

func TestDryRunScriptLeavesStoreUntouched(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, "INSERT INTO amex VALUES (2022-07-01, 'Rent', -1200);")

	results, err := e.DryRunScript(context.Background(), "DELETE 1; LABEL 1 housing; INSERT INTO amex VALUES (2022-07-02, 'Cafe', -5);")
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.True(t, r.DryRun)
	}
	require.Equal(t, []string{"housing"}, results[1].Transactions[0].Labels)

	got, err := e.Store.FindByID(1)
	require.NoError(t, err)
	require.Empty(t, got.Labels)
	require.Equal(t, 1, e.Store.Len())

	results, err = e.DryRunScript(context.Background(), "SELECT *; DELETE 1;")
	require.NoError(t, err)
	require.False(t, results[0].DryRun)
	require.True(t, results[1].DryRun)
}

func TestSelectGroupByLabel(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, `INSERT INTO amex VALUES
		(2022-07-02, 'COLES 0423', -60.10, 'grocery'),
		(2022-07-03, 'Bakery', -8.20, 'grocery, bread'),
		(2022-07-04, 'Salary', 2000, 'pay'),
		(2022-07-05, 'Parking', -4);`)
	exec(t, e, `INSERT INTO visa VALUES (2022-07-06, 'COLES 0424', -20, 'grocery');`)

	res := exec(t, e, "SELECT * GROUP BY label;")
	require.Nil(t, res.Transactions)
	require.Equal(t, 5, res.Affected)
	require.Len(t, res.Groups, 3)
	require.Equal(t, "bread", res.Groups[0].Label)
	require.Equal(t, "-8.2", res.Groups[0].Total.String())
	require.Equal(t, "grocery", res.Groups[1].Label)
	require.Equal(t, 3, res.Groups[1].Count)
	require.True(t, res.Groups[1].Total.Equal(decimal.RequireFromString("-88.30")))
	require.Equal(t, "pay", res.Groups[2].Label)

	res = exec(t, e, "SELECT spending FROM amex WHERE date = 7 GROUP BY label;")
	require.Len(t, res.Groups, 2)
	require.True(t, res.Groups[1].Total.Equal(decimal.RequireFromString("-68.30")))

	res = exec(t, e, "SELECT * WHERE label IS NULL GROUP BY label;")
	require.NotNil(t, res.Groups)
	require.Empty(t, res.Groups)
	require.Equal(t, 1, res.Affected)
}

func TestLabelSplitsQuotedLists(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, "INSERT INTO amex VALUES (2022-07-02, 'Bakery', -8.20);")

	exec(t, e, "LABEL 1 'grocery, bread';")
	got, err := e.Store.FindByID(1)
	require.NoError(t, err)
	require.Equal(t, []string{"grocery", "bread"}, got.Labels)

	exec(t, e, "LABEL 1 '2022';")
	got, _ = e.Store.FindByID(1)
	require.Equal(t, []string{"2022"}, got.Labels)

	_, err = e.Exec(context.Background(), "LABEL 1 2022;")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestAutoWithoutRulesLeavesExecutorUnchanged(t *testing.T) {
	e := newExecutor(t)
	exec(t, e, `INSERT INTO amex VALUES
		(2022-07-02, 'COLES 0423 MELBOURNE', -60, 'grocery'),
		(2022-07-03, 'COLES 0424 MELBOURNE', -20);`)

	res := exec(t, e, "SELECT auto() WHERE label IS NULL;")
	require.Len(t, res.Proposals, 1)
	require.Equal(t, []string{"grocery"}, res.Proposals[0].Labels)
	require.Nil(t, e.Labeller)
}
