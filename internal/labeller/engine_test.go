package labeller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/moneyql/internal/filtering"
)

func spend(id int64, desc string, labels ...string) filtering.Row {
	return filtering.Row{ID: id, Description: desc, Amount: decimal.RequireFromString("-10"), Labels: labels}
}

func TestProposeAccumulatesUntilExclusive(t *testing.T) {
	t.Parallel()

	e, err := New([]Rule{
		{Pattern: "woolworths", Labels: []string{"grocery"}},
		{Pattern: "metro", Match: MatchKeyword, Labels: []string{"convenience"}},
		{Pattern: `^WOOL.*METRO`, Match: MatchRegex, Labels: []string{"city"}, Exclusive: true},
		{Pattern: "woolworths", Labels: []string{"never"}},
	}, Options{})
	require.NoError(t, err)
	require.Equal(t, 4, e.Rules())

	got := e.Propose(spend(1, "Woolworths Metro 1234"), nil)
	require.Equal(t, []string{"grocery", "convenience", "city"}, got)

	// "metropolitan" is not the keyword "metro".
	got = e.Propose(spend(2, "WOOLWORTHS METROPOLITAN"), nil)
	require.Equal(t, []string{"grocery", "city"}, got)
}

func TestProposeRespectsClass(t *testing.T) {
	t.Parallel()

	e, err := New([]Rule{{Pattern: "acme", Labels: []string{"salary"}, Class: "income"}}, Options{})
	require.NoError(t, err)
	require.Empty(t, e.Propose(spend(1, "ACME PTY"), nil))

	income := filtering.Row{ID: 2, Description: "ACME PTY", Amount: decimal.RequireFromString("3000")}
	require.Equal(t, []string{"salary"}, e.Propose(income, nil))
}

func TestProposeFallsBackToNearestLabelled(t *testing.T) {
	t.Parallel()

	e, err := New(nil, Options{})
	require.NoError(t, err)

	corpus := []filtering.Row{
		spend(7, "COLES 0423 MELBOURNE", "grocery", "food"),
		spend(3, "COLES 0424 MELBOURNE", "supermarket"),
		spend(9, "NETFLIX.COM", "subscriptions"),
		spend(10, "COLES 0425 MELBOURNE"),
	}
	got := e.Propose(spend(11, "COLES 0425 MELBOURNE"), corpus)
	require.Equal(t, []string{"supermarket"}, got)

	require.Empty(t, e.Propose(spend(12, "UBER TRIP"), corpus))
	require.NotNil(t, e.Propose(spend(12, "UBER TRIP"), corpus))
}

func TestNewRejectsBadRules(t *testing.T) {
	t.Parallel()

	for _, r := range []Rule{
		{Pattern: "", Labels: []string{"x"}},
		{Pattern: "a", Labels: nil},
		{Pattern: "(", Match: MatchRegex, Labels: []string{"x"}},
		{Pattern: "a", Match: "fuzzy", Labels: []string{"x"}},
		{Pattern: "a", Labels: []string{"x"}, Class: "transfer"},
	} {
		_, err := New([]Rule{r}, Options{})
		require.ErrorIs(t, err, ErrInvalidRule, "%+v", r)
	}
}

func TestLoadRulesTOMLAndYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "rules.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`version = 1

[[rules]]
pattern = "uber"
labels = ["transport"]

[[rules]]
pattern = "uber eats"
labels = ["dining"]
exclusive = true
`), 0o644))
	rules, err := LoadRules(tomlPath)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.True(t, rules[1].Exclusive)

	yamlPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`version: 1
rules:
  - pattern: spotify
    match: keyword
    labels: [subscriptions, music]
`), 0o644))
	rules, err = LoadRules(yamlPath)
	require.NoError(t, err)
	require.Equal(t, []Rule{{Pattern: "spotify", Match: MatchKeyword, Labels: []string{"subscriptions", "music"}}}, rules)

	rules, err = LoadRules(filepath.Join(dir, "absent.toml"))
	require.NoError(t, err)
	require.Empty(t, rules)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[rules]]\npattern = \"x\"\n"), 0o644))
	_, err = LoadRules(bad)
	require.ErrorIs(t, err, ErrInvalidRule)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, Similarity("", ""))
	require.Equal(t, 1.0, Similarity("ABC", "ABC"))
	require.InDelta(t, 2.0/3.0, Similarity("ABC", "ABD"), 1e-9)
}
