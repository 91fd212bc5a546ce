package labeller

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/moneyql/internal/filtering"
)

// DefaultSimilarity is the minimum description similarity for the corpus
// fallback to borrow another transaction's labels.
const DefaultSimilarity = 0.8

// Options tune an Engine.
type Options struct {
	// Similarity in (0, 1]; zero means DefaultSimilarity.
	Similarity float64
}

// Engine proposes labels. It holds no per-call state and is safe to share.
type Engine struct {
	rules      []compiledRule
	similarity float64
}

// New compiles rules in priority order.
func New(rules []Rule, opts Options) (*Engine, error) {
	e := &Engine{similarity: opts.Similarity}
	if e.similarity <= 0 || e.similarity > 1 {
		e.similarity = DefaultSimilarity
	}
	for _, r := range rules {
		c, err := compile(r)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, c)
	}
	return e, nil
}

// Empty returns an engine with no rules, which only reuses labels from
// similar transactions.
func Empty() *Engine {
	return &Engine{similarity: DefaultSimilarity}
}

// Rules reports how many rules the engine holds.
func (e *Engine) Rules() int { return len(e.rules) }

// Propose returns the label set for txn. Every matching rule adds its labels
// in priority order until an exclusive rule matches. When no rule matches,
// the labels of the most similar labelled transaction of the same class in
// corpus are reused. The result is never nil.
func (e *Engine) Propose(txn filtering.Row, corpus []filtering.Row) []string {
	var labels []string
	matched := false
	for _, r := range e.rules {
		if !r.matches(txn) {
			continue
		}
		matched = true
		labels = append(labels, r.Labels...)
		if r.Exclusive {
			break
		}
	}
	if matched {
		return filtering.NormalizeLabels(labels)
	}
	return filtering.NormalizeLabels(e.nearest(txn, corpus))
}

// nearest finds the corpus row whose description is closest to txn's. Ties
// go to the lowest id.
func (e *Engine) nearest(txn filtering.Row, corpus []filtering.Row) []string {
	want := strings.ToUpper(strings.TrimSpace(txn.Description))
	if want == "" {
		return nil
	}
	class := txn.Class()

	var (
		best      []string
		bestScore float64
		bestID    int64
	)
	for _, c := range corpus {
		if c.ID == txn.ID || len(c.Labels) == 0 || c.Class() != class {
			continue
		}
		score := Similarity(want, strings.ToUpper(strings.TrimSpace(c.Description)))
		if score < e.similarity {
			continue
		}
		if score > bestScore || (score == bestScore && c.ID < bestID) {
			best, bestScore, bestID = c.Labels, score, c.ID
		}
	}
	return best
}

// Similarity is 1 minus the edit distance scaled by the longer string's length.
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
