// Package labeller proposes label sets for transactions from an ordered,
// user-editable rule table, falling back to the most similar labelled
// transaction already in the store.
package labeller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jask/moneyql/internal/filtering"
)

// ErrInvalidRule is returned when a rule table entry cannot be compiled.
var ErrInvalidRule = errors.New("invalid labelling rule")

// MatchKind selects how a rule pattern is applied to a description.
type MatchKind string

const (
	MatchContains MatchKind = "contains"
	MatchKeyword  MatchKind = "keyword"
	MatchRegex    MatchKind = "regex"
)

// Rule is one row of the rule table. Rules are evaluated in file order.
type Rule struct {
	Pattern   string    `toml:"pattern" yaml:"pattern"`
	Match     MatchKind `toml:"match" yaml:"match"`
	Labels    []string  `toml:"labels" yaml:"labels"`
	Exclusive bool      `toml:"exclusive" yaml:"exclusive"`
	// Class limits the rule to "spending" or "income" transactions.
	Class string `toml:"class" yaml:"class"`
}

// RuleFile is the on-disk rule table.
type RuleFile struct {
	Version int    `toml:"version" yaml:"version"`
	Rules   []Rule `toml:"rules" yaml:"rules"`
}

// LoadRules reads a rule table. Files ending in .yaml or .yml are decoded as
// YAML, anything else as TOML. A missing file yields an empty table.
func LoadRules(path string) ([]Rule, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}

	var file RuleFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		_, err = toml.Decode(string(data), &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	for i := range file.Rules {
		if _, err := compile(file.Rules[i]); err != nil {
			return nil, fmt.Errorf("%s rule %d: %w", path, i+1, err)
		}
	}
	return file.Rules, nil
}

type compiledRule struct {
	Rule
	match func(desc string) bool
	class *filtering.Class
}

func compile(r Rule) (compiledRule, error) {
	c := compiledRule{Rule: r}
	pattern := strings.TrimSpace(r.Pattern)
	if pattern == "" {
		return c, fmt.Errorf("%w: empty pattern", ErrInvalidRule)
	}
	if len(r.Labels) == 0 {
		return c, fmt.Errorf("%w: pattern %q has no labels", ErrInvalidRule, pattern)
	}

	switch MatchKind(strings.ToLower(string(r.Match))) {
	case "", MatchContains:
		needle := strings.ToLower(pattern)
		c.match = func(desc string) bool { return strings.Contains(strings.ToLower(desc), needle) }
	case MatchKeyword:
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(pattern) + `\b`)
		c.match = re.MatchString
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		c.match = re.MatchString
	default:
		return c, fmt.Errorf("%w: unknown match kind %q", ErrInvalidRule, r.Match)
	}

	switch strings.ToLower(strings.TrimSpace(r.Class)) {
	case "":
	case "spending":
		cl := filtering.Spending
		c.class = &cl
	case "income":
		cl := filtering.Income
		c.class = &cl
	default:
		return c, fmt.Errorf("%w: unknown class %q", ErrInvalidRule, r.Class)
	}
	return c, nil
}

func (c compiledRule) matches(r filtering.Row) bool {
	if c.class != nil && r.Class() != *c.class {
		return false
	}
	return c.match(r.Description)
}
