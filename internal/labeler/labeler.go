// Package labeler assigns bootstrap category labels from keyword rules.
// The labels seed classifier training; rows that match no rule are
// labeled Other and are excluded from training downstream.
package labeler

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/spendcast/internal/model"
)

// LabelColumn is the column name bootstrap labels are written under.
const LabelColumn = "category_rule"

// ErrNoRules is returned when a rules file defines no categories.
var ErrNoRules = errors.New("labeler: no rules defined")

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// RuleSet is the on-disk shape of a rules file.
type RuleSet struct {
	Default string `yaml:"default,omitempty"`
	Rules   []Rule `yaml:"categories"`
}

// DefaultRules returns the built-in keyword rules.
func DefaultRules() RuleSet {
	return RuleSet{
		Default: model.CategoryOther,
		Rules: []Rule{
			{"Food", []string{"swiggy", "zomato", "pizza", "coffee", "starbucks", "restaurant"}},
			{"Shopping", []string{"amazon", "flipkart", "shopping", "myntra", "store", "electronics"}},
			{"Transport", []string{"uber", "ola", "cab", "taxi", "ride"}},
			{"Subscription", []string{"netflix", "spotify", "prime", "subscription", "hotstar"}},
			{"Groceries", []string{"bigbasket", "grocery", "supermarket", "dmart"}},
			{"Entertainment", []string{"movie", "ticket", "entertainment", "play", "event"}},
			{"Utilities", []string{"electricity", "water", "recharge", "bill", "utility"}},
			{"Income", []string{"salary", "bonus", "freelance", "payment"}},
		},
	}
}

// LoadRules reads a YAML rules file.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("reading rules: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	if len(rs.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("%s: %w", path, ErrNoRules)
	}
	if rs.Default == "" {
		rs.Default = model.CategoryOther
	}
	return rs, nil
}

// Labeler applies a RuleSet to cleaned descriptions.
type Labeler struct {
	rules    []Rule
	fallback string
}

// New builds a Labeler. Keywords are lowercased and blank ones dropped.
func New(rs RuleSet) *Labeler {
	l := &Labeler{fallback: rs.Default}
	if l.fallback == "" {
		l.fallback = model.CategoryOther
	}
	for _, r := range rs.Rules {
		var kws []string
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		l.rules = append(l.rules, Rule{Category: r.Category, Keywords: kws})
	}
	return l
}

// Label returns the category for a cleaned description. Keywords match as
// substrings; when several categories match, the last in rule order wins.
func (l *Labeler) Label(descClean string) string {
	label := l.fallback
	for _, r := range l.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(descClean, kw) {
				label = r.Category
				break
			}
		}
	}
	return label
}

// Apply labels every transaction, storing the label in Extra[LabelColumn].
// The input slice is not modified.
func (l *Labeler) Apply(rows []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, len(rows))
	for i, tx := range rows {
		extra := make(map[string]string, len(tx.Extra)+1)
		for k, v := range tx.Extra {
			extra[k] = v
		}
		extra[LabelColumn] = l.Label(tx.DescClean)
		tx.Extra = extra
		out[i] = tx
	}
	return out
}

// Counts tallies labels across rows, for reporting.
func Counts(rows []model.Transaction) map[string]int {
	counts := make(map[string]int)
	for _, tx := range rows {
		counts[tx.Extra[LabelColumn]]++
	}
	return counts
}
