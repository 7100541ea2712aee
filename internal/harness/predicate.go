package harness

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mwiater/groundedgeo/internal/dataset"
)

// Predicate decides whether a prediction answers its query correctly.
// Implementations must be free of side effects.
type Predicate interface {
	IsCorrect(p Prediction, q dataset.Query) bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(p Prediction, q dataset.Query) bool

// IsCorrect calls f(p, q).
func (f PredicateFunc) IsCorrect(p Prediction, q dataset.Query) bool { return f(p, q) }

// minTokenRunes is the length a gold token must exceed to count in
// LexicalOverlap.
const minTokenRunes = 4

// LexicalOverlap is the reference heuristic: the prediction is correct when
// any whitespace-separated gold token longer than four characters appears,
// case-insensitively, as a substring of the raw answer. It is permissive on
// purpose and only meant as a baseline.
var LexicalOverlap Predicate = PredicateFunc(func(p Prediction, q dataset.Query) bool {
	gold := strings.ToLower(q.GoldAnswer)
	pred := strings.ToLower(p.RawAnswer)
	for _, word := range strings.Fields(gold) {
		if utf8.RuneCountInString(word) > minTokenRunes && strings.Contains(pred, word) {
			return true
		}
	}
	return false
})

// ExactMatch compares normalized gold and predicted answers for equality.
var ExactMatch Predicate = PredicateFunc(func(p Prediction, q dataset.Query) bool {
	gold := normalizeAnswer(q.GoldAnswer)
	return gold != "" && gold == normalizeAnswer(p.RawAnswer)
})

// NormalizedContains requires the whole normalized gold answer to appear in
// the normalized prediction.
var NormalizedContains Predicate = PredicateFunc(func(p Prediction, q dataset.Query) bool {
	gold := normalizeAnswer(q.GoldAnswer)
	return gold != "" && strings.Contains(normalizeAnswer(p.RawAnswer), gold)
})

var predicates = map[string]Predicate{
	"lexical":  LexicalOverlap,
	"exact":    ExactMatch,
	"contains": NormalizedContains,
}

// PredicateByName resolves a configured predicate name.
func PredicateByName(name string) (Predicate, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return LexicalOverlap, nil
	}
	p, ok := predicates[key]
	if !ok {
		return nil, fmt.Errorf("unknown predicate %q (available: %s)", name, strings.Join(PredicateNames(), ", "))
	}
	return p, nil
}

// PredicateNames lists the registered predicate names, sorted.
func PredicateNames() []string {
	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeAnswer lower-cases, collapses whitespace and trims surrounding
// punctuation.
func normalizeAnswer(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.Trim(s, " \t\"'`.,;:!?()[]{}")
}
