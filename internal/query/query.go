// Package query implements answer search: walking concept memory to find
// the best belief or implication matching a query term, including
// variable-bearing queries resolved through unification.
package query

import (
	"sort"

	"ona/internal/concept"
	"ona/internal/implication"
	"ona/internal/term"
	"ona/internal/truth"
	"ona/internal/unify"
)

// Kind distinguishes a belief answer from an implication answer.
type Kind int

const (
	BeliefAnswer Kind = iota
	ImplicationAnswer
)

// Answer is one candidate response to a query, carrying enough to rank and
// present it.
type Answer struct {
	Kind           Kind
	Term           term.Term
	Truth          truth.Value
	SourceConcept  string
	Implication    implication.Implication
	HasImplication bool
}

// Expectation returns the answer's ranking key.
func (a Answer) Expectation() float64 {
	return truth.Expectation(a.Truth)
}

// Ask searches every concept in mem for answers to queryTerm and returns
// them sorted by expectation descending. now/beta select the best
// available belief per concept (spike vs. eternal, spec §4.C).
func Ask(mem *concept.Memory, queryTerm term.Term, now int, beta float64) []Answer {
	var answers []Answer

	keys := mem.AllKeys()
	sort.Strings(keys)

	queryKey := term.ConceptKey(queryTerm)
	isImplicationQuery := queryTerm.Copula == term.TemporalImplication || queryTerm.Copula == term.Implication

	for _, ks := range keys {
		c, ok := mem.GetByKeyString(ks)
		if !ok {
			continue
		}

		if term.Equal(c.Key, queryKey) {
			if best := c.BestBelief(now, beta); best != nil {
				answers = append(answers, Answer{Kind: BeliefAnswer, Term: best.Term, Truth: best.Truth, SourceConcept: ks})
			}
		}

		if isImplicationQuery && term.Equal(c.Key, queryTerm.Subject()) {
			wantPredicate := queryTerm.Predicate()
			c.IterateImplications(func(imp implication.Implication) bool {
				if term.Equal(imp.Postcondition(), wantPredicate) {
					answers = append(answers, Answer{Kind: ImplicationAnswer, Term: imp.Term, Truth: imp.Truth, SourceConcept: ks, Implication: imp, HasImplication: true})
				}
				return true
			})
		}

		c.IterateImplications(func(imp implication.Implication) bool {
			if _, ok := unify.Unify(imp.Term, queryTerm); ok {
				answers = append(answers, Answer{Kind: ImplicationAnswer, Term: imp.Term, Truth: imp.Truth, SourceConcept: ks, Implication: imp, HasImplication: true})
			}
			return true
		})
	}

	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].Expectation() > answers[j].Expectation()
	})
	return answers
}

// Priming returns the source concept keys touched by answers, for the
// caller to bump priority by QuestionPriming (spec §4.L): "bump
// source-concept priority by question_priming, clipped to <= 1."
func Priming(answers []Answer) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range answers {
		if !seen[a.SourceConcept] {
			seen[a.SourceConcept] = true
			out = append(out, a.SourceConcept)
		}
	}
	return out
}

// ApplyPriming bumps every primed concept's priority by amount, clipped to
// 1.0.
func ApplyPriming(mem *concept.Memory, keys []string, amount float64) {
	for _, ks := range keys {
		c, ok := mem.GetByKeyString(ks)
		if !ok {
			continue
		}
		c.Priority += amount
		if c.Priority > 1 {
			c.Priority = 1
		}
	}
}
