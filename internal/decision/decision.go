// Package decision implements the decision maker: it matches a goal against
// procedural implications, checks their preconditions against recent belief
// spikes, ranks candidates by specificity then desire, and falls back to
// motor babbling when configured to explore.
package decision

import (
	"math/rand"
	"sort"

	"ona/internal/concept"
	"ona/internal/config"
	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/operation"
	"ona/internal/term"
	"ona/internal/truth"
	"ona/internal/unify"
)

// Decision is the outcome of one decision-maker invocation: which
// operation to fire (if any), how desirable it is, and whether desire
// clears the execution threshold.
type Decision struct {
	OperationTerm term.Term
	Desire        float64
	Execute       bool
	Specificity   int
}

// Null is the zero decision: no operation, zero desire, zero specificity,
// do not execute.
var Null = Decision{}

// match is one unify'd candidate implication for a goal, before the
// context check filters it.
type match struct {
	implication implication.Implication
	bindings    unify.Bindings
}

// findMatchingImplications walks every concept's procedural tables (1..10
// only — table 0 never produces executable decisions) and unifies each
// implication's postcondition against goalTerm.
func findMatchingImplications(mem *concept.Memory, goalTerm term.Term) []match {
	keys := mem.AllKeys()
	sort.Strings(keys)

	var out []match
	for _, key := range keys {
		c, ok := mem.GetByKeyString(key)
		if !ok {
			continue
		}
		c.IterateProcedural(func(imp implication.Implication) bool {
			if b, ok := unify.Unify(imp.Postcondition(), goalTerm); ok {
				out = append(out, match{implication: imp, bindings: b})
			}
			return true
		})
	}
	return out
}

// Match is one unify'd candidate implication for a goal term. It is
// exported with FindMatchingImplications, which runs the decision maker's
// own procedural-only matching pass without the context/desire ranking.
type Match struct {
	Implication implication.Implication
	Bindings    unify.Bindings
}

// FindMatchingImplications walks every concept's procedural tables and
// unifies each implication's postcondition against goalTerm.
func FindMatchingImplications(mem *concept.Memory, goalTerm term.Term) []Match {
	var out []Match
	for _, m := range findMatchingImplications(mem, goalTerm) {
		out = append(out, Match{Implication: m.implication, Bindings: m.bindings})
	}
	return out
}

// contextResult holds the outcome of the context check for one candidate.
type contextResult struct {
	specialized implication.Implication
	components  []term.Term
	beliefInput event.Event
	ok          bool
}

// checkContext specializes m's implication by its goal-unification
// bindings, strips trailing operations from the precondition, flattens the
// remaining context into its atomic components, and requires every
// component to have a belief spike no older than eventBeliefDistance ticks.
func checkContext(mem *concept.Memory, m match, now, eventBeliefDistance int) contextResult {
	specializedTerm := unify.Substitute(m.implication.Term, m.bindings)
	if specializedTerm.Copula != term.TemporalImplication && specializedTerm.Copula != term.Implication {
		return contextResult{}
	}
	specialized := implication.Implication{
		Term:         specializedTerm,
		Truth:        m.implication.Truth,
		Stamp:        m.implication.Stamp,
		Offset:       m.implication.Offset,
		CreationTime: m.implication.CreationTime,
	}

	context := term.StripOperationsFromPrecondition(specialized.Precondition())
	components := term.FlattenSequence(context)

	var belief event.Event
	for i, comp := range components {
		c, ok := mem.Get(term.ConceptKey(comp))
		if !ok || c.BeliefSpike == nil {
			return contextResult{}
		}
		spike := c.BeliefSpike
		if spike.Kind != event.Belief {
			return contextResult{}
		}
		if now-spike.OccurrenceTime > eventBeliefDistance {
			return contextResult{}
		}
		if i == 0 {
			belief = *spike
		}
	}

	return contextResult{specialized: specialized, components: components, beliefInput: belief, ok: true}
}

// desire computes the two-step desire for a specialized implication against
// a goal truth and a context belief truth (spec §4.K: goal_deduction then
// deduction with the belief, expectation of the result).
func desire(goalTruth, implTruth, beliefTruth truth.Value) float64 {
	contextual := truth.Deduction(implTruth, goalTruth)
	final := truth.Deduction(contextual, beliefTruth)
	return truth.Expectation(final)
}

// operationTerm extracts the rightmost operation leaf of a specialized
// implication's precondition, or the precondition itself if it carries no
// operation. Per spec, a decision's operation term is never a compound.
func operationTerm(specialized implication.Implication) term.Term {
	pre := specialized.Precondition()
	if op, _, ok := term.ExtractRightmostOperation(pre); ok {
		return op
	}
	return pre
}

// Decide runs the full decision procedure for goal at time now: find
// matching procedural implications, filter by context recency, rank by
// (specificity, desire), and apply motor babbling when the best candidate
// is not decisive enough (or none was found).
func Decide(mem *concept.Memory, ops *operation.Registry, goal event.Event, now int, cfg *config.Config, rng *rand.Rand) Decision {
	best := Null

	for _, m := range findMatchingImplications(mem, goal.Term) {
		ctx := checkContext(mem, m, now, cfg.EventBeliefDistance)
		if !ctx.ok {
			continue
		}
		d := desire(goal.Truth, ctx.specialized.Truth, ctx.beliefInput.Truth)
		specificity := len(ctx.components)

		better := specificity > best.Specificity ||
			(specificity == best.Specificity && d > best.Desire)
		if better {
			best = Decision{
				OperationTerm: operationTerm(ctx.specialized),
				Desire:        d,
				Execute:       d >= cfg.DecisionThreshold,
				Specificity:   specificity,
			}
		}
	}

	if cfg.MotorBabblingEnabled && best.Desire < cfg.MotorBabblingSuppressionThreshold {
		if rng.Float64() < cfg.MotorBabblingChance {
			if op, ok := randomOperation(ops, rng); ok {
				return Decision{OperationTerm: term.MakeAtomic(op.Name), Desire: 0.6, Execute: true, Specificity: 0}
			}
		}
	}

	return best
}

// randomOperation picks a uniformly random registered operation using rng.
func randomOperation(ops *operation.Registry, rng *rand.Rand) (*operation.Operation, bool) {
	names := ops.Names()
	if len(names) == 0 {
		return nil, false
	}
	name := names[rng.Intn(len(names))]
	return ops.GetByName(name)
}
