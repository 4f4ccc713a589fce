package nar

import (
	"fmt"
	"sort"

	"ona/internal/decision"
	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/operation"
	"ona/internal/prediction"
	"ona/internal/queue"
	"ona/internal/term"
	"ona/internal/truth"
	"ona/internal/unify"
)

// BeliefEventSelections and GoalEventSelections are the number of events
// popped from each queue per cycle (spec §4.J); unlike the other cycle
// constants, these are not exposed through set_config.
const (
	BeliefEventSelections = 1
	GoalEventSelections   = 1
)

// Cycle runs n inference cycles in order, returning the diagnostic lines
// produced along the way (gated by Config.Volume/Debug). The core never
// performs I/O itself: a caller decides whether and where to print these.
func (s *State) Cycle(n int) []string {
	var diagnostics []string
	for i := 0; i < n; i++ {
		diagnostics = append(diagnostics, s.cycleOnce()...)
	}
	return diagnostics
}

// cycleOnce runs the five steps of spec.md §4.J in strict order: select,
// process belief events, process goal events, check anticipations, advance
// time.
func (s *State) cycleOnce() []string {
	var diag []string

	beliefs := popN(s.BeliefQueue, BeliefEventSelections)
	goals := popN(s.GoalQueue, GoalEventSelections)

	for _, e := range beliefs {
		diag = append(diag, s.validatePrediction(e)...)
		s.mineSequencesAndImplications(e)
		s.forwardChain(e)
	}

	for _, g := range goals {
		diag = append(diag, s.processGoalEvent(g)...)
	}

	s.checkAnticipations()

	s.Concepts.DecayPriorities(s.Config.ConceptDurability)
	s.BeliefQueue.DecayAll(s.Config.EventDurability)
	s.GoalQueue.DecayAll(s.Config.EventDurability)

	s.CurrentTime++
	return diag
}

func popN(q *queue.Queue, n int) []event.Event {
	out := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		e, ok := q.Pop()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func (s *State) diagnosticsEnabled() bool {
	return s.Config.Debug || s.Config.Volume > 0
}

// validatePrediction is cycle step 2's "validate predictions" sub-step: if
// E.term's concept carries an active prediction, resolve it and revise its
// source implication in place.
func (s *State) validatePrediction(e event.Event) []string {
	var diag []string

	c, ok := s.Concepts.Get(term.ConceptKey(e.Term))
	if !ok || c.ActivePrediction == nil {
		return diag
	}
	pred := c.ActivePrediction

	switch prediction.Validate(pred, e, s.CurrentTime, prediction.DefaultTolerance) {
	case prediction.Confirmed:
		revised := prediction.ReviseOnConfirmation(pred.SourceImplication, s.Config.EvidentialHorizon)
		s.Concepts.ReplaceImplication(revised)
		c.ActivePrediction, c.PredictedBelief = nil, nil
		if s.diagnosticsEnabled() {
			diag = append(diag, fmt.Sprintf("CONFIRMED %s", term.Format(pred.PredictedEvent.Term)))
		}
	case prediction.Refuted:
		revised := prediction.ReviseOnRefutation(pred.SourceImplication, s.Config.EvidentialHorizon)
		s.Concepts.ReplaceImplication(revised)
		c.ActivePrediction, c.PredictedBelief = nil, nil
		if s.diagnosticsEnabled() {
			diag = append(diag, fmt.Sprintf("REFUTED %s", term.Format(pred.PredictedEvent.Term)))
		}
	case prediction.Timeout:
		preTruth := s.bestBeliefTruth(pred.SourceImplication.Precondition())
		revised := prediction.ReviseOnAnticipationTimeout(pred.SourceImplication, preTruth, s.Config.EvidentialHorizon)
		s.Concepts.ReplaceImplication(revised)
		c.ActivePrediction, c.PredictedBelief = nil, nil
	}
	return diag
}

func (s *State) bestBeliefTruth(t term.Term) truth.Value {
	c, ok := s.Concepts.Get(term.ConceptKey(t))
	if !ok {
		return truth.Value{}
	}
	if best := c.BestBelief(s.CurrentTime, s.Config.ProjectionDecay); best != nil {
		return best.Truth
	}
	return truth.Value{}
}

// mineSequencesAndImplications is cycle step 2's "mine sequences and
// implications" sub-step, restricted to input, temporal, non-eternal
// beliefs to prevent infinite self-chaining.
func (s *State) mineSequencesAndImplications(e event.Event) {
	if !e.Input || e.IsEternal() {
		return
	}
	cfg := s.Config

	for _, k := range sortedKeys(s.Concepts) {
		c, ok := s.Concepts.GetByKeyString(k)
		if !ok || c.BeliefSpike == nil {
			continue
		}
		sp := c.BeliefSpike
		if sp.IsEternal() || sp.OccurrenceTime >= e.OccurrenceTime {
			continue
		}
		if e.OccurrenceTime-sp.OccurrenceTime > cfg.MaxSequenceTimediff {
			continue
		}
		if !(sp.Input || (sp.Term.IsSequence() && sp.Term.SequenceLength() < cfg.MaxSequenceLen)) {
			continue
		}

		dt := float64(e.OccurrenceTime - sp.OccurrenceTime)
		projectedS := truth.Project(sp.Truth, dt, cfg.ProjectionDecay)

		seqTerm := term.MakeCompound(term.Sequence, sp.Term, e.Term)
		seqEvent := event.Event{
			Term:           seqTerm,
			Kind:           event.Belief,
			Truth:          truth.Intersection(projectedS, e.Truth),
			Stamp:          sp.Stamp.Union(e.Stamp),
			OccurrenceTime: e.OccurrenceTime,
			CreationTime:   s.CurrentTime,
		}
		s.Concepts.AddEvent(seqEvent, s.CurrentTime, cfg.EvidentialHorizon)

		impTerm := term.MakeCompound(term.TemporalImplication, sp.Term, e.Term)
		impTruth := truth.Induction(e.Truth, projectedS, cfg.EvidentialHorizon)
		imp := implication.New(impTerm, impTruth, sp.Stamp.Union(e.Stamp), dt, s.CurrentTime)
		if cfg.VariableIntroduction {
			imp = generalizeImplication(imp)
		}
		s.Concepts.AddImplication(imp, cfg.EvidentialHorizon)
	}
}

func generalizeImplication(imp implication.Implication) implication.Implication {
	out := imp
	out.Term = unify.Generalize(imp.Term)
	return out
}

// forwardChain is cycle step 2's "forward chain" sub-step: for every
// concept related to E.term, plus every concept whose key carries a
// variable, unify each of its implications' preconditions against E.term
// and record a prediction for whichever unify.
func (s *State) forwardChain(e event.Event) {
	mem := s.Concepts

	keys := mem.Index().Related(e.Term, mem.AllKeys)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range sortedKeys(mem) {
		if seen[k] {
			continue
		}
		if c, ok := mem.GetByKeyString(k); ok && unify.HasVariable(c.Key) {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		c, ok := mem.GetByKeyString(k)
		if !ok {
			continue
		}
		walk := c.IterateProcedural
		if s.Config.ForwardChainAllTables {
			walk = c.IterateImplications
		}
		walk(func(imp implication.Implication) bool {
			s.tryForwardChain(imp, e, k)
			return true
		})
	}
}

func (s *State) tryForwardChain(imp implication.Implication, e event.Event, sourceConceptKey string) {
	bindings, ok := unify.Unify(imp.Precondition(), e.Term)
	if !ok {
		return
	}
	inst := implication.Implication{
		Term:         unify.Substitute(imp.Term, bindings),
		Truth:        imp.Truth,
		Stamp:        imp.Stamp,
		Offset:       imp.Offset,
		CreationTime: imp.CreationTime,
	}

	predictedTruth := truth.Deduction(inst.Truth, e.Truth)
	expectedTime := e.OccurrenceTime + round(inst.Offset)
	postTerm := inst.Postcondition()

	predicted := event.Event{
		Term:           postTerm,
		Kind:           event.Belief,
		Truth:          predictedTruth,
		Stamp:          e.Stamp.Union(inst.Stamp),
		OccurrenceTime: expectedTime,
		CreationTime:   s.CurrentTime,
	}

	postConcept := s.Concepts.GetOrCreate(term.ConceptKey(postTerm))
	postConcept.PredictedBelief = &predicted
	pred := prediction.New(predicted, inst, sourceConceptKey, expectedTime, s.CurrentTime)
	postConcept.ActivePrediction = &pred
	s.anticipations = append(s.anticipations, &anticipation{
		prediction: postConcept.ActivePrediction,
		conceptKey: term.Format(postConcept.Key),
	})
}

func round(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

// processGoalEvent is cycle step 3: ask the decision maker for a decision;
// execute it if desirable and registered, else derive subgoals.
func (s *State) processGoalEvent(g event.Event) []string {
	var diag []string

	d := decision.Decide(s.Concepts, s.Ops, g, s.CurrentTime, s.Config, s.rng)
	if !d.Execute {
		s.deriveSubgoals(g)
		return diag
	}

	op, ok := operation.GetByTerm(s.Ops, d.OperationTerm)
	if !ok {
		s.deriveSubgoals(g)
		return diag
	}

	execErr := s.Ops.Execute(op.Name, nil)
	s.LastExecutedOperation = op.Name

	resultTruth := truth.Value{Frequency: 1.0, Confidence: 0.9}
	if execErr != nil {
		resultTruth = truth.Value{Frequency: 0.0, Confidence: 0.9}
	}
	s.submit(event.Belief, d.OperationTerm, resultTruth, s.CurrentTime, false)

	if s.diagnosticsEnabled() {
		diag = append(diag, fmt.Sprintf("EXECUTED %s desire=%.3f", op.Name, d.Desire))
	}
	return diag
}

// deriveSubgoals implements goal_deduction (spec §4.J step 3): for every
// implication <A=/>G>, in any of a concept's tables (declarative or
// procedural), whose postcondition unifies with the goal, subgoal A with
// truth deduction(I.truth, G.truth) at occurrence G.t - I.offset.
func (s *State) deriveSubgoals(g event.Event) {
	keys := s.Concepts.AllKeys()
	sort.Strings(keys)
	var matches []decision.Match
	for _, key := range keys {
		c, ok := s.Concepts.GetByKeyString(key)
		if !ok {
			continue
		}
		c.IterateImplications(func(imp implication.Implication) bool {
			if b, ok := unify.Unify(imp.Postcondition(), g.Term); ok {
				matches = append(matches, decision.Match{Implication: imp, Bindings: b})
			}
			return true
		})
	}
	for _, m := range matches {
		specialized := unify.Substitute(m.Implication.Term, m.Bindings)
		if specialized.Copula != term.TemporalImplication && specialized.Copula != term.Implication {
			continue
		}
		subTruth := truth.Deduction(m.Implication.Truth, g.Truth)
		occurrence := event.Eternal
		if !g.IsEternal() {
			occurrence = g.OccurrenceTime - round(m.Implication.Offset)
		}
		s.submit(event.Goal, specialized.Subject(), subTruth, occurrence, false)
	}
}

// checkAnticipations is cycle step 4: any active anticipation whose
// deadline has passed unconfirmed gets negative evidence inducted against
// its precondition belief and is dropped from the list.
func (s *State) checkAnticipations() {
	var remaining []*anticipation
	for _, a := range s.anticipations {
		p := a.prediction
		if p.Confirmed || p.Refuted {
			continue
		}
		deadline := p.ExpectedTime + prediction.DefaultTolerance
		if p.PredictedEvent.IsEternal() || s.CurrentTime <= deadline {
			remaining = append(remaining, a)
			continue
		}

		preTruth := s.bestBeliefTruth(p.SourceImplication.Precondition())
		revised := prediction.ReviseOnAnticipationTimeout(p.SourceImplication, preTruth, s.Config.EvidentialHorizon)
		s.Concepts.ReplaceImplication(revised)
		p.Refuted = true

		if c, ok := s.Concepts.GetByKeyString(a.conceptKey); ok && c.ActivePrediction == p {
			c.ActivePrediction, c.PredictedBelief = nil, nil
		}
	}
	s.anticipations = remaining
}

func sortedKeys(mem interface{ AllKeys() []string }) []string {
	keys := mem.AllKeys()
	sort.Strings(keys)
	return keys
}
