package nar

import (
	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/operation"
	"ona/internal/query"
	"ona/internal/term"
	"ona/internal/truth"
)

// SetConfig applies one key/value pair from the textual set_config
// contract (spec §6). current_time and stamp_id additionally resync the
// state's own counters, since those two are the only configuration keys
// that name mutable cycle state rather than a reasoning constant.
func (s *State) SetConfig(key, value string) error {
	if err := s.Config.Set(key, value); err != nil {
		return wrapError(ConfigError, err)
	}
	switch key {
	case "current_time":
		s.CurrentTime = s.Config.CurrentTime
	case "stamp_id":
		s.nextStampID = s.Config.StampID
	}
	return nil
}

// RegisterOperation binds name (an atom starting with '^') to cb, assigning
// the next free operation ID. Returns RegistryFull once OperationsMax
// operations are already registered.
func (s *State) RegisterOperation(name string, cb operation.Callback) (int, error) {
	id, err := s.Ops.Register(name, cb)
	if err != nil {
		return 0, wrapError(RegistryFull, err)
	}
	return id, nil
}

// AddBelief submits a belief event for t at occurrenceTime (event.Eternal
// for an eternal belief), depositing it on concept memory and enqueueing it
// for the next cycle's belief processing.
func (s *State) AddBelief(t term.Term, tv truth.Value, occurrenceTime int, input bool) event.Event {
	return s.submit(event.Belief, t, tv, occurrenceTime, input)
}

// AddGoal submits a goal event for t, the same way AddBelief submits a
// belief.
func (s *State) AddGoal(t term.Term, tv truth.Value, occurrenceTime int, input bool) event.Event {
	return s.submit(event.Goal, t, tv, occurrenceTime, input)
}

func (s *State) submit(kind event.Kind, t term.Term, tv truth.Value, occurrenceTime int, input bool) event.Event {
	ev := event.Event{
		Term:           t,
		Kind:           kind,
		Truth:          tv,
		Stamp:          event.NewStamp(s.nextStamp()),
		OccurrenceTime: occurrenceTime,
		CreationTime:   s.CurrentTime,
		Input:          input,
		InsertionSeq:   s.nextEvent(),
		UUID:           event.NewUUID(),
	}
	// A non-temporal <A ==> B> belief is a declarative implication link
	// (spec §3.5): received into concept memory but never cycled or
	// exercised by inference, unlike every other belief.
	if kind == event.Belief && t.Copula == term.Implication {
		imp := implication.Implication{
			Term:         t,
			Truth:        tv,
			Stamp:        ev.Stamp,
			CreationTime: s.CurrentTime,
		}
		s.Concepts.AddImplicationLink(imp, s.Config.EvidentialHorizon)
		return ev
	}

	s.Concepts.AddEvent(ev, s.CurrentTime, s.Config.EvidentialHorizon)

	switch kind {
	case event.Belief:
		s.BeliefQueue.Push(ev, ev.Priority())
	case event.Goal:
		s.GoalQueue.Push(ev, ev.Priority())
	}
	return ev
}

// Ask searches concept memory for answers to queryTerm, applying question
// priming to every concept an answer came from (spec §4.L).
func (s *State) Ask(queryTerm term.Term) []query.Answer {
	answers := query.Ask(s.Concepts, queryTerm, s.CurrentTime, s.Config.ProjectionDecay)
	keys := query.Priming(answers)
	query.ApplyPriming(s.Concepts, keys, s.Config.QuestionPriming)
	return answers
}

// Stats summarizes the reasoner's current resource state, per spec §6.
type Stats struct {
	CurrentTime            int
	TotalConcepts          int
	BeliefEventsCount      int
	GoalEventsCount        int
	AverageConceptPriority float64
}

// Stats reports the current snapshot.
func (s *State) Stats() Stats {
	total := s.Concepts.Count()
	sum := 0.0
	for _, k := range s.Concepts.AllKeys() {
		if c, ok := s.Concepts.GetByKeyString(k); ok {
			sum += c.Priority
		}
	}
	avg := 0.0
	if total > 0 {
		avg = sum / float64(total)
	}
	return Stats{
		CurrentTime:            s.CurrentTime,
		TotalConcepts:          total,
		BeliefEventsCount:      s.BeliefQueue.Len(),
		GoalEventsCount:        s.GoalQueue.Len(),
		AverageConceptPriority: avg,
	}
}
