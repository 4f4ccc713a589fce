package concept

import (
	"testing"

	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/operation"
	"ona/internal/term"
	"ona/internal/truth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateDefaults(t *testing.T) {
	m := New(operation.New(), 100)
	c := m.GetOrCreate(term.MakeAtomic("red"))
	assert.Equal(t, DefaultPriority, c.Priority)
	assert.Len(t, c.PreconditionBeliefs, TableCount)

	same := m.GetOrCreate(term.MakeAtomic("red"))
	assert.Same(t, c, same)
}

func TestConceptKeyForInheritanceIsSubject(t *testing.T) {
	m := New(operation.New(), 100)
	inh := term.MakeCompound(term.Inherit, term.MakeAtomic("s"), term.MakeAtomic("p"))
	ev := event.Event{Term: inh, Kind: event.Belief, Truth: truth.Default, OccurrenceTime: event.Eternal}

	c := m.AddEvent(ev, 0, truth.DefaultEvidentialHorizon)
	assert.True(t, term.Equal(c.Key, term.MakeAtomic("s")))
}

func TestAddEventNonEternalSetsSpike(t *testing.T) {
	m := New(operation.New(), 100)
	red := term.MakeAtomic("red")
	ev := event.Event{Term: red, Truth: truth.Default, OccurrenceTime: 5, Stamp: event.NewStamp(1)}

	c := m.AddEvent(ev, 5, truth.DefaultEvidentialHorizon)
	require.NotNil(t, c.BeliefSpike)
	assert.Equal(t, 5, c.BeliefSpike.OccurrenceTime)
	assert.Nil(t, c.Belief)
}

func TestAddEventEternalRevisesExistingDisjointStamp(t *testing.T) {
	m := New(operation.New(), 100)
	red := term.MakeAtomic("red")
	ev1 := event.Event{Term: red, Truth: truth.Value{Frequency: 1.0, Confidence: 0.5}, OccurrenceTime: event.Eternal, Stamp: event.NewStamp(1)}
	ev2 := event.Event{Term: red, Truth: truth.Value{Frequency: 0.0, Confidence: 0.5}, OccurrenceTime: event.Eternal, Stamp: event.NewStamp(2)}

	m.AddEvent(ev1, 0, truth.DefaultEvidentialHorizon)
	c := m.AddEvent(ev2, 0, truth.DefaultEvidentialHorizon)

	require.NotNil(t, c.Belief)
	assert.InDelta(t, 0.5, c.Belief.Truth.Frequency, 1e-9)
}

func TestAddEventEternalSkipsOnStampOverlap(t *testing.T) {
	m := New(operation.New(), 100)
	red := term.MakeAtomic("red")
	stamp := event.NewStamp(1)
	ev1 := event.Event{Term: red, Truth: truth.Value{Frequency: 1.0, Confidence: 0.5}, OccurrenceTime: event.Eternal, Stamp: stamp}
	ev2 := event.Event{Term: red, Truth: truth.Value{Frequency: 0.0, Confidence: 0.5}, OccurrenceTime: event.Eternal, Stamp: stamp}

	m.AddEvent(ev1, 0, truth.DefaultEvidentialHorizon)
	c := m.AddEvent(ev2, 0, truth.DefaultEvidentialHorizon)

	assert.InDelta(t, 1.0, c.Belief.Truth.Frequency, 1e-9)
}

func TestAddEventBumpsPriorityUseCountAndLastUsed(t *testing.T) {
	m := New(operation.New(), 100)
	red := term.MakeAtomic("red")
	ev := event.Event{Term: red, Truth: truth.Default, OccurrenceTime: 3}

	c := m.AddEvent(ev, 3, truth.DefaultEvidentialHorizon)
	assert.InDelta(t, DefaultPriority+PriorityBump, c.Priority, 1e-9)
	assert.Equal(t, 1, c.UseCount)
	assert.Equal(t, 3, c.LastUsed)
}

func TestAddEventIndexesAtoms(t *testing.T) {
	m := New(operation.New(), 100)
	red := term.MakeAtomic("red")
	m.AddEvent(event.Event{Term: red, Truth: truth.Default, OccurrenceTime: 0}, 0, truth.DefaultEvidentialHorizon)

	related := m.Index().Related(red, m.AllKeys)
	assert.Contains(t, related, term.Format(red))
}

func TestAddImplicationPicksOperationIndex(t *testing.T) {
	ops := operation.New()
	ops.Register("^left", func(operation.Args) error { return nil })
	m := New(ops, 100)

	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	impTerm := term.MakeCompound(term.TemporalImplication, seq, term.MakeAtomic("goal"))
	imp := implication.New(impTerm, truth.Default, event.NewStamp(1), 1, 0)

	c := m.AddImplication(imp, truth.DefaultEvidentialHorizon)
	assert.Len(t, c.PreconditionBeliefs[1], 1)
	assert.Len(t, c.PreconditionBeliefs[0], 0)
}

func TestAddImplicationDeclarativeGoesToTableZero(t *testing.T) {
	m := New(operation.New(), 100)
	impTerm := term.MakeCompound(term.TemporalImplication, term.MakeAtomic("a"), term.MakeAtomic("b"))
	imp := implication.New(impTerm, truth.Default, event.NewStamp(1), 1, 0)

	c := m.AddImplication(imp, truth.DefaultEvidentialHorizon)
	assert.Len(t, c.PreconditionBeliefs[0], 1)
}

func TestAddImplicationRevisesExisting(t *testing.T) {
	m := New(operation.New(), 100)
	impTerm := term.MakeCompound(term.TemporalImplication, term.MakeAtomic("a"), term.MakeAtomic("b"))
	imp1 := implication.New(impTerm, truth.Value{Frequency: 1.0, Confidence: 0.5}, event.NewStamp(1), 1, 0)
	imp2 := implication.New(impTerm, truth.Value{Frequency: 0.0, Confidence: 0.5}, event.NewStamp(2), 3, 0)

	m.AddImplication(imp1, truth.DefaultEvidentialHorizon)
	c := m.AddImplication(imp2, truth.DefaultEvidentialHorizon)

	stored := c.PreconditionBeliefs[0][term.Format(impTerm)]
	assert.InDelta(t, 0.5, stored.Truth.Frequency, 1e-9)
	assert.InDelta(t, 2.0, stored.Offset, 1e-9)
}

func TestIterateImplicationsWalksAllTables(t *testing.T) {
	ops := operation.New()
	ops.Register("^left", func(operation.Args) error { return nil })
	m := New(ops, 100)

	declTerm := term.MakeCompound(term.TemporalImplication, term.MakeAtomic("a"), term.MakeAtomic("goal"))
	m.AddImplication(implication.New(declTerm, truth.Default, event.NewStamp(1), 1, 0), truth.DefaultEvidentialHorizon)

	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	procTerm := term.MakeCompound(term.TemporalImplication, seq, term.MakeAtomic("goal"))
	c := m.AddImplication(implication.New(procTerm, truth.Default, event.NewStamp(2), 1, 0), truth.DefaultEvidentialHorizon)

	count := 0
	c.IterateImplications(func(implication.Implication) bool { count++; return true })
	assert.Equal(t, 2, count)

	procCount := 0
	c.IterateProcedural(func(implication.Implication) bool { procCount++; return true })
	assert.Equal(t, 1, procCount)
}

func TestEvictionRemovesLeastUseful(t *testing.T) {
	m := New(operation.New(), 2)
	a := m.GetOrCreate(term.MakeAtomic("a"))
	a.Priority, a.Usefulness = 0.9, 0.9
	b := m.GetOrCreate(term.MakeAtomic("b"))
	b.Priority, b.Usefulness = 0.1, 0.1

	m.GetOrCreate(term.MakeAtomic("c"))

	assert.Equal(t, 2, m.Count())
	_, stillThere := m.Get(term.MakeAtomic("b"))
	assert.False(t, stillThere)
	_, aThere := m.Get(term.MakeAtomic("a"))
	assert.True(t, aThere)
}

func TestDecayPriorities(t *testing.T) {
	m := New(operation.New(), 100)
	c := m.GetOrCreate(term.MakeAtomic("a"))
	c.Priority = 1.0
	m.DecayPriorities(0.9)
	assert.InDelta(t, 0.9, c.Priority, 1e-9)
}

func TestReplaceImplicationOverwritesEvenOnIdenticalStamp(t *testing.T) {
	m := New(operation.New(), 100)
	impTerm := term.MakeCompound(term.TemporalImplication, term.MakeAtomic("a"), term.MakeAtomic("b"))
	stamp := event.NewStamp(1)
	original := implication.New(impTerm, truth.Value{Frequency: 1.0, Confidence: 0.9}, stamp, 1, 0)
	m.AddImplication(original, truth.DefaultEvidentialHorizon)

	revised := original
	revised.Truth = truth.Value{Frequency: 0.2, Confidence: 0.3}
	m.ReplaceImplication(revised)

	c, ok := m.Get(term.MakeAtomic("b"))
	require.True(t, ok)
	found := false
	c.IterateImplications(func(imp implication.Implication) bool {
		if term.Equal(imp.Term, impTerm) {
			found = true
			assert.InDelta(t, 0.2, imp.Truth.Frequency, 1e-9)
		}
		return true
	})
	assert.True(t, found)
}
