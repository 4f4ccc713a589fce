package nar

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

func teachImplication(t *testing.T, s *State, precondition, postcondition term.Term, freq, conf, offset float64) {
	t.Helper()
	impTerm := term.MakeCompound(term.TemporalImplication, precondition, postcondition)
	imp := implication.New(impTerm, truth.Value{Frequency: freq, Confidence: conf}, event.NewStamp(-1), offset, 0)
	s.Concepts.AddImplication(imp, s.Config.EvidentialHorizon)
}

func TestForwardChainPredictsFromTaughtImplication(t *testing.T) {
	s := Init(nil)
	teachImplication(t, s, term.MakeAtomic("a"), term.MakeAtomic("b"), 1.0, 0.9, 1)

	s.AddBelief(term.MakeAtomic("a"), truth.Value{Frequency: 1.0, Confidence: 0.9}, 0, true)
	s.Cycle(1)

	c, ok := s.Concepts.Get(term.MakeAtomic("b"))
	require.True(t, ok)
	require.NotNil(t, c.ActivePrediction)
	assert.Equal(t, 1, c.ActivePrediction.ExpectedTime)
}

func TestForwardChainConfirmationRevisesImplicationUpward(t *testing.T) {
	s := Init(nil)
	teachImplication(t, s, term.MakeAtomic("a"), term.MakeAtomic("b"), 0.5, 0.5, 1)

	s.AddBelief(term.MakeAtomic("a"), truth.Value{Frequency: 1.0, Confidence: 0.9}, 0, true)
	s.Cycle(1)

	s.AddBelief(term.MakeAtomic("b"), truth.Value{Frequency: 1.0, Confidence: 0.9}, 1, true)
	s.Cycle(1)

	c, ok := s.Concepts.Get(term.MakeAtomic("b"))
	require.True(t, ok)
	var found bool
	c.IterateImplications(func(imp implication.Implication) bool {
		if term.Equal(imp.Precondition(), term.MakeAtomic("a")) {
			found = true
			assert.Greater(t, imp.Truth.Confidence, 0.5)
		}
		return true
	})
	assert.True(t, found)
	assert.Nil(t, c.ActivePrediction)
}

func TestMineSequencesAndImplicationsFromConsecutiveInputBeliefs(t *testing.T) {
	s := Init(nil)
	s.AddBelief(term.MakeAtomic("a"), truth.Value{Frequency: 1.0, Confidence: 0.9}, 0, true)
	s.Cycle(1)
	s.AddBelief(term.MakeAtomic("b"), truth.Value{Frequency: 1.0, Confidence: 0.9}, 1, true)
	s.Cycle(1)

	impTerm := term.MakeCompound(term.TemporalImplication, term.MakeAtomic("a"), term.MakeAtomic("b"))
	c, ok := s.Concepts.Get(term.MakeAtomic("b"))
	require.True(t, ok)
	var found bool
	c.IterateImplications(func(imp implication.Implication) bool {
		if term.Equal(imp.Term, impTerm) {
			found = true
		}
		return true
	})
	assert.True(t, found)
}

func TestProcessGoalEventExecutesOperationAboveThreshold(t *testing.T) {
	s := Init(nil)
	executed := false
	_, err := s.RegisterOperation("^left", func(operation.Args) error {
		executed = true
		return nil
	})
	require.NoError(t, err)

	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	teachImplication(t, s, seq, term.MakeAtomic("goal"), 1.0, 0.95, 1)
	s.AddBelief(term.MakeAtomic("red"), truth.Default, 5, true)
	s.Cycle(1)

	s.AddGoal(term.MakeAtomic("goal"), truth.Default, 5, true)
	s.Cycle(1)

	assert.True(t, executed)
	assert.Equal(t, "^left", s.LastExecutedOperation)
}

func TestProcessGoalEventDerivesSubgoalWhenNoOperationReady(t *testing.T) {
	s := Init(nil)
	teachImplication(t, s, term.MakeAtomic("sub"), term.MakeAtomic("goal"), 1.0, 0.9, 1)

	s.AddGoal(term.MakeAtomic("goal"), truth.Default, event.Eternal, true)
	s.Cycle(1)

	_, ok := s.Concepts.Get(term.MakeAtomic("sub"))
	assert.True(t, ok)
	assert.Equal(t, 1, s.GoalQueue.Len())
}

func TestAnticipationTimeoutRevisesImplicationDownward(t *testing.T) {
	s := Init(nil)
	teachImplication(t, s, term.MakeAtomic("a"), term.MakeAtomic("b"), 1.0, 0.9, 1)

	s.AddBelief(term.MakeAtomic("a"), truth.Value{Frequency: 1.0, Confidence: 0.9}, 0, true)
	s.Cycle(1)

	for i := 0; i < 20; i++ {
		s.Cycle(1)
	}

	c, ok := s.Concepts.Get(term.MakeAtomic("b"))
	require.True(t, ok)
	var found bool
	c.IterateImplications(func(imp implication.Implication) bool {
		if term.Equal(imp.Precondition(), term.MakeAtomic("a")) {
			found = true
			assert.Less(t, imp.Truth.Frequency, 1.0)
		}
		return true
	})
	assert.True(t, found)
}

func TestCycleAdvancesTimeAndDecaysPriority(t *testing.T) {
	s := Init(nil)
	s.AddBelief(term.MakeAtomic("a"), truth.Default, event.Eternal, true)
	c, ok := s.Concepts.Get(term.MakeAtomic("a"))
	require.True(t, ok)
	before := c.Priority

	s.Cycle(3)

	assert.Equal(t, 3, s.CurrentTime)
	assert.Less(t, c.Priority, before)
}

func TestDiagnosticsEmptyWhenVolumeAndDebugOff(t *testing.T) {
	s := Init(nil)
	_, err := s.RegisterOperation("^left", func(operation.Args) error { return nil })
	require.NoError(t, err)
	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	teachImplication(t, s, seq, term.MakeAtomic("goal"), 1.0, 0.95, 1)
	s.AddBelief(term.MakeAtomic("red"), truth.Default, 5, true)
	s.Cycle(1)

	s.AddGoal(term.MakeAtomic("goal"), truth.Default, 5, true)
	diag := s.Cycle(1)
	assert.Empty(t, diag)
}
