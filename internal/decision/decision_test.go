package decision

import (
	"math/rand"
	"testing"

	"ona/internal/concept"
	"ona/internal/config"
	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/operation"
	"ona/internal/term"
	"ona/internal/truth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*concept.Memory, *operation.Registry) {
	t.Helper()
	ops := operation.New()
	_, err := ops.Register("^left", func(operation.Args) error { return nil })
	require.NoError(t, err)
	mem := concept.New(ops, 1000)
	return mem, ops
}

func teachImplication(t *testing.T, mem *concept.Memory, precondition, postcondition term.Term, freq, conf float64, stampID int) {
	t.Helper()
	impTerm := term.MakeCompound(term.TemporalImplication, precondition, postcondition)
	imp := implication.New(impTerm, truth.Value{Frequency: freq, Confidence: conf}, event.NewStamp(stampID), 1, 0)
	mem.AddImplication(imp, truth.DefaultEvidentialHorizon)
}

func depositSpike(mem *concept.Memory, t term.Term, now int) {
	mem.AddEvent(event.Event{Term: t, Kind: event.Belief, Truth: truth.Default, OccurrenceTime: now}, now, truth.DefaultEvidentialHorizon)
}

func TestDecideSelectsMatchingPrecondition(t *testing.T) {
	mem, ops := setup(t)
	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	teachImplication(t, mem, seq, term.MakeAtomic("goal"), 1.0, 0.9, 1)
	depositSpike(mem, term.MakeAtomic("red"), 5)

	cfg := config.Default()
	goal := event.Event{Term: term.MakeAtomic("goal"), Truth: truth.Default, OccurrenceTime: 5}
	d := Decide(mem, ops, goal, 5, cfg, rand.New(rand.NewSource(1)))

	assert.True(t, term.Equal(d.OperationTerm, term.MakeAtomic("^left")))
	assert.GreaterOrEqual(t, d.Desire, cfg.DecisionThreshold)
	assert.True(t, d.Execute)
}

func TestDecideNoMatchReturnsNull(t *testing.T) {
	mem, ops := setup(t)
	cfg := config.Default()
	goal := event.Event{Term: term.MakeAtomic("goal"), Truth: truth.Default, OccurrenceTime: 5}
	d := Decide(mem, ops, goal, 5, cfg, rand.New(rand.NewSource(1)))
	assert.Equal(t, Null, d)
}

func TestDecideRequiresRecentSpike(t *testing.T) {
	mem, ops := setup(t)
	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	teachImplication(t, mem, seq, term.MakeAtomic("goal"), 1.0, 0.9, 1)
	depositSpike(mem, term.MakeAtomic("red"), 0)

	cfg := config.Default()
	goal := event.Event{Term: term.MakeAtomic("goal"), Truth: truth.Default, OccurrenceTime: 100}
	d := Decide(mem, ops, goal, 100, cfg, rand.New(rand.NewSource(1)))
	assert.Equal(t, Null, d)
}

func TestDecideHigherSpecificityWins(t *testing.T) {
	mem, ops := setup(t)
	_, err := ops.Register("^right", func(operation.Args) error { return nil })
	require.NoError(t, err)

	simple := term.MakeCompound(term.Sequence, term.MakeAtomic("bright"), term.MakeAtomic("^right"))
	teachImplication(t, mem, simple, term.MakeAtomic("goal"), 1.0, 0.9, 1)

	compound := term.MakeCompound(term.Sequence,
		term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("bright")),
		term.MakeAtomic("^left"))
	teachImplication(t, mem, compound, term.MakeAtomic("goal"), 1.0, 0.9, 2)

	depositSpike(mem, term.MakeAtomic("bright"), 5)
	depositSpike(mem, term.MakeAtomic("red"), 5)

	cfg := config.Default()
	goal := event.Event{Term: term.MakeAtomic("goal"), Truth: truth.Default, OccurrenceTime: 5}
	d := Decide(mem, ops, goal, 5, cfg, rand.New(rand.NewSource(1)))

	assert.True(t, term.Equal(d.OperationTerm, term.MakeAtomic("^left")))
	assert.Equal(t, 2, d.Specificity)
}

func TestMotorBabblingFiresWhenEnabledAndNoGoodCandidate(t *testing.T) {
	mem, ops := setup(t)
	cfg := config.Default()
	cfg.MotorBabblingEnabled = true
	cfg.MotorBabblingChance = 1.0

	goal := event.Event{Term: term.MakeAtomic("goal"), Truth: truth.Default, OccurrenceTime: 5}
	d := Decide(mem, ops, goal, 5, cfg, rand.New(rand.NewSource(1)))

	assert.True(t, d.Execute)
	assert.InDelta(t, 0.6, d.Desire, 1e-9)
	assert.True(t, term.Equal(d.OperationTerm, term.MakeAtomic("^left")))
}

func TestMotorBabblingSuppressedByStrongCandidate(t *testing.T) {
	mem, ops := setup(t)
	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	teachImplication(t, mem, seq, term.MakeAtomic("goal"), 1.0, 0.95, 1)
	depositSpike(mem, term.MakeAtomic("red"), 5)

	cfg := config.Default()
	cfg.MotorBabblingEnabled = true
	cfg.MotorBabblingChance = 1.0

	goal := event.Event{Term: term.MakeAtomic("goal"), Truth: truth.Default, OccurrenceTime: 5}
	d := Decide(mem, ops, goal, 5, cfg, rand.New(rand.NewSource(1)))

	assert.True(t, term.Equal(d.OperationTerm, term.MakeAtomic("^left")))
	assert.NotEqual(t, 0.6, d.Desire)
}
