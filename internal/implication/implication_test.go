package implication

import (
	"testing"

	"ona/internal/event"
	"ona/internal/term"
	"ona/internal/truth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTerm() term.Term {
	return term.MakeCompound(term.TemporalImplication, term.MakeAtomic("red"), term.MakeAtomic("^left"))
}

func TestNewPanicsOnNonImplication(t *testing.T) {
	assert.Panics(t, func() {
		New(term.MakeAtomic("red"), truth.Default, event.NewStamp(1), 1, 0)
	})
}

func TestPreconditionPostcondition(t *testing.T) {
	imp := New(testTerm(), truth.Default, event.NewStamp(1), 2, 0)
	assert.True(t, term.Equal(imp.Precondition(), term.MakeAtomic("red")))
	assert.True(t, term.Equal(imp.Postcondition(), term.MakeAtomic("^left")))
}

func TestReviseAveragesOffsetAndUnionsStamp(t *testing.T) {
	i1 := New(testTerm(), truth.Value{Frequency: 0.9, Confidence: 0.8}, event.NewStamp(1), 2, 1)
	i2 := New(testTerm(), truth.Value{Frequency: 0.7, Confidence: 0.6}, event.NewStamp(2), 6, 5)

	r := Revise(i1, i2, truth.DefaultEvidentialHorizon)
	assert.InDelta(t, 4, r.Offset, 1e-9)
	assert.Equal(t, 5, r.CreationTime)
	assert.ElementsMatch(t, []int{1, 2}, r.Stamp.IDs())

	require.GreaterOrEqual(t, r.Truth.Confidence, i1.Truth.Confidence)
}
