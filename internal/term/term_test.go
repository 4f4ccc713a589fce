package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAtomicAndCompound(t *testing.T) {
	a := MakeAtomic("red")
	require.True(t, a.IsAtomic())
	assert.False(t, a.IsCompound())
	assert.Equal(t, "red", a.Atom)

	c := MakeCompound(Inherit, MakeAtomic("s"), MakeAtomic("p"))
	require.True(t, c.IsCompound())
	assert.Equal(t, "s", c.Subject().Atom)
	assert.Equal(t, "p", c.Predicate().Atom)
}

func TestVarKind(t *testing.T) {
	tests := []struct {
		atom string
		want VarKind
	}{
		{"$x", Independent},
		{"#y", Dependent},
		{"?z", Query},
		{"plain", NotVariable},
		{"^op", NotVariable},
	}
	for _, tt := range tests {
		got := MakeAtomic(tt.atom).VarKind()
		assert.Equalf(t, tt.want, got, "atom %q", tt.atom)
	}
}

func TestIsOperation(t *testing.T) {
	assert.True(t, MakeAtomic("^left").IsOperation())
	assert.False(t, MakeAtomic("left").IsOperation())
	c := MakeCompound(Sequence, MakeAtomic("a"), MakeAtomic("^left"))
	assert.False(t, c.IsOperation())
}

func TestSequenceLength(t *testing.T) {
	a := MakeAtomic("a")
	assert.Equal(t, 1, a.SequenceLength())

	seq2 := MakeCompound(Sequence, MakeAtomic("a"), MakeAtomic("b"))
	assert.Equal(t, 2, seq2.SequenceLength())

	seq3 := MakeCompound(Sequence, seq2, MakeAtomic("c"))
	assert.Equal(t, 3, seq3.SequenceLength())
}

func TestRightmostLeafAndExtractOperation(t *testing.T) {
	seq := MakeCompound(Sequence, MakeAtomic("red"), MakeAtomic("^left"))
	assert.Equal(t, "^left", seq.RightmostLeaf().Atom)

	op, remainder, ok := ExtractRightmostOperation(seq)
	require.True(t, ok)
	assert.Equal(t, "^left", op.Atom)
	assert.Equal(t, "red", remainder.Atom)

	_, _, ok = ExtractRightmostOperation(MakeAtomic("red"))
	assert.False(t, ok)
}

func TestStripOperationsFromPrecondition(t *testing.T) {
	inner := MakeCompound(Sequence, MakeAtomic("red"), MakeAtomic("^left"))
	outer := MakeCompound(Sequence, inner, MakeAtomic("^right"))

	stripped := StripOperationsFromPrecondition(outer)
	assert.True(t, Equal(stripped, MakeAtomic("red")))

	// Non-operation sequences are left untouched.
	plain := MakeCompound(Sequence, MakeAtomic("a"), MakeAtomic("b"))
	assert.True(t, Equal(StripOperationsFromPrecondition(plain), plain))
}

func TestFlattenSequence(t *testing.T) {
	seq := MakeCompound(Sequence,
		MakeCompound(Sequence, MakeAtomic("a"), MakeAtomic("b")),
		MakeAtomic("c"))
	leaves := FlattenSequence(seq)
	require.Len(t, leaves, 3)
	assert.Equal(t, "a", leaves[0].Atom)
	assert.Equal(t, "b", leaves[1].Atom)
	assert.Equal(t, "c", leaves[2].Atom)

	assert.Len(t, FlattenSequence(MakeAtomic("solo")), 1)
}

func TestEqual(t *testing.T) {
	a := MakeCompound(Inherit, MakeAtomic("s"), MakeAtomic("p"))
	b := MakeCompound(Inherit, MakeAtomic("s"), MakeAtomic("p"))
	assert.True(t, Equal(a, b))

	c := MakeCompound(Inherit, MakeAtomic("s"), MakeAtomic("q"))
	assert.False(t, Equal(a, c))

	d := MakeCompound(Implication, MakeAtomic("s"), MakeAtomic("p"))
	assert.False(t, Equal(a, d))
}

func TestConceptKey(t *testing.T) {
	inh := MakeCompound(Inherit, MakeAtomic("context"), MakeAtomic("goal"))
	assert.True(t, Equal(ConceptKey(inh), MakeAtomic("context")))

	impl := MakeCompound(TemporalImplication, MakeAtomic("a"), MakeAtomic("b"))
	assert.True(t, Equal(ConceptKey(impl), impl))

	atomic := MakeAtomic("red")
	assert.True(t, Equal(ConceptKey(atomic), atomic))
}

func TestAtomsIgnoresVariablesAndDedupes(t *testing.T) {
	seq := MakeCompound(Sequence, MakeAtomic("red"), MakeAtomic("$x"))
	impl := MakeCompound(TemporalImplication, seq, MakeAtomic("red"))
	atoms := Atoms(impl)
	assert.Equal(t, []string{"red"}, atoms)
}

func TestIntern(t *testing.T) {
	before := InternedCount()
	s1 := Intern("unique-atom-for-intern-test")
	s2 := Intern("unique-atom-for-intern-test")
	assert.Equal(t, s1, s2)
	assert.Greater(t, InternedCount(), before-1)
}
