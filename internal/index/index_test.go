package index

import (
	"sort"
	"testing"

	"ona/internal/term"

	"github.com/stretchr/testify/assert"
)

func TestAddAndRelated(t *testing.T) {
	idx := New()
	idx.Add("red", term.MakeAtomic("red"))
	idx.Add("blue", term.MakeAtomic("blue"))

	related := idx.Related(term.MakeAtomic("red"), func() []string { return nil })
	assert.ElementsMatch(t, []string{"red"}, related)
}

func TestRelatedUnionsAcrossAtoms(t *testing.T) {
	idx := New()
	seq := term.MakeCompound(term.Sequence, term.MakeAtomic("red"), term.MakeAtomic("^left"))
	idx.Add(term.Format(seq), seq)
	idx.Add("blue", term.MakeAtomic("blue"))

	query := term.MakeCompound(term.Sequence, term.MakeAtomic("^left"), term.MakeAtomic("other"))
	related := idx.Related(query, func() []string { return nil })
	assert.Contains(t, related, term.Format(seq))
	assert.NotContains(t, related, "blue")
}

func TestRemove(t *testing.T) {
	idx := New()
	idx.Add("red-concept", term.MakeAtomic("red"))
	idx.Remove("red-concept", term.MakeAtomic("red"))

	related := idx.Related(term.MakeAtomic("red"), func() []string { return []string{"fallback"} })
	assert.Equal(t, []string{"fallback"}, related)
}

func TestRelatedFallsBackToAllKeysWhenEmpty(t *testing.T) {
	idx := New()
	related := idx.Related(term.MakeAtomic("red"), func() []string { return []string{"a", "b"} })
	sort.Strings(related)
	assert.Equal(t, []string{"a", "b"}, related)
}

func TestRelatedFallsBackForVariableOnlyTerm(t *testing.T) {
	idx := New()
	idx.Add("red", term.MakeAtomic("red"))

	related := idx.Related(term.MakeAtomic("$x"), func() []string { return []string{"all"} })
	assert.Equal(t, []string{"all"}, related)
}
