package unify

import (
	"fmt"
	"sort"

	"ona/internal/term"
)

// Generalize implements the optional variable-introduction pass (spec §9,
// open question 4): given an implication term <L =/> R>, atoms occurring on
// both sides become the same fresh independent variable $n; atoms occurring
// two or more times on only one side become the same fresh dependent
// variable #n. Operation atoms are never renamed, so the generalized
// implication keeps its original operation-index table placement. Atoms
// occurring exactly once on exactly one side are left as literals.
//
// Generalize panics if t is not a temporal or atemporal implication: callers
// decide whether to invoke this pass at all (Config.VariableIntroduction);
// calling it on the wrong shape is a programming error.
func Generalize(t term.Term) term.Term {
	if t.Copula != term.TemporalImplication && t.Copula != term.Implication {
		panic(fmt.Sprintf("unify.Generalize: term %q is not an implication", term.Format(t)))
	}

	left, right := *t.Left, *t.Right
	leftCounts := countAtoms(left)
	rightCounts := countAtoms(right)

	rename := make(map[string]term.Term)
	n := 0

	leftAtoms := make([]string, 0, len(leftCounts))
	for atom := range leftCounts {
		leftAtoms = append(leftAtoms, atom)
	}
	sort.Strings(leftAtoms)

	for _, atom := range leftAtoms {
		if isOperationAtom(atom) {
			continue
		}
		lc := leftCounts[atom]
		rc := rightCounts[atom]
		switch {
		case lc > 0 && rc > 0:
			rename[atom] = term.MakeAtomic(fmt.Sprintf("$%d", n))
			n++
		case lc >= 2:
			rename[atom] = term.MakeAtomic(fmt.Sprintf("#%d", n))
			n++
		}
	}

	rightAtoms := make([]string, 0, len(rightCounts))
	for atom := range rightCounts {
		rightAtoms = append(rightAtoms, atom)
	}
	sort.Strings(rightAtoms)

	for _, atom := range rightAtoms {
		if isOperationAtom(atom) {
			continue
		}
		rc := rightCounts[atom]
		if _, already := rename[atom]; already {
			continue
		}
		if rc >= 2 {
			rename[atom] = term.MakeAtomic(fmt.Sprintf("#%d", n))
			n++
		}
	}

	return term.MakeCompound(t.Copula, renameAtoms(left, rename), renameAtoms(right, rename))
}

func isOperationAtom(atom string) bool {
	return len(atom) > 0 && atom[0] == '^'
}

func countAtoms(t term.Term) map[string]int {
	counts := make(map[string]int)
	var walk func(term.Term)
	walk = func(cur term.Term) {
		if cur.IsAtomic() {
			if cur.VarKind() == term.NotVariable && !cur.IsOperation() {
				counts[cur.Atom]++
			}
			return
		}
		walk(*cur.Left)
		walk(*cur.Right)
	}
	walk(t)
	return counts
}

func renameAtoms(t term.Term, rename map[string]term.Term) term.Term {
	if t.IsAtomic() {
		if replacement, ok := rename[t.Atom]; ok {
			return replacement
		}
		return t
	}
	return term.MakeCompound(t.Copula, renameAtoms(*t.Left, rename), renameAtoms(*t.Right, rename))
}
