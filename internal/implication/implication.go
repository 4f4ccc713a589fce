// Package implication implements the temporal implication model: <A =/> B>
// with an associated truth, evidential stamp, and the mean time offset
// observed between precondition and postcondition occurrences.
package implication

import (
	"fmt"

	"ona/internal/event"
	"ona/internal/term"
	"ona/internal/truth"
)

// Implication is a stored <A =/> B> with its truth, evidential base, and
// the offset (postcondition time - precondition time) observed when it was
// formed.
type Implication struct {
	Term         term.Term
	Truth        truth.Value
	Stamp        event.Stamp
	Offset       float64
	CreationTime int
}

// New constructs an Implication. It panics if t is not a temporal
// implication: a malformed caller is a bug, not a recoverable input error
// (see spec §7: "any internally-raised invariant violation... is a bug").
func New(t term.Term, tv truth.Value, stamp event.Stamp, offset float64, creationTime int) Implication {
	if t.Copula != term.TemporalImplication {
		panic(fmt.Sprintf("implication.New: term %q is not a temporal implication", term.Format(t)))
	}
	return Implication{Term: t, Truth: tv, Stamp: stamp, Offset: offset, CreationTime: creationTime}
}

// Precondition is the implication's subject.
func (i Implication) Precondition() term.Term {
	return i.Term.Subject()
}

// Postcondition is the implication's predicate.
func (i Implication) Postcondition() term.Term {
	return i.Term.Predicate()
}

// Revise combines two implications of the same term: truths revise, the
// offset is the arithmetic mean of both observed offsets, the stamp is the
// union of both bases, and the later creation time is kept. Callers must
// check for stamp overlap (via Stamp.Overlaps) before calling Revise and
// skip the revision entirely on overlap, per the StampOverlap guard in
// spec §7 — Revise itself always unions, it does not check.
func Revise(i1, i2 Implication, k float64) Implication {
	out := i1
	out.Truth = truth.Revision(i1.Truth, i2.Truth, k)
	out.Stamp = i1.Stamp.Union(i2.Stamp)
	out.Offset = (i1.Offset + i2.Offset) / 2
	if i2.CreationTime > out.CreationTime {
		out.CreationTime = i2.CreationTime
	}
	return out
}
