// Package unify implements NAL-6 variable unification and substitution:
// matching a pattern term (carrying $independent, #dependent, or ?query
// variables) against a concrete term, and applying the resulting bindings
// back onto a term.
package unify

import "ona/internal/term"

// Bindings maps a variable's atom string (including its prefix, e.g. "$x",
// "#y", "?z") to the term it is bound to within one unification problem.
type Bindings map[string]term.Term

// clone returns a shallow copy of b, so speculative extension during
// recursive unification never mutates a caller's map on failure.
func (b Bindings) clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Unify attempts to match pattern against concrete, returning the resulting
// bindings and whether unification succeeded. Either side may carry
// variables; a variable on one side binds to whatever term occupies the
// same position on the other side, consistently across every occurrence of
// that variable within this single call.
func Unify(pattern, concrete term.Term) (Bindings, bool) {
	return unify(pattern, concrete, Bindings{})
}

func unify(a, b term.Term, bindings Bindings) (Bindings, bool) {
	if a.IsVariable() {
		return bindVariable(a, b, bindings)
	}
	if b.IsVariable() {
		return bindVariable(b, a, bindings)
	}
	if a.IsAtomic() || b.IsAtomic() {
		if a.IsAtomic() && b.IsAtomic() && a.Atom == b.Atom {
			return bindings, true
		}
		return nil, false
	}
	if a.Copula != b.Copula {
		return nil, false
	}
	next, ok := unify(*a.Left, *b.Left, bindings)
	if !ok {
		return nil, false
	}
	return unify(*a.Right, *b.Right, next)
}

// bindVariable binds variable v's atom to target, consistently with any
// prior binding for the same atom within this unification problem: a
// second occurrence of the same variable must bind to a structurally equal
// term, per spec (independent variables) and identically for dependent
// variables ("same #x... bound to the same term in each occurrence").
func bindVariable(v, target term.Term, bindings Bindings) (Bindings, bool) {
	if existing, bound := bindings[v.Atom]; bound {
		if term.Equal(existing, target) {
			return bindings, true
		}
		return nil, false
	}
	out := bindings.clone()
	out[v.Atom] = target
	return out, true
}

// Substitute replaces every variable leaf of t with its bound term, leaving
// unbound variables and non-variable structure untouched.
func Substitute(t term.Term, bindings Bindings) term.Term {
	if t.IsAtomic() {
		if t.IsVariable() {
			if bound, ok := bindings[t.Atom]; ok {
				return bound
			}
		}
		return t
	}
	return term.MakeCompound(t.Copula, Substitute(*t.Left, bindings), Substitute(*t.Right, bindings))
}

// HasVariable reports whether t contains any variable leaf.
func HasVariable(t term.Term) bool {
	if t.IsAtomic() {
		return t.IsVariable()
	}
	return HasVariable(*t.Left) || HasVariable(*t.Right)
}
