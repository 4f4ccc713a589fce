// Package concept implements concept memory: the per-term memory cell
// holding beliefs, predictions, and the eleven operation-indexed implication
// tables the inference cycle and decision maker search.
package concept

import (
	"sort"

	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/index"
	"ona/internal/operation"
	"ona/internal/prediction"
	"ona/internal/term"
)

// TableCount is the number of operation-indexed implication tables per
// concept: index 0 for declarative implications, 1..10 for procedural
// implications whose precondition ends in the operation with that ID.
const TableCount = operation.OperationsMax + 1

// DefaultPriority is the priority assigned to a newly created concept.
const DefaultPriority = 0.5

// PriorityBump is added (and clipped to 1.0) to a concept's priority every
// time an event is deposited on it.
const PriorityBump = 0.1

// Concept is the memory cell for one concept key: a belief/goal term, or
// (for inheritance terms) the subject of the inheritance.
type Concept struct {
	Key        term.Term
	Priority   float64
	Usefulness float64
	UseCount   int
	LastUsed   int

	Belief           *event.Event
	BeliefSpike      *event.Event
	PredictedBelief  *event.Event
	ActivePrediction *prediction.Prediction

	// PreconditionBeliefs holds the eleven operation-indexed implication
	// tables, each keyed by the implication term's canonical string.
	PreconditionBeliefs [TableCount]map[string]implication.Implication

	// ImplicationLinks holds non-temporal implications, received but not
	// exercised by inference.
	ImplicationLinks map[string]implication.Implication
}

func newConcept(key term.Term) *Concept {
	c := &Concept{Key: key, Priority: DefaultPriority, ImplicationLinks: make(map[string]implication.Implication)}
	for i := range c.PreconditionBeliefs {
		c.PreconditionBeliefs[i] = make(map[string]implication.Implication)
	}
	return c
}

// BestBelief returns the concept's most informative belief for reasoning
// "now": the belief spike if recent, else the eternal belief, else
// whichever is present, else nil.
func (c *Concept) BestBelief(now int, beta float64) *event.Event {
	return event.SelectBelief(c.Belief, c.BeliefSpike, now, beta)
}

// Memory is the thread-unsafe concept table (NAR state is single-owner per
// spec §5: "non-reentrant, single mutable borrow at a time", so Memory does
// not lock internally; callers serialize access to one NAR instance).
type Memory struct {
	concepts map[string]*Concept
	order    []string // insertion order, used only to break eviction ties deterministically
	index    *index.Index
	ops      *operation.Registry

	maxConcepts int
}

// New creates an empty Memory bounded at maxConcepts concepts, using ops to
// compute operation-index placement for stored implications.
func New(ops *operation.Registry, maxConcepts int) *Memory {
	return &Memory{
		concepts:    make(map[string]*Concept),
		index:       index.New(),
		ops:         ops,
		maxConcepts: maxConcepts,
	}
}

// Index exposes the inverted atom index for use by the inference cycle's
// forward-chaining step.
func (m *Memory) Index() *index.Index { return m.index }

// Count reports how many concepts currently exist.
func (m *Memory) Count() int { return len(m.concepts) }

// AllKeys returns every concept's key string, used as the inverted index's
// fallback when a query term has no atomic leaves.
func (m *Memory) AllKeys() []string {
	out := make([]string, 0, len(m.concepts))
	for k := range m.concepts {
		out = append(out, k)
	}
	return out
}

// Get looks up a concept by its already-computed key term, without
// creating it.
func (m *Memory) Get(key term.Term) (*Concept, bool) {
	c, ok := m.concepts[term.Format(key)]
	return c, ok
}

// GetByKeyString looks up a concept by its canonical key string, as stored
// in the inverted index.
func (m *Memory) GetByKeyString(key string) (*Concept, bool) {
	c, ok := m.concepts[key]
	return c, ok
}

// GetOrCreate returns the concept for key, creating an empty one (priority
// 0.5, eleven empty tables) and registering it with the inverted atom index
// if it did not already exist. Creation may evict the least useful concept
// if the table is at capacity.
func (m *Memory) GetOrCreate(key term.Term) *Concept {
	ks := term.Format(key)
	if c, ok := m.concepts[ks]; ok {
		return c
	}

	if m.maxConcepts > 0 && len(m.concepts) >= m.maxConcepts {
		m.evictLeastUseful()
	}

	c := newConcept(key)
	m.concepts[ks] = c
	m.order = append(m.order, ks)
	m.index.Add(ks, key)
	return c
}

// evictLeastUseful removes the concept with the smallest priority*usefulness
// product, per spec §5 resource bounds. Ties break toward the
// earliest-inserted concept still present.
func (m *Memory) evictLeastUseful() {
	var worstKey string
	worstScore := 0.0
	found := false
	for _, ks := range m.order {
		c, ok := m.concepts[ks]
		if !ok {
			continue
		}
		score := c.Priority * c.Usefulness
		if !found || score < worstScore {
			found = true
			worstScore = score
			worstKey = ks
		}
	}
	if !found {
		return
	}
	c := m.concepts[worstKey]
	m.index.Remove(worstKey, c.Key)
	delete(m.concepts, worstKey)
	m.order = removeString(m.order, worstKey)
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// AddEvent deposits ev onto the concept keyed by ev.Term's concept key. An
// eternal event revises into (or replaces) the concept's Belief, rejecting
// the revision on stamp overlap; a non-eternal event replaces BeliefSpike
// outright (spikes are not revised, only superseded, per the belief-spike
// role of "most recent temporal belief"). Returns the affected concept.
func (m *Memory) AddEvent(ev event.Event, now int, k float64) *Concept {
	key := term.ConceptKey(ev.Term)
	c := m.GetOrCreate(key)

	if ev.IsEternal() {
		switch {
		case c.Belief == nil:
			stored := ev
			c.Belief = &stored
		case !c.Belief.Stamp.Overlaps(ev.Stamp):
			revised := event.Revise(*c.Belief, ev, k)
			c.Belief = &revised
		}
		// else: StampOverlap guard, revision silently skipped.
	} else {
		stored := ev
		c.BeliefSpike = &stored
	}

	c.Priority = clip01(c.Priority + PriorityBump)
	c.UseCount++
	c.LastUsed = now
	return c
}

// opIndex computes the operation-index (0..10) for a temporal implication's
// term: 0 unless the precondition is a sequence whose rightmost leaf is a
// registered operation, in which case it is that operation's ID.
func (m *Memory) opIndex(impTerm term.Term) int {
	pre := impTerm.Subject()
	op, _, ok := term.ExtractRightmostOperation(pre)
	if !ok {
		return 0
	}
	registered, found := m.ops.GetByName(op.Atom)
	if !found {
		return 0
	}
	return registered.ID
}

// AddImplication stores imp under its postcondition's concept, in the table
// selected by its operation index. An existing implication with the same
// term is revised in place (subject to the stamp-overlap guard); otherwise
// imp is inserted fresh. The postcondition's concept is also indexed under
// the precondition's atoms, not just its own key's, so forward chaining's
// Related(precondition-bearing event) lookup finds it even though the
// concept is keyed by the postcondition.
func (m *Memory) AddImplication(imp implication.Implication, k float64) *Concept {
	key := term.ConceptKey(imp.Postcondition())
	c := m.GetOrCreate(key)
	m.index.Add(term.Format(key), imp.Precondition())
	tableIdx := m.opIndex(imp.Term)
	table := c.PreconditionBeliefs[tableIdx]

	ts := term.Format(imp.Term)
	if existing, ok := table[ts]; ok {
		if !existing.Stamp.Overlaps(imp.Stamp) {
			table[ts] = implication.Revise(existing, imp, k)
		}
		return c
	}
	table[ts] = imp
	return c
}

// AddImplicationLink stores a non-temporal <A ==> B> belief under its
// postcondition's concept, the same placement convention AddImplication
// uses for temporal implications, subject to the same stamp-overlap guard.
// Unlike PreconditionBeliefs, ImplicationLinks is never read by forward
// chaining or the decision maker: these are declarative implications,
// received but not exercised by inference.
func (m *Memory) AddImplicationLink(imp implication.Implication, k float64) *Concept {
	key := term.ConceptKey(imp.Postcondition())
	c := m.GetOrCreate(key)

	ts := term.Format(imp.Term)
	if existing, ok := c.ImplicationLinks[ts]; ok {
		if !existing.Stamp.Overlaps(imp.Stamp) {
			c.ImplicationLinks[ts] = implication.Revise(existing, imp, k)
		}
		return c
	}
	c.ImplicationLinks[ts] = imp
	return c
}

// ReplaceImplication overwrites the stored implication sharing imp's term
// with imp itself, unconditionally: no stamp-overlap guard, no revision.
// Used when a caller (prediction confirmation/refutation/timeout handling)
// has already computed the new truth externally — going through
// AddImplication there would find the old entry's stamp identical to the
// new one's (revision only ever changes Truth, never Stamp) and reject the
// update as a self-overlap.
func (m *Memory) ReplaceImplication(imp implication.Implication) *Concept {
	key := term.ConceptKey(imp.Postcondition())
	c := m.GetOrCreate(key)
	m.index.Add(term.Format(key), imp.Precondition())
	tableIdx := m.opIndex(imp.Term)
	c.PreconditionBeliefs[tableIdx][term.Format(imp.Term)] = imp
	return c
}

// IterateImplications walks all eleven tables in order, yielding every
// stored implication sorted by its term's canonical string within each
// table (map iteration order is otherwise randomized per process, which
// would break the cycle-by-cycle determinism spec §5 requires). Used by
// queries and by forward chaining when declarative (table 0) implications
// are in scope.
func (c *Concept) IterateImplications(yield func(implication.Implication) bool) {
	for _, table := range c.PreconditionBeliefs {
		if !iterateSorted(table, yield) {
			return
		}
	}
}

func iterateSorted(table map[string]implication.Implication, yield func(implication.Implication) bool) bool {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !yield(table[k]) {
			return false
		}
	}
	return true
}

// IterateProcedural walks tables 1..10 only, skipping declarative table 0.
// Used by the decision maker, for which table 0 is never a source of
// executable decisions.
func (c *Concept) IterateProcedural(yield func(implication.Implication) bool) {
	for i := 1; i < TableCount; i++ {
		if !iterateSorted(c.PreconditionBeliefs[i], yield) {
			return
		}
	}
}

func clip01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// DecayPriorities multiplies every concept's priority by durability, applied
// once per cycle (spec: CONCEPT_DURABILITY=0.9).
func (m *Memory) DecayPriorities(durability float64) {
	for _, c := range m.concepts {
		c.Priority *= durability
	}
}
