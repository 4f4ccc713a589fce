// Package event implements the belief/goal event model: occurrence-timed,
// evidentially-stamped assertions deposited onto concepts and queued for
// the inference cycle.
package event

import (
	"sort"

	"github.com/google/uuid"

	"ona/internal/term"
	"ona/internal/truth"
)

// Kind distinguishes a belief (an assertion) from a goal (a desired state).
type Kind int

const (
	Belief Kind = iota
	Goal
)

// Eternal marks an event's OccurrenceTime when it carries no temporal
// anchor.
const Eternal = -1

// InputPriorityBonus is added to an input event's expectation-derived
// priority, per spec: "Priority of an event = E(truth) + (input? ? 0.1 : 0)".
const InputPriorityBonus = 0.1

// Stamp is an evidential base: the set of stamp IDs an event's truth value
// rests on. Revision rejects combining two events whose stamps overlap, to
// avoid double-counting the same evidence.
type Stamp map[int]bool

// NewStamp builds a Stamp from one or more stamp IDs.
func NewStamp(ids ...int) Stamp {
	s := make(Stamp, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// Overlaps reports whether a and b share any stamp ID.
func (a Stamp) Overlaps(b Stamp) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for id := range small {
		if big[id] {
			return true
		}
	}
	return false
}

// Union returns a new Stamp containing every ID in a or b.
func (a Stamp) Union(b Stamp) Stamp {
	out := make(Stamp, len(a)+len(b))
	for id := range a {
		out[id] = true
	}
	for id := range b {
		out[id] = true
	}
	return out
}

// IDs returns the stamp's members in ascending order, for deterministic
// diagnostics output.
func (a Stamp) IDs() []int {
	ids := make([]int, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Event is a belief or goal about a term, anchored to an occurrence time
// (or Eternal) and resting on a Stamp of evidence.
type Event struct {
	Term           term.Term
	Kind           Kind
	Truth          truth.Value
	Stamp          Stamp
	OccurrenceTime int
	CreationTime   int
	Input          bool
	Executed       bool
	// InsertionSeq records the event's submission order, for callers that
	// want it independent of which queue (if any) the event ends up in;
	// the queue package keeps its own internal sequence for pop ordering
	// and does not read this field.
	InsertionSeq int
	// UUID identifies the event for log correlation across a restart. It
	// plays no part in ordering or stamp-overlap arithmetic, both of which
	// stay on the monotonic Stamp/InsertionSeq counters.
	UUID string
}

// NewUUID returns a fresh random identifier for an event or prediction's
// UUID field.
func NewUUID() string {
	return uuid.NewString()
}

// IsEternal reports whether e carries no occurrence time.
func (e Event) IsEternal() bool {
	return e.OccurrenceTime == Eternal
}

// Priority is E(truth) + (Input ? 0.1 : 0).
func (e Event) Priority() float64 {
	p := truth.Expectation(e.Truth)
	if e.Input {
		p += InputPriorityBonus
	}
	return p
}

// Project returns a copy of e re-anchored to targetTime, with confidence
// decayed by beta per tick of distance travelled. Eternal events are
// returned unchanged.
func (e Event) Project(targetTime int, beta float64) Event {
	if e.IsEternal() {
		return e
	}
	dt := float64(targetTime - e.OccurrenceTime)
	out := e
	out.Truth = truth.Project(e.Truth, dt, beta)
	out.OccurrenceTime = targetTime
	return out
}

// EventBeliefDistance bounds how far in the past a belief spike may be and
// still override the eternal belief in SelectBelief.
const EventBeliefDistance = 20

// SelectBelief picks the best available belief for reasoning "now":
// the spike (projected to now) if it is recent enough
// (now-spike.OccurrenceTime <= EventBeliefDistance), else the eternal
// belief. If only one of the two is present, that one is returned.
func SelectBelief(eternal, spike *Event, now int, beta float64) *Event {
	if eternal == nil {
		return spike
	}
	if spike == nil {
		return eternal
	}
	if now-spike.OccurrenceTime <= EventBeliefDistance {
		projected := spike.Project(now, beta)
		return &projected
	}
	return eternal
}

// Revise merges two events about the same term into one whose stamp is the
// union of both bases, provided the bases are disjoint (spec: revision
// rejected, not performed, on overlap — callers should check Stamp.Overlaps
// first and skip revision entirely rather than call Revise).
func Revise(e1, e2 Event, k float64) Event {
	out := e1
	out.Truth = truth.Revision(e1.Truth, e2.Truth, k)
	out.Stamp = e1.Stamp.Union(e2.Stamp)
	if e2.CreationTime > out.CreationTime {
		out.CreationTime = e2.CreationTime
	}
	return out
}
