// Package nar implements the top-level NAR state and its public API: the
// single mutable container the reasoning core holds, and the lifecycle
// operations (init, reset, set_config, register_operation, add_belief,
// add_goal, ask, cycle, stats) a host shell drives it through.
package nar

import (
	"math/rand"

	"ona/internal/concept"
	"ona/internal/config"
	"ona/internal/operation"
	"ona/internal/prediction"
	"ona/internal/queue"
)

// anticipation links a pending Prediction back to the concept key that
// actually holds it (the predicted postcondition's concept, post
// substitution — not necessarily the concept the source implication is
// stored under), so the NAR-level "active anticipations list" (spec §3.8)
// can be checked every cycle regardless of whether a confirming belief
// ever arrives for that term.
type anticipation struct {
	prediction *prediction.Prediction
	conceptKey string
}

// State is the sole mutable container the core holds (spec §3.8, §5
// "shared resources"): concept map, both cycling priority queues, the
// current-time and stamp-ID counters, the operations table, the inverted
// atom index (owned by Concepts), the active anticipations list, the
// deterministic RNG, the configuration, and the last-executed operation
// name.
type State struct {
	Config *config.Config

	Concepts *concept.Memory
	Ops      *operation.Registry

	BeliefQueue *queue.Queue
	GoalQueue   *queue.Queue

	CurrentTime int
	nextStampID int
	nextEventID int

	rng *rand.Rand

	anticipations []*anticipation

	// LastExecutedOperation is the atom name of the most recently executed
	// operation, observable for tests (spec §4.I).
	LastExecutedOperation string
}

// Init creates a fresh State from cfg. A nil cfg uses config.Default().
func Init(cfg *config.Config) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	return newState(cfg)
}

func newState(cfg *config.Config) *State {
	ops := operation.New()
	return &State{
		Config:      cfg,
		Concepts:    concept.New(ops, cfg.ConceptsMax),
		Ops:         ops,
		BeliefQueue: queue.New(cfg.CyclingBeliefEventsMax),
		GoalQueue:   queue.New(cfg.CyclingGoalEventsMax),
		CurrentTime: cfg.CurrentTime,
		nextStampID: cfg.StampID,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Reset discards concept memory, queues, the operation registry, the RNG
// stream, and every pending anticipation, keeping only the configuration —
// "fresh state with same configuration" (spec §3.8). Registered operations
// do not survive reset: they were established after init, the same way a
// fresh init would require the host to re-register them.
func (s *State) Reset() {
	fresh := newState(s.Config)
	*s = *fresh
}

// nextStamp returns the next evidential stamp ID and advances the counter.
func (s *State) nextStamp() int {
	id := s.nextStampID
	s.nextStampID++
	return id
}

// nextEvent returns the next submission-order sequence number and advances
// the counter. Distinct from nextStamp: stamp IDs are an evidential
// namespace, this is arrival order.
func (s *State) nextEvent() int {
	id := s.nextEventID
	s.nextEventID++
	return id
}
