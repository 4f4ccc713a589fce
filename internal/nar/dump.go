package nar

import (
	"fmt"
	"sort"

	"ona/internal/conceptgraph"
	"ona/internal/implication"
	"ona/internal/term"
)

// highVolume is the threshold at or above which FormatConcepts also appends
// cyclic-implication warnings (spec §6: a procedural cycle "is
// a sign of a useless always-true precondition" and is only worth the
// noise at high diagnostic volume).
const highVolume = 50

// ConceptDump is one concept's canonical diagnostic snapshot, as produced
// by the *concepts protocol command (spec §6).
type ConceptDump struct {
	Key          string
	Priority     float64
	Usefulness   float64
	UseCount     int
	LastUsed     int
	BeliefFreq   float64
	BeliefConf   float64
	HasBelief    bool
	Implications []ImplicationDump

	// ImplicationLinks holds the concept's non-temporal implications: the
	// declarative ones received but never read by inference (spec §3.5).
	ImplicationLinks []ImplicationDump
}

// ImplicationDump is one stored implication's canonical line.
type ImplicationDump struct {
	Term       string
	Frequency  float64
	Confidence float64
	Offset     float64
}

// DumpConcepts returns every concept's diagnostic snapshot, ordered by
// conceptgraph.StableOrder (precondition concepts before the concepts
// their implications predict into, ties broken lexically) for stable,
// reproducible output across runs of the same input sequence.
func (s *State) DumpConcepts() []ConceptDump {
	keys, _ := s.orderedConceptKeys()

	out := make([]ConceptDump, 0, len(keys))
	for _, k := range keys {
		c, ok := s.Concepts.GetByKeyString(k)
		if !ok {
			continue
		}
		d := ConceptDump{
			Key:        k,
			Priority:   c.Priority,
			Usefulness: c.Usefulness,
			UseCount:   c.UseCount,
			LastUsed:   c.LastUsed,
		}
		if best := c.BestBelief(s.CurrentTime, s.Config.ProjectionDecay); best != nil {
			d.HasBelief = true
			d.BeliefFreq = best.Truth.Frequency
			d.BeliefConf = best.Truth.Confidence
		}

		var imps []implication.Implication
		c.IterateImplications(func(imp implication.Implication) bool {
			imps = append(imps, imp)
			return true
		})
		for _, imp := range imps {
			d.Implications = append(d.Implications, ImplicationDump{
				Term:       term.Format(imp.Term),
				Frequency:  imp.Truth.Frequency,
				Confidence: imp.Truth.Confidence,
				Offset:     imp.Offset,
			})
		}
		linkKeys := make([]string, 0, len(c.ImplicationLinks))
		for k := range c.ImplicationLinks {
			linkKeys = append(linkKeys, k)
		}
		sort.Strings(linkKeys)
		for _, k := range linkKeys {
			imp := c.ImplicationLinks[k]
			d.ImplicationLinks = append(d.ImplicationLinks, ImplicationDump{
				Term:       term.Format(imp.Term),
				Frequency:  imp.Truth.Frequency,
				Confidence: imp.Truth.Confidence,
				Offset:     imp.Offset,
			})
		}

		out = append(out, d)
	}
	return out
}

// orderedConceptKeys returns every concept key present in memory, ordered
// by conceptgraph.StableOrder, along with whichever implication
// edges that ordering found to be cyclic. StableOrder's graph also
// contains precondition concepts with no belief of their own (e.g. a
// variable pattern never directly asserted); those are filtered out here
// since DumpConcepts only describes concepts actually present in memory.
func (s *State) orderedConceptKeys() ([]string, []conceptgraph.Edge) {
	order, cyclic, err := conceptgraph.StableOrder(s.Concepts)
	if err != nil {
		order = s.Concepts.AllKeys()
	}
	keys := make([]string, 0, len(order))
	for _, k := range order {
		if _, ok := s.Concepts.GetByKeyString(k); ok {
			keys = append(keys, k)
		}
	}
	return keys, cyclic
}

// FormatConcepts renders DumpConcepts in the canonical *concepts text form:
// one line per concept, implications indented beneath it. At Config.Volume
// >= highVolume, cyclic implication edges found while ordering the
// dump are appended as trailing warning lines.
func (s *State) FormatConcepts() []string {
	_, cyclic := s.orderedConceptKeys()

	var lines []string
	for _, d := range s.DumpConcepts() {
		belief := "-"
		if d.HasBelief {
			belief = fmt.Sprintf("(%.3f,%.3f)", d.BeliefFreq, d.BeliefConf)
		}
		lines = append(lines, fmt.Sprintf("%s priority=%.3f usefulness=%.3f use_count=%d last_used=%d belief=%s",
			d.Key, d.Priority, d.Usefulness, d.UseCount, d.LastUsed, belief))
		for _, imp := range d.Implications {
			lines = append(lines, fmt.Sprintf("  %s (%.3f,%.3f) offset=%.1f", imp.Term, imp.Frequency, imp.Confidence, imp.Offset))
		}
		for _, link := range d.ImplicationLinks {
			lines = append(lines, fmt.Sprintf("  %s (%.3f,%.3f) [link]", link.Term, link.Frequency, link.Confidence))
		}
	}

	if s.Config.Volume >= highVolume {
		for _, e := range cyclic {
			lines = append(lines, fmt.Sprintf("CYCLE %s -> %s", e.From, e.To))
		}
	}
	return lines
}
