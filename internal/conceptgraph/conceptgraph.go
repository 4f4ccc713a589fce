// Package conceptgraph renders concept memory's stored implications (all
// eleven tables, declarative and procedural) as a directed graph of concept
// keys, used by the diagnostic dump (spec.md §6 "*concepts") to present a
// stable ordering and flag cyclic implications. It never participates in the inference cycle itself:
// forward chaining's related-concept lookup stays on the inverted atom
// index, exactly as before this package existed.
package conceptgraph

import (
	"errors"
	"sort"

	"github.com/dominikbraun/graph"

	"ona/internal/concept"
	"ona/internal/implication"
	"ona/internal/term"
)

// Edge is one precondition-concept -> postcondition-concept link mined
// from a concept's implication tables (table 0 included).
type Edge struct {
	From string
	To   string
}

// Build constructs a directed graph whose vertices are concept key
// strings and whose edges run from an implication's precondition concept
// to the postcondition concept it is stored under. cyclic reports which
// edges closed a cycle at the moment they were added — spec.md calls a
// procedural cycle "a sign of a useless always-true precondition",
// surfaced as a diagnostic rather than rejected.
func Build(mem *concept.Memory) (g graph.Graph[string, string], cyclic []Edge, err error) {
	g = graph.New(graph.StringHash, graph.Directed())
	keys := sortedKeys(mem)

	for _, k := range keys {
		if addErr := g.AddVertex(k); addErr != nil && !errors.Is(addErr, graph.ErrVertexAlreadyExists) {
			return nil, nil, addErr
		}
	}

	for _, k := range keys {
		c, ok := mem.GetByKeyString(k)
		if !ok {
			continue
		}

		var edges []Edge
		c.IterateImplications(func(imp implication.Implication) bool {
			from := term.Format(term.ConceptKey(imp.Precondition()))
			edges = append(edges, Edge{From: from, To: k})
			return true
		})
		sort.Slice(edges, func(i, j int) bool { return edges[i].From < edges[j].From })

		for _, e := range edges {
			if addErr := g.AddVertex(e.From); addErr != nil && !errors.Is(addErr, graph.ErrVertexAlreadyExists) {
				return nil, nil, addErr
			}
			if creates, cerr := graph.CreatesCycle(g, e.From, e.To); cerr == nil && creates {
				cyclic = append(cyclic, e)
				continue
			}
			if addErr := g.AddEdge(e.From, e.To); addErr != nil && !errors.Is(addErr, graph.ErrEdgeAlreadyExists) {
				return nil, nil, addErr
			}
		}
	}
	return g, cyclic, nil
}

// StableOrder returns every concept key reachable in the graph in
// topological order (a precondition's concept before the concepts its
// implications predict into), ties broken lexically for reproducibility
// across runs of the same input. A cyclic edge is never added to the
// graph itself (see Build), so the sort always succeeds; cyclic is
// returned alongside for the caller to log.
func StableOrder(mem *concept.Memory) (order []string, cyclic []Edge, err error) {
	g, cyclic, err := Build(mem)
	if err != nil {
		return nil, nil, err
	}
	order, err = graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return sortedKeys(mem), cyclic, nil
	}
	return order, cyclic, nil
}

func sortedKeys(mem *concept.Memory) []string {
	keys := mem.AllKeys()
	sort.Strings(keys)
	return keys
}
