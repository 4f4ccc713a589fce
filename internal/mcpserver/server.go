// Package mcpserver exposes a nar.State's programmatic API (spec §6) as MCP
// tools: the host-facing textual-I/O shell the core itself never provides.
// Every handler only calls into internal/nar and its siblings; none of them
// perform reasoning of their own.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ona/internal/event"
	"ona/internal/knowledge"
	"ona/internal/nar"
	"ona/internal/operation"
	"ona/internal/term"
	"ona/internal/truth"
)

// Server wraps a nar.State and registers it as a set of MCP tools.
type Server struct {
	state *nar.State

	// conceptSink and similarity are optional diagnostic mirrors, present
	// only when the host wired them in via WithConceptSink/WithSimilarityIndex.
	// Both are driven from handleCycle: every cycle call re-mirrors memory
	// into whichever of the two are configured, since cycle is the one point
	// where concept memory is known to have just changed.
	conceptSink *knowledge.ConceptSink
	similarity  *knowledge.SimilarityIndex
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithConceptSink drives sink's SyncMemory after every cycle call, mirroring
// concept memory into Neo4j for external inspection.
func WithConceptSink(sink *knowledge.ConceptSink) Option {
	return func(s *Server) { s.conceptSink = sink }
}

// WithSimilarityIndex re-indexes every concept into idx after every cycle
// call, keeping "concepts near this term" queries answerable against the
// current memory contents.
func WithSimilarityIndex(idx *knowledge.SimilarityIndex) Option {
	return func(s *Server) { s.similarity = idx }
}

// NewServer creates a Server over state, applying any optional mirrors.
func NewServer(state *nar.State, opts ...Option) *Server {
	s := &Server{state: state}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTools registers every tool on mcpServer.
func (s *Server) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "add-belief",
		Description: "Submit a belief event to concept memory",
	}, s.handleAddBelief)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "add-goal",
		Description: "Submit a goal event to concept memory",
	}, s.handleAddGoal)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "register-operation",
		Description: "Bind a new operation atom to the registry",
	}, s.handleRegisterOperation)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "cycle",
		Description: "Run one or more reasoning cycles",
	}, s.handleCycle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "ask",
		Description: "Search concept memory for answers to a query term",
	}, s.handleAsk)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "stats",
		Description: "Report the reasoner's current resource usage",
	}, s.handleStats)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "set-config",
		Description: "Apply one configuration key/value pair",
	}, s.handleSetConfig)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "similar-concepts",
		Description: "Find concepts whose key is semantically near a query term",
	}, s.handleSimilarConcepts)
}

// EmptyRequest is the input type for tools that take no parameters.
type EmptyRequest struct{}

// AddBeliefRequest is the input to add-belief.
type AddBeliefRequest struct {
	Term string `json:"term"`

	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`

	// OccurrenceTime is the event's tense; omit for an eternal belief.
	OccurrenceTime *int `json:"occurrence_time,omitempty"`

	// Input marks the event as externally supplied input, per spec §3.8.
	Input bool `json:"input,omitempty"`
}

// EventResponse is the common shape add-belief/add-goal return.
type EventResponse struct {
	Term           string  `json:"term"`
	Eternal        bool    `json:"eternal"`
	OccurrenceTime int     `json:"occurrence_time,omitempty"`
	Frequency      float64 `json:"frequency"`
	Confidence     float64 `json:"confidence"`
}

func (s *Server) handleAddBelief(ctx context.Context, req *mcp.CallToolRequest, input AddBeliefRequest) (*mcp.CallToolResult, *EventResponse, error) {
	t := term.Parse(input.Term)
	occ := resolveOccurrence(input.OccurrenceTime)
	ev := s.state.AddBelief(t, truth.Value{Frequency: input.Frequency, Confidence: input.Confidence}, occ, input.Input)

	response := eventResponse(ev)
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// AddGoalRequest is the input to add-goal.
type AddGoalRequest struct {
	Term string `json:"term"`

	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`

	OccurrenceTime *int `json:"occurrence_time,omitempty"`
	Input          bool `json:"input,omitempty"`
}

func (s *Server) handleAddGoal(ctx context.Context, req *mcp.CallToolRequest, input AddGoalRequest) (*mcp.CallToolResult, *EventResponse, error) {
	t := term.Parse(input.Term)
	occ := resolveOccurrence(input.OccurrenceTime)
	ev := s.state.AddGoal(t, truth.Value{Frequency: input.Frequency, Confidence: input.Confidence}, occ, input.Input)

	response := eventResponse(ev)
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

func resolveOccurrence(occurrenceTime *int) int {
	if occurrenceTime == nil {
		return event.Eternal
	}
	return *occurrenceTime
}

func eventResponse(ev event.Event) *EventResponse {
	return &EventResponse{
		Term:           term.Format(ev.Term),
		Eternal:        ev.IsEternal(),
		OccurrenceTime: ev.OccurrenceTime,
		Frequency:      ev.Truth.Frequency,
		Confidence:     ev.Truth.Confidence,
	}
}

// RegisterOperationRequest is the input to register-operation.
type RegisterOperationRequest struct {
	// Name is the operation atom, e.g. "^left".
	Name string `json:"name"`
}

// RegisterOperationResponse reports the ID assigned to the operation.
type RegisterOperationResponse struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// handleRegisterOperation binds name to a callback that logs its execution
// arguments. An MCP tool call cannot itself act as a blocking callback the
// decision maker invokes mid-cycle, so the bound callback's only effect is
// observability: it logs what the decision maker chose, the same
// information State.LastExecutedOperation and stats already surface to a
// caller polling after cycle.
func (s *Server) handleRegisterOperation(ctx context.Context, req *mcp.CallToolRequest, input RegisterOperationRequest) (*mcp.CallToolResult, *RegisterOperationResponse, error) {
	name := input.Name
	id, err := s.state.RegisterOperation(name, func(args operation.Args) error {
		formatted := make([]string, len(args))
		for i, a := range args {
			formatted[i] = term.Format(a)
		}
		log.Printf("mcpserver: executed %s%v", name, formatted)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	response := &RegisterOperationResponse{Name: name, ID: id}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// CycleRequest is the input to cycle.
type CycleRequest struct {
	// N is the number of cycles to run; defaults to 1.
	N int `json:"n,omitempty"`
}

// CycleResponse reports the diagnostic lines produced and the resulting
// current time.
type CycleResponse struct {
	Diagnostics []string `json:"diagnostics"`
	CurrentTime int      `json:"current_time"`
}

func (s *Server) handleCycle(ctx context.Context, req *mcp.CallToolRequest, input CycleRequest) (*mcp.CallToolResult, *CycleResponse, error) {
	n := input.N
	if n <= 0 {
		n = 1
	}
	lines := s.state.Cycle(n)
	s.mirrorConcepts(ctx)

	response := &CycleResponse{Diagnostics: lines, CurrentTime: s.state.CurrentTime}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// mirrorConcepts re-syncs whichever of conceptSink/similarity are configured
// against the current state of concept memory. Mirroring is diagnostic only
// (spec §3.5/§6): a failure here is logged and swallowed rather than
// reported to the caller, since cycle's own result must reflect the
// reasoning step it ran, not the health of an optional sink.
func (s *Server) mirrorConcepts(ctx context.Context) {
	if s.conceptSink != nil {
		if err := s.conceptSink.SyncMemory(ctx, s.state.Concepts); err != nil {
			log.Printf("mcpserver: concept graph mirror failed: %v", err)
		}
	}
	if s.similarity != nil {
		for _, key := range s.state.Concepts.AllKeys() {
			c, ok := s.state.Concepts.GetByKeyString(key)
			if !ok {
				continue
			}
			if err := s.similarity.IndexConcept(ctx, key, c.Key); err != nil {
				log.Printf("mcpserver: similarity index failed for %s: %v", key, err)
			}
		}
	}
}

// AskRequest is the input to ask.
type AskRequest struct {
	Term string `json:"term"`
}

// AnswerResponse is one candidate answer.
type AnswerResponse struct {
	Term          string  `json:"term"`
	Frequency     float64 `json:"frequency"`
	Confidence    float64 `json:"confidence"`
	Expectation   float64 `json:"expectation"`
	SourceConcept string  `json:"source_concept"`
	IsImplication bool    `json:"is_implication"`
}

// AskResponse carries every answer found, best expectation first.
type AskResponse struct {
	Answers []AnswerResponse `json:"answers"`
}

func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskRequest) (*mcp.CallToolResult, *AskResponse, error) {
	t := term.Parse(input.Term)
	answers := s.state.Ask(t)

	response := &AskResponse{Answers: make([]AnswerResponse, len(answers))}
	for i, a := range answers {
		response.Answers[i] = AnswerResponse{
			Term:          term.Format(a.Term),
			Frequency:     a.Truth.Frequency,
			Confidence:    a.Truth.Confidence,
			Expectation:   a.Expectation(),
			SourceConcept: a.SourceConcept,
			IsImplication: a.HasImplication,
		}
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// StatsResponse mirrors nar.Stats.
type StatsResponse struct {
	CurrentTime            int     `json:"current_time"`
	TotalConcepts          int     `json:"total_concepts"`
	BeliefEventsCount      int     `json:"belief_events_count"`
	GoalEventsCount        int     `json:"goal_events_count"`
	AverageConceptPriority float64 `json:"average_concept_priority"`
	LastExecutedOperation  string  `json:"last_executed_operation,omitempty"`
}

func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, input EmptyRequest) (*mcp.CallToolResult, *StatsResponse, error) {
	st := s.state.Stats()

	response := &StatsResponse{
		CurrentTime:            st.CurrentTime,
		TotalConcepts:          st.TotalConcepts,
		BeliefEventsCount:      st.BeliefEventsCount,
		GoalEventsCount:        st.GoalEventsCount,
		AverageConceptPriority: st.AverageConceptPriority,
		LastExecutedOperation:  s.state.LastExecutedOperation,
	}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// SetConfigRequest is the input to set-config.
type SetConfigRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetConfigResponse confirms the key/value pair applied.
type SetConfigResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleSetConfig(ctx context.Context, req *mcp.CallToolRequest, input SetConfigRequest) (*mcp.CallToolResult, *SetConfigResponse, error) {
	if err := s.state.SetConfig(input.Key, input.Value); err != nil {
		return nil, nil, fmt.Errorf("mcpserver: set-config: %w", err)
	}

	response := &SetConfigResponse{Key: input.Key, Value: input.Value}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// SimilarConceptsRequest is the input to similar-concepts.
type SimilarConceptsRequest struct {
	Term string `json:"term"`
	// Limit caps how many concepts are returned; defaults to 10.
	Limit int `json:"limit,omitempty"`
}

// SimilarConceptsResponse carries the matched concept keys, most similar
// first.
type SimilarConceptsResponse struct {
	Keys []string `json:"keys"`
}

// handleSimilarConcepts answers against whatever the similarity index holds
// as of the last cycle call; it returns an empty result (not an error) when
// no similarity index was configured, since the index is always optional.
func (s *Server) handleSimilarConcepts(ctx context.Context, req *mcp.CallToolRequest, input SimilarConceptsRequest) (*mcp.CallToolResult, *SimilarConceptsResponse, error) {
	if s.similarity == nil {
		response := &SimilarConceptsResponse{}
		return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
	}

	keys, err := s.similarity.SimilarConcepts(ctx, term.Parse(input.Term), input.Limit)
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: similar-concepts: %w", err)
	}

	response := &SimilarConceptsResponse{Keys: keys}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// toJSONContent marshals data as the single text block MCP tool results
// carry, matching the teacher's response shape.
func toJSONContent(data interface{}) []mcp.Content {
	jsonData, err := json.Marshal(data)
	if err != nil {
		errData := map[string]string{"error": err.Error()}
		jsonData, _ = json.Marshal(errData)
	}
	return []mcp.Content{
		&mcp.TextContent{Text: string(jsonData)},
	}
}
