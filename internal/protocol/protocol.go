// Package protocol implements the textual line interpreter a host shell
// drives the reasoner through (spec.md §6): Narsese sentences, a bare
// integer for "run N cycles", and the "*"-prefixed commands. Parsing never
// touches a *nar.State; Execute is the only function with side effects,
// keeping the grammar testable independent of the reasoner.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"ona/internal/event"
	"ona/internal/nar"
	"ona/internal/query"
	"ona/internal/term"
	"ona/internal/truth"
)

// Kind identifies which of the protocol's line forms a Command holds.
type Kind int

const (
	Empty Kind = iota
	Belief
	Goal
	Question
	RunCycles
	Reset
	SetConfig
	MotorBabbling
	Stats
	Concepts
	SetOpName
)

// Command is one parsed protocol line, carrying only the fields its Kind
// uses.
type Command struct {
	Kind Kind

	// Belief, Goal, Question.
	Term     term.Term
	Truth    truth.Value
	HasTruth bool
	IsEvent  bool // ":|:" tense tag present: occurrence is "now", not eternal.

	// RunCycles.
	Cycles int

	// SetConfig.
	ConfigKey   string
	ConfigValue string

	// SetOpName.
	OpID   int
	OpName string
}

// Parse reads one protocol line into a Command. Blank lines and "//"
// comments parse to Empty. Malformed Narsese content is not rejected here:
// it is handed to term.Parse, which recovers locally by falling back to an
// atomic echo (spec §7 ParseError). Only protocol-level syntax errors (an
// unrecognized "*" command or a non-numeric operation ID, a negative cycle
// count, or a line with no sentence punctuation) return an error.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "//") {
		return Command{Kind: Empty}, nil
	}

	if line[0] == '*' {
		return parseDirective(line)
	}

	if n, err := strconv.Atoi(line); err == nil {
		if n < 0 {
			return Command{}, fmt.Errorf("protocol: cycle count %q must not be negative", line)
		}
		return Command{Kind: RunCycles, Cycles: n}, nil
	}

	return parseSentence(line)
}

// parseSentence splits line at its first '.' or '!', or at its first '?'
// that ends the line or is followed by ' ', ':' or '{'. Narsese terms never
// contain '.' or '!', and contain '?' only as the prefix of a query
// variable ("?x"), so that position always terminates the term and starts
// the punctuation/tense/truth tail (e.g. "red. :|:",
// "<goal --> achieved>. :|: {1.0 0.9}", "<?x --> achieved>?").
func parseSentence(line string) (Command, error) {
	idx := -1
	for i := 0; i < len(line) && idx < 0; i++ {
		switch {
		case line[i] == '.' || line[i] == '!':
			idx = i
		case line[i] == '?' && (i+1 == len(line) || strings.IndexByte(" :{", line[i+1]) >= 0):
			idx = i
		}
	}
	if idx < 0 {
		return Command{}, fmt.Errorf("protocol: %q contains no '.', '!' or '?'", line)
	}

	var kind Kind
	switch line[idx] {
	case '.':
		kind = Belief
	case '!':
		kind = Goal
	case '?':
		kind = Question
	}
	termText := strings.TrimSpace(line[:idx])
	tv, hasTruth, isEvent := parseTail(line[idx+1:])

	return Command{
		Kind:     kind,
		Term:     term.Parse(termText),
		Truth:    tv,
		HasTruth: hasTruth,
		IsEvent:  isEvent,
	}, nil
}

// parseTail reads the optional " :|: {f c}" tail following a sentence's
// punctuation, in either order, either part optional.
func parseTail(tail string) (truth.Value, bool, bool) {
	tv, hasTruth, rest := extractTruth(tail)
	isEvent := strings.TrimSpace(rest) == ":|:"
	return tv, hasTruth, isEvent
}

// extractTruth removes a "{f c}" tuple appearing anywhere in s and reports
// the parsed truth value alongside the text with it removed.
func extractTruth(s string) (truth.Value, bool, string) {
	open := strings.Index(s, "{")
	if open < 0 {
		return truth.Value{}, false, s
	}
	shut := strings.Index(s[open:], "}")
	if shut < 0 {
		return truth.Value{}, false, s
	}
	shut += open
	inner := strings.TrimSpace(s[open+1 : shut])
	fields := strings.Fields(inner)
	if len(fields) != 2 {
		return truth.Value{}, false, s
	}
	f, errF := strconv.ParseFloat(fields[0], 64)
	c, errC := strconv.ParseFloat(fields[1], 64)
	if errF != nil || errC != nil {
		return truth.Value{}, false, s
	}
	return truth.Value{Frequency: f, Confidence: c}, true, s[:open] + s[shut+1:]
}

func parseDirective(line string) (Command, error) {
	switch {
	case line == "*reset":
		return Command{Kind: Reset}, nil
	case line == "*stats":
		return Command{Kind: Stats}, nil
	case line == "*concepts":
		return Command{Kind: Concepts}, nil
	case strings.HasPrefix(line, "*volume="):
		return Command{Kind: SetConfig, ConfigKey: "volume", ConfigValue: strings.TrimPrefix(line, "*volume=")}, nil
	case strings.HasPrefix(line, "*currenttime="):
		return Command{Kind: SetConfig, ConfigKey: "current_time", ConfigValue: strings.TrimPrefix(line, "*currenttime=")}, nil
	case strings.HasPrefix(line, "*stampid="):
		return Command{Kind: SetConfig, ConfigKey: "stamp_id", ConfigValue: strings.TrimPrefix(line, "*stampid=")}, nil
	case strings.HasPrefix(line, "*seed="):
		return Command{Kind: SetConfig, ConfigKey: "seed", ConfigValue: strings.TrimPrefix(line, "*seed=")}, nil
	case strings.HasPrefix(line, "*motorbabbling="):
		return Command{Kind: MotorBabbling, ConfigValue: strings.TrimPrefix(line, "*motorbabbling=")}, nil
	case strings.HasPrefix(line, "*setopname "):
		return parseSetOpName(line)
	default:
		return Command{}, fmt.Errorf("protocol: unrecognized command %q", line)
	}
}

func parseSetOpName(line string) (Command, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "*setopname "))
	if len(fields) != 2 {
		return Command{}, fmt.Errorf("protocol: *setopname wants \"ID NAME\", got %q", line)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Command{}, fmt.Errorf("protocol: *setopname id %q is not an integer", fields[0])
	}
	return Command{Kind: SetOpName, OpID: id, OpName: fields[1]}, nil
}

// Execute applies cmd to s, returning whatever diagnostic lines the
// operation produces. The core itself never performs I/O; a caller decides
// whether and where to print the returned lines.
func Execute(s *nar.State, cmd Command) ([]string, error) {
	switch cmd.Kind {
	case Empty:
		return nil, nil

	case Belief:
		s.AddBelief(cmd.Term, resolveTruth(cmd), resolveOccurrence(s, cmd), true)
		return nil, nil

	case Goal:
		s.AddGoal(cmd.Term, resolveTruth(cmd), resolveOccurrence(s, cmd), true)
		return nil, nil

	case Question:
		return FormatAnswers(s.Ask(cmd.Term)), nil

	case RunCycles:
		return s.Cycle(cmd.Cycles), nil

	case Reset:
		s.Reset()
		return nil, nil

	case SetConfig:
		return nil, s.SetConfig(cmd.ConfigKey, cmd.ConfigValue)

	case MotorBabbling:
		return nil, applyMotorBabbling(s, cmd.ConfigValue)

	case Stats:
		return FormatStats(s.Stats()), nil

	case Concepts:
		return s.FormatConcepts(), nil

	case SetOpName:
		return nil, s.Ops.SetName(cmd.OpID, cmd.OpName)

	default:
		return nil, fmt.Errorf("protocol: unhandled command kind %d", cmd.Kind)
	}
}

func resolveTruth(cmd Command) truth.Value {
	if cmd.HasTruth {
		return cmd.Truth
	}
	return truth.Default
}

func resolveOccurrence(s *nar.State, cmd Command) int {
	if cmd.IsEvent {
		return s.CurrentTime
	}
	return event.Eternal
}

// applyMotorBabbling implements "*motorbabbling=true|false|P": a bare
// true/false toggles the feature; a probability additionally sets the
// babbling chance and enables it.
func applyMotorBabbling(s *nar.State, value string) error {
	switch strings.ToLower(value) {
	case "true", "false":
		return s.SetConfig("motor_babbling", value)
	}
	if err := s.SetConfig("motor_babbling_chance", value); err != nil {
		return err
	}
	return s.SetConfig("motor_babbling", "true")
}

// FormatAnswers renders query.Ask's results in the canonical answer line
// form, one term per line.
func FormatAnswers(answers []query.Answer) []string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		lines = append(lines, fmt.Sprintf("%s {%.3f %.3f}", term.Format(a.Term), a.Truth.Frequency, a.Truth.Confidence))
	}
	return lines
}

// FormatStats renders a nar.Stats snapshot as the canonical "*stats" dump.
func FormatStats(st nar.Stats) []string {
	return []string{
		fmt.Sprintf("current_time=%d", st.CurrentTime),
		fmt.Sprintf("concepts=%d", st.TotalConcepts),
		fmt.Sprintf("belief_events=%d", st.BeliefEventsCount),
		fmt.Sprintf("goal_events=%d", st.GoalEventsCount),
		fmt.Sprintf("avg_concept_priority=%.4f", st.AverageConceptPriority),
	}
}
