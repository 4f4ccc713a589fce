// Package prediction implements the prediction tracker: a Prediction bundles
// a predicted event with the implication that produced it, and is validated
// against whatever belief actually arrives for the predicted term.
package prediction

import (
	"math"

	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/term"
	"ona/internal/truth"
)

// DefaultTolerance is the number of ticks an observed event's occurrence
// time may differ from a non-eternal prediction's expected time and still
// count as a match.
const DefaultTolerance = 5

// AnticipationConfidence is the confidence assigned to the negative evidence
// manufactured when an anticipation's deadline passes unconfirmed.
const AnticipationConfidence = 0.01

// Prediction bundles a predicted event awaiting confirmation with enough
// context to revise its source implication once the outcome is known.
type Prediction struct {
	PredictedEvent    event.Event
	SourceImplication implication.Implication
	SourceConceptKey  string
	ExpectedTime      int
	CreationTime      int
	Confirmed         bool
	Refuted           bool
	// UUID identifies this prediction for log correlation, independent of
	// PredictedEvent.UUID (the predicted event's own identity).
	UUID string
}

// New creates a pending Prediction for predicted, produced by source and
// stored under sourceConceptKey, expected to resolve at expectedTime.
func New(predicted event.Event, source implication.Implication, sourceConceptKey string, expectedTime, creationTime int) Prediction {
	return Prediction{
		PredictedEvent:    predicted,
		SourceImplication: source,
		SourceConceptKey:  sourceConceptKey,
		ExpectedTime:      expectedTime,
		CreationTime:      creationTime,
		UUID:              event.NewUUID(),
	}
}

// Outcome is the result of validating a Prediction against an observed
// event.
type Outcome int

const (
	Pending Outcome = iota
	Confirmed
	Refuted
	Timeout
	AlreadyResolved
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "PENDING"
	case Confirmed:
		return "CONFIRMED"
	case Refuted:
		return "REFUTED"
	case Timeout:
		return "TIMEOUT"
	case AlreadyResolved:
		return "ALREADY_RESOLVED"
	default:
		return "UNKNOWN"
	}
}

// Matches reports whether observed is a candidate resolution for p: the
// terms must format identically, and either the prediction is eternal or
// observed's occurrence time falls within tolerance ticks of the predicted
// time.
func Matches(p Prediction, observed event.Event, tolerance int) bool {
	if term.Format(p.PredictedEvent.Term) != term.Format(observed.Term) {
		return false
	}
	if p.PredictedEvent.IsEternal() {
		return true
	}
	return math.Abs(float64(observed.OccurrenceTime-p.PredictedEvent.OccurrenceTime)) <= float64(tolerance)
}

// TruthMatch reports whether observed's frequency is close enough to the
// predicted frequency to count as confirmation rather than refutation.
func TruthMatch(p Prediction, observed event.Event) bool {
	return math.Abs(p.PredictedEvent.Truth.Frequency-observed.Truth.Frequency) <= 0.5
}

// Validate checks p against an observed event at the current time and
// updates p's Confirmed/Refuted flag in place when it resolves. now is only
// consulted for the Timeout outcome; Matches performs its own tolerance
// check against the predicted occurrence time.
func Validate(p *Prediction, observed event.Event, now int, tolerance int) Outcome {
	if p.Confirmed || p.Refuted {
		return AlreadyResolved
	}
	if Matches(*p, observed, tolerance) {
		if TruthMatch(*p, observed) {
			p.Confirmed = true
			return Confirmed
		}
		p.Refuted = true
		return Refuted
	}
	if !p.PredictedEvent.IsEternal() && now > p.ExpectedTime+tolerance {
		return Timeout
	}
	return Pending
}

// ReviseOnConfirmation revises imp's truth with strong positive evidence
// (1.0, 0.1), used when a Prediction resolves CONFIRMED.
func ReviseOnConfirmation(imp implication.Implication, k float64) implication.Implication {
	out := imp
	out.Truth = truth.Revision(imp.Truth, truth.Value{Frequency: 1.0, Confidence: 0.1}, k)
	return out
}

// ReviseOnRefutation revises imp's truth with strong negative evidence
// (0.0, 0.1), used when a Prediction resolves REFUTED.
func ReviseOnRefutation(imp implication.Implication, k float64) implication.Implication {
	out := imp
	out.Truth = truth.Revision(imp.Truth, truth.Value{Frequency: 0.0, Confidence: 0.1}, k)
	return out
}

// ReviseOnAnticipationTimeout revises imp in place when an anticipation's
// deadline passes with no confirming belief: it manufactures negative
// evidence (0.0, AnticipationConfidence), inducts it against the current
// precondition belief truth, and revises imp's truth with the result.
func ReviseOnAnticipationTimeout(imp implication.Implication, preconditionTruth truth.Value, k float64) implication.Implication {
	negative := truth.Value{Frequency: 0.0, Confidence: AnticipationConfidence}
	induced := truth.Induction(negative, preconditionTruth, k)
	out := imp
	out.Truth = truth.Revision(imp.Truth, induced, k)
	return out
}
