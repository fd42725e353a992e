// Package engine is the update decision core: given an oracle analysis
// and the persisted state for a (project, library) pair, it decides
// whether a notification-worthy event exists, which path it belongs to
// (released vs future), and mutates the caches accordingly. Every
// decision runs inside a single store transaction so concurrent passes
// cannot double-notify the same version.
package engine

import "fmt"

// Kind tags the outcome of one evaluation.
type Kind int

const (
	// KindSuppressed means no event; Reason carries the explanation
	KindSuppressed Kind = iota
	// KindReleased is a notification-worthy released update
	KindReleased
	// KindFuture is a first-time future-update detection
	KindFuture
	// KindConfidenceUpdate is a confidence escalation on a tracked
	// future update
	KindConfidenceUpdate
)

func (k Kind) String() string {
	switch k {
	case KindReleased:
		return "released"
	case KindFuture:
		return "future"
	case KindConfidenceUpdate:
		return "confidence_update"
	default:
		return "suppressed"
	}
}

// Event is the notification payload emitted for a qualifying update.
// Confidence fields are meaningful only for future and
// confidence-update events.
type Event struct {
	Library     string
	Version     string
	Category    string
	ReleaseDate string
	Summary     string
	Source      string

	Confidence      int
	OldConfidence   int
	ConfidenceDelta int
	ChangeReason    string
}

// Outcome is the result of evaluating one (project, library) pair.
// Event is nil exactly when Kind is KindSuppressed.
type Outcome struct {
	Kind   Kind
	Event  *Event
	Reason string
}

// Notified reports whether the outcome carries an event.
func (o Outcome) Notified() bool {
	return o.Kind != KindSuppressed
}

// suppressed builds a no-event outcome with a reason for the logs.
func suppressed(format string, args ...any) Outcome {
	return Outcome{Kind: KindSuppressed, Reason: fmt.Sprintf(format, args...)}
}
