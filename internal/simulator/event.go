package simulator

import (
	"fmt"

	"github.com/nvandessel/pedigree/internal/population"
)

// EventKind identifies what happens to an event's subject.
type EventKind uint8

const (
	Birth EventKind = iota
	Death
	Reproduction
	EntersMatingAge
	ExitsMatingAge
)

// Kinds lists every event kind in declaration order.
var Kinds = []EventKind{Birth, Death, Reproduction, EntersMatingAge, ExitsMatingAge}

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case Birth:
		return "birth"
	case Death:
		return "death"
	case Reproduction:
		return "reproduction"
	case EntersMatingAge:
		return "enters_mating_age"
	case ExitsMatingAge:
		return "exits_mating_age"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a scheduled state change for one individual.
type Event struct {
	Kind    EventKind
	Subject population.ID
	Time    float64
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%s(%d)@%.3f", e.Kind, e.Subject, e.Time)
}

// eventBefore orders events by time. Ties fall back to the heap's
// insertion order.
func eventBefore(a, b Event) bool {
	return a.Time < b.Time
}
