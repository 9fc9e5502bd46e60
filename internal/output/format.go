package output

import (
	"strings"

	"github.com/crimson-sun/tierlog/internal/model"
)

// Verbosity controls how much of an event payload is written.
type Verbosity int

const (
	Minimal  Verbosity = iota // drop the session structure, keep session analysis
	Standard                  // write the full payload
	Full                      // write the full payload
)

// structureKey is the payload key holding the per-level session structure.
const structureKey = "structure"

// ParseVerbosity maps "minimal", "standard" or "full" to a Verbosity.
// Unknown strings default to Standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal
	case "full":
		return Full
	default:
		return Standard
	}
}

// FormatEvent returns a copy of the event with fields stripped according to verbosity.
// At Minimal the structure payload is removed; the session analysis stays.
// At Standard/Full all fields are preserved.
func FormatEvent(e model.Event, verbosity Verbosity) model.Event {
	if verbosity == Minimal {
		e.Data = e.Data.Without(structureKey)
	}
	return e
}
