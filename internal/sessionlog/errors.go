package sessionlog

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoLevels is returned when a scheme is declared without levels.
	ErrNoLevels = errors.New("sessionlog: at least one level declaration is required")
	// ErrNoMainTiers is returned when a level declares no main tier.
	ErrNoMainTiers = errors.New("sessionlog: level declares no main tiers")
	// ErrDuplicateDeclaration is returned when a tier or feature is declared twice.
	ErrDuplicateDeclaration = errors.New("sessionlog: duplicate declaration")
	// ErrSchemeMismatch marks a session tree that does not fit the declared scheme.
	ErrSchemeMismatch = errors.New("sessionlog: session does not match scheme")
)

// mismatchf reports a session tree that disagrees with the scheme.
func mismatchf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrSchemeMismatch)
}

// lifecycleViolation reports a logger driven past its terminal state. It is a
// defect in the caller, so it is logged at error level as well as returned.
func lifecycleViolation(event, call string) error {
	err := errors.AssertionFailedf("sessionlog: %s called after the %s event was emitted", call, event)
	slog.Error("session logger lifecycle violation", "event", event, "call", call, "error", err)
	return err
}
