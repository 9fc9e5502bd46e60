package output

import (
	"context"

	"github.com/crimson-sun/tierlog/internal/model"
)

// Output defines the interface for emitted event destinations.
type Output interface {
	Write(ctx context.Context, event model.Event) error
	Close() error
}
