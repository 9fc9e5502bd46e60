package multi

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

// Multi fans an emitted event out to several sinks in order. A failing sink
// does not stop delivery to the ones after it.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the event to every wrapped output and joins the failures,
// each tagged with the index of the sink that produced it.
func (m *Multi) Write(ctx context.Context, event model.Event) error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Write(ctx, event); err != nil {
			errs = append(errs, errors.Wrapf(err, "multi output: sink %d", i))
		}
	}
	return errors.Join(errs...)
}

// Close closes every wrapped output, joining failures.
func (m *Multi) Close() error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "multi output: close sink %d", i))
		}
	}
	return errors.Join(errs...)
}
