package location

import (
	"context"
	"errors"
)

// Publishers fans a selection out to several publishers. Every publisher is
// called even when an earlier one fails.
type Publishers []SelectionPublisher

// PublishSelection implements SelectionPublisher.
func (ps Publishers) PublishSelection(ctx context.Context, ev SelectionEvent) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.PublishSelection(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
