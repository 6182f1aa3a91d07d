package admin

import (
	"context"
	"errors"
	"fmt"
)

// BatchResult reports each item of a batch separately. Items that succeeded
// stay applied when others fail.
type BatchResult struct {
	Succeeded []string
	Failed    map[string]error
}

// Err joins every per-item failure, or returns nil.
func (r BatchResult) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for id, err := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
	}
	return errors.Join(errs...)
}

// BatchApply runs action for every id in order. A cancelled context stops
// the batch and marks the remaining ids as failed.
func BatchApply(ctx context.Context, ids []string, action func(ctx context.Context, id string) error) BatchResult {
	res := BatchResult{Failed: make(map[string]error)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Failed[id] = err
			continue
		}
		if err := action(ctx, id); err != nil {
			res.Failed[id] = err
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res
}
