// Package admin provides administrative operations on the employee store.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/ems/internal/core"
)

// ErrNotConfirmed is returned when a destructive operation was not confirmed.
var ErrNotConfirmed = errors.New("reset not confirmed: pass --yes to delete all employees")

// Resetter handles store reset operations.
type Resetter struct {
	Service *core.Service
}

type resetFn func(ctx context.Context) error

// ResetAll waits for running imports to finish and then deletes every
// employee record. This is a destructive operation - use with caution.
func (r *Resetter) ResetAll(ctx context.Context, confirmed bool) (int64, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}

	var deleted int64
	err := runResets(ctx, []resetFn{
		r.Service.WaitForImports,
		func(ctx context.Context) error {
			n, err := r.Service.DeleteAllEmployees(ctx)
			deleted = n
			return err
		},
	})
	if err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	return deleted, nil
}

func runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return err
		}
	}
	return nil
}
