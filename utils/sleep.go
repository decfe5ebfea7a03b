package utils

import (
	"context"
	"time"
)

// Sleep blocks for d or until ctx is done, whichever comes first. It
// returns nil after a full sleep and the context error when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
