package remote

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRemoteFailure is wrapped by every network or subprocess failure.
	ErrRemoteFailure = errors.New("remote operation failed")

	// ErrTimeout is a RemoteFailure caused by an expired deadline.
	ErrTimeout = fmt.Errorf("%w: timed out", ErrRemoteFailure)
)

// wrap classifies err as a remote failure for op. Deadline expiry, either
// reported by err or by ctx, becomes ErrTimeout.
func wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRemoteFailure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteFailure, err)
}
