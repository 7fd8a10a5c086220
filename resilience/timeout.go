package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout is used when a Timeout is created without a limit.
const DefaultTimeout = time.Second

// Timeout fails operations that run longer than a fixed limit.
//
// The operation receives a context carrying the deadline. If it ignores the
// context it keeps running in its goroutine after Execute has returned, so
// operations must not publish results through shared state without
// synchronization.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive limit selects
// DefaultTimeout.
func NewTimeout(limit time.Duration) *Timeout {
	if limit <= 0 {
		limit = DefaultTimeout
	}
	return &Timeout{limit: limit}
}

// Execute runs op with the deadline applied. A deadline hit is reported as
// an error wrapping ErrTimeout; cancellation of ctx by the caller is
// reported as ctx.Err().
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(callCtx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w after %s: %v", ErrTimeout, t.limit, err)
		}
		return err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %s", ErrTimeout, t.limit)
	}
}

// Limit returns the configured limit.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}
