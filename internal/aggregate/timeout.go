package aggregate

import (
	"context"
	"time"

	"bookstream/internal/logging"
	"bookstream/internal/metrics"
)

type outcome[T any] struct {
	items []T
	err   error
}

// WithTimeout runs op with a budget of d. When the budget expires first the
// context passed to op is cancelled, a warning naming label is logged and an
// empty slice is returned with a nil error. An error returned by op before
// the deadline is passed through unchanged. If ctx itself is done first its
// error is returned.
//
// When op settles at the same instant the timer fires, either outcome may win.
func WithTimeout[T any](ctx context.Context, d time.Duration, label string, op func(context.Context) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		items, err := op(opCtx)
		done <- outcome[T]{items: items, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.items, res.err
	case <-timer.C:
		metrics.ProviderTimeouts.WithLabelValues(label).Inc()
		logging.Ctx(ctx).Warn().Str("label", label).Dur("budget", d).Msg("provider timed out")
		return []T{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
