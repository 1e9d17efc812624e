package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_ReturnsResultBeforeDeadline(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, "fast", func(context.Context) ([]int, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestWithTimeout_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := WithTimeout(context.Background(), time.Second, "failing", func(context.Context) ([]int, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeout_ExpiryReturnsEmptyWithinBudget(t *testing.T) {
	budget := 50 * time.Millisecond
	cancelled := make(chan struct{})

	start := time.Now()
	got, err := WithTimeout(context.Background(), budget, "slow", func(ctx context.Context) ([]int, error) {
		select {
		case <-time.After(5 * time.Second):
			return []int{1}, nil
		case <-ctx.Done():
			close(cancelled)
			return nil, ctx.Err()
		}
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.GreaterOrEqual(t, elapsed, budget)
	assert.Less(t, elapsed, budget+time.Second)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled on expiry")
	}
}

func TestWithTimeout_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithTimeout(ctx, time.Second, "parent", func(ctx context.Context) ([]int, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return []int{1}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
