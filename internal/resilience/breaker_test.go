package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(threshold, cooldown)
	b.now = c.now
	return b, c
}

var errDown = errors.New("down")

func fail(context.Context) (int, error) { return 0, errDown }
func ok(context.Context) (int, error)   { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	_, err := Call(ctx, b, fail)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, Closed, b.State())

	_, err = Call(ctx, b, fail)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, Open, b.State())

	calls := 0
	_, err = Call(ctx, b, func(context.Context) (int, error) { calls++; return 1, nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	_, err := Call(ctx, b, ok)
	require.NoError(t, err)
	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	b, c := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	require.Equal(t, Open, b.State())

	c.t = c.t.Add(time.Minute)
	assert.Equal(t, HalfOpen, b.State())

	// Failed probe reopens.
	_, err := Call(ctx, b, fail)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, Open, b.State())

	c.t = c.t.Add(time.Minute)
	v, err := Call(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_CanceledContextNotCounted(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, b, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, b.State())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
