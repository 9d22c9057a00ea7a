// Package listing fetches rental listings from upstream backends and
// provides the deterministic synthetic dataset used when they fail.
package listing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/model"
	"github.com/sells-group/rentmap/internal/resilience"
)

// Source yields raw listings ordered by ascending price.
type Source interface {
	Name() string
	Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error)
}

// ErrFetch matches every upstream fetch failure.
var ErrFetch = errors.New("listing: upstream fetch failed")

// FetchError records which source failed. errors.Is(err, ErrFetch) holds
// for every FetchError; Unwrap exposes the cause.
type FetchError struct {
	Source string
	Err    error
}

// Error names the failing source and the cause.
func (e *FetchError) Error() string {
	return "listing: fetch from " + e.Source + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetch) true.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Guarded wraps a Source with a timeout, retries and a circuit breaker.
// Every failure comes back as a *FetchError and results are re-sorted by
// price so all sources honor the ordering contract.
type Guarded struct {
	src     Source
	policy  resilience.Policy
	breaker *resilience.Breaker
	timeout time.Duration
}

// Guard wraps src. breaker may be nil; a zero timeout disables it.
func Guard(src Source, policy resilience.Policy, breaker *resilience.Breaker, timeout time.Duration) *Guarded {
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetry(src.Name())
	}
	return &Guarded{src: src, policy: policy, breaker: breaker, timeout: timeout}
}

// Name returns the wrapped source's name.
func (g *Guarded) Name() string { return g.src.Name() }

// Breaker returns the breaker, or nil.
func (g *Guarded) Breaker() *resilience.Breaker { return g.breaker }

// Fetch runs the wrapped source under the timeout, retry policy and
// breaker. Any failure is returned as a *FetchError.
func (g *Guarded) Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	fetch := func(ctx context.Context) ([]model.RawListing, error) {
		return resilience.DoVal(ctx, g.policy, func(ctx context.Context) ([]model.RawListing, error) {
			return g.src.Fetch(ctx, filter)
		})
	}

	var (
		listings []model.RawListing
		err      error
	)
	if g.breaker != nil {
		listings, err = resilience.Call(ctx, g.breaker, fetch)
	} else {
		listings, err = fetch(ctx)
	}
	if err != nil {
		return nil, &FetchError{Source: g.src.Name(), Err: err}
	}

	model.SortByPrice(listings)
	zap.L().Debug("listings fetched",
		zap.String("source", g.src.Name()),
		zap.String("filter", filter.Key()),
		zap.Int("count", len(listings)),
	)
	return listings, nil
}
