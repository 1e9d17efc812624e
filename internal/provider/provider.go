// Package provider adapts book sources to a boundary that never fails.
//
// Platform clients return errors. The Provider returned by New logs and
// counts them and hands the caller an empty slice instead, so one broken
// source cannot take down an aggregated search.
package provider

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"bookstream/internal/entity"
	"bookstream/internal/logging"
	"bookstream/internal/metrics"
)

// Searcher is implemented by the platform clients and the local catalog.
type Searcher interface {
	Search(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error)

func (fn SearcherFunc) Search(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error) {
	return fn(ctx, query, f)
}

// Provider is a source that always answers, possibly with nothing.
type Provider interface {
	Source() entity.Source
	Search(ctx context.Context, query string, f entity.Filters) []entity.BookRecord
}

type Options struct {
	// BreakerFailures is the number of consecutive failures that opens the
	// breaker. Zero disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type guarded struct {
	source   entity.Source
	searcher Searcher
	cb       *gobreaker.CircuitBreaker[[]entity.BookRecord]
}

// New wraps s so that its errors become empty results.
func New(source entity.Source, s Searcher, opts Options) Provider {
	g := &guarded{source: source, searcher: s}
	if opts.BreakerFailures > 0 {
		g.cb = newBreaker(string(source), opts)
	}
	return g
}

func newBreaker(name string, opts Options) *gobreaker.CircuitBreaker[[]entity.BookRecord] {
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]entity.BookRecord](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// A caller giving up is not the provider's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("source", name).Str("from", from.String()).Str("to", to.String()).
				Msg("provider circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (g *guarded) Source() entity.Source { return g.source }

func (g *guarded) Search(ctx context.Context, query string, f entity.Filters) []entity.BookRecord {
	start := time.Now()
	var (
		books []entity.BookRecord
		err   error
	)
	if g.cb != nil {
		books, err = g.cb.Execute(func() ([]entity.BookRecord, error) {
			return g.searcher.Search(ctx, query, f)
		})
	} else {
		books, err = g.searcher.Search(ctx, query, f)
	}
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.ObserveProvider(string(g.source), outcome, 0, elapsed)
		if ctx.Err() == nil {
			logging.Ctx(ctx).Warn().Err(err).Str("source", g.source.Label()).Msg("provider search failed")
		}
		return []entity.BookRecord{}
	}

	metrics.ObserveProvider(string(g.source), "ok", len(books), elapsed)
	if books == nil {
		books = []entity.BookRecord{}
	}
	return books
}
