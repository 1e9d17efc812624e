// Package aggregate fans a search out to the configured book providers and
// composes recommendation feeds from the results.
package aggregate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bookstream/internal/entity"
	"bookstream/internal/provider"
)

// DefaultTimeout is the budget given to each external provider call.
const DefaultTimeout = 5000 * time.Millisecond

// ClassicsLimit caps the Standard Ebooks listing.
const ClassicsLimit = 15

// DefaultSources are queried when a search names no source.
var DefaultSources = []entity.Source{entity.SourceLocal, entity.SourceOpenLibrary, entity.SourceGoogle}

type Config struct {
	Timeout time.Duration
	// Defaults overrides DefaultSources.
	Defaults []entity.Source
}

type Aggregator struct {
	providers []provider.Provider
	bySource  map[entity.Source]provider.Provider
	defaults  []entity.Source
	timeout   time.Duration
}

// New registers providers. A later provider for an already registered
// source replaces the earlier one.
func New(cfg Config, providers ...provider.Provider) *Aggregator {
	a := &Aggregator{
		bySource: make(map[entity.Source]provider.Provider, len(providers)),
		defaults: cfg.Defaults,
		timeout:  cfg.Timeout,
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	if len(a.defaults) == 0 {
		a.defaults = DefaultSources
	}
	for _, p := range providers {
		if _, dup := a.bySource[p.Source()]; dup {
			for i, existing := range a.providers {
				if existing.Source() == p.Source() {
					a.providers[i] = p
				}
			}
		} else {
			a.providers = append(a.providers, p)
		}
		a.bySource[p.Source()] = p
	}
	return a
}

// SearchAll queries the source named in f.Source, or every default source
// when none is named. An unknown source yields an empty result without any
// provider call, as does a blank query with no filter criteria.
func (a *Aggregator) SearchAll(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error) {
	var sources []entity.Source
	if strings.TrimSpace(f.Source) != "" {
		src, ok := entity.ParseSource(f.Source)
		if !ok {
			return []entity.BookRecord{}, nil
		}
		sources = []entity.Source{src}
	} else {
		sources = a.defaults
	}
	return a.SearchSources(ctx, query, f, sources)
}

// SearchSources runs the search against an explicit list of sources.
// Results are concatenated in the order sources are listed; unregistered
// sources are skipped.
func (a *Aggregator) SearchSources(ctx context.Context, query string, f entity.Filters, sources []entity.Source) ([]entity.BookRecord, error) {
	if strings.TrimSpace(query) == "" && !f.HasCriteria() {
		return []entity.BookRecord{}, nil
	}

	selected := a.selected(sources)
	if len(selected) == 0 {
		return []entity.BookRecord{}, nil
	}

	slots := make([][]entity.BookRecord, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range selected {
		g.Go(func() error {
			if p.Source() == entity.SourceLocal {
				slots[i] = p.Search(gctx, query, f)
				return nil
			}
			books, err := WithTimeout(gctx, a.timeout, p.Source().Label(), func(ctx context.Context) ([]entity.BookRecord, error) {
				return p.Search(ctx, query, f), nil
			})
			if err != nil {
				return err
			}
			slots[i] = books
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []entity.BookRecord{}
	for _, books := range slots {
		out = append(out, books...)
	}
	return out, nil
}

// Classics lists the restored classics feed, up to ClassicsLimit entries.
func (a *Aggregator) Classics(ctx context.Context) ([]entity.BookRecord, error) {
	p, ok := a.bySource[entity.SourceStandard]
	if !ok {
		return []entity.BookRecord{}, nil
	}
	books, err := WithTimeout(ctx, a.timeout, p.Source().Label(), func(ctx context.Context) ([]entity.BookRecord, error) {
		return p.Search(ctx, "", entity.Filters{}), nil
	})
	if err != nil {
		return nil, err
	}
	return truncate(books, ClassicsLimit), nil
}

// Sources lists the registered sources in registration order.
func (a *Aggregator) Sources() []entity.Source {
	out := make([]entity.Source, 0, len(a.providers))
	for _, p := range a.providers {
		out = append(out, p.Source())
	}
	return out
}

func (a *Aggregator) selected(sources []entity.Source) []provider.Provider {
	seen := make(map[entity.Source]bool, len(sources))
	var out []provider.Provider
	for _, s := range sources {
		p, ok := a.bySource[s]
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, p)
	}
	return out
}

func truncate(books []entity.BookRecord, limit int) []entity.BookRecord {
	if limit >= 0 && len(books) > limit {
		return books[:limit]
	}
	return books
}
