package aggregate

import (
	"context"
	"sync/atomic"
	"time"

	"bookstream/internal/entity"
)

type fakeProvider struct {
	source entity.Source
	books  []entity.BookRecord
	delay  time.Duration
	calls  atomic.Int32

	lastQuery   atomic.Value
	lastFilters atomic.Value
	cancelled   chan struct{}
}

func newFake(source entity.Source, titles ...string) *fakeProvider {
	p := &fakeProvider{source: source, cancelled: make(chan struct{}, 1)}
	for _, t := range titles {
		p.books = append(p.books, entity.BookRecord{ID: string(source) + ":" + t, Title: t, Author: "A " + t, Source: source})
	}
	return p
}

func (p *fakeProvider) Source() entity.Source { return p.source }

func (p *fakeProvider) Search(ctx context.Context, query string, f entity.Filters) []entity.BookRecord {
	p.calls.Add(1)
	p.lastQuery.Store(query)
	p.lastFilters.Store(f)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			select {
			case p.cancelled <- struct{}{}:
			default:
			}
			return []entity.BookRecord{}
		}
	}
	return append([]entity.BookRecord(nil), p.books...)
}

func titles(books []entity.BookRecord) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}
