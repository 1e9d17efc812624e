package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstream/internal/entity"
)

type fixture struct {
	local, ol, google, gutenberg, standard *fakeProvider
	agg                                    *Aggregator
}

func newFixture(timeout time.Duration) *fixture {
	f := &fixture{
		local:     newFake(entity.SourceLocal, "A Carteira"),
		ol:        newFake(entity.SourceOpenLibrary, "Dom Casmurro", "Helena"),
		google:    newFake(entity.SourceGoogle, "Iracema"),
		gutenberg: newFake(entity.SourceGutenberg, "Hamlet"),
		standard:  newFake(entity.SourceStandard),
	}
	f.agg = New(Config{Timeout: timeout}, f.local, f.ol, f.google, f.gutenberg, f.standard)
	return f
}

func (f *fixture) totalCalls() int32 {
	return f.local.calls.Load() + f.ol.calls.Load() + f.google.calls.Load() +
		f.gutenberg.calls.Load() + f.standard.calls.Load()
}

func TestSearchAll_NoQueryNoFiltersMakesNoCalls(t *testing.T) {
	f := newFixture(time.Second)

	got, err := f.agg.SearchAll(context.Background(), "", entity.Filters{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, f.totalCalls())

	got, err = f.agg.SearchAll(context.Background(), "   ", entity.Filters{Source: "google"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.totalCalls())
}

func TestSearchAll_UnknownSourceMakesNoCalls(t *testing.T) {
	f := newFixture(time.Second)

	got, err := f.agg.SearchAll(context.Background(), "casmurro", entity.Filters{Source: "amazon"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.totalCalls())
}

func TestSearchAll_DefaultSourcesInOrder(t *testing.T) {
	f := newFixture(time.Second)

	got, err := f.agg.SearchAll(context.Background(), "machado", entity.Filters{Language: "por"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A Carteira", "Dom Casmurro", "Helena", "Iracema"}, titles(got))

	assert.Equal(t, int32(1), f.local.calls.Load())
	assert.Equal(t, int32(1), f.ol.calls.Load())
	assert.Equal(t, int32(1), f.google.calls.Load())
	assert.Zero(t, f.gutenberg.calls.Load())
	assert.Zero(t, f.standard.calls.Load())
	assert.Equal(t, entity.Filters{Language: "por"}, f.google.lastFilters.Load())
}

func TestSearchAll_SourceFilterSelectsOneProvider(t *testing.T) {
	f := newFixture(time.Second)

	got, err := f.agg.SearchAll(context.Background(), "hamlet", entity.Filters{Source: "Gutenberg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hamlet"}, titles(got))
	assert.Equal(t, int32(1), f.totalCalls())
}

func TestSearchAll_SlowExternalTimesOut(t *testing.T) {
	f := newFixture(50 * time.Millisecond)
	f.google.delay = 5 * time.Second

	start := time.Now()
	got, err := f.agg.SearchAll(context.Background(), "x", entity.Filters{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"A Carteira", "Dom Casmurro", "Helena"}, titles(got))

	select {
	case <-f.google.cancelled:
	case <-time.After(time.Second):
		t.Fatal("slow provider was not cancelled")
	}
}

func TestSearchAll_LocalIsNotTimeBound(t *testing.T) {
	f := newFixture(20 * time.Millisecond)
	f.local.delay = 100 * time.Millisecond

	got, err := f.agg.SearchAll(context.Background(), "x", entity.Filters{})
	require.NoError(t, err)
	assert.Contains(t, titles(got), "A Carteira")
}

func TestSearchSources_FollowsListedOrder(t *testing.T) {
	f := newFixture(time.Second)

	got, err := f.agg.SearchSources(context.Background(), "", entity.Filters{Subject: "romance"},
		[]entity.Source{entity.SourceGoogle, entity.SourceOpenLibrary, entity.SourceGoogle, "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Iracema", "Dom Casmurro", "Helena"}, titles(got))
	assert.Equal(t, int32(1), f.google.calls.Load())
}

func TestSearchAll_ParentCancelled(t *testing.T) {
	f := newFixture(time.Second)
	f.ol.delay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.agg.SearchAll(ctx, "x", entity.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassics(t *testing.T) {
	f := newFixture(time.Second)
	for i := 0; i < 20; i++ {
		f.standard.books = append(f.standard.books, entity.BookRecord{ID: "s", Title: "T"})
	}

	got, err := f.agg.Classics(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, ClassicsLimit)

	empty, err := New(Config{}).Classics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNew_ReplacesDuplicateSource(t *testing.T) {
	first := newFake(entity.SourceGoogle, "old")
	second := newFake(entity.SourceGoogle, "new")
	agg := New(Config{}, first, second)

	got, err := agg.SearchAll(context.Background(), "x", entity.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, titles(got))
	assert.Equal(t, []entity.Source{entity.SourceGoogle}, agg.Sources())
}
