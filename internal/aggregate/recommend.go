package aggregate

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"bookstream/internal/entity"
	"bookstream/internal/logging"
)

const (
	// DefaultLimit applies when a caller passes a non-positive limit.
	DefaultLimit = 10

	// ForYouTags is how many top interests seed the personal feed.
	ForYouTags = 3

	authorPrefix = "author:"
)

// RecommendationSources are queried, in this order, for every tag.
var RecommendationSources = []entity.Source{entity.SourceGoogle, entity.SourceOpenLibrary}

// Interests supplies the tags a personal feed is built from.
type Interests interface {
	TopInterests(ctx context.Context, limit int) []string
}

// Searcher is the part of Aggregator the composer depends on.
type Searcher interface {
	SearchSources(ctx context.Context, query string, f entity.Filters, sources []entity.Source) ([]entity.BookRecord, error)
}

type Composer struct {
	search  Searcher
	sources []entity.Source
}

func NewComposer(s Searcher) *Composer {
	return &Composer{search: s, sources: RecommendationSources}
}

// MixedRecommendations searches every tag concurrently, keeping at most
// limit records per tag, then dedupes the concatenation in tag order and
// truncates it to limit. Tags prefixed with "author:" become an author
// constraint; any other tag is a keyword query.
func (c *Composer) MixedRecommendations(ctx context.Context, tags []string, limit int) []entity.BookRecord {
	if len(tags) == 0 {
		return []entity.BookRecord{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	perTag := make([][]entity.BookRecord, len(tags))
	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		g.Go(func() error {
			query, f := tagQuery(tag)
			books, err := c.search.SearchSources(gctx, query, f, c.sources)
			if err != nil {
				return err
			}
			perTag[i] = truncate(books, limit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Strs("tags", tags).Msg("recommendations failed")
		return []entity.BookRecord{}
	}

	var all []entity.BookRecord
	for _, books := range perTag {
		all = append(all, books...)
	}
	return truncate(Dedupe(all), limit)
}

// BooksBySubject lists books for one editorial category.
func (c *Composer) BooksBySubject(ctx context.Context, subject string, limit int) []entity.BookRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}
	books, err := c.search.SearchSources(ctx, "", entity.Filters{Subject: subject}, c.sources)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("subject", subject).Msg("subject listing failed")
		return []entity.BookRecord{}
	}
	return truncate(Dedupe(books), limit)
}

// ForYou builds the personal feed from the strongest interests.
func (c *Composer) ForYou(ctx context.Context, interests Interests, limit int) []entity.BookRecord {
	return c.MixedRecommendations(ctx, interests.TopInterests(ctx, ForYouTags), limit)
}

func tagQuery(tag string) (string, entity.Filters) {
	if author, ok := strings.CutPrefix(tag, authorPrefix); ok {
		return "", entity.Filters{Author: author}
	}
	return tag, entity.Filters{}
}
