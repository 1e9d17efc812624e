// Package interest keeps the tag frequency table that drives personal
// recommendations.
package interest

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"unicode"

	"bookstream/internal/entity"
	"bookstream/internal/kvstore"
	"bookstream/internal/logging"
)

// Key is where the table is persisted.
const Key = "interests/v2"

const (
	authorTagPrefix = "author:"
	minKeywordRunes = 4
)

// Tag is one row of the table.
type Tag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Model counts author and title keyword tags. Counts only ever grow.
type Model struct {
	mu        sync.Mutex
	store     kvstore.Store
	stopWords map[string]struct{}
}

func NewModel(store kvstore.Store, stopWords []string) *Model {
	sw := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		sw[strings.ToLower(w)] = struct{}{}
	}
	return &Model{store: store, stopWords: sw}
}

// RecordAcquisition adds one to the book's author tag and to each distinct
// title keyword.
func (m *Model) RecordAcquisition(ctx context.Context, b entity.BookRecord) {
	tags := m.tagsFor(b)
	if len(tags) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.load(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("load interests, acquisition not recorded")
		return
	}
	for _, t := range tags {
		table[t]++
	}
	if err := m.store.Put(ctx, Key, table); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("book_id", b.ID).Msg("save interests")
	}
}

// TopInterests returns up to limit tags by descending count. Equal counts
// are ordered by tag.
func (m *Model) TopInterests(ctx context.Context, limit int) []string {
	top := m.Top(ctx, limit)
	out := make([]string, 0, len(top))
	for _, t := range top {
		out = append(out, t.Tag)
	}
	return out
}

// Top is TopInterests with the counts attached.
func (m *Model) Top(ctx context.Context, limit int) []Tag {
	if limit <= 0 {
		return []Tag{}
	}
	table := m.Snapshot(ctx)
	rows := make([]Tag, 0, len(table))
	for tag, n := range table {
		rows = append(rows, Tag{Tag: tag, Count: n})
	}
	slices.SortFunc(rows, func(a, b Tag) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Snapshot returns a copy of the whole table. Storage errors yield an empty
// table.
func (m *Model) Snapshot(ctx context.Context) map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, err := m.load(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("load interests")
		return map[string]int{}
	}
	return table
}

func (m *Model) load(ctx context.Context) (map[string]int, error) {
	table := map[string]int{}
	err := m.store.Get(ctx, Key, &table)
	if errors.Is(err, kvstore.ErrNotFound) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, err
	}
	if table == nil {
		table = map[string]int{}
	}
	return table, nil
}

func (m *Model) tagsFor(b entity.BookRecord) []string {
	var tags []string
	if b.HasAuthor() {
		tags = append(tags, authorTagPrefix+strings.TrimSpace(b.Author))
	}
	return append(tags, m.Keywords(b.Title)...)
}

// Keywords splits title into lowercase letter and digit runs, dropping stop
// words and words of three runes or fewer. Each word appears once, in order
// of first occurrence.
func (m *Model) Keywords(title string) []string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < minKeywordRunes {
			continue
		}
		if _, stop := m.stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
