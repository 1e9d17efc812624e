// Package library keeps the downloaded and favorite collections and the
// merged view built from them.
package library

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"bookstream/internal/entity"
	"bookstream/internal/kvstore"
	"bookstream/internal/logging"
)

const (
	KeyDownloaded = "library/downloaded"
	KeyFavorites  = "library/favorites"
	KeyFolder     = "library/folder"
)

// Recorder is notified of every download.
type Recorder interface {
	RecordAcquisition(ctx context.Context, b entity.BookRecord)
}

type Library struct {
	mu       sync.Mutex
	store    kvstore.Store
	fs       afero.Fs
	recorder Recorder
	now      func() time.Time
}

type Option func(*Library)

// WithRecorder reports downloads to r.
func WithRecorder(r Recorder) Option {
	return func(l *Library) { l.recorder = r }
}

// WithClock replaces time.Now for downloadedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// New builds a Library over store. fs is where downloaded files are
// verified.
func New(store kvstore.Store, fs afero.Fs, opts ...Option) *Library {
	l := &Library{store: store, fs: fs, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddDownload stores b as downloaded at localFileURI, ahead of every other
// download. An earlier entry with the same id is replaced.
func (l *Library) AddDownload(ctx context.Context, b entity.BookRecord, localFileURI string) (entity.LibraryEntry, error) {
	if strings.TrimSpace(b.ID) == "" {
		return entity.LibraryEntry{}, ErrMissingID
	}
	if strings.TrimSpace(localFileURI) == "" {
		return entity.LibraryEntry{}, ErrMissingFile
	}

	entry := entity.LibraryEntry{
		BookRecord:   b,
		LocalFileURI: localFileURI,
		DownloadedAt: l.now().UnixMilli(),
		IsDownloaded: true,
	}

	l.mu.Lock()
	downloads := l.downloads(ctx)
	downloads = slices.DeleteFunc(downloads, func(e entity.LibraryEntry) bool { return e.ID == b.ID })
	downloads = append([]entity.LibraryEntry{entry}, downloads...)
	if !l.save(ctx, KeyDownloaded, downloads) {
		l.mu.Unlock()
		return entity.LibraryEntry{}, ErrNotSaved
	}
	entry.IsFavorite = containsID(l.favorites(ctx), b.ID)
	l.mu.Unlock()

	if l.recorder != nil {
		l.recorder.RecordAcquisition(ctx, b)
	}
	return entry, nil
}

// RemoveDownload drops id from the downloaded collection.
func (l *Library) RemoveDownload(ctx context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	downloads := l.downloads(ctx)
	kept := slices.DeleteFunc(slices.Clone(downloads), func(e entity.LibraryEntry) bool { return e.ID == id })
	if len(kept) != len(downloads) {
		l.save(ctx, KeyDownloaded, kept)
	}
}

// ToggleFavorite adds b to the favorites when absent and removes it when
// present. It returns whether b is a favorite afterwards.
func (l *Library) ToggleFavorite(ctx context.Context, b entity.BookRecord) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	favorites, err := l.loadFavorites(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("book_id", b.ID).Msg("load favorites, toggle skipped")
		return false
	}

	var now bool
	if containsID(favorites, b.ID) {
		favorites = slices.DeleteFunc(favorites, func(f entity.BookRecord) bool { return f.ID == b.ID })
	} else {
		favorites = append(favorites, b)
		now = true
	}
	if !l.save(ctx, KeyFavorites, favorites) {
		return false
	}
	return now
}

func (l *Library) IsFavorite(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return containsID(l.favorites(ctx), id)
}

// Downloads lists downloaded entries, newest first.
func (l *Library) Downloads(ctx context.Context) []entity.LibraryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.downloads(ctx)
}

// Favorites lists favorite records in the order they were added.
func (l *Library) Favorites(ctx context.Context) []entity.BookRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.favorites(ctx)
}

// Entries is the union of both collections with each id once: downloads
// first in their order, then favorites that were never downloaded.
// Downloads whose file is gone are dropped first, as Reconcile does.
func (l *Library) Entries(ctx context.Context) []entity.LibraryEntry {
	l.mu.Lock()
	downloads, _ := l.reconcile(ctx)
	favorites := l.favorites(ctx)
	l.mu.Unlock()

	return Merge(downloads, favorites)
}

// Merge builds the merged view from the two collections.
func Merge(downloads []entity.LibraryEntry, favorites []entity.BookRecord) []entity.LibraryEntry {
	fav := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		fav[f.ID] = true
	}

	out := make([]entity.LibraryEntry, 0, len(downloads)+len(favorites))
	seen := make(map[string]bool, len(downloads)+len(favorites))
	for _, d := range downloads {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		d.IsDownloaded = d.LocalFileURI != ""
		d.IsFavorite = fav[d.ID]
		out = append(out, d)
	}
	for _, f := range favorites {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, entity.LibraryEntry{BookRecord: f, IsFavorite: true})
	}
	return out
}

// Folder returns the chosen download folder URI, or "" when unset.
func (l *Library) Folder(ctx context.Context) string {
	var uri string
	err := l.store.Get(ctx, KeyFolder, &uri)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		logging.Ctx(ctx).Error().Err(err).Msg("load download folder")
	}
	return uri
}

func (l *Library) SetFolder(ctx context.Context, uri string) {
	if err := l.store.Put(ctx, KeyFolder, strings.TrimSpace(uri)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("save download folder")
	}
}

func (l *Library) downloads(ctx context.Context) []entity.LibraryEntry {
	var out []entity.LibraryEntry
	if err := l.store.Get(ctx, KeyDownloaded, &out); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logging.Ctx(ctx).Error().Err(err).Msg("load downloads")
		}
		return []entity.LibraryEntry{}
	}
	if out == nil {
		out = []entity.LibraryEntry{}
	}
	return out
}

func (l *Library) favorites(ctx context.Context) []entity.BookRecord {
	out, err := l.loadFavorites(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("load favorites")
		return []entity.BookRecord{}
	}
	return out
}

func (l *Library) loadFavorites(ctx context.Context) ([]entity.BookRecord, error) {
	var out []entity.BookRecord
	err := l.store.Get(ctx, KeyFavorites, &out)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []entity.BookRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.BookRecord{}
	}
	return out, nil
}

func (l *Library) save(ctx context.Context, key string, v any) bool {
	if err := l.store.Put(ctx, key, v); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("save library collection")
		return false
	}
	return true
}

func containsID(books []entity.BookRecord, id string) bool {
	return slices.ContainsFunc(books, func(b entity.BookRecord) bool { return b.ID == id })
}
