package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstream/internal/entity"
	"bookstream/internal/kvstore"
)

type recorded struct {
	mu    sync.Mutex
	books []entity.BookRecord
}

func (r *recorded) RecordAcquisition(_ context.Context, b entity.BookRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books = append(r.books, b)
}

func newTestLibrary(t *testing.T, opts ...Option) (*Library, afero.Fs) {
	t.Helper()
	s, err := kvstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fs := afero.NewMemMapFs()
	clock := time.UnixMilli(1_700_000_000_000)
	opts = append([]Option{WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})}, opts...)
	return New(s, fs, opts...), fs
}

var (
	casmurro = entity.BookRecord{ID: "/works/OL1W", Title: "Dom Casmurro", Author: "Machado de Assis", Source: entity.SourceOpenLibrary}
	helena   = entity.BookRecord{ID: "g1", Title: "Helena", Author: "Machado de Assis", Source: entity.SourceGoogle}
	iracema  = entity.BookRecord{ID: "local-1", Title: "Iracema", Author: "José de Alencar", Source: entity.SourceLocal}
)

func ids(entries []entity.LibraryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestAddDownload_NewestFirstAndReplaces(t *testing.T) {
	rec := &recorded{}
	lib, _ := newTestLibrary(t, WithRecorder(rec))
	ctx := context.Background()

	_, err := lib.AddDownload(ctx, casmurro, "/books/casmurro.pdf")
	require.NoError(t, err)
	_, err = lib.AddDownload(ctx, helena, "/books/helena.pdf")
	require.NoError(t, err)
	again, err := lib.AddDownload(ctx, casmurro, "/books/casmurro-v2.pdf")
	require.NoError(t, err)

	downloads := lib.Downloads(ctx)
	assert.Equal(t, []string{casmurro.ID, helena.ID}, ids(downloads))
	assert.Equal(t, "/books/casmurro-v2.pdf", downloads[0].LocalFileURI)
	assert.Equal(t, again.DownloadedAt, downloads[0].DownloadedAt)
	assert.Greater(t, downloads[0].DownloadedAt, downloads[1].DownloadedAt)
	assert.True(t, downloads[0].IsDownloaded)

	assert.Len(t, rec.books, 3)
}

func TestAddDownload_Validation(t *testing.T) {
	lib, _ := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.AddDownload(ctx, entity.BookRecord{Title: "no id"}, "/x.pdf")
	assert.ErrorIs(t, err, ErrMissingID)
	_, err = lib.AddDownload(ctx, casmurro, " ")
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Empty(t, lib.Downloads(ctx))
}

func TestRemoveDownload(t *testing.T) {
	lib, _ := newTestLibrary(t)
	ctx := context.Background()

	_, _ = lib.AddDownload(ctx, casmurro, "/a.pdf")
	_, _ = lib.AddDownload(ctx, helena, "/b.pdf")
	lib.RemoveDownload(ctx, casmurro.ID)
	lib.RemoveDownload(ctx, "missing")

	assert.Equal(t, []string{helena.ID}, ids(lib.Downloads(ctx)))
}

func TestToggleFavorite(t *testing.T) {
	lib, _ := newTestLibrary(t)
	ctx := context.Background()

	assert.False(t, lib.IsFavorite(ctx, helena.ID))
	assert.True(t, lib.ToggleFavorite(ctx, helena))
	assert.True(t, lib.ToggleFavorite(ctx, iracema))
	assert.True(t, lib.IsFavorite(ctx, helena.ID))
	assert.Equal(t, []entity.BookRecord{helena, iracema}, lib.Favorites(ctx))

	assert.False(t, lib.ToggleFavorite(ctx, helena))
	assert.False(t, lib.IsFavorite(ctx, helena.ID))
	assert.Equal(t, []entity.BookRecord{iracema}, lib.Favorites(ctx))
}

func TestEntries_FavoriteThenDownload(t *testing.T) {
	lib, fs := newTestLibrary(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(fs, "/books/casmurro.pdf", []byte("%PDF"), 0o644))

	lib.ToggleFavorite(ctx, casmurro)
	entries := lib.Entries(ctx)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsFavorite)
	assert.False(t, entries[0].IsDownloaded)
	assert.Empty(t, entries[0].LocalFileURI)

	_, err := lib.AddDownload(ctx, casmurro, "/books/casmurro.pdf")
	require.NoError(t, err)
	entries = lib.Entries(ctx)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsFavorite)
	assert.True(t, entries[0].IsDownloaded)
}

func TestMerge_DownloadsFirstThenFavoriteOnly(t *testing.T) {
	downloads := []entity.LibraryEntry{
		{BookRecord: helena, LocalFileURI: "/h.pdf"},
		{BookRecord: casmurro, LocalFileURI: "/c.pdf"},
	}
	favorites := []entity.BookRecord{iracema, casmurro}

	got := Merge(downloads, favorites)
	assert.Equal(t, []string{helena.ID, casmurro.ID, iracema.ID}, ids(got))
	assert.False(t, got[0].IsFavorite)
	assert.True(t, got[1].IsFavorite && got[1].IsDownloaded)
	assert.True(t, got[2].IsFavorite)
	assert.False(t, got[2].IsDownloaded)
}

func TestReconcile_DemotesMissingFiles(t *testing.T) {
	lib, fs := newTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fs, "/books/helena.pdf", []byte("%PDF"), 0o644))
	_, _ = lib.AddDownload(ctx, casmurro, "file:///books/casmurro.pdf")
	_, _ = lib.AddDownload(ctx, helena, "/books/helena.pdf")
	_, _ = lib.AddDownload(ctx, iracema, "content://com.android.externalstorage/iracema.pdf")
	lib.ToggleFavorite(ctx, casmurro)

	demoted := lib.Reconcile(ctx)
	assert.Equal(t, []string{casmurro.ID}, demoted)
	assert.Equal(t, []string{iracema.ID, helena.ID}, ids(lib.Downloads(ctx)))

	entries := lib.Entries(ctx)
	require.Len(t, entries, 3)
	last := entries[2]
	assert.Equal(t, casmurro.ID, last.ID)
	assert.True(t, last.IsFavorite)
	assert.False(t, last.IsDownloaded)

	assert.Empty(t, lib.Reconcile(ctx))
}

func TestEntries_DropsDownloadWithMissingFile(t *testing.T) {
	lib, fs := newTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fs, "/books/casmurro.pdf", []byte("%PDF"), 0o644))
	_, err := lib.AddDownload(ctx, helena, "/books/missing.pdf")
	require.NoError(t, err)
	_, err = lib.AddDownload(ctx, casmurro, "/books/casmurro.pdf")
	require.NoError(t, err)
	lib.ToggleFavorite(ctx, helena)

	entries := lib.Entries(ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, casmurro.ID, entries[0].ID)
	assert.True(t, entries[0].IsDownloaded)
	assert.Equal(t, helena.ID, entries[1].ID)
	assert.False(t, entries[1].IsDownloaded)
	assert.True(t, entries[1].IsFavorite)

	assert.Equal(t, []string{casmurro.ID}, ids(lib.Downloads(ctx)))
}

func TestRunReconciler_DropsMissingFilesUntilCancelled(t *testing.T) {
	lib, fs := newTestLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, afero.WriteFile(fs, "/books/helena.pdf", []byte("%PDF"), 0o644))
	_, err := lib.AddDownload(ctx, helena, "/books/helena.pdf")
	require.NoError(t, err)
	require.NoError(t, fs.Remove("/books/helena.pdf"))

	done := make(chan struct{})
	go func() {
		lib.RunReconciler(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(lib.Downloads(context.Background())) == 0 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestRunReconciler_DisabledInterval(t *testing.T) {
	lib, _ := newTestLibrary(t)
	// Returns at once instead of blocking.
	lib.RunReconciler(context.Background(), 0)
}

type failingPuts struct{ kvstore.Store }

func (failingPuts) Put(context.Context, string, any) error { return errors.New("disk full") }

func TestAddDownload_SaveFailure(t *testing.T) {
	s, err := kvstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	rec := &recorded{}
	lib := New(failingPuts{s}, afero.NewMemMapFs(), WithRecorder(rec))

	_, err = lib.AddDownload(context.Background(), helena, "/books/helena.pdf")
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.Empty(t, rec.books)
	assert.Empty(t, lib.Downloads(context.Background()))
}

func TestFolder(t *testing.T) {
	lib, _ := newTestLibrary(t)
	ctx := context.Background()

	assert.Empty(t, lib.Folder(ctx))
	lib.SetFolder(ctx, " content://tree/Books ")
	assert.Equal(t, "content://tree/Books", lib.Folder(ctx))
}
