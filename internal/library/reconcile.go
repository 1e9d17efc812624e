package library

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"bookstream/internal/entity"
	"bookstream/internal/logging"
)

// Reconcile checks every downloaded entry against the filesystem and drops
// the ones whose file is gone. Favorites are left alone, so a dropped
// favorite stays in the merged view as not downloaded. It returns the ids
// that were dropped.
func (l *Library) Reconcile(ctx context.Context) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, demoted := l.reconcile(ctx)
	return demoted
}

// RunReconciler calls Reconcile every interval until ctx is done. A
// non-positive interval disables it.
func (l *Library) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Reconcile(ctx)
		}
	}
}

// reconcile must be called with l.mu held. It returns the downloads that
// survived and the ids that were dropped.
func (l *Library) reconcile(ctx context.Context) ([]entity.LibraryEntry, []string) {
	downloads := l.downloads(ctx)
	kept := make([]entity.LibraryEntry, 0, len(downloads))
	demoted := []string{}
	for _, e := range downloads {
		present, err := l.fileExists(e.LocalFileURI)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("book_id", e.ID).Str("uri", e.LocalFileURI).
				Msg("cannot verify download, keeping entry")
			present = true
		}
		if present {
			kept = append(kept, e)
			continue
		}
		demoted = append(demoted, e.ID)
	}

	if len(demoted) > 0 {
		l.save(ctx, KeyDownloaded, kept)
		logging.Ctx(ctx).Info().Strs("ids", demoted).Msg("removed downloads with missing files")
	}
	return kept, demoted
}

// fileExists resolves uri to a path on l.fs. URIs with a scheme other than
// file cannot be checked here and count as present.
func (l *Library) fileExists(uri string) (bool, error) {
	path, ok := localPath(uri)
	if !ok {
		return true, nil
	}
	if path == "" {
		return false, nil
	}
	info, err := l.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func localPath(uri string) (string, bool) {
	uri = strings.TrimSpace(uri)
	if !strings.Contains(uri, "://") {
		return uri, true
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return u.Path, true
}
