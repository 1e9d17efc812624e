package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"bookstream/internal/entity"
	"bookstream/internal/logging"
)

// NewBook is a validated upload. Files are optional.
type NewBook struct {
	Title       string `validate:"required,max=200"`
	Author      string `validate:"required,max=100"`
	Year        *int   `validate:"omitempty,gte=0,lte=2100"`
	PageCount   *int   `validate:"omitempty,gte=1"`
	Description string `validate:"max=5000"`
	Language    string `validate:"omitempty,lang"`
}

// Upload is one file of a NewBook.
type Upload struct {
	Name    string
	Content io.Reader
}

type Service struct {
	repo         Repository
	files        *FileStorage
	publicURL    string
	queryTimeout time.Duration
}

func NewService(repo Repository, files *FileStorage, publicURL string, queryTimeout time.Duration) *Service {
	return &Service{
		repo:         repo,
		files:        files,
		publicURL:    strings.TrimRight(publicURL, "/"),
		queryTimeout: queryTimeout,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// List returns every book whose title or author contains q, or every book
// when q is blank.
func (s *Service) List(ctx context.Context, q string, baseURL string) ([]entity.BookRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	books, err := s.repo.List(ctx, SearchQuery{Q: q})
	if err != nil {
		return nil, err
	}
	return s.records(books, baseURL), nil
}

// Search is the catalog's face as a search provider. Subject filters have
// no local counterpart: a subject-only search matches nothing.
func (s *Service) Search(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error) {
	if strings.TrimSpace(query) == "" && strings.TrimSpace(f.Author) == "" && strings.TrimSpace(f.Language) == "" {
		return []entity.BookRecord{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	books, err := s.repo.List(ctx, SearchQuery{Q: query, Author: f.Author, Language: f.Language})
	if err != nil {
		return nil, fmt.Errorf("local catalog search: %w", err)
	}
	return s.records(books, s.publicURL), nil
}

// Create stores the files first and then the row, removing the files again
// if the insert fails.
func (s *Service) Create(ctx context.Context, in NewBook, pdf, cover *Upload) (Book, error) {
	b := Book{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Year:        in.Year,
		PageCount:   in.PageCount,
		Description: strings.TrimSpace(in.Description),
		Language:    strings.ToLower(strings.TrimSpace(in.Language)),
		Source:      string(entity.SourceLocal),
	}

	var saved []string
	cleanup := func() {
		for _, p := range saved {
			if err := s.files.Remove(p); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("path", p).Msg("remove orphaned upload")
			}
		}
	}

	if pdf != nil {
		p, err := s.files.Save(pdf.Content, "pdfs", pdf.Name)
		if err != nil {
			return Book{}, err
		}
		saved = append(saved, p)
		b.PDFPath = p
	}
	if cover != nil {
		p, err := s.files.Save(cover.Content, "covers", cover.Name)
		if err != nil {
			cleanup()
			return Book{}, err
		}
		saved = append(saved, p)
		b.CoverPath = p
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, &b); err != nil {
		cleanup()
		return Book{}, err
	}
	return b, nil
}

// Open returns the stored file of kind for book id. The caller closes it.
func (s *Service) Open(ctx context.Context, id uuid.UUID, kind FileKind) (afero.File, os.FileInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rel := b.Path(kind)
	if rel == "" {
		return nil, nil, ErrFileNotFound
	}
	f, info, err := s.files.Open(rel)
	if errors.Is(err, ErrFileNotFound) {
		logging.Ctx(ctx).Warn().Str("book_id", id.String()).Str("path", rel).Msg("stored file missing")
	}
	return f, info, err
}

// Record converts b using the configured public URL, falling back to
// baseURL when none is configured.
func (s *Service) Record(b Book, baseURL string) entity.BookRecord {
	if s.publicURL != "" {
		baseURL = s.publicURL
	}
	return b.Record(baseURL)
}

func (s *Service) records(books []Book, baseURL string) []entity.BookRecord {
	out := make([]entity.BookRecord, 0, len(books))
	for _, b := range books {
		out = append(out, s.Record(b, baseURL))
	}
	return out
}
