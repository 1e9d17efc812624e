// Package catalog is the server's own book collection: rows in Postgres and
// the uploaded PDF and cover files next to them.
package catalog

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookstream/internal/entity"
)

var (
	ErrNotFound     = errors.New("book not found")
	ErrFileNotFound = errors.New("book file not found")
)

// FileKind selects which stored file of a book to serve.
type FileKind string

const (
	FilePDF   FileKind = "pdf"
	FileCover FileKind = "cover"
)

// ParseFileKind defaults to FilePDF for anything other than "cover".
func ParseFileKind(s string) FileKind {
	if strings.EqualFold(strings.TrimSpace(s), string(FileCover)) {
		return FileCover
	}
	return FilePDF
}

func (k FileKind) ContentType() string {
	if k == FileCover {
		return "image/jpeg"
	}
	return "application/pdf"
}

type Book struct {
	ID          uuid.UUID
	Title       string
	Author      string
	Year        *int
	PageCount   *int
	Description string
	Language    string
	PDFPath     string
	CoverPath   string
	Source      string
	CreatedAt   time.Time
}

// DownloadPath is the route serving one of the book's files.
func DownloadPath(id uuid.UUID, kind FileKind) string {
	return "/books/download/" + id.String() + "?type=" + url.QueryEscape(string(kind))
}

// Record maps b to the shared record shape. baseURL prefixes the download
// links and may be empty for relative links.
func (b Book) Record(baseURL string) entity.BookRecord {
	baseURL = strings.TrimRight(baseURL, "/")
	r := entity.BookRecord{
		ID:          b.ID.String(),
		Title:       b.Title,
		Author:      b.Author,
		Year:        b.Year,
		PageCount:   b.PageCount,
		Description: b.Description,
		Source:      entity.SourceLocal,
	}
	if b.Language != "" {
		r.Language = []string{b.Language}
	}
	if b.PDFPath != "" {
		r.PDFURL = baseURL + DownloadPath(b.ID, FilePDF)
	}
	if b.CoverPath != "" {
		r.CoverURL = baseURL + DownloadPath(b.ID, FileCover)
	}
	return r
}

// Path returns the stored relative path for kind.
func (b Book) Path(kind FileKind) string {
	if kind == FileCover {
		return b.CoverPath
	}
	return b.PDFPath
}

// SearchQuery narrows List. Empty fields match everything.
type SearchQuery struct {
	Q        string
	Author   string
	Language string
	Limit    int
}
