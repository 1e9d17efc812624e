package entity

import "strings"

// Source identifies the provider a BookRecord came from.
type Source string

const (
	SourceLocal       Source = "local"
	SourceOpenLibrary Source = "openlibrary"
	SourceGoogle      Source = "google"
	SourceGutenberg   Source = "gutenberg"
	SourceStandard    Source = "standard"
)

// UnknownAuthor is used by providers when a record carries no author.
const UnknownAuthor = "Desconhecido"

var sourceLabels = map[Source]string{
	SourceOpenLibrary: "Open Library",
	SourceGoogle:      "Google Books",
	SourceGutenberg:   "Gutenberg",
	SourceStandard:    "Standard Ebooks",
	SourceLocal:       "Servidor Local",
}

// ParseSource returns the Source named by s and whether it is known.
func ParseSource(s string) (Source, bool) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	_, ok := sourceLabels[src]
	return src, ok
}

// Label is the human readable provider name shown next to a record.
func (s Source) Label() string {
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return "Acervo"
}

// BookRecord is the normalized book shape every provider produces.
// IDs are only unique within their Source.
type BookRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Year        *int     `json:"year,omitempty"`
	PageCount   *int     `json:"pageCount,omitempty"`
	Language    []string `json:"language,omitempty"`
	Source      Source   `json:"source"`
	CoverURL    string   `json:"coverUrl,omitempty"`
	PDFURL      string   `json:"pdfUrl,omitempty"`
	ReadURL     string   `json:"readUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
}

// Usable reports whether the record has a title worth displaying.
func (b BookRecord) Usable() bool {
	return strings.TrimSpace(b.Title) != ""
}

// HasAuthor reports whether the author is set to something other than the
// unknown sentinel.
func (b BookRecord) HasAuthor() bool {
	a := strings.TrimSpace(b.Author)
	return a != "" && a != UnknownAuthor
}

// Details is the lazily fetched enrichment for a record.
type Details struct {
	Description string   `json:"description"`
	Subjects    []string `json:"subjects"`
}

// WithDetails returns a copy of b with non-empty detail fields merged over it.
func (b BookRecord) WithDetails(d Details) BookRecord {
	out := b
	if d.Description != "" {
		out.Description = d.Description
	}
	if len(d.Subjects) > 0 {
		out.Subjects = append([]string(nil), d.Subjects...)
	}
	return out
}

// Filters narrows a search. Author is a structured author constraint; each
// provider composes it into its own query syntax.
type Filters struct {
	Language string
	Subject  string
	Source   string
	Author   string
}

// HasCriteria reports whether the filters alone are enough to issue a search.
func (f Filters) HasCriteria() bool {
	return strings.TrimSpace(f.Language) != "" ||
		strings.TrimSpace(f.Subject) != "" ||
		strings.TrimSpace(f.Author) != ""
}

// IntPtr is a helper for optional numeric fields.
func IntPtr(v int) *int {
	return &v
}
