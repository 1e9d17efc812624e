package openlibrary

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bookstream/internal/entity"
	"bookstream/internal/platform/fetch"

	"github.com/goccy/go-json"
)

const searchFields = "key,title,author_name,first_publish_year,cover_i,ia,ebook_access,public_scan_b,number_of_pages_median,language"

// DefaultDescription is returned when a work has no description or the
// details call fails.
const DefaultDescription = "Sem descrição disponível."

type Client struct {
	http    *fetch.Client
	baseURL string
}

func NewClient(httpClient *fetch.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

type Doc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorNames         []string `json:"author_name"`
	FirstPublishYear    *int     `json:"first_publish_year"`
	CoverID             *int     `json:"cover_i"`
	IA                  []string `json:"ia"`
	NumberOfPagesMedian *int     `json:"number_of_pages_median"`
	Language            []string `json:"language"`
}

// Work matches works/{id}.json. Description is either a string or
// {"type": ..., "value": ...}.
type Work struct {
	Description json.RawMessage `json:"description"`
	Subjects    []string        `json:"subjects"`
}

// composeQuery builds the q parameter: free text, public ebooks only, then
// provider-specific field filters.
func composeQuery(query string, f entity.Filters) string {
	parts := []string{}
	if q := strings.TrimSpace(query); q != "" {
		parts = append(parts, q)
	}
	parts = append(parts, "ebook_access:public")
	if f.Language != "" {
		parts = append(parts, "language:"+f.Language)
	}
	if f.Subject != "" {
		parts = append(parts, "subject:"+f.Subject)
	}
	if a := strings.TrimSpace(f.Author); a != "" {
		if strings.Contains(a, " ") {
			a = `"` + a + `"`
		}
		parts = append(parts, "author:"+a)
	}
	return strings.Join(parts, " ")
}

// Search queries search.json for public-domain full-text works.
func (c *Client) Search(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error) {
	if strings.TrimSpace(query) == "" && !f.HasCriteria() {
		return []entity.BookRecord{}, nil
	}

	u := fmt.Sprintf("%s/search.json?q=%s&has_fulltext=true&limit=30&fields=%s",
		c.baseURL, url.QueryEscape(composeQuery(query, f)), searchFields)

	var res SearchResponse
	if err := c.http.GetJSON(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("openlibrary search: %w", err)
	}
	return mapDocs(res.Docs), nil
}

func mapDocs(docs []Doc) []entity.BookRecord {
	out := make([]entity.BookRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.Key == "" || doc.Title == "" || len(doc.IA) == 0 {
			continue
		}
		iaID := doc.IA[0]
		b := entity.BookRecord{
			ID:          doc.Key,
			Title:       doc.Title,
			Author:      entity.UnknownAuthor,
			Year:        doc.FirstPublishYear,
			PageCount:   doc.NumberOfPagesMedian,
			Language:    doc.Language,
			Source:      entity.SourceOpenLibrary,
			PDFURL:      fmt.Sprintf("https://archive.org/download/%s/%s.pdf", iaID, iaID),
			Description: "Detalhes disponíveis via clique",
		}
		if len(doc.AuthorNames) > 0 && doc.AuthorNames[0] != "" {
			b.Author = doc.AuthorNames[0]
		}
		if doc.CoverID != nil {
			b.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", *doc.CoverID)
		}
		out = append(out, b)
	}
	return out
}

// WorkDetails fetches the description and up to five subjects of a work.
// workID may be "/works/OL..." or the bare "OL..." key.
func (c *Client) WorkDetails(ctx context.Context, workID string) (entity.Details, error) {
	workID = strings.TrimSpace(workID)
	if workID == "" {
		return entity.Details{}, fmt.Errorf("work id is required")
	}
	if !strings.HasPrefix(workID, "/works/") {
		workID = "/works/" + strings.TrimPrefix(workID, "/")
	}

	var w Work
	if err := c.http.GetJSON(ctx, c.baseURL+workID+".json", &w); err != nil {
		return entity.Details{}, fmt.Errorf("openlibrary work %s: %w", workID, err)
	}

	d := entity.Details{Description: parseDescription(w.Description), Subjects: []string{}}
	if d.Description == "" {
		d.Description = DefaultDescription
	}
	for _, s := range w.Subjects {
		if len(d.Subjects) == 5 {
			break
		}
		if s != "" {
			d.Subjects = append(d.Subjects, s)
		}
	}
	return d, nil
}

func parseDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return typed.Value
	}
	return ""
}
