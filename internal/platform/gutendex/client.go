// Package gutendex searches Project Gutenberg through the Gutendex API.
package gutendex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bookstream/internal/entity"
	"bookstream/internal/platform/fetch"
)

var languages = map[string]string{
	"por": "pt",
	"eng": "en",
	"spa": "es",
	"fre": "fr",
}

type Client struct {
	http    *fetch.Client
	baseURL string
}

func NewClient(httpClient *fetch.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://gutendex.com"
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type BooksResponse struct {
	Count   int    `json:"count"`
	Results []Book `json:"results"`
}

type Book struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Authors   []Person `json:"authors"`
	Languages []string `json:"languages"`
	// Formats maps MIME type to URL.
	Formats       map[string]string `json:"formats"`
	DownloadCount int               `json:"download_count"`
	Summaries     []string          `json:"summaries"`
	Subjects      []string          `json:"subjects"`
}

type Person struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

func (c *Client) Search(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error) {
	params := url.Values{}
	search := strings.TrimSpace(strings.Join([]string{query, f.Author}, " "))
	params.Set("search", search)
	if f.Language != "" {
		lang := f.Language
		if mapped, ok := languages[lang]; ok {
			lang = mapped
		}
		params.Set("languages", lang)
	}
	if f.Subject != "" {
		params.Set("topic", f.Subject)
	}

	var res BooksResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/books?"+params.Encode(), &res); err != nil {
		return nil, fmt.Errorf("gutendex search: %w", err)
	}

	out := make([]entity.BookRecord, 0, len(res.Results))
	for _, item := range res.Results {
		out = append(out, mapBook(item))
	}
	return out, nil
}

func mapBook(item Book) entity.BookRecord {
	b := entity.BookRecord{
		ID:       "gutenberg_" + strconv.Itoa(item.ID),
		Title:    item.Title,
		Author:   entity.UnknownAuthor,
		Language: item.Languages,
		Source:   entity.SourceGutenberg,
		CoverURL: item.Formats["image/jpeg"],
		PDFURL:   item.Formats["application/pdf"],
		Subjects: item.Subjects,
	}
	if len(item.Authors) > 0 {
		b.Author = displayName(item.Authors[0].Name)
		// Gutenberg has no publication year; the author's birth year stands in.
		b.Year = item.Authors[0].BirthYear
	}
	for _, mime := range []string{"text/html", "text/plain", "text/html; charset=utf-8"} {
		if u := item.Formats[mime]; u != "" {
			b.ReadURL = u
			break
		}
	}
	if len(item.Summaries) > 0 {
		b.Description = item.Summaries[0]
	}
	return b
}

// displayName turns "Assis, Machado de" into "Machado de Assis".
func displayName(name string) string {
	parts := strings.SplitN(name, ",", 2)
	if len(parts) < 2 {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0])
}
