package googlebooks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bookstream/internal/entity"
	"bookstream/internal/platform/fetch"
)

// langRestrict maps the three-letter codes used by the app to the two-letter
// codes Google expects.
var langRestrict = map[string]string{
	"por": "pt",
	"eng": "en",
	"spa": "es",
	"fre": "fr",
}

type Client struct {
	http    *fetch.Client
	baseURL string
	apiKey  string
}

func NewClient(httpClient *fetch.Client, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
	AccessInfo AccessInfo `json:"accessInfo"`
}

type VolumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	PageCount     *int     `json:"pageCount"`
	Language      string   `json:"language"`
	Categories    []string `json:"categories"`
	ImageLinks    struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
}

type AccessInfo struct {
	WebReaderLink string `json:"webReaderLink"`
	PDF           struct {
		IsAvailable  bool   `json:"isAvailable"`
		DownloadLink string `json:"downloadLink"`
	} `json:"pdf"`
}

func composeQuery(query string, f entity.Filters) string {
	terms := []string{}
	if q := strings.TrimSpace(query); q != "" {
		terms = append(terms, q)
	}
	if f.Subject != "" {
		terms = append(terms, "subject:"+f.Subject)
	}
	if a := strings.TrimSpace(f.Author); a != "" {
		terms = append(terms, "inauthor:"+a)
	}
	if len(terms) == 0 {
		return "*"
	}
	return strings.Join(terms, "+")
}

// Search queries the volumes endpoint for free ebooks.
func (c *Client) Search(ctx context.Context, query string, f entity.Filters) ([]entity.BookRecord, error) {
	u := fmt.Sprintf("%s/volumes?q=%s&filter=free-ebooks&maxResults=15&printType=books",
		c.baseURL, url.QueryEscape(composeQuery(query, f)))
	if f.Language != "" {
		lang := f.Language
		if mapped, ok := langRestrict[lang]; ok {
			lang = mapped
		}
		u += "&langRestrict=" + url.QueryEscape(lang)
	}
	if c.apiKey != "" {
		u += "&key=" + url.QueryEscape(c.apiKey)
	}

	var res VolumesResponse
	if err := c.http.GetJSON(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("google books search: %w", err)
	}

	out := make([]entity.BookRecord, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, mapVolume(item))
	}
	return out, nil
}

func mapVolume(v Volume) entity.BookRecord {
	info := v.VolumeInfo
	b := entity.BookRecord{
		ID:          v.ID,
		Title:       info.Title,
		Author:      entity.UnknownAuthor,
		PageCount:   info.PageCount,
		Source:      entity.SourceGoogle,
		Description: info.Description,
		ReadURL:     v.AccessInfo.WebReaderLink,
		CoverURL:    info.ImageLinks.Thumbnail,
		Subjects:    info.Categories,
	}
	if b.Title == "" {
		b.Title = "Sem Título"
	}
	if len(info.Authors) > 0 && info.Authors[0] != "" {
		b.Author = info.Authors[0]
	}
	if strings.HasPrefix(b.CoverURL, "http://") {
		b.CoverURL = "https://" + strings.TrimPrefix(b.CoverURL, "http://")
	}
	if len(info.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(info.PublishedDate[:4]); err == nil {
			b.Year = &year
		}
	}
	if v.AccessInfo.PDF.IsAvailable && v.AccessInfo.PDF.DownloadLink != "" {
		b.PDFURL = v.AccessInfo.PDF.DownloadLink
	}
	if info.Language != "" {
		b.Language = []string{info.Language}
	}
	return b
}
