// Package standardebooks reads the Standard Ebooks OPDS catalog.
package standardebooks

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"bookstream/internal/entity"
	"bookstream/internal/platform/fetch"
)

const (
	relImage     = "http://opds-spec.org/image"
	relThumbnail = "http://opds-spec.org/image/thumbnail"
	typeEPUB     = "application/epub+zip"

	// Limit is how many feed entries are returned.
	Limit = 15
)

type Client struct {
	http    *fetch.Client
	feedURL string
}

func NewClient(httpClient *fetch.Client, feedURL string) *Client {
	if feedURL == "" {
		feedURL = "https://standardebooks.org/opds/all"
	}
	return &Client{http: httpClient, feedURL: feedURL}
}

type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
}

type Entry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Updated string `xml:"updated"`
	Author  struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Content string `xml:"content"`
	Summary string `xml:"summary"`
	Links   []Link `xml:"link"`
}

type Link struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

// Classics returns the first Limit entries of the feed.
func (c *Client) Classics(ctx context.Context) ([]entity.BookRecord, error) {
	body, err := c.http.Get(ctx, c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("standard ebooks feed: %w", err)
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode standard ebooks feed: %w", err)
	}

	entries := feed.Entries
	if len(entries) > Limit {
		entries = entries[:Limit]
	}
	out := make([]entity.BookRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapEntry(e))
	}
	return out, nil
}

// Search ignores query and filters; the feed has no search endpoint.
func (c *Client) Search(ctx context.Context, _ string, _ entity.Filters) ([]entity.BookRecord, error) {
	return c.Classics(ctx)
}

func mapEntry(e Entry) entity.BookRecord {
	id := strings.TrimRight(e.ID, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	b := entity.BookRecord{
		ID:       "std_" + id,
		Title:    strings.TrimSpace(e.Title),
		Author:   strings.TrimSpace(e.Author.Name),
		Language: []string{"eng"},
		Source:   entity.SourceStandard,
	}
	if b.Author == "" {
		b.Author = entity.UnknownAuthor
	}
	if len(e.Updated) >= 4 {
		if year, err := strconv.Atoi(e.Updated[:4]); err == nil {
			b.Year = &year
		}
	}
	b.Description = strings.TrimSpace(e.Content)
	if b.Description == "" {
		b.Description = strings.TrimSpace(e.Summary)
	}
	for _, l := range e.Links {
		switch {
		case b.CoverURL == "" && (l.Rel == relImage || l.Rel == relThumbnail):
			b.CoverURL = l.Href
		case b.ReadURL == "" && l.Type == typeEPUB:
			b.ReadURL = l.Href
		}
	}
	return b
}
