package aggregate

import (
	"strings"
	"unicode"

	"bookstream/internal/entity"
	"bookstream/internal/metrics"
)

const (
	titleKeyLen  = 15
	authorKeyLen = 5

	noTitle  = "sem_titulo"
	noAuthor = "desc"
)

// Fingerprint is the key two records must share to count as the same book:
// the first 15 runes of the normalized title and the first 5 of the
// normalized author. Distinct books with long common title prefixes and
// short common author prefixes collide.
func Fingerprint(b entity.BookRecord) string {
	title := normalize(b.Title)
	if title == "" {
		title = noTitle
	}
	author := normalize(b.Author)
	if author == "" {
		author = noAuthor
	}
	return prefix(title, titleKeyLen) + "_" + prefix(author, authorKeyLen)
}

// Dedupe keeps the first record seen for each fingerprint, in input order.
func Dedupe(books []entity.BookRecord) []entity.BookRecord {
	seen := make(map[string]struct{}, len(books))
	out := make([]entity.BookRecord, 0, len(books))
	for _, b := range books {
		key := Fingerprint(b)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	if dropped := len(books) - len(out); dropped > 0 {
		metrics.DedupeDropped.Add(float64(dropped))
	}
	return out
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
