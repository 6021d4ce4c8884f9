package domain

import "strings"

// QueryKind tells how the text a user passed to /play is resolved.
type QueryKind int

const (
	// QuerySearch is free text looked up on YouTube.
	QuerySearch QueryKind = iota
	// QueryLink is a web URL or a spotify: URI, loaded as is.
	QueryLink
)

var linkPrefixes = []string{"http://", "https://", "www.", "spotify:"}

// SearchQuery is user input classified as a search or a link.
type SearchQuery struct {
	Text string
	Kind QueryKind
}

// ParseSearchQuery trims the input and classifies it.
func ParseSearchQuery(input string) SearchQuery {
	text := strings.TrimSpace(input)
	lower := strings.ToLower(text)
	for _, prefix := range linkPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return SearchQuery{Text: text, Kind: QueryLink}
		}
	}
	return SearchQuery{Text: text, Kind: QuerySearch}
}

// Empty reports whether nothing but whitespace was given.
func (q SearchQuery) Empty() bool {
	return q.Text == ""
}

// IsLink reports whether the query names a resource directly.
func (q SearchQuery) IsLink() bool {
	return q.Kind == QueryLink
}
