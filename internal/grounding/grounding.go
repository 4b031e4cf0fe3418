// Package grounding flattens the endpoint's citation records into a list of
// sources.
package grounding

import (
	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/lang"
)

// Source is a citation the model used to support its answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Collect returns one Source per web or maps sub-record that has a URI, web
// before maps within a chunk, in encounter order. Duplicates are kept. A
// missing title is replaced with a localized generic one. The result is
// never nil.
func Collect(chunks []genai.GroundingChunk, l lang.Language) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Web != nil && ch.Web.URI != "" {
			sources = append(sources, Source{URI: ch.Web.URI, Title: titleOr(ch.Web.Title, l, lang.WebSource)})
		}
		if ch.Maps != nil && ch.Maps.URI != "" {
			sources = append(sources, Source{URI: ch.Maps.URI, Title: titleOr(ch.Maps.Title, l, lang.MapsSource)})
		}
	}
	return sources
}

func titleOr(title string, l lang.Language, fallback string) string {
	if title != "" {
		return title
	}
	return l.Text(fallback)
}
