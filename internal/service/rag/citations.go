package rag

import "github.com/pocketkart/pocketbot/internal/core"

// CitationFloor is the minimum score a snippet needs to surface as a
// citation. The comparison is inclusive: a snippet scoring exactly the floor
// is cited.
const CitationFloor = 0.15

// Citations maps retrieval snippets to citations, dropping anything below
// the floor. Snippets with no title fall back to their record id so the
// citation is never blank.
func Citations(snippets []core.Snippet) []core.Source {
	var out []core.Source
	for _, sn := range snippets {
		if sn.Score < CitationFloor {
			continue
		}
		title := sn.Title
		if title == "" {
			title = sn.ID
		}
		out = append(out, core.Source{
			Title: title,
			URL:   sn.URL,
			Score: sn.Score,
		})
	}
	return out
}
