// File path: internal/retrieval/relevance.go
package retrieval

import (
	"sort"
	"strings"
)

// pathMatchBonus is added once per keyword found in a file's path.
const pathMatchBonus = 5

// Document is a candidate file for the context sent to the model.
type Document struct {
	Path     string
	Language string
	Size     int64
	Content  string
}

// Scored is a document with its relevance score. Fallback is set when the
// document was picked by size because nothing matched the question.
type Scored struct {
	Document
	Score    int
	Fallback bool
}

// FindRelevantFiles ranks docs by keyword frequency against question and
// returns at most limit results. When no document matches, the largest
// documents are returned instead.
func FindRelevantFiles(docs []Document, question string, limit int) []Scored {
	if limit <= 0 || len(docs) == 0 {
		return nil
	}
	keywords := ExtractKeywords(question)
	scored := make([]Scored, 0, len(docs))
	if len(keywords) > 0 {
		for _, doc := range docs {
			if score := scoreDocument(doc, keywords); score > 0 {
				scored = append(scored, Scored{Document: doc, Score: score})
			}
		}
	}
	if len(scored) == 0 {
		return largestFiles(docs, limit)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Path < scored[j].Path
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func scoreDocument(doc Document, keywords []string) int {
	content := strings.ToLower(doc.Content)
	path := strings.ToLower(doc.Path)
	score := 0
	for _, kw := range keywords {
		score += strings.Count(content, kw)
		if strings.Contains(path, kw) {
			score += pathMatchBonus
		}
	}
	return score
}

func largestFiles(docs []Document, limit int) []Scored {
	ordered := make([]Scored, 0, len(docs))
	for _, doc := range docs {
		ordered = append(ordered, Scored{Document: doc, Fallback: true})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Size != ordered[j].Size {
			return ordered[i].Size > ordered[j].Size
		}
		return ordered[i].Path < ordered[j].Path
	})
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}
