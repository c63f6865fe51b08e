// File path: internal/llm/response.go
package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Answer is a parsed reply to a question.
type Answer struct {
	Answer    string
	Diagram   string
	Citations []string
}

// Suggestion is one proposed refactoring.
type Suggestion struct {
	File        string `json:"file"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Before      string `json:"before,omitempty"`
	After       string `json:"after,omitempty"`
	Priority    string `json:"priority"`
}

// Refactor is a parsed reply to a refactor request.
type Refactor struct {
	Summary     string
	Suggestions []Suggestion
}

// ParseAnswer reads the model reply. Text that is not a JSON object becomes
// the answer as-is. Citations are limited to knownPaths and default to all of
// them when the model names none.
func ParseAnswer(raw string, knownPaths []string) Answer {
	doc, ok := jsonObject(raw)
	if !ok {
		return Answer{Answer: strings.TrimSpace(raw), Citations: copyPaths(knownPaths)}
	}
	out := Answer{
		Answer:  strings.TrimSpace(firstString(doc, "answer", "response", "text")),
		Diagram: stripFences(doc.Get("diagram").String()),
	}
	if out.Answer == "" {
		out.Answer = strings.TrimSpace(raw)
	}
	seen := make(map[string]struct{})
	for _, item := range doc.Get("citations").Array() {
		name := item.String()
		if item.IsObject() {
			name = firstString(item, "file", "path")
		}
		path, ok := matchKnown(name, knownPaths)
		if !ok {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out.Citations = append(out.Citations, path)
	}
	if len(out.Citations) == 0 {
		out.Citations = copyPaths(knownPaths)
	}
	return out
}

// ParseRefactor reads a refactor reply; non-JSON text becomes the summary.
func ParseRefactor(raw string) Refactor {
	doc, ok := jsonObject(raw)
	if !ok {
		return Refactor{Summary: strings.TrimSpace(raw)}
	}
	out := Refactor{Summary: strings.TrimSpace(firstString(doc, "summary", "answer"))}
	for _, item := range doc.Get("suggestions").Array() {
		if !item.IsObject() {
			if text := strings.TrimSpace(item.String()); text != "" {
				out.Suggestions = append(out.Suggestions, Suggestion{Title: text, Priority: "medium"})
			}
			continue
		}
		s := Suggestion{
			File:        firstString(item, "file", "path"),
			Title:       strings.TrimSpace(item.Get("title").String()),
			Description: strings.TrimSpace(item.Get("description").String()),
			Before:      item.Get("before").String(),
			After:       item.Get("after").String(),
			Priority:    normalizePriority(item.Get("priority").String()),
		}
		if s.Title == "" && s.Description == "" {
			continue
		}
		out.Suggestions = append(out.Suggestions, s)
	}
	if out.Summary == "" && len(out.Suggestions) == 0 {
		out.Summary = strings.TrimSpace(raw)
	}
	return out
}

// jsonObject finds the JSON object in a reply, tolerating code fences and
// surrounding prose.
func jsonObject(raw string) (gjson.Result, bool) {
	text := stripFences(raw)
	if !gjson.Valid(text) {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return gjson.Result{}, false
		}
		text = text[start : end+1]
		if !gjson.Valid(text) {
			return gjson.Result{}, false
		}
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return gjson.Result{}, false
	}
	return doc, true
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func firstString(doc gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := doc.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// matchKnown resolves a cited name to a known path, allowing the model to
// cite with or without leading directories.
func matchKnown(name string, known []string) (string, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", false
	}
	for _, path := range known {
		if path == name {
			return path, true
		}
	}
	for _, path := range known {
		if strings.HasSuffix(path, "/"+name) || strings.HasSuffix(name, "/"+path) {
			return path, true
		}
	}
	return "", false
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high", "critical":
		return "high"
	case "low":
		return "low"
	default:
		return "medium"
	}
}

func copyPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{}
	}
	return append([]string(nil), paths...)
}
