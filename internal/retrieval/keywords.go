// File path: internal/retrieval/keywords.go
package retrieval

import (
	"strings"
	"unicode"
)

const minKeywordLength = 3

var stopWords = toWordSet(`a about above after again all also am an and any are as at be because been before
being below between both but by can could did do does doing done down during each either else etc every
explain few for from further get gets give had has have having here how however i if in into is it its
itself just let like make many may me more most much must my need no nor not now of off on once only or
other our out over own please same see shall she should show so some such tell than that the their them
then there these they this those through to too under until up use used uses using very via want was
way we were what when where whether which while who whom why will with within without would yes you your`)

func toWordSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// ExtractKeywords returns the distinct search terms of a question in the
// order they first appear. Identifiers are kept whole and also split into
// their camelCase or snake_case parts.
func ExtractKeywords(question string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(word string) {
		word = strings.ToLower(word)
		if len([]rune(word)) < minKeywordLength {
			return
		}
		if _, stop := stopWords[word]; stop {
			return
		}
		if _, dup := seen[word]; dup {
			return
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	for _, token := range tokenize(question) {
		add(token)
		parts := splitIdentifier(token)
		if len(parts) > 1 {
			for _, part := range parts {
				add(part)
			}
		}
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// splitIdentifier breaks fooBarBaz, FooBAR and foo_bar into their words.
func splitIdentifier(token string) []string {
	var parts []string
	for _, chunk := range strings.Split(token, "_") {
		if chunk == "" {
			continue
		}
		runes := []rune(chunk)
		start := 0
		for i := 1; i < len(runes); i++ {
			prev, cur := runes[i-1], runes[i]
			boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
			// end of an acronym: "HTTPServer" -> "HTTP", "Server"
			if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				boundary = true
			}
			if !boundary && unicode.IsDigit(prev) != unicode.IsDigit(cur) {
				boundary = true
			}
			if boundary {
				parts = append(parts, string(runes[start:i]))
				start = i
			}
		}
		parts = append(parts, string(runes[start:]))
	}
	return parts
}
