// File path: internal/ingest/language.go
package ingest

import (
	"path/filepath"
	"strings"
)

var wellKnownFiles = map[string]string{
	"dockerfile":  "dockerfile",
	"makefile":    "makefile",
	"gemfile":     "ruby",
	"rakefile":    "ruby",
	"procfile":    "text",
	"jenkinsfile": "groovy",
}

var extensionLanguages = map[string]string{
	".go":      "go",
	".js":      "javascript",
	".jsx":     "jsx",
	".mjs":     "javascript",
	".cjs":     "javascript",
	".ts":      "typescript",
	".tsx":     "tsx",
	".py":      "python",
	".java":    "java",
	".kt":      "kotlin",
	".kts":     "kotlin",
	".scala":   "scala",
	".rb":      "ruby",
	".php":     "php",
	".cs":      "csharp",
	".c":       "c",
	".h":       "c",
	".cc":      "cpp",
	".cpp":     "cpp",
	".hpp":     "cpp",
	".rs":      "rust",
	".swift":   "swift",
	".m":       "objectivec",
	".mm":      "objectivec",
	".dart":    "dart",
	".lua":     "lua",
	".sh":      "bash",
	".bash":    "bash",
	".sql":     "sql",
	".html":    "html",
	".css":     "css",
	".scss":    "scss",
	".vue":     "vue",
	".svelte":  "svelte",
	".json":    "json",
	".yaml":    "yaml",
	".yml":     "yaml",
	".toml":    "toml",
	".xml":     "xml",
	".md":      "markdown",
	".gradle":  "groovy",
	".proto":   "protobuf",
	".graphql": "graphql",
	".tf":      "hcl",
}

// LanguageFor guesses the language of a file from its name, for code fences.
func LanguageFor(name string) string {
	base := strings.ToLower(filepath.Base(name))
	if lang, ok := wellKnownFiles[base]; ok {
		return lang
	}
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	return "text"
}
