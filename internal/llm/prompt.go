// File path: internal/llm/prompt.go
package llm

import (
	"fmt"
	"strings"
)

const questionSystemPrompt = `You are a senior engineer answering questions about a codebase.
Use only the files provided in the context. If the context does not contain the answer, say so.
Reply with a single JSON object and nothing else:
{
  "answer": "markdown explanation",
  "diagram": "optional Mermaid diagram source, or an empty string",
  "citations": ["relative/path/of/a/file/you/used"]
}
Citations must be paths that appear in the context headers.`

const refactorSystemPrompt = `You are a senior engineer reviewing code for refactoring opportunities.
Use only the files provided in the context. Prefer small, safe, behaviour-preserving changes.
Reply with a single JSON object and nothing else:
{
  "summary": "short overview of the proposed changes",
  "suggestions": [
    {
      "file": "relative/path",
      "title": "short title",
      "description": "what to change and why it helps",
      "before": "current code excerpt",
      "after": "proposed code",
      "priority": "high | medium | low"
    }
  ]
}`

// QuestionMessages builds the chat for answering question from the rendered
// file context.
func QuestionMessages(question, context string, files []string) []Message {
	var b strings.Builder
	writeFileList(&b, files)
	fmt.Fprintf(&b, "Context:\n%s\n", context)
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(question))
	return []Message{
		{Role: "system", Content: questionSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// RefactorMessages builds the chat for refactoring suggestions.
func RefactorMessages(instructions, context string, files []string) []Message {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		instructions = "Suggest refactorings that improve readability, structure and maintainability."
	}
	var b strings.Builder
	writeFileList(&b, files)
	fmt.Fprintf(&b, "Context:\n%s\n", context)
	fmt.Fprintf(&b, "Instructions: %s\n", instructions)
	return []Message{
		{Role: "system", Content: refactorSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func writeFileList(b *strings.Builder, files []string) {
	if len(files) == 0 {
		return
	}
	b.WriteString("Files in context:\n")
	for _, f := range files {
		fmt.Fprintf(b, "- %s\n", f)
	}
	b.WriteString("\n")
}
