// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type Message struct {
	Role    string
	Content string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// LocalProvider answers without a model. It is selected when no API key is
// configured so the rest of the pipeline stays usable offline.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := messages[len(messages)-1].Content
	prompt := promptLine(last)
	reply := map[string]interface{}{
		"answer":      "[local-stub] " + prompt,
		"diagram":     "",
		"citations":   []string{},
		"summary":     "[local-stub] " + prompt,
		"suggestions": []interface{}{},
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

// promptLine picks the question or instruction out of a rendered user prompt.
// It scans from the end because file context precedes the question.
func promptLine(content string) string {
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		for _, prefix := range []string{"Question:", "Instructions:"} {
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix))
			}
		}
	}
	content = strings.TrimSpace(content)
	if r := []rune(content); len(r) > 200 {
		content = string(r[:200])
	}
	return content
}
