// File path: internal/llm/llm_test.go
package llm

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/nicodishanthj/codelens/internal/config"
)

func TestParseAnswerJSON(t *testing.T) {
	raw := "```json\n" + `{
  "answer": "Login is handled in auth.",
  "diagram": "` + "```mermaid\\ngraph TD; A-->B\\n```" + `",
  "citations": ["auth/login.go", {"file": "users.go"}, {"path": "./auth/login.go"}, "missing.go"]
}` + "\n```"
	got := ParseAnswer(raw, []string{"auth/login.go", "db/users.go", "README.md"})
	if got.Answer != "Login is handled in auth." {
		t.Fatalf("unexpected answer %q", got.Answer)
	}
	if got.Diagram != "graph TD; A-->B" {
		t.Fatalf("unexpected diagram %q", got.Diagram)
	}
	want := []string{"auth/login.go", "db/users.go"}
	if !reflect.DeepEqual(got.Citations, want) {
		t.Fatalf("citations = %v, want %v", got.Citations, want)
	}
}

func TestParseAnswerPlainTextFallsBack(t *testing.T) {
	known := []string{"a.go", "b.go"}
	got := ParseAnswer("  It is in a.go.  ", known)
	if got.Answer != "It is in a.go." {
		t.Fatalf("unexpected answer %q", got.Answer)
	}
	if !reflect.DeepEqual(got.Citations, known) {
		t.Fatalf("expected citations to default to context files, got %v", got.Citations)
	}
	got.Citations[0] = "changed"
	if known[0] != "a.go" {
		t.Fatalf("citations must not alias the input slice")
	}
}

func TestParseAnswerEmbeddedObject(t *testing.T) {
	got := ParseAnswer(`Sure! {"answer":"ok","citations":[]} hope this helps`, []string{"x.go"})
	if got.Answer != "ok" {
		t.Fatalf("unexpected answer %q", got.Answer)
	}
	if !reflect.DeepEqual(got.Citations, []string{"x.go"}) {
		t.Fatalf("unexpected citations %v", got.Citations)
	}
}

func TestParseRefactor(t *testing.T) {
	raw := `{"summary":"Split the handler.","suggestions":[
		{"file":"api/server.go","title":"Extract validation","description":"Move checks","before":"a","after":"b","priority":"HIGH"},
		{"path":"db.go","title":"Use transactions","priority":"unknown"},
		{"file":"empty.go"},
		"Add tests"
	]}`
	got := ParseRefactor(raw)
	if got.Summary != "Split the handler." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	if len(got.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d: %+v", len(got.Suggestions), got.Suggestions)
	}
	first := got.Suggestions[0]
	if first.File != "api/server.go" || first.Priority != "high" || first.Before != "a" || first.After != "b" {
		t.Fatalf("unexpected first suggestion %+v", first)
	}
	if got.Suggestions[1].File != "db.go" || got.Suggestions[1].Priority != "medium" {
		t.Fatalf("unexpected second suggestion %+v", got.Suggestions[1])
	}
	if got.Suggestions[2].Title != "Add tests" {
		t.Fatalf("unexpected third suggestion %+v", got.Suggestions[2])
	}

	plain := ParseRefactor("just rename things")
	if plain.Summary != "just rename things" || len(plain.Suggestions) != 0 {
		t.Fatalf("unexpected plain refactor %+v", plain)
	}
}

func TestQuestionMessages(t *testing.T) {
	msgs := QuestionMessages("  where is main? ", "### File: main.go", []string{"main.go"})
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	user := msgs[1].Content
	for _, want := range []string{"- main.go", "### File: main.go", "Question: where is main?"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
	if !strings.Contains(msgs[0].Content, "JSON") {
		t.Fatalf("system prompt must request JSON")
	}
}

func TestRefactorMessagesDefaultsInstructions(t *testing.T) {
	msgs := RefactorMessages("", "ctx", nil)
	if !strings.Contains(msgs[1].Content, "Instructions: Suggest refactorings") {
		t.Fatalf("expected default instructions, got %q", msgs[1].Content)
	}
}

func TestNewProviderWithoutKeyIsLocal(t *testing.T) {
	p := NewProvider(config.LLMConfig{})
	if p.Name() != "local" {
		t.Fatalf("expected local provider, got %s", p.Name())
	}
	reply, err := p.Chat(context.Background(), QuestionMessages("what is up", "", nil))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	got := ParseAnswer(reply, nil)
	if got.Answer != "[local-stub] what is up" {
		t.Fatalf("unexpected local answer %q", got.Answer)
	}
}

func TestNewProviderIsLazy(t *testing.T) {
	p := NewProvider(config.LLMConfig{APIKey: "sk-test", ChatModel: "gpt-test"})
	if p.Name() != "openai" {
		t.Fatalf("expected openai provider, got %s", p.Name())
	}
	lazy, ok := p.(*lazyProvider)
	if !ok {
		t.Fatalf("expected lazy provider, got %T", p)
	}
	if lazy.Initialized() {
		t.Fatalf("client must not be built before first use")
	}
	if _, err := p.Chat(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty messages")
	}
	if lazy.Initialized() {
		t.Fatalf("rejected call must not build the client")
	}
}
