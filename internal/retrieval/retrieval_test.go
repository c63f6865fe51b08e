// File path: internal/retrieval/retrieval_test.go
package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	cases := []struct {
		question string
		want     []string
	}{
		{"How does the getUserById handler work?", []string{"getuserbyid", "user", "handler", "work"}},
		{"Explain parse_config_file", []string{"parse_config_file", "parse", "config", "file"}},
		{"Where is HTTPServer started? HTTPServer!", []string{"httpserver", "http", "server", "started"}},
		{"what is it?", nil},
		{"", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractKeywords(tc.question), tc.question)
	}
}

func sampleDocs() []Document {
	return []Document{
		{Path: "auth/login.go", Language: "go", Size: 40, Content: "func Login() { checkPassword() }"},
		{Path: "db/users.go", Language: "go", Size: 25, Content: "func LoadUsers() error"},
		{Path: "README.md", Language: "markdown", Size: 900, Content: "Welcome to the project"},
		{Path: "docs/big.md", Language: "markdown", Size: 900, Content: "Long guide"},
	}
}

func TestFindRelevantFilesScoresContentAndPath(t *testing.T) {
	got := FindRelevantFiles(sampleDocs(), "Where is login handled?", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "auth/login.go", got[0].Path)
	assert.Equal(t, 1+pathMatchBonus, got[0].Score)
	assert.False(t, got[0].Fallback)
}

func TestFindRelevantFilesOrdersByScoreThenPath(t *testing.T) {
	docs := []Document{
		{Path: "b.go", Content: "token token"},
		{Path: "a.go", Content: "token token"},
		{Path: "c.go", Content: "token token token"},
	}
	got := FindRelevantFiles(docs, "token", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c.go", got[0].Path)
	assert.Equal(t, "a.go", got[1].Path)
}

func TestFindRelevantFilesFallsBackToLargest(t *testing.T) {
	for _, q := range []string{"zzzz qqqq", "what is this?"} {
		got := FindRelevantFiles(sampleDocs(), q, 3)
		require.Len(t, got, 3, q)
		assert.Equal(t, "README.md", got[0].Path)
		assert.Equal(t, "docs/big.md", got[1].Path)
		assert.Equal(t, "auth/login.go", got[2].Path)
		for _, s := range got {
			assert.True(t, s.Fallback)
			assert.Zero(t, s.Score)
		}
	}
	assert.Nil(t, FindRelevantFiles(nil, "login", 3))
	assert.Nil(t, FindRelevantFiles(sampleDocs(), "login", 0))
}

func TestBuildContextWithoutBudgetIncludesEverything(t *testing.T) {
	files := FindRelevantFiles(sampleDocs(), "zzzz", 10)
	ctx := ContextBuilder{Tokenizer: EstimateTokenizer{}}.Build(files)
	assert.Len(t, ctx.Files, 4)
	assert.False(t, ctx.Truncated)
	assert.Contains(t, ctx.Text, "### File: auth/login.go\n```go\nfunc Login() { checkPassword() }\n```")
	assert.Positive(t, ctx.Tokens)
}

func TestBuildContextTruncatesOverflowingFile(t *testing.T) {
	files := []Scored{
		{Document: Document{Path: "a.go", Language: "go", Content: strings.Repeat("a", 400)}},
		{Document: Document{Path: "b.go", Language: "go", Content: "package b"}},
	}
	ctx := ContextBuilder{Budget: 80, Tokenizer: EstimateTokenizer{}}.Build(files)
	assert.True(t, ctx.Truncated)
	assert.Equal(t, []string{"a.go"}, ctx.Files)
	assert.Contains(t, ctx.Text, "[truncated]")
	assert.NotContains(t, ctx.Text, "b.go")
	assert.LessOrEqual(t, ctx.Tokens, 80)
}

func TestBuildContextDropsFilesWhenBudgetNearlySpent(t *testing.T) {
	files := []Scored{
		{Document: Document{Path: "a.go", Language: "go", Content: strings.Repeat("a", 100)}},
		{Document: Document{Path: "b.go", Language: "go", Content: strings.Repeat("b", 400)}},
	}
	ctx := ContextBuilder{Budget: 80, Tokenizer: EstimateTokenizer{}}.Build(files)
	assert.True(t, ctx.Truncated)
	assert.Equal(t, []string{"a.go"}, ctx.Files)
	assert.NotContains(t, ctx.Text, "[truncated]")
}

func TestEstimateTokenizer(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenizer{}.Count(""))
	assert.Equal(t, 1, EstimateTokenizer{}.Count("abc"))
	assert.Equal(t, 2, EstimateTokenizer{}.Count("abcde"))
}

func TestBuildContextKeepsFirstFileUnderTinyBudget(t *testing.T) {
	files := []Scored{
		{Document: Document{Path: "main.go", Language: "go", Content: strings.Repeat("x", 1300)}},
		{Document: Document{Path: "util.go", Language: "go", Content: "package util"}},
	}
	for _, budget := range []int{1, 50, 63} {
		ctx := ContextBuilder{Budget: budget, Tokenizer: EstimateTokenizer{}}.Build(files)
		assert.True(t, ctx.Truncated, "budget %d", budget)
		assert.Equal(t, []string{"main.go"}, ctx.Files, "budget %d", budget)
		assert.Contains(t, ctx.Text, "### File: main.go", "budget %d", budget)
		assert.Contains(t, ctx.Text, "[truncated]", "budget %d", budget)
		assert.Positive(t, ctx.Tokens, "budget %d", budget)
	}

	ctx := ContextBuilder{Budget: 50, Tokenizer: EstimateTokenizer{}}.Build(files)
	assert.LessOrEqual(t, ctx.Tokens, 50)
}

func TestDefaultTokenizerLoadsEncodingOffline(t *testing.T) {
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())
	t.Setenv("HTTPS_PROXY", "http://127.0.0.1:1")
	tok := DefaultTokenizer()
	_, ok := tok.(tiktokenTokenizer)
	require.True(t, ok, "expected the cl100k_base encoding, got %T", tok)
	assert.Equal(t, 2, tok.Count("hello world"))
}
