// File path: internal/retrieval/context.go
package retrieval

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/nicodishanthj/codelens/internal/common"
)

const (
	defaultEncoding  = "cl100k_base"
	truncatedMarker  = "\n... [truncated]"
	minUsefulTokens  = 64
	charsPerTokenEst = 4
)

// Tokenizer counts tokens the way the chat model will.
type Tokenizer interface {
	Count(text string) int
}

// EstimateTokenizer approximates four characters per token.
type EstimateTokenizer struct{}

func (EstimateTokenizer) Count(text string) int {
	n := len([]rune(text))
	return (n + charsPerTokenEst - 1) / charsPerTokenEst
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

var (
	defaultTokenizerOnce sync.Once
	defaultTokenizer     Tokenizer
)

// DefaultTokenizer returns the cl100k_base BPE tokenizer, or the character
// estimate when the encoding cannot be loaded. The BPE ranks are read from
// the embedded offline loader, never fetched over the network.
func DefaultTokenizer() Tokenizer {
	defaultTokenizerOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			common.Logger().Warn("retrieval: tokenizer unavailable, estimating", "encoding", defaultEncoding, "error", err)
			defaultTokenizer = EstimateTokenizer{}
			return
		}
		defaultTokenizer = tiktokenTokenizer{enc: enc}
	})
	return defaultTokenizer
}

// Context is the prompt section built from ranked files.
type Context struct {
	Text      string
	Files     []string
	Tokens    int
	Truncated bool
}

// ContextBuilder renders ranked files into a token-limited prompt section.
type ContextBuilder struct {
	Budget    int
	Tokenizer Tokenizer
}

// BuildContext renders files with the default tokenizer.
func BuildContext(files []Scored, budget int) Context {
	return ContextBuilder{Budget: budget}.Build(files)
}

// Build concatenates one fenced block per file in rank order. The block that
// overflows the budget is cut short and later files are dropped. The first
// file is never dropped, so a non-empty input yields a non-empty context.
func (b ContextBuilder) Build(files []Scored) Context {
	tok := b.Tokenizer
	if tok == nil {
		tok = DefaultTokenizer()
	}
	var (
		out     Context
		builder strings.Builder
	)
	for _, file := range files {
		block := renderBlock(file.Document, file.Content)
		cost := tok.Count(block)
		if b.Budget <= 0 || out.Tokens+cost <= b.Budget {
			builder.WriteString(block)
			out.Tokens += cost
			out.Files = append(out.Files, file.Path)
			continue
		}
		out.Truncated = true
		remaining := b.Budget - out.Tokens
		first := len(out.Files) == 0
		if remaining < minUsefulTokens && !first {
			break
		}
		partial, n, ok := fitBlock(tok, file.Document, remaining)
		if !ok && first {
			// The top-ranked file is always sent, even if only its header fits.
			partial = renderBlock(file.Document, truncatedMarker)
			n, ok = tok.Count(partial), true
		}
		if ok {
			builder.WriteString(partial)
			out.Tokens += n
			out.Files = append(out.Files, file.Path)
		}
		break
	}
	out.Text = builder.String()
	return out
}

func renderBlock(doc Document, content string) string {
	lang := doc.Language
	if lang == "" || lang == "text" {
		lang = ""
	}
	return fmt.Sprintf("### File: %s\n```%s\n%s\n```\n\n", doc.Path, lang, strings.TrimRight(content, "\n"))
}

// fitBlock finds the longest content prefix whose rendered block fits in
// remaining tokens.
func fitBlock(tok Tokenizer, doc Document, remaining int) (string, int, bool) {
	runes := []rune(doc.Content)
	lo, hi := 0, len(runes)
	best, bestCost := "", 0
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := renderBlock(doc, string(runes[:mid])+truncatedMarker)
		cost := tok.Count(candidate)
		if cost <= remaining {
			best, bestCost = candidate, cost
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestCost, true
}
