// File path: internal/assistant/options.go
package assistant

import "github.com/nicodishanthj/codelens/internal/retrieval"

type Option func(*options)

type options struct {
	maxContextFiles int
	tokenBudget     int
	cacheSize       int
	tokenizer       retrieval.Tokenizer
}

func defaultOptions() options {
	return options{
		maxContextFiles: 5,
		tokenBudget:     12000,
		cacheSize:       16,
	}
}

// WithRetrieval sets how many files are ranked into a prompt and the token
// budget of the rendered context. Non-positive values keep the defaults.
func WithRetrieval(maxFiles, tokenBudget int) Option {
	return func(o *options) {
		if maxFiles > 0 {
			o.maxContextFiles = maxFiles
		}
		if tokenBudget > 0 {
			o.tokenBudget = tokenBudget
		}
	}
}

// WithCacheSize bounds the number of codebases kept in memory.
func WithCacheSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.cacheSize = size
		}
	}
}

// WithTokenizer replaces the BPE tokenizer, mainly for tests.
func WithTokenizer(tok retrieval.Tokenizer) Option {
	return func(o *options) {
		o.tokenizer = tok
	}
}
