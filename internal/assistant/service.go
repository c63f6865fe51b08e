// File path: internal/assistant/service.go
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/ingest"
	"github.com/nicodishanthj/codelens/internal/llm"
	"github.com/nicodishanthj/codelens/internal/retrieval"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

// MaxQuestionLength bounds questions and refactor instructions, in runes.
const MaxQuestionLength = 4000

// Store is the persistence the assistant needs.
type Store interface {
	SaveCodebase(ctx context.Context, codebase sqlite.Codebase, files []sqlite.File) error
	GetCodebase(ctx context.Context, id string) (sqlite.Codebase, []sqlite.File, error)
	CodebaseByID(ctx context.Context, id string) (sqlite.Codebase, error)
	ListFiles(ctx context.Context, codebaseID string) ([]sqlite.File, error)
	FileByPath(ctx context.Context, codebaseID, path string) (sqlite.File, error)
	ListCodebases(ctx context.Context) ([]sqlite.Codebase, error)
	DeleteCodebase(ctx context.Context, id string) error
	SaveHistory(ctx context.Context, entry sqlite.HistoryEntry) (sqlite.HistoryEntry, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]sqlite.HistoryEntry, error)
	CodebaseHistory(ctx context.Context, codebaseID string, limit int) ([]sqlite.HistoryEntry, error)
	Connected() bool
	Ping(ctx context.Context) error
}

// Ingester turns uploads into scanned source files.
type Ingester interface {
	FromZip(ctx context.Context, archivePath, name string) (ingest.Result, error)
	FromGitHub(ctx context.Context, rawURL string) (ingest.Result, error)
}

// Service answers questions about uploaded codebases.
type Service struct {
	store    Store
	ingester Ingester
	provider llm.Provider
	cache    *codebaseCache
	opts     options
}

func New(store Store, ingester Ingester, provider llm.Provider, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("assistant: store required")
	}
	if ingester == nil {
		return nil, errors.New("assistant: ingester required")
	}
	if provider == nil {
		return nil, errors.New("assistant: llm provider required")
	}
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	common.Logger().Info("assistant: service ready",
		"provider", provider.Name(),
		"context_files", cfg.maxContextFiles,
		"token_budget", cfg.tokenBudget,
		"cache_size", cfg.cacheSize)
	return &Service{
		store:    store,
		ingester: ingester,
		provider: provider,
		cache:    newCodebaseCache(cfg.cacheSize),
		opts:     cfg,
	}, nil
}

// ProviderName reports which chat backend is in use.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func (s *Service) contextBuilder() retrieval.ContextBuilder {
	return retrieval.ContextBuilder{Budget: s.opts.tokenBudget, Tokenizer: s.opts.tokenizer}
}

// load returns a codebase with contents, from the cache when possible.
func (s *Service) load(ctx context.Context, id string) (*loadedCodebase, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}
	gen := s.cache.Generation(id)
	codebase, files, err := s.store.GetCodebase(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	loaded := &loadedCodebase{codebase: codebase, docs: toDocuments(files)}
	if !s.cache.SetIfCurrent(id, gen, loaded) {
		// Deleted while it was being read.
		return nil, classify(fmt.Errorf("codebase %s: %w", id, sqlite.ErrNotFound))
	}
	return loaded, nil
}

func toDocuments(files []sqlite.File) []retrieval.Document {
	docs := make([]retrieval.Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, retrieval.Document{Path: f.Path, Language: f.Language, Size: f.Size, Content: f.Content})
	}
	return docs
}
