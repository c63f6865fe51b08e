// File path: internal/assistant/query.go
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

const maxHistoryLimit = 500

// CodebaseDetail is a codebase with its file listing, without contents.
type CodebaseDetail struct {
	sqlite.Codebase
	Files []sqlite.File `json:"files"`
}

type HealthStatus struct {
	Status        string `json:"status"`
	Database      bool   `json:"database"`
	Provider      string `json:"provider"`
	ProviderReady bool   `json:"providerReady"`
	CachedBases   int    `json:"cachedCodebases"`
}

func (h HealthStatus) OK() bool {
	return h.Database
}

// History returns a session's entries, oldest first. limit <= 0 returns all.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]sqlite.HistoryEntry, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, invalidf("sessionId is required")
	}
	entries, err := s.store.GetHistory(ctx, sessionID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", sessionID, err)
	}
	return nonNilEntries(entries), nil
}

// CodebaseHistory returns the newest entries recorded against a codebase.
func (s *Service) CodebaseHistory(ctx context.Context, codebaseID string, limit int) ([]sqlite.HistoryEntry, error) {
	codebaseID = strings.TrimSpace(codebaseID)
	if codebaseID == "" {
		return nil, invalidf("codebase id is required")
	}
	if _, err := s.store.CodebaseByID(ctx, codebaseID); err != nil {
		return nil, classify(err)
	}
	entries, err := s.store.CodebaseHistory(ctx, codebaseID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("codebase history %s: %w", codebaseID, err)
	}
	return nonNilEntries(entries), nil
}

func (s *Service) Codebases(ctx context.Context) ([]sqlite.Codebase, error) {
	codebases, err := s.store.ListCodebases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list codebases: %w", err)
	}
	if codebases == nil {
		codebases = []sqlite.Codebase{}
	}
	return codebases, nil
}

func (s *Service) Codebase(ctx context.Context, id string) (CodebaseDetail, error) {
	id = strings.TrimSpace(id)
	codebase, err := s.store.CodebaseByID(ctx, id)
	if err != nil {
		return CodebaseDetail{}, classify(err)
	}
	files, err := s.store.ListFiles(ctx, id)
	if err != nil {
		return CodebaseDetail{}, fmt.Errorf("list files %s: %w", id, err)
	}
	if files == nil {
		files = []sqlite.File{}
	}
	return CodebaseDetail{Codebase: codebase, Files: files}, nil
}

// File returns one stored file with its content.
func (s *Service) File(ctx context.Context, codebaseID, path string) (sqlite.File, error) {
	codebaseID = strings.TrimSpace(codebaseID)
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return sqlite.File{}, invalidf("file path is required")
	}
	file, err := s.store.FileByPath(ctx, codebaseID, path)
	if err != nil {
		return sqlite.File{}, classify(fmt.Errorf("codebase %s: %w", codebaseID, err))
	}
	return file, nil
}

// DeleteCodebase removes a codebase and its files. History is kept.
func (s *Service) DeleteCodebase(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.store.DeleteCodebase(ctx, id); err != nil {
		return classify(err)
	}
	s.cache.Remove(id)
	common.Logger().Info("assistant: codebase deleted", "id", id)
	return nil
}

// Health checks the database and reports the provider in use.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:      "ok",
		Provider:    s.provider.Name(),
		CachedBases: s.cache.Len(),
	}
	// Ping refreshes the store's connection flag.
	if err := s.store.Ping(ctx); err != nil {
		common.Logger().Warn("assistant: database ping failed", "error", err)
	}
	status.Database = s.store.Connected()
	if !status.Database {
		status.Status = "degraded"
	}
	status.ProviderReady = true
	if lazy, ok := s.provider.(interface{ Initialized() bool }); ok {
		status.ProviderReady = lazy.Initialized()
	}
	return status
}

func clampLimit(limit int) int {
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	if limit < 0 {
		return 0
	}
	return limit
}

func nonNilEntries(entries []sqlite.HistoryEntry) []sqlite.HistoryEntry {
	if entries == nil {
		return []sqlite.HistoryEntry{}
	}
	return entries
}
