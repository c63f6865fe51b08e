// File path: internal/api/types.go
package api

import (
	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

type uploadRequest struct {
	GitHubURL string `json:"githubUrl"`
	Name      string `json:"name"`
}

type questionRequest struct {
	CodebaseID string `json:"codebaseId"`
	Question   string `json:"question"`
	SessionID  string `json:"sessionId"`
}

type refactorRequest struct {
	CodebaseID   string `json:"codebaseId"`
	FilePath     string `json:"filePath"`
	Instructions string `json:"instructions"`
	SessionID    string `json:"sessionId"`
}

type historyResponse struct {
	SessionID  string                `json:"sessionId,omitempty"`
	CodebaseID string                `json:"codebaseId,omitempty"`
	Entries    []sqlite.HistoryEntry `json:"entries"`
}

type codebasesResponse struct {
	Codebases []sqlite.Codebase `json:"codebases"`
}

type logsResponse struct {
	Entries []common.LogEntry `json:"entries"`
}
