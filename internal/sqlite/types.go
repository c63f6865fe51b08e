// File path: internal/sqlite/types.go
package sqlite

import "time"

const (
	SourceZip    = "zip"
	SourceGitHub = "github"

	KindQuestion = "question"
	KindRefactor = "refactor"
)

// Codebase is one uploaded archive or cloned repository.
type Codebase struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Source     string    `db:"source" json:"source"`
	SourceRef  string    `db:"source_ref" json:"sourceRef,omitempty"`
	FileCount  int       `db:"file_count" json:"fileCount"`
	TotalBytes int64     `db:"total_bytes" json:"totalBytes"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// File is a stored source file belonging to a codebase.
type File struct {
	ID         int64  `db:"id" json:"-"`
	CodebaseID string `db:"codebase_id" json:"-"`
	Path       string `db:"path" json:"path"`
	Language   string `db:"language" json:"language,omitempty"`
	Size       int64  `db:"size" json:"size"`
	Checksum   string `db:"checksum" json:"checksum,omitempty"`
	Content    string `db:"content" json:"content,omitempty"`
}

// HistoryEntry records one question or refactor exchange of a session.
type HistoryEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	CodebaseID string    `json:"codebaseId"`
	Kind       string    `json:"kind"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Diagram    string    `json:"diagram,omitempty"`
	Citations  []string  `json:"citations"`
	CreatedAt  time.Time `json:"createdAt"`
}

type historyRow struct {
	ID         string    `db:"id"`
	SessionID  string    `db:"session_id"`
	CodebaseID string    `db:"codebase_id"`
	Kind       string    `db:"kind"`
	Question   string    `db:"question"`
	Answer     string    `db:"answer"`
	Diagram    string    `db:"diagram"`
	Citations  string    `db:"citations"`
	CreatedAt  time.Time `db:"created_at"`
}
