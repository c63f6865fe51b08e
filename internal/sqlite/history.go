// File path: internal/sqlite/history.go
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SaveHistory stores an exchange, assigning an ID and timestamp when unset.
func (s *Store) SaveHistory(ctx context.Context, entry HistoryEntry) (HistoryEntry, error) {
	if err := s.ensureReady(); err != nil {
		return HistoryEntry{}, err
	}
	entry.SessionID = strings.TrimSpace(entry.SessionID)
	if entry.SessionID == "" {
		return HistoryEntry{}, fmt.Errorf("session id required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Kind == "" {
		entry.Kind = KindQuestion
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	if entry.Citations == nil {
		entry.Citations = []string{}
	}
	citations, err := json.Marshal(entry.Citations)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("encode citations: %w", err)
	}
	row := historyRow{
		ID:         entry.ID,
		SessionID:  entry.SessionID,
		CodebaseID: entry.CodebaseID,
		Kind:       entry.Kind,
		Question:   entry.Question,
		Answer:     entry.Answer,
		Diagram:    entry.Diagram,
		Citations:  string(citations),
		CreatedAt:  entry.CreatedAt,
	}
	if _, err := s.db.NamedExecContext(ctx, `INSERT INTO history(id, session_id, codebase_id, kind, question, answer, diagram, citations, created_at)
                VALUES (:id, :session_id, :codebase_id, :kind, :question, :answer, :diagram, :citations, :created_at)`, row); err != nil {
		return HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}
	return entry, nil
}

// GetHistory returns the entries of a session, oldest first. A non-positive
// limit returns every entry.
func (s *Store) GetHistory(ctx context.Context, sessionID string, limit int) ([]HistoryEntry, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if limit <= 0 {
		return s.selectHistory(ctx, `SELECT * FROM history WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	}
	// Newest N, returned oldest first.
	entries, err := s.selectHistory(ctx, `SELECT * FROM history WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// CodebaseHistory returns the entries recorded against a codebase, newest first.
func (s *Store) CodebaseHistory(ctx context.Context, codebaseID string, limit int) ([]HistoryEntry, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.selectHistory(ctx, `SELECT * FROM history WHERE codebase_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, strings.TrimSpace(codebaseID), limit)
}

func (s *Store) selectHistory(ctx context.Context, query string, args ...interface{}) ([]HistoryEntry, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()
	entries := []HistoryEntry{}
	for rows.Next() {
		var row historyRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry := HistoryEntry{
			ID:         row.ID,
			SessionID:  row.SessionID,
			CodebaseID: row.CodebaseID,
			Kind:       row.Kind,
			Question:   row.Question,
			Answer:     row.Answer,
			Diagram:    row.Diagram,
			CreatedAt:  row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Citations), &entry.Citations); err != nil {
			return nil, fmt.Errorf("decode citations for %s: %w", row.ID, err)
		}
		if entry.Citations == nil {
			entry.Citations = []string{}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
