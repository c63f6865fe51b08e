// File path: internal/sqlite/codebases.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// SaveCodebase inserts a codebase and all of its files in one transaction.
// Saving an ID that already exists fails.
func (s *Store) SaveCodebase(ctx context.Context, codebase Codebase, files []File) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	codebase.ID = strings.TrimSpace(codebase.ID)
	if codebase.ID == "" {
		return fmt.Errorf("codebase id required")
	}
	if codebase.CreatedAt.IsZero() {
		codebase.CreatedAt = time.Now()
	}
	codebase.CreatedAt = codebase.CreatedAt.UTC()
	codebase.FileCount = len(files)
	var total int64
	for _, file := range files {
		total += file.Size
	}
	codebase.TotalBytes = total

	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO codebases(id, name, source, source_ref, file_count, total_bytes, created_at)
                VALUES (:id, :name, :source, :source_ref, :file_count, :total_bytes, :created_at)`, codebase); err != nil {
			return fmt.Errorf("insert codebase %s: %w", codebase.ID, err)
		}
		stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO files(codebase_id, path, language, size, checksum, content)
                VALUES (:codebase_id, :path, :language, :size, :checksum, :content)`)
		if err != nil {
			return fmt.Errorf("prepare file insert: %w", err)
		}
		defer stmt.Close()
		for _, file := range files {
			file.CodebaseID = codebase.ID
			if _, err := stmt.ExecContext(ctx, file); err != nil {
				return fmt.Errorf("insert file %s: %w", file.Path, err)
			}
		}
		return nil
	})
}

// GetCodebase returns the codebase and its files ordered by path.
func (s *Store) GetCodebase(ctx context.Context, id string) (Codebase, []File, error) {
	codebase, err := s.CodebaseByID(ctx, id)
	if err != nil {
		return Codebase{}, nil, err
	}
	files := []File{}
	if err := s.db.SelectContext(ctx, &files, `SELECT * FROM files WHERE codebase_id = ? ORDER BY path`, codebase.ID); err != nil {
		return Codebase{}, nil, fmt.Errorf("select files: %w", err)
	}
	return codebase, files, nil
}

// CodebaseByID returns the codebase metadata without its files.
func (s *Store) CodebaseByID(ctx context.Context, id string) (Codebase, error) {
	if err := s.ensureReady(); err != nil {
		return Codebase{}, err
	}
	var codebase Codebase
	if err := s.db.GetContext(ctx, &codebase, `SELECT * FROM codebases WHERE id = ?`, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Codebase{}, fmt.Errorf("codebase %s: %w", id, ErrNotFound)
		}
		return Codebase{}, fmt.Errorf("select codebase: %w", err)
	}
	return codebase, nil
}

// ListFiles returns the file metadata of a codebase without contents.
func (s *Store) ListFiles(ctx context.Context, codebaseID string) ([]File, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	files := []File{}
	if err := s.db.SelectContext(ctx, &files, `SELECT id, codebase_id, path, language, size, checksum, '' AS content
                FROM files WHERE codebase_id = ? ORDER BY path`, codebaseID); err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	return files, nil
}

// FileByPath returns a single stored file including its content.
func (s *Store) FileByPath(ctx context.Context, codebaseID, path string) (File, error) {
	if err := s.ensureReady(); err != nil {
		return File{}, err
	}
	var file File
	if err := s.db.GetContext(ctx, &file, `SELECT * FROM files WHERE codebase_id = ? AND path = ?`, codebaseID, path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, fmt.Errorf("file %s: %w", path, ErrNotFound)
		}
		return File{}, fmt.Errorf("select file: %w", err)
	}
	return file, nil
}

// ListCodebases returns all codebases, newest first.
func (s *Store) ListCodebases(ctx context.Context) ([]Codebase, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	codebases := []Codebase{}
	if err := s.db.SelectContext(ctx, &codebases, `SELECT * FROM codebases ORDER BY created_at DESC, rowid DESC`); err != nil {
		return nil, fmt.Errorf("select codebases: %w", err)
	}
	return codebases, nil
}

// DeleteCodebase removes a codebase and its files. History rows are kept.
func (s *Store) DeleteCodebase(ctx context.Context, id string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM codebases WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete codebase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete codebase: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("codebase %s: %w", id, ErrNotFound)
	}
	return nil
}
