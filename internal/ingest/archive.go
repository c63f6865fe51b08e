// File path: internal/ingest/archive.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/nicodishanthj/codelens/internal/common"
)

var (
	// ErrInvalidArchive marks archives that cannot be read or that try to
	// write outside the extraction directory.
	ErrInvalidArchive = errors.New("invalid zip archive")
	// ErrArchiveTooLarge is returned when the uncompressed size exceeds the limit.
	ErrArchiveTooLarge = errors.New("archive exceeds size limit")
)

// ExtractZip unpacks archivePath into dest. Entries that would escape dest
// and symlinks are rejected or skipped; maxBytes bounds the total
// uncompressed size when positive.
func ExtractZip(ctx context.Context, archivePath, dest string, maxBytes int64) error {
	logger := common.Logger()
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer reader.Close()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	var written int64
	for _, entry := range reader.File {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		target, err := safeJoin(dest, entry.Name)
		if err != nil {
			return err
		}
		mode := entry.Mode()
		if mode&os.ModeSymlink != 0 {
			logger.Debug("ingest: skipping symlink entry", "entry", entry.Name)
			continue
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", entry.Name, err)
			}
			continue
		}
		if maxBytes > 0 && written+int64(entry.UncompressedSize64) > maxBytes {
			return fmt.Errorf("%w: more than %d bytes", ErrArchiveTooLarge, maxBytes)
		}
		n, err := extractEntry(entry, target, maxBytes-written, maxBytes > 0)
		written += n
		if err != nil {
			return err
		}
	}
	logger.Debug("ingest: archive extracted", "entries", len(reader.File), "bytes", written)
	return nil
}

func extractEntry(entry *zip.File, target string, remaining int64, bounded bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create directories for %s: %w", entry.Name, err)
	}
	src, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrInvalidArchive, entry.Name, err)
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", entry.Name, err)
	}
	var reader io.Reader = src
	if bounded {
		// Declared sizes can lie; cap what is actually decompressed.
		reader = io.LimitReader(src, remaining+1)
	}
	n, copyErr := io.Copy(dst, reader)
	closeErr := dst.Close()
	if copyErr != nil {
		return n, fmt.Errorf("%w: extract %s: %v", ErrInvalidArchive, entry.Name, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("close %s: %w", entry.Name, closeErr)
	}
	if bounded && n > remaining {
		return n, fmt.Errorf("%w: entry %s", ErrArchiveTooLarge, entry.Name)
	}
	return n, nil
}

// safeJoin resolves name under root and rejects paths escaping it.
func safeJoin(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
	if cleaned == "." || cleaned == "" {
		return root, nil
	}
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("%w: absolute path %q", ErrInvalidArchive, name)
	}
	target := filepath.Join(root, cleaned)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes destination", ErrInvalidArchive, name)
	}
	return target, nil
}
