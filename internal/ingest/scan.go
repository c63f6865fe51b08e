// File path: internal/ingest/scan.go
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/nicodishanthj/codelens/internal/common"
)

// ErrNoSourceFiles is returned when a scan keeps no files.
var ErrNoSourceFiles = errors.New("no supported source files found")

const binarySniffBytes = 1024

// ScanOptions selects which files a scan keeps.
type ScanOptions struct {
	IncludeExtensions []string
	IgnoreDirs        []string
	MaxFileBytes      int64
	MaxFiles          int
}

// SourceFile is a text file read from a scanned tree.
type SourceFile struct {
	Path     string
	Language string
	Size     int64
	Checksum string
	Content  string
}

// ScanResult holds the kept files and the non-fatal problems met on the way.
type ScanResult struct {
	Files      []SourceFile
	TotalBytes int64
	Skipped    int
	Truncated  bool
	Warnings   error
}

// Scan walks root and reads every file selected by opts. Paths in the result
// are slash-separated and relative to root, with a single wrapping top-level
// directory removed.
func Scan(ctx context.Context, root string, opts ScanOptions) (ScanResult, error) {
	logger := common.Logger()
	include := toSet(opts.IncludeExtensions, true)
	ignore := toSet(opts.IgnoreDirs, false)
	var result ScanResult
	var warnings *multierror.Error

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("walk %s: %w", p, walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		name := d.Name()
		if d.IsDir() {
			if p != root && (ignore[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !included(name, include) {
			result.Skipped++
			return nil
		}
		if opts.MaxFiles > 0 && len(result.Files) >= opts.MaxFiles {
			result.Truncated = true
			return filepath.SkipAll
		}
		file, keep, err := readSourceFile(p, opts.MaxFileBytes)
		if err != nil {
			warnings = multierror.Append(warnings, err)
			return nil
		}
		if !keep {
			result.Skipped++
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			warnings = multierror.Append(warnings, fmt.Errorf("relative path for %s: %w", p, err))
			return nil
		}
		file.Path = filepath.ToSlash(rel)
		result.Files = append(result.Files, file)
		result.TotalBytes += file.Size
		return nil
	})
	if err != nil {
		return ScanResult{}, err
	}
	if result.Truncated {
		warnings = multierror.Append(warnings, fmt.Errorf("file limit of %d reached; remaining files ignored", opts.MaxFiles))
	}
	result.Warnings = warnings.ErrorOrNil()
	if len(result.Files) == 0 {
		return result, ErrNoSourceFiles
	}
	stripCommonRoot(result.Files)
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	logger.Info("ingest: scan complete", "files", len(result.Files), "skipped", result.Skipped, "bytes", result.TotalBytes, "truncated", result.Truncated)
	return result, nil
}

func readSourceFile(p string, maxBytes int64) (SourceFile, bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return SourceFile{}, false, fmt.Errorf("stat %s: %w", p, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		common.Logger().Debug("ingest: skipping large file", "path", p, "size", info.Size())
		return SourceFile{}, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return SourceFile{}, false, fmt.Errorf("read %s: %w", p, err)
	}
	if isBinary(data) {
		return SourceFile{}, false, nil
	}
	sum := sha256.Sum256(data)
	return SourceFile{
		Language: LanguageFor(p),
		Size:     int64(len(data)),
		Checksum: hex.EncodeToString(sum[:]),
		Content:  string(data),
	}, true, nil
}

func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}

func included(name string, include map[string]bool) bool {
	if len(include) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	if _, ok := wellKnownFiles[lower]; ok {
		return true
	}
	return include[strings.ToLower(filepath.Ext(name))]
}

// stripCommonRoot drops a leading directory shared by every file, which is
// how GitHub and most archivers wrap repository ZIPs.
func stripCommonRoot(files []SourceFile) {
	if len(files) == 0 {
		return
	}
	first := strings.SplitN(files[0].Path, "/", 2)
	if len(first) < 2 {
		return
	}
	prefix := first[0] + "/"
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) {
			return
		}
	}
	for i := range files {
		files[i].Path = path.Clean(strings.TrimPrefix(files[i].Path, prefix))
	}
}

func toSet(values []string, lower bool) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if lower {
			v = strings.ToLower(v)
		}
		set[v] = true
	}
	return set
}
