// File path: internal/ingest/ingest.go
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/common/telemetry"
)

// Options configures an Ingestor.
type Options struct {
	WorkRoot        string
	MaxArchiveBytes int64
	Scan            ScanOptions
	Cloner          Cloner
}

// Result is the outcome of ingesting one codebase.
type Result struct {
	Name      string
	SourceRef string
	ScanResult
}

// Ingestor turns a ZIP archive or a GitHub repository into a list of source
// files. Every call works in its own temporary workspace which is removed
// before returning.
type Ingestor struct {
	opts Options
}

func NewIngestor(opts Options) (*Ingestor, error) {
	if strings.TrimSpace(opts.WorkRoot) == "" {
		opts.WorkRoot = filepath.Join(os.TempDir(), "codelens_uploads")
	}
	if err := os.MkdirAll(opts.WorkRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	if opts.Cloner == nil {
		opts.Cloner = GitCloner{}
	}
	return &Ingestor{opts: opts}, nil
}

// FromZip extracts and scans an archive. name is the user-facing codebase
// name; it defaults to the archive file name without extension.
func (i *Ingestor) FromZip(ctx context.Context, archivePath, name string) (Result, error) {
	ctx, end := telemetry.StartSpan(ctx, "ingest.zip")
	defer end("archive", archivePath)
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	}
	return i.withWorkspace(ctx, "zip-", func(workspace string) (Result, error) {
		if err := ExtractZip(ctx, archivePath, workspace, i.opts.MaxArchiveBytes); err != nil {
			return Result{}, err
		}
		scan, err := Scan(ctx, workspace, i.opts.Scan)
		if err != nil {
			return Result{}, err
		}
		return Result{Name: name, SourceRef: filepath.Base(archivePath), ScanResult: scan}, nil
	})
}

// FromGitHub validates and clones a GitHub repository, then scans it.
func (i *Ingestor) FromGitHub(ctx context.Context, rawURL string) (Result, error) {
	ref, err := ValidateRepoURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	ctx, end := telemetry.StartSpan(ctx, "ingest.github")
	defer end("repo", ref.FullName())
	return i.withWorkspace(ctx, "git-", func(workspace string) (Result, error) {
		dest := filepath.Join(workspace, ref.Name)
		if err := i.opts.Cloner.Clone(ctx, ref.CloneURL, dest); err != nil {
			return Result{}, err
		}
		scan, err := Scan(ctx, dest, i.opts.Scan)
		if err != nil {
			return Result{}, err
		}
		return Result{Name: ref.FullName(), SourceRef: ref.CloneURL, ScanResult: scan}, nil
	})
}

func (i *Ingestor) withWorkspace(ctx context.Context, prefix string, fn func(workspace string) (Result, error)) (Result, error) {
	logger := common.Logger()
	workspace, err := os.MkdirTemp(i.opts.WorkRoot, prefix)
	if err != nil {
		return Result{}, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("ingest: cleanup workspace failed", "workspace", workspace, "error", err)
		}
	}()
	result, err := fn(workspace)
	if err != nil {
		return Result{}, err
	}
	if result.Warnings != nil {
		logger.Warn("ingest: completed with warnings", "name", result.Name, "warnings", result.Warnings.Error())
	}
	return result, nil
}
