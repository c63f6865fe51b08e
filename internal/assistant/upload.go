// File path: internal/assistant/upload.go
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/common/telemetry"
	"github.com/nicodishanthj/codelens/internal/ingest"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

// UploadSource names exactly one of a ZIP archive on disk or a GitHub URL.
type UploadSource struct {
	ArchivePath string
	Name        string
	GitHubURL   string
}

type UploadResult struct {
	CodebaseID string    `json:"codebaseId"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	FileCount  int       `json:"fileCount"`
	TotalBytes int64     `json:"totalBytes"`
	Files      []string  `json:"files"`
	Skipped    int       `json:"skipped,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
	Warning    string    `json:"warning,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Upload ingests a codebase and stores it under a new id.
func (s *Service) Upload(ctx context.Context, src UploadSource) (UploadResult, error) {
	logger := common.Logger()
	archive := strings.TrimSpace(src.ArchivePath)
	repoURL := strings.TrimSpace(src.GitHubURL)
	switch {
	case archive == "" && repoURL == "":
		return UploadResult{}, invalidf("a zip file or a githubUrl is required")
	case archive != "" && repoURL != "":
		return UploadResult{}, invalidf("provide either a zip file or a githubUrl, not both")
	}

	var (
		result ingest.Result
		source string
		err    error
	)
	if archive != "" {
		source = sqlite.SourceZip
		result, err = s.ingester.FromZip(ctx, archive, src.Name)
	} else {
		source = sqlite.SourceGitHub
		result, err = s.ingester.FromGitHub(ctx, repoURL)
	}
	if err != nil {
		telemetry.RecordUpload(0, 0, err)
		logger.Warn("assistant: ingestion failed", "source", source, "error", err)
		return UploadResult{}, classify(fmt.Errorf("ingest %s: %w", source, err))
	}

	codebase := sqlite.Codebase{
		ID:        uuid.NewString(),
		Name:      result.Name,
		Source:    source,
		SourceRef: result.SourceRef,
		CreatedAt: time.Now().UTC(),
	}
	files := make([]sqlite.File, 0, len(result.Files))
	paths := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, sqlite.File{
			Path:     f.Path,
			Language: f.Language,
			Size:     f.Size,
			Checksum: f.Checksum,
			Content:  f.Content,
		})
		paths = append(paths, f.Path)
	}
	if err := s.store.SaveCodebase(ctx, codebase, files); err != nil {
		telemetry.RecordUpload(0, 0, err)
		return UploadResult{}, fmt.Errorf("save codebase: %w", err)
	}
	telemetry.RecordUpload(len(files), result.TotalBytes, nil)
	codebase.FileCount = len(files)
	codebase.TotalBytes = result.TotalBytes
	s.cache.Set(codebase.ID, &loadedCodebase{codebase: codebase, docs: toDocuments(files)})

	out := UploadResult{
		CodebaseID: codebase.ID,
		Name:       codebase.Name,
		Source:     source,
		FileCount:  len(files),
		TotalBytes: result.TotalBytes,
		Files:      paths,
		Skipped:    result.Skipped,
		Truncated:  result.Truncated,
		CreatedAt:  codebase.CreatedAt,
	}
	if result.Warnings != nil {
		out.Warning = result.Warnings.Error()
	}
	logger.Info("assistant: codebase stored", "id", codebase.ID, "name", codebase.Name, "files", len(files), "bytes", result.TotalBytes)
	return out, nil
}
