// File path: internal/api/upload_handler.go
package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nicodishanthj/codelens/internal/assistant"
	"github.com/nicodishanthj/codelens/internal/common"
)

const maxMultipartMemory = 32 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var src assistant.UploadSource
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, fmt.Errorf("failed to parse upload form: %w", err))
			return
		}
		defer r.MultipartForm.RemoveAll()
		src.GitHubURL = strings.TrimSpace(r.FormValue("githubUrl"))
		src.Name = strings.TrimSpace(r.FormValue("name"))
		if headers := r.MultipartForm.File["file"]; len(headers) > 0 {
			header := headers[0]
			if !strings.EqualFold(filepath.Ext(header.Filename), ".zip") {
				writeError(w, http.StatusBadRequest, fmt.Errorf("uploaded file must be a .zip archive"))
				return
			}
			path, err := s.stageUpload(header)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			defer func() {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					logger.Warn("api: remove staged upload failed", "path", path, "error", err)
				}
			}()
			src.ArchivePath = path
			if src.Name == "" {
				src.Name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
			}
		}
	case "application/json", "":
		var req uploadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		src.GitHubURL = strings.TrimSpace(req.GitHubURL)
		src.Name = strings.TrimSpace(req.Name)
	default:
		writeError(w, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", mediaType))
		return
	}

	logger.Info("api: upload requested", "zip", src.ArchivePath != "", "github_url", src.GitHubURL)
	result, err := s.assistant.Upload(ctx, src)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Info("api: upload succeeded", "codebase", result.CodebaseID, "files", result.FileCount)
	writeJSON(w, http.StatusCreated, result)
}

// stageUpload copies an uploaded part to a temporary file under the upload
// root and returns its path.
func (s *Server) stageUpload(header *multipart.FileHeader) (string, error) {
	in, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer in.Close()
	out, err := os.CreateTemp(s.cfg.UploadRoot, "upload-*.zip")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	path := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write staging file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return path, nil
}
