// File path: internal/api/question_handler.go
package api

import (
	"net/http"

	"github.com/nicodishanthj/codelens/internal/assistant"
	"github.com/nicodishanthj/codelens/internal/common"
)

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Info("api: question received", "codebase", req.CodebaseID, "session", req.SessionID, "chars", len(req.Question))
	result, err := s.assistant.Ask(r.Context(), assistant.AskRequest{
		CodebaseID: req.CodebaseID,
		Question:   req.Question,
		SessionID:  req.SessionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Info("api: question answered", "codebase", req.CodebaseID, "session", result.SessionID, "files", len(result.Files), "fallback", result.Fallback)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefactor(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req refactorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	logger.Info("api: refactor requested", "codebase", req.CodebaseID, "file", req.FilePath)
	result, err := s.assistant.Refactor(r.Context(), assistant.RefactorRequest{
		CodebaseID:   req.CodebaseID,
		FilePath:     req.FilePath,
		Instructions: req.Instructions,
		SessionID:    req.SessionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
