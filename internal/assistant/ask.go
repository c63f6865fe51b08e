// File path: internal/assistant/ask.go
package assistant

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/common/telemetry"
	"github.com/nicodishanthj/codelens/internal/llm"
	"github.com/nicodishanthj/codelens/internal/retrieval"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

type AskRequest struct {
	CodebaseID string
	Question   string
	SessionID  string
}

type AskResult struct {
	Answer    string   `json:"answer"`
	Diagram   string   `json:"diagram,omitempty"`
	Citations []string `json:"citations"`
	SessionID string   `json:"sessionId"`
	HistoryID string   `json:"historyId,omitempty"`
	Files     []string `json:"files"`
	Fallback  bool     `json:"fallback,omitempty"`
	Tokens    int      `json:"tokens"`
}

type RefactorRequest struct {
	CodebaseID   string
	FilePath     string
	Instructions string
	SessionID    string
}

type RefactorResult struct {
	Summary     string           `json:"summary"`
	Suggestions []llm.Suggestion `json:"suggestions"`
	SessionID   string           `json:"sessionId"`
	HistoryID   string           `json:"historyId,omitempty"`
	Files       []string         `json:"files"`
}

// Ask answers a question from the files of one codebase.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	ctx, end := telemetry.StartSpan(ctx, "assistant.ask")
	defer end("codebase", req.CodebaseID)
	telemetry.RecordRequest("question")

	codebaseID := strings.TrimSpace(req.CodebaseID)
	question := strings.TrimSpace(req.Question)
	if codebaseID == "" {
		return AskResult{}, invalidf("codebaseId is required")
	}
	if question == "" {
		return AskResult{}, invalidf("question is required")
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return AskResult{}, invalidf("question exceeds %d characters", MaxQuestionLength)
	}
	loaded, err := s.load(ctx, codebaseID)
	if err != nil {
		return AskResult{}, err
	}

	ranked := retrieval.FindRelevantFiles(loaded.docs, question, s.opts.maxContextFiles)
	built := s.contextBuilder().Build(ranked)
	fallback := len(ranked) > 0 && ranked[0].Fallback
	telemetry.RecordRetrieval(built.Tokens, fallback)
	common.Logger().Debug("assistant: context built",
		"codebase", codebaseID, "files", built.Files, "tokens", built.Tokens, "fallback", fallback, "truncated", built.Truncated)

	reply, err := s.provider.Chat(ctx, llm.QuestionMessages(question, built.Text, built.Files))
	if err != nil {
		return AskResult{}, fmt.Errorf("%w: %v", ErrLLM, err)
	}
	answer := llm.ParseAnswer(reply, built.Files)
	common.Logger().Info("assistant: question answered",
		"codebase", codebaseID, "citations", len(answer.Citations), "dur", telemetry.SpanDuration(ctx))

	sessionID := sessionOrNew(req.SessionID)
	entry := s.record(ctx, sqlite.HistoryEntry{
		SessionID:  sessionID,
		CodebaseID: codebaseID,
		Kind:       sqlite.KindQuestion,
		Question:   question,
		Answer:     answer.Answer,
		Diagram:    answer.Diagram,
		Citations:  answer.Citations,
	})
	return AskResult{
		Answer:    answer.Answer,
		Diagram:   answer.Diagram,
		Citations: answer.Citations,
		SessionID: sessionID,
		HistoryID: entry.ID,
		Files:     nonNil(built.Files),
		Fallback:  fallback,
		Tokens:    built.Tokens,
	}, nil
}

// Refactor proposes changes for one file, or for the files most related to
// the instructions when no file is named.
func (s *Service) Refactor(ctx context.Context, req RefactorRequest) (RefactorResult, error) {
	ctx, end := telemetry.StartSpan(ctx, "assistant.refactor")
	defer end("codebase", req.CodebaseID, "file", req.FilePath)
	telemetry.RecordRequest("refactor")

	codebaseID := strings.TrimSpace(req.CodebaseID)
	filePath := strings.TrimPrefix(strings.TrimSpace(req.FilePath), "/")
	instructions := strings.TrimSpace(req.Instructions)
	if codebaseID == "" {
		return RefactorResult{}, invalidf("codebaseId is required")
	}
	if filePath == "" && instructions == "" {
		return RefactorResult{}, invalidf("filePath or instructions is required")
	}
	if utf8.RuneCountInString(instructions) > MaxQuestionLength {
		return RefactorResult{}, invalidf("instructions exceed %d characters", MaxQuestionLength)
	}
	loaded, err := s.load(ctx, codebaseID)
	if err != nil {
		return RefactorResult{}, err
	}

	var ranked []retrieval.Scored
	if filePath != "" {
		doc, ok := loaded.doc(filePath)
		if !ok {
			return RefactorResult{}, fmt.Errorf("%w: file %s in codebase %s", ErrNotFound, filePath, codebaseID)
		}
		ranked = []retrieval.Scored{{Document: doc}}
	} else {
		ranked = retrieval.FindRelevantFiles(loaded.docs, instructions, s.opts.maxContextFiles)
	}
	built := s.contextBuilder().Build(ranked)
	telemetry.RecordRetrieval(built.Tokens, len(ranked) > 0 && ranked[0].Fallback)

	reply, err := s.provider.Chat(ctx, llm.RefactorMessages(instructions, built.Text, built.Files))
	if err != nil {
		return RefactorResult{}, fmt.Errorf("%w: %v", ErrLLM, err)
	}
	parsed := llm.ParseRefactor(reply)
	if parsed.Suggestions == nil {
		parsed.Suggestions = []llm.Suggestion{}
	}
	common.Logger().Info("assistant: refactor proposed",
		"codebase", codebaseID, "suggestions", len(parsed.Suggestions), "dur", telemetry.SpanDuration(ctx))

	question := instructions
	if question == "" {
		question = "refactor " + filePath
	}
	sessionID := sessionOrNew(req.SessionID)
	entry := s.record(ctx, sqlite.HistoryEntry{
		SessionID:  sessionID,
		CodebaseID: codebaseID,
		Kind:       sqlite.KindRefactor,
		Question:   question,
		Answer:     parsed.Summary,
		Citations:  built.Files,
	})
	return RefactorResult{
		Summary:     parsed.Summary,
		Suggestions: parsed.Suggestions,
		SessionID:   sessionID,
		HistoryID:   entry.ID,
		Files:       nonNil(built.Files),
	}, nil
}

// record stores a history entry. A storage failure is logged and does not
// discard an answer the model already produced.
func (s *Service) record(ctx context.Context, entry sqlite.HistoryEntry) sqlite.HistoryEntry {
	saved, err := s.store.SaveHistory(ctx, entry)
	if err != nil {
		common.Logger().Error("assistant: save history failed", "session", entry.SessionID, "kind", entry.Kind, "error", err)
		return entry
	}
	return saved
}

func sessionOrNew(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
