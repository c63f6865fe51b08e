// File path: internal/assistant/errors.go
package assistant

import (
	"errors"
	"fmt"

	"github.com/nicodishanthj/codelens/internal/ingest"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrTooLarge     = errors.New("payload too large")
	ErrLLM          = errors.New("language model request failed")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// classify maps lower-level errors onto the package sentinels while keeping
// the original in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound), errors.Is(err, ErrTooLarge), errors.Is(err, ErrLLM):
		return err
	case errors.Is(err, sqlite.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, ingest.ErrArchiveTooLarge):
		return fmt.Errorf("%w: %w", ErrTooLarge, err)
	case errors.Is(err, ingest.ErrInvalidArchive),
		errors.Is(err, ingest.ErrInvalidRepoURL),
		errors.Is(err, ingest.ErrNoSourceFiles):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return err
	}
}
