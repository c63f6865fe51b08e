// File path: internal/ingest/repo.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/nicodishanthj/codelens/internal/common"
)

// ErrInvalidRepoURL is returned for anything that is not a public GitHub
// repository URL.
var ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

var repoSegment = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// RepoRef identifies a GitHub repository.
type RepoRef struct {
	Owner    string
	Name     string
	CloneURL string
}

// ValidateRepoURL accepts https://github.com/<owner>/<repo> with an optional
// .git suffix or trailing slash.
func ValidateRepoURL(raw string) (RepoRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RepoRef{}, fmt.Errorf("%w: empty", ErrInvalidRepoURL)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return RepoRef{}, fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return RepoRef{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRepoURL, parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return RepoRef{}, fmt.Errorf("%w: host %q is not github.com", ErrInvalidRepoURL, host)
	}
	if parsed.User != nil || parsed.RawQuery != "" || parsed.Fragment != "" {
		return RepoRef{}, fmt.Errorf("%w: credentials, query and fragment are not allowed", ErrInvalidRepoURL)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) != 2 {
		return RepoRef{}, fmt.Errorf("%w: expected /<owner>/<repo>", ErrInvalidRepoURL)
	}
	owner := parts[0]
	name := strings.TrimSuffix(parts[1], ".git")
	if !repoSegment.MatchString(owner) || !repoSegment.MatchString(name) || name == "." || name == ".." {
		return RepoRef{}, fmt.Errorf("%w: malformed owner or repository", ErrInvalidRepoURL)
	}
	return RepoRef{
		Owner:    owner,
		Name:     name,
		CloneURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, name),
	}, nil
}

// FullName returns owner/name.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// Cloner fetches a repository into a local directory.
type Cloner interface {
	Clone(ctx context.Context, cloneURL, dest string) error
}

// GitCloner performs shallow single-branch clones with go-git.
type GitCloner struct {
	Timeout time.Duration
}

func (g GitCloner) Clone(ctx context.Context, cloneURL, dest string) error {
	logger := common.Logger()
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	start := time.Now()
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:          cloneURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		logger.Warn("ingest: clone failed", "url", cloneURL, "error", err)
		return fmt.Errorf("clone %s: %w", cloneURL, err)
	}
	logger.Info("ingest: repository cloned", "url", cloneURL, "dur", time.Since(start))
	return nil
}
