// File path: internal/assistant/service_test.go
package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nicodishanthj/codelens/internal/ingest"
	"github.com/nicodishanthj/codelens/internal/llm"
	"github.com/nicodishanthj/codelens/internal/retrieval"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

type mockProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, messages)
	return m.reply, m.err
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) lastUserPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	msgs := m.calls[len(m.calls)-1]
	return msgs[len(msgs)-1].Content
}

type fakeIngester struct {
	result ingest.Result
	err    error
	zips   []string
	repos  []string
}

func (f *fakeIngester) FromZip(ctx context.Context, archivePath, name string) (ingest.Result, error) {
	f.zips = append(f.zips, archivePath)
	res := f.result
	if name != "" {
		res.Name = name
	}
	return res, f.err
}

func (f *fakeIngester) FromGitHub(ctx context.Context, rawURL string) (ingest.Result, error) {
	f.repos = append(f.repos, rawURL)
	return f.result, f.err
}

func sampleResult() ingest.Result {
	files := []ingest.SourceFile{
		{Path: "auth/login.go", Language: "go", Size: 60, Content: "package auth\n\nfunc Login(user string) error { return checkPassword(user) }"},
		{Path: "db/users.go", Language: "go", Size: 30, Content: "package db\n\nfunc LoadUsers() {}"},
		{Path: "README.md", Language: "markdown", Size: 500, Content: "# Demo service"},
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return ingest.Result{Name: "demo", SourceRef: "demo.zip", ScanResult: ingest.ScanResult{Files: files, TotalBytes: total}}
}

type fixture struct {
	svc      *Service
	store    *sqlite.Store
	ingester *fakeIngester
	provider *mockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "assistant.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ing := &fakeIngester{result: sampleResult()}
	provider := &mockProvider{reply: `{"answer":"Login lives in auth.","diagram":"graph TD; A-->B","citations":["login.go"]}`}
	svc, err := New(store, ing, provider, WithRetrieval(2, 4000), WithCacheSize(2), WithTokenizer(retrieval.EstimateTokenizer{}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, store: store, ingester: ing, provider: provider}
}

func (f *fixture) upload(t *testing.T) UploadResult {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), UploadSource{ArchivePath: "/tmp/demo.zip"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return res
}

func TestUploadStoresCodebase(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)
	if res.CodebaseID == "" || res.Name != "demo" || res.Source != sqlite.SourceZip {
		t.Fatalf("unexpected upload result %+v", res)
	}
	if res.FileCount != 3 || res.TotalBytes != 590 || len(res.Files) != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	stored, files, err := f.store.GetCodebase(context.Background(), res.CodebaseID)
	if err != nil {
		t.Fatalf("get codebase: %v", err)
	}
	if stored.Name != "demo" || len(files) != 3 {
		t.Fatalf("unexpected stored codebase %+v with %d files", stored, len(files))
	}
}

func TestUploadValidatesSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Upload(ctx, UploadSource{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.svc.Upload(ctx, UploadSource{ArchivePath: "a.zip", GitHubURL: "https://github.com/a/b"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for both sources, got %v", err)
	}
	if len(f.ingester.zips)+len(f.ingester.repos) != 0 {
		t.Fatalf("ingester must not be called for invalid sources")
	}
}

func TestUploadClassifiesIngestErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[error]error{
		ingest.ErrInvalidRepoURL:  ErrInvalidInput,
		ingest.ErrNoSourceFiles:   ErrInvalidInput,
		ingest.ErrArchiveTooLarge: ErrTooLarge,
	}
	for cause, want := range cases {
		f.ingester.err = cause
		_, err := f.svc.Upload(ctx, UploadSource{GitHubURL: "https://github.com/a/b"})
		if !errors.Is(err, want) || !errors.Is(err, cause) {
			t.Fatalf("cause %v: expected %v in chain, got %v", cause, want, err)
		}
	}
}

func TestAskAnswersAndRecordsHistory(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	ctx := context.Background()

	res, err := f.svc.Ask(ctx, AskRequest{CodebaseID: up.CodebaseID, Question: "How does Login check the password?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if res.Answer != "Login lives in auth." || res.Diagram != "graph TD; A-->B" {
		t.Fatalf("unexpected answer %+v", res)
	}
	if len(res.Citations) != 1 || res.Citations[0] != "auth/login.go" {
		t.Fatalf("unexpected citations %v", res.Citations)
	}
	if res.Fallback || len(res.Files) == 0 || res.Files[0] != "auth/login.go" {
		t.Fatalf("expected auth/login.go ranked first, got %+v", res)
	}
	if res.SessionID == "" || res.HistoryID == "" {
		t.Fatalf("expected session and history ids, got %+v", res)
	}
	prompt := f.provider.lastUserPrompt()
	if !strings.Contains(prompt, "### File: auth/login.go") || !strings.Contains(prompt, "Question: How does Login check the password?") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}

	if _, err := f.svc.Ask(ctx, AskRequest{CodebaseID: up.CodebaseID, Question: "and the users?", SessionID: res.SessionID}); err != nil {
		t.Fatalf("second ask: %v", err)
	}
	history, err := f.svc.History(ctx, res.SessionID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Question != "How does Login check the password?" || history[1].Question != "and the users?" {
		t.Fatalf("unexpected history %+v", history)
	}
	byCodebase, err := f.svc.CodebaseHistory(ctx, up.CodebaseID, 1)
	if err != nil {
		t.Fatalf("codebase history: %v", err)
	}
	if len(byCodebase) != 1 || byCodebase[0].Question != "and the users?" {
		t.Fatalf("unexpected codebase history %+v", byCodebase)
	}
}

func TestAskFallsBackToLargestFiles(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.provider.reply = "plain text answer"
	res, err := f.svc.Ask(context.Background(), AskRequest{CodebaseID: up.CodebaseID, Question: "zzzz qqqq"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !res.Fallback || res.Files[0] != "README.md" {
		t.Fatalf("expected fallback to README.md, got %+v", res)
	}
	if res.Answer != "plain text answer" {
		t.Fatalf("unexpected answer %q", res.Answer)
	}
	if len(res.Citations) != len(res.Files) {
		t.Fatalf("citations should default to context files: %v vs %v", res.Citations, res.Files)
	}
}

func TestAskValidation(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	ctx := context.Background()
	cases := []AskRequest{
		{Question: "what?"},
		{CodebaseID: up.CodebaseID, Question: "   "},
		{CodebaseID: up.CodebaseID, Question: strings.Repeat("x", MaxQuestionLength+1)},
	}
	for _, req := range cases {
		if _, err := f.svc.Ask(ctx, req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", req.CodebaseID, err)
		}
	}
	if _, err := f.svc.Ask(ctx, AskRequest{CodebaseID: "missing", Question: "hello there"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.provider.calls) != 0 {
		t.Fatalf("provider must not be called for rejected requests")
	}
}

func TestAskReportsProviderFailure(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.provider.err = errors.New("upstream unavailable")
	_, err := f.svc.Ask(context.Background(), AskRequest{CodebaseID: up.CodebaseID, Question: "login flow"})
	if !errors.Is(err, ErrLLM) {
		t.Fatalf("expected llm error, got %v", err)
	}
}

func TestRefactorSingleFile(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.provider.reply = `{"summary":"Tidy users.","suggestions":[{"file":"db/users.go","title":"Return errors","description":"LoadUsers should return an error","priority":"high"}]}`
	res, err := f.svc.Refactor(context.Background(), RefactorRequest{CodebaseID: up.CodebaseID, FilePath: "db/users.go"})
	if err != nil {
		t.Fatalf("refactor: %v", err)
	}
	if res.Summary != "Tidy users." || len(res.Suggestions) != 1 || res.Suggestions[0].Priority != "high" {
		t.Fatalf("unexpected refactor %+v", res)
	}
	if len(res.Files) != 1 || res.Files[0] != "db/users.go" {
		t.Fatalf("expected only the named file in context, got %v", res.Files)
	}
	history, err := f.svc.History(context.Background(), res.SessionID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Kind != sqlite.KindRefactor || history[0].Question != "refactor db/users.go" {
		t.Fatalf("unexpected history %+v", history)
	}

	if _, err := f.svc.Refactor(context.Background(), RefactorRequest{CodebaseID: up.CodebaseID, FilePath: "nope.go"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown file, got %v", err)
	}
	if _, err := f.svc.Refactor(context.Background(), RefactorRequest{CodebaseID: up.CodebaseID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input without file or instructions, got %v", err)
	}
}

func TestRefactorByInstructions(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.provider.reply = `{"summary":"ok","suggestions":[]}`
	res, err := f.svc.Refactor(context.Background(), RefactorRequest{CodebaseID: up.CodebaseID, Instructions: "simplify password checks in login"})
	if err != nil {
		t.Fatalf("refactor: %v", err)
	}
	if len(res.Files) == 0 || res.Files[0] != "auth/login.go" {
		t.Fatalf("expected auth/login.go in context, got %v", res.Files)
	}
	if res.Suggestions == nil {
		t.Fatalf("suggestions should be an empty slice, not nil")
	}
}

func TestCodebaseQueriesAndDelete(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	ctx := context.Background()

	list, err := f.svc.Codebases(ctx)
	if err != nil || len(list) != 1 || list[0].ID != up.CodebaseID {
		t.Fatalf("unexpected codebases %+v, err %v", list, err)
	}
	detail, err := f.svc.Codebase(ctx, up.CodebaseID)
	if err != nil {
		t.Fatalf("codebase: %v", err)
	}
	if len(detail.Files) != 3 || detail.Files[0].Content != "" {
		t.Fatalf("expected listing without contents, got %+v", detail.Files)
	}
	file, err := f.svc.File(ctx, up.CodebaseID, "/db/users.go")
	if err != nil || !strings.Contains(file.Content, "LoadUsers") {
		t.Fatalf("unexpected file %+v, err %v", file, err)
	}
	if _, err := f.svc.File(ctx, up.CodebaseID, "missing.go"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := f.svc.DeleteCodebase(ctx, up.CodebaseID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := f.svc.cache.Get(up.CodebaseID); ok {
		t.Fatalf("deleted codebase must be evicted from the cache")
	}
	if _, err := f.svc.Ask(ctx, AskRequest{CodebaseID: up.CodebaseID, Question: "login"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := f.svc.DeleteCodebase(ctx, up.CodebaseID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	h := f.svc.Health(context.Background())
	if !h.OK() || h.Status != "ok" || h.Provider != "mock" || !h.ProviderReady {
		t.Fatalf("unexpected health %+v", h)
	}
	_ = f.store.Close()
	h = f.svc.Health(context.Background())
	if h.OK() || h.Status != "degraded" {
		t.Fatalf("expected degraded health after close, got %+v", h)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newCodebaseCache(2)
	c.Set("a", &loadedCodebase{})
	c.Set("b", &loadedCodebase{})
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a cached")
	}
	c.Set("c", &loadedCodebase{})
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	c.Remove("a")
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after remove, got %d", c.Len())
	}
}

func TestCacheSkipsSetAfterRemove(t *testing.T) {
	c := newCodebaseCache(2)
	gen := c.Generation("a")
	c.Remove("a")
	if c.SetIfCurrent("a", gen, &loadedCodebase{}) {
		t.Fatalf("expected stale generation to be rejected")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("removed codebase must not be cached")
	}
	if !c.SetIfCurrent("a", c.Generation("a"), &loadedCodebase{}) {
		t.Fatalf("expected current generation to be accepted")
	}
}

// deletingStore runs onLoaded once, right after a codebase has been read.
type deletingStore struct {
	*sqlite.Store
	once     sync.Once
	onLoaded func()
}

func (d *deletingStore) GetCodebase(ctx context.Context, id string) (sqlite.Codebase, []sqlite.File, error) {
	codebase, files, err := d.Store.GetCodebase(ctx, id)
	d.once.Do(d.onLoaded)
	return codebase, files, err
}

func TestAskDoesNotResurrectCodebaseDeletedDuringLoad(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	ctx := context.Background()

	store := &deletingStore{Store: f.store}
	svc, err := New(store, f.ingester, f.provider, WithTokenizer(retrieval.EstimateTokenizer{}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	store.onLoaded = func() {
		if err := svc.DeleteCodebase(ctx, up.CodebaseID); err != nil {
			t.Errorf("delete: %v", err)
		}
	}

	if _, err := svc.Ask(ctx, AskRequest{CodebaseID: up.CodebaseID, Question: "login"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for codebase deleted mid-load, got %v", err)
	}
	if _, ok := svc.cache.Get(up.CodebaseID); ok {
		t.Fatalf("deleted codebase must not be cached")
	}
	if _, err := svc.Ask(ctx, AskRequest{CodebaseID: up.CodebaseID, Question: "login"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on retry, got %v", err)
	}
	entries, err := f.store.CodebaseHistory(ctx, up.CodebaseID, 0)
	if err != nil {
		t.Fatalf("codebase history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no history for deleted codebase, got %d", len(entries))
	}
}

func TestNotFoundErrorsNameCodebaseOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Codebase(context.Background(), "missing-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := strings.Count(err.Error(), "missing-id"); n != 1 {
		t.Fatalf("expected id once in %q", err.Error())
	}
	_, err = f.svc.Ask(context.Background(), AskRequest{CodebaseID: "missing-id", Question: "login"})
	if n := strings.Count(err.Error(), "missing-id"); n != 1 {
		t.Fatalf("expected id once in %q", err.Error())
	}
}
