// File path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nicodishanthj/codelens/internal/common"
)

// DefaultIncludeExtensions lists the file extensions kept when scanning an
// uploaded codebase.
var DefaultIncludeExtensions = []string{
	".go", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".py", ".java", ".kt", ".kts",
	".scala", ".rb", ".php", ".cs", ".c", ".h", ".cc", ".cpp", ".hpp", ".rs", ".swift",
	".m", ".mm", ".dart", ".lua", ".sh", ".bash", ".sql", ".html", ".css", ".scss", ".vue",
	".svelte", ".json", ".yaml", ".yml", ".toml", ".xml", ".md", ".gradle", ".proto",
	".graphql", ".tf",
}

// DefaultIgnoreDirs lists directory names never descended into.
var DefaultIgnoreDirs = []string{
	".git", "node_modules", "vendor", "dist", "build", "target", "__pycache__",
	".venv", ".idea", ".vscode", "coverage",
}

type ServerConfig struct {
	Addr           string
	UploadRoot     string
	MaxUploadBytes int64
}

type StorageConfig struct {
	DataDir      string
	SQLitePath   string
	MaxOpenConns int
	BusyTimeout  time.Duration
}

type IngestConfig struct {
	MaxFileBytes      int64
	MaxExtractedBytes int64
	MaxFiles          int
	IncludeExtensions []string
	IgnoreDirs        []string
	CloneTimeout      time.Duration
}

type LLMConfig struct {
	APIKey      string
	Endpoint    string
	ChatModel   string
	HTTPTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	// PlainText turns off the JSON response format for endpoints that lack it.
	PlainText bool
}

type RetrievalConfig struct {
	MaxFiles    int
	TokenBudget int
}

// Config is the fully resolved application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	CacheSize int
	LogLevel  string
}

// SetDefaults registers every known key and its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8081")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("SQLITE_MAX_OPEN_CONNS", 8)
	v.SetDefault("SQLITE_BUSY_TIMEOUT", "5s")
	v.SetDefault("UPLOAD_ROOT", filepath.Join(os.TempDir(), "codelens_uploads"))
	v.SetDefault("MAX_UPLOAD_BYTES", int64(100<<20))
	v.SetDefault("MAX_FILE_BYTES", int64(1<<20))
	v.SetDefault("MAX_FILES", 2000)
	v.SetDefault("MAX_EXTRACTED_BYTES", int64(512<<20))
	v.SetDefault("INCLUDE_EXTENSIONS", strings.Join(DefaultIncludeExtensions, ","))
	v.SetDefault("IGNORE_DIRS", strings.Join(DefaultIgnoreDirs, ","))
	v.SetDefault("GIT_CLONE_TIMEOUT", "2m")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_ENDPOINT", "")
	v.SetDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_HTTP_TIMEOUT", "60s")
	v.SetDefault("LLM_MAX_RETRIES", 2)
	v.SetDefault("LLM_RETRY_DELAY", "500ms")
	v.SetDefault("OPENAI_PLAIN_TEXT", false)
	v.SetDefault("CONTEXT_MAX_FILES", 5)
	v.SetDefault("CONTEXT_TOKEN_BUDGET", 12000)
	v.SetDefault("CODEBASE_CACHE_SIZE", 16)
	v.SetDefault("LOG_LEVEL", "info")
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(paths ...string) {
	logger := common.Logger()
	if err := godotenv.Load(paths...); err != nil {
		logger.Warn("config: .env file not loaded", "error", err)
		return
	}
	logger.Info("config: environment loaded from .env")
}

// Load resolves the configuration from defaults, the optional config file
// set on v, and the environment.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()
	if file := v.ConfigFileUsed(); file != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file %s: %w", file, err)
			}
		}
	}

	busy, err := parseDuration(v, "SQLITE_BUSY_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	cloneTimeout, err := parseDuration(v, "GIT_CLONE_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	httpTimeout, err := parseDuration(v, "OPENAI_HTTP_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	retryDelay, err := parseDuration(v, "LLM_RETRY_DELAY")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:           strings.TrimSpace(v.GetString("ADDR")),
			UploadRoot:     strings.TrimSpace(v.GetString("UPLOAD_ROOT")),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		},
		Storage: StorageConfig{
			DataDir:      strings.TrimSpace(v.GetString("DATA_DIR")),
			SQLitePath:   strings.TrimSpace(v.GetString("SQLITE_PATH")),
			MaxOpenConns: v.GetInt("SQLITE_MAX_OPEN_CONNS"),
			BusyTimeout:  busy,
		},
		Ingest: IngestConfig{
			MaxFileBytes:      v.GetInt64("MAX_FILE_BYTES"),
			MaxExtractedBytes: v.GetInt64("MAX_EXTRACTED_BYTES"),
			MaxFiles:          v.GetInt("MAX_FILES"),
			IncludeExtensions: normalizeExtensions(SplitList(v.GetString("INCLUDE_EXTENSIONS"))),
			IgnoreDirs:        SplitList(v.GetString("IGNORE_DIRS")),
			CloneTimeout:      cloneTimeout,
		},
		LLM: LLMConfig{
			APIKey:      strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
			Endpoint:    strings.TrimSpace(v.GetString("OPENAI_ENDPOINT")),
			ChatModel:   strings.TrimSpace(v.GetString("OPENAI_CHAT_MODEL")),
			HTTPTimeout: httpTimeout,
			MaxRetries:  v.GetInt("LLM_MAX_RETRIES"),
			RetryDelay:  retryDelay,
			PlainText:   v.GetBool("OPENAI_PLAIN_TEXT"),
		},
		Retrieval: RetrievalConfig{
			MaxFiles:    v.GetInt("CONTEXT_MAX_FILES"),
			TokenBudget: v.GetInt("CONTEXT_TOKEN_BUDGET"),
		},
		CacheSize: v.GetInt("CODEBASE_CACHE_SIZE"),
		LogLevel:  strings.TrimSpace(v.GetString("LOG_LEVEL")),
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "codelens.db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("ADDR must not be empty")
	case c.Server.MaxUploadBytes <= 0:
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	case c.Storage.SQLitePath == "":
		return fmt.Errorf("SQLITE_PATH must not be empty")
	case c.Ingest.MaxFileBytes <= 0:
		return fmt.Errorf("MAX_FILE_BYTES must be positive")
	case c.Ingest.MaxFiles <= 0:
		return fmt.Errorf("MAX_FILES must be positive")
	case len(c.Ingest.IncludeExtensions) == 0:
		return fmt.Errorf("INCLUDE_EXTENSIONS must list at least one extension")
	case c.LLM.MaxRetries < 0:
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	case c.Retrieval.MaxFiles <= 0:
		return fmt.Errorf("CONTEXT_MAX_FILES must be positive")
	case c.Retrieval.TokenBudget <= 0:
		return fmt.Errorf("CONTEXT_TOKEN_BUDGET must be positive")
	}
	return nil
}

// SplitList splits a comma-separated value, dropping empty items.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return dur, nil
}
