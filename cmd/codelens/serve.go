// File path: cmd/codelens/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicodishanthj/codelens/internal/api"
	"github.com/nicodishanthj/codelens/internal/assistant"
	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/config"
	"github.com/nicodishanthj/codelens/internal/ingest"
	"github.com/nicodishanthj/codelens/internal/llm"
	"github.com/nicodishanthj/codelens/internal/retrieval"
	"github.com/nicodishanthj/codelens/internal/sqlite"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}
}

// bindFlags registers the persistent flags on root and binds them into v.
// A flag only overrides the environment when it is set explicitly.
func bindFlags(root *cobra.Command, v *viper.Viper) {
	flags := root.PersistentFlags()
	flags.String("addr", "", "listen address (default :8081, env ADDR)")
	flags.String("data-dir", "", "directory for the SQLite database (env DATA_DIR)")
	flags.String("config", "", "optional config file (yaml, json or toml)")
	_ = v.BindPFlag("ADDR", flags.Lookup("addr"))
	_ = v.BindPFlag("DATA_DIR", flags.Lookup("data-dir"))
	_ = v.BindPFlag("CONFIG_FILE", flags.Lookup("config"))
}

func runServe(parent context.Context, v *viper.Viper) error {
	logger := common.Logger()
	config.LoadDotEnv()
	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	common.SetLevel(cfg.LogLevel)
	logger.Info("codelens: startup initiated", "addr", cfg.Server.Addr, "sqlite", cfg.Storage.SQLitePath, "version", version)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, sqlite.Config{
		Path:         cfg.Storage.SQLitePath,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		BusyTimeout:  cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("codelens: store close failed", "error", err)
		}
	}()

	ingestor, err := ingest.NewIngestor(ingest.Options{
		WorkRoot:        filepath.Join(cfg.Server.UploadRoot, "work"),
		MaxArchiveBytes: cfg.Ingest.MaxExtractedBytes,
		Scan: ingest.ScanOptions{
			IncludeExtensions: cfg.Ingest.IncludeExtensions,
			IgnoreDirs:        cfg.Ingest.IgnoreDirs,
			MaxFileBytes:      cfg.Ingest.MaxFileBytes,
			MaxFiles:          cfg.Ingest.MaxFiles,
		},
		Cloner: ingest.GitCloner{Timeout: cfg.Ingest.CloneTimeout},
	})
	if err != nil {
		return fmt.Errorf("init ingestor: %w", err)
	}

	provider := llm.NewProvider(cfg.LLM)
	logger.Info("codelens: llm provider ready", "provider", provider.Name())

	tokenizer := retrieval.DefaultTokenizer()
	logger.Info("codelens: tokenizer ready", "tokenizer", fmt.Sprintf("%T", tokenizer))

	svc, err := assistant.New(store, ingestor, provider,
		assistant.WithRetrieval(cfg.Retrieval.MaxFiles, cfg.Retrieval.TokenBudget),
		assistant.WithCacheSize(cfg.CacheSize),
		assistant.WithTokenizer(tokenizer),
	)
	if err != nil {
		return fmt.Errorf("init assistant: %w", err)
	}
	server, err := api.NewServer(svc, &api.Config{
		UploadRoot:     cfg.Server.UploadRoot,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		reachable := cfg.Server.Addr
		if strings.HasPrefix(reachable, ":") {
			reachable = "localhost" + reachable
		}
		logger.Info("codelens: server listening", "addr", cfg.Server.Addr, "suggestion", fmt.Sprintf("curl http://%s/health", reachable))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}
	logger.Info("codelens: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
