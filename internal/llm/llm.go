// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/config"
	"github.com/nicodishanthj/codelens/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProvider selects the chat backend from cfg. The OpenAI client is not
// built until the first Chat call; without an API key the local provider
// is returned.
func NewProvider(cfg config.LLMConfig) Provider {
	logger := common.Logger()
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; falling back to local provider")
		return providers.NewLocalProvider()
	}
	logger.Info("llm: OpenAI provider selected", "model", cfg.ChatModel)
	return &lazyProvider{
		name: "openai",
		build: func() Provider {
			return providers.NewOpenAIProvider(providers.OpenAIConfig{
				APIKey:      cfg.APIKey,
				Endpoint:    cfg.Endpoint,
				ChatModel:   cfg.ChatModel,
				HTTPTimeout: cfg.HTTPTimeout,
				MaxRetries:  cfg.MaxRetries,
				RetryDelay:  cfg.RetryDelay,
				PlainText:   cfg.PlainText,
			})
		},
	}
}

type lazyProvider struct {
	name  string
	once  sync.Once
	build func() Provider
	inner Provider
	ready atomic.Bool
}

func (p *lazyProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	messages, err := NormalizeMessages(messages)
	if err != nil {
		return "", err
	}
	p.once.Do(func() {
		p.inner = p.build()
		p.ready.Store(true)
	})
	return p.inner.Chat(ctx, messages)
}

func (p *lazyProvider) Name() string {
	return p.name
}

// Initialized reports whether the underlying client has been constructed.
func (p *lazyProvider) Initialized() bool {
	return p.ready.Load()
}

func NormalizeMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	for i := range messages {
		messages[i].Role = strings.ToLower(strings.TrimSpace(messages[i].Role))
	}
	return messages, nil
}
