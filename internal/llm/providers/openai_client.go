// File path: internal/llm/providers/openai_client.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/nicodishanthj/codelens/internal/common"
	"github.com/nicodishanthj/codelens/internal/common/telemetry"
)

const DefaultChatModel = "gpt-4o-mini"

type OpenAIConfig struct {
	APIKey      string
	Endpoint    string
	ChatModel   string
	HTTPTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	// PlainText disables the JSON object response format for endpoints
	// that do not support it.
	PlainText bool
}

type OpenAIProvider struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	logger := common.Logger()
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by Chat so they can be logged and counted
		option.WithMaxRetries(0),
	}
	if cfg.HTTPTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.HTTPTimeout))
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	logger.Info("llm: OpenAI provider configured", "chat_model", cfg.ChatModel, "max_retries", cfg.MaxRetries)
	return &OpenAIProvider{client: openai.NewClient(opts...), cfg: cfg}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	logger := common.Logger()
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.cfg.ChatModel),
		Messages: toMessageParams(messages),
	}
	if !o.cfg.PlainText {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	logger.Debug("llm: sending chat completion request", "model", o.cfg.ChatModel, "messages", len(messages))

	var content string
	err := retry.Do(
		func() error {
			start := time.Now()
			resp, err := o.client.Chat.Completions.New(ctx, params)
			telemetry.RecordLLMCall(time.Since(start), err)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Unrecoverable(errors.New("no choices returned"))
			}
			content = resp.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.cfg.MaxRetries+1)),
		retry.Delay(o.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("llm: chat completion failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		logger.Error("llm: chat completion failed", "model", o.cfg.ChatModel, "error", err)
		return "", err
	}
	logger.Debug("llm: chat completion succeeded", "chars", len(content))
	return content, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func toMessageParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// retryable reports whether a failed call may succeed when repeated:
// transport errors, timeouts, rate limits and server errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout, apiErr.StatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	return true
}
