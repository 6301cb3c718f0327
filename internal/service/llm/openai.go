package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/constants"
	apperrors "github.com/negraodenio/roast/pkg/errors"
)

// OpenAIConfig describes one OpenAI-compatible endpoint (SiliconFlow, Groq).
type OpenAIConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	// Model replaces the requested model when set. Fallback providers use
	// their own model.
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIProvider speaks the chat-completions protocol through openai-go.
type OpenAIProvider struct {
	name      string
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	p := &OpenAIProvider{
		name:      cfg.Name,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
	if p.maxTokens <= 0 {
		p.maxTokens = constants.LLMConfig.PrimaryMaxTokens
	}
	if cfg.APIKey == "" {
		return p
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := openai.NewClient(opts...)
	p.client = &client
	return p
}

func (o *OpenAIProvider) Name() string {
	return o.name
}

func (o *OpenAIProvider) Available() bool {
	return o.client != nil
}

func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if o.client == nil {
		return "", apperrors.NewProviderError(o.name, 0, ErrProviderUnavailable)
	}

	model := req.Model
	if o.model != "" {
		model = o.model
	}

	o.logger.Debug("Calling chat completion",
		zap.String("provider", o.name),
		zap.String("model", model),
		zap.Int("max_tokens", o.maxTokens),
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(constants.LLMConfig.Temperature),
		MaxTokens:   openai.Int(int64(o.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		o.logger.Warn("Chat completion failed",
			zap.String("provider", o.name),
			zap.String("model", model),
			zap.Int("status", status),
			zap.Error(err),
		)
		return "", apperrors.NewProviderError(o.name, status, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	text := resp.Choices[0].Message.Content
	o.logger.Debug("Chat completion received",
		zap.String("provider", o.name),
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return text, nil
}
