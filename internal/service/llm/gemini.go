package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/negraodenio/roast/internal/constants"
	apperrors "github.com/negraodenio/roast/pkg/errors"
)

type GeminiConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiProvider serves the same message pair through generateContent, with
// the system prompt sent as the system instruction.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewGeminiProvider returns an unavailable provider when no API key is set.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	g := &GeminiProvider{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
	if g.model == "" {
		g.model = "gemini-2.5-flash"
	}
	if g.maxTokens <= 0 {
		g.maxTokens = constants.LLMConfig.FallbackMaxTokens
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Available() bool {
	return g.client != nil
}

func (g *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", apperrors.NewProviderError(g.Name(), 0, ErrProviderUnavailable)
	}

	g.logger.Debug("Generating with Gemini", zap.String("model", g.model))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(req.UserPrompt, genai.RoleUser),
	}, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(constants.LLMConfig.Temperature)),
		MaxOutputTokens:   int32(g.maxTokens),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		status := 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		g.logger.Warn("Gemini generation failed",
			zap.String("model", g.model),
			zap.Int("status", status),
			zap.Error(err))
		return "", apperrors.NewProviderError(g.Name(), status, err)
	}

	text := extractTextFromGeminiResponse(resp)
	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return text, nil
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
