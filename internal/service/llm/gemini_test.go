package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGeminiProviderCompletes(t *testing.T) {
	var captured map[string]any
	var path, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\":"},{"text":"64}"}]}}]}`))
	}))
	defer srv.Close()

	provider, err := NewGeminiProvider(context.Background(), GeminiConfig{
		APIKey:  "g-key",
		Model:   "gemini-2.5-flash",
		BaseURL: srv.URL + "/",
	}, zap.NewNop())
	require.NoError(t, err)
	require.True(t, provider.Available())

	got, err := provider.Complete(context.Background(), Request{
		Model:        "ignored-primary-model",
		SystemPrompt: "be an SEO expert",
		UserPrompt:   "Audit SEO for:\nCTX",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"score":64}`, got)

	assert.True(t, strings.HasSuffix(path, "models/gemini-2.5-flash:generateContent"), path)
	assert.Equal(t, "g-key", apiKey)

	cfg, ok := captured["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.InDelta(t, 0.7, cfg["temperature"], 1e-6)

	system, ok := captured["systemInstruction"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, mustJSON(t, system), "be an SEO expert")
	assert.Contains(t, mustJSON(t, captured["contents"]), "Audit SEO for:")
}

func TestGeminiProviderWithoutKeyIsUnavailable(t *testing.T) {
	provider, err := NewGeminiProvider(context.Background(), GeminiConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, provider.Available())

	_, err = provider.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGatewayFallsBackToGemini(t *testing.T) {
	primary := newChatServer(t, http.StatusBadGateway, "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n{\\\"score\\\":9}\\n```" + `"}]}}]}`))
	}))
	defer srv.Close()

	gemini, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "g", BaseURL: srv.URL + "/"}, zap.NewNop())
	require.NoError(t, err)

	gw := NewGateway(primary.provider("siliconflow", "sk", "", 4096), gemini, nil, zap.NewNop())
	got, err := gw.Call(context.Background(), "m", "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"score":9}`, got)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
