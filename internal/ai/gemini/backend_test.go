package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/reqtracker/internal/ai"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"google.golang.org/genai"
)

func TestExtractText(t *testing.T) {
	t.Run("Success - skips thinking parts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{
						Parts: []*genai.Part{
							{Text: "reasoning", Thought: true},
							{Text: `{"summary":`},
							{Text: `"Auto Tool"}`},
						},
					},
				},
			},
		}

		assert.Equal(t, `{"summary":"Auto Tool"}`, extractText(resp))
	})

	t.Run("Success - nil and empty responses", func(t *testing.T) {
		assert.Equal(t, "", extractText(nil))
		assert.Equal(t, "", extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
	})
}

func TestExtractUsage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 20,
			TotalTokenCount:      30,
		},
	}

	usage := extractUsage(resp, "gemini-2.0-flash")

	require.NotNil(t, usage)
	assert.Equal(t, 10, usage.InputTokens)
	assert.Equal(t, 20, usage.OutputTokens)
	assert.Equal(t, 30, usage.TotalTokens)
	assert.Equal(t, "gemini-2.0-flash", usage.Model)
	assert.Nil(t, extractUsage(&genai.GenerateContentResponse{}, "m"))
}

func TestGetGenerateConfig(t *testing.T) {
	cfg := GetGenerateConfig("be precise", true)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be precise", cfg.SystemInstruction.Parts[0].Text)

	plain := GetGenerateConfig("", false)
	assert.Empty(t, plain.ResponseMIMEType)
	assert.Nil(t, plain.SystemInstruction)
}

func TestBackend_Generate(t *testing.T) {
	ctx := context.Background()
	var path string
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"summary\":\"Auto Tool\"}"}]}}],
  "usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 7, "totalTokenCount": 12}
}`))
	}))
	defer server.Close()

	h := ai.BackendHandle{ProfileKey: "gem", Model: "gemini-2.0-flash", BaseURL: server.URL, APIKey: "g-key", Provider: "gemini"}
	f := NewFactory(server.Client())
	require.NoError(t, f.ValidateHandle(h))
	backend, err := f.NewBackend(ctx, h)
	require.NoError(t, err)

	resp, err := backend.Generate(ctx, ai.Request{System: "sys", Prompt: "analyze", JSON: true})

	require.NoError(t, err)
	assert.Equal(t, `{"summary":"Auto Tool"}`, resp.Text)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.Contains(t, path, "models/gemini-2.0-flash:generateContent")
	assert.NotNil(t, body["systemInstruction"])
	assert.Equal(t, h, backend.Handle())
}

func TestFactory_ValidateHandle(t *testing.T) {
	f := NewFactory(nil)
	assert.Equal(t, "gemini", f.Name())
	assert.ErrorIs(t, f.ValidateHandle(ai.BackendHandle{Model: "m"}), domainErrors.ErrAPIKeyMissing)
	assert.ErrorIs(t, f.ValidateHandle(ai.BackendHandle{APIKey: "k"}), domainErrors.ErrInvalidProfile)
}
