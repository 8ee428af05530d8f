package gemini

import (
	"strings"

	"github.com/thomas-vilte/reqtracker/internal/models"
	"google.golang.org/genai"
)

// extractUsage extracts usage metadata from the Gemini response
func extractUsage(resp *genai.GenerateContentResponse, model string) *models.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &models.TokenUsage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		Model:        model,
	}
}

// GetGenerateConfig returns the generation settings for a request.
func GetGenerateConfig(system string, jsonOutput bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     float32Ptr(0.3),
		MaxOutputTokens: int32(8192),
	}

	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	if jsonOutput {
		config.ResponseMIMEType = "application/json"
	}

	return config
}

func float32Ptr(f float32) *float32 {
	return &f
}

// extractText joins the text parts of every candidate, skipping thinking parts.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			result.WriteString(part.Text)
		}
	}
	return result.String()
}
