package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-3-flash-preview"

var ErrMissingAPIKey = errors.New("google api key is required")

// GoogleAI builds a langchaingo Gemini client. The returned model satisfies
// structured.Completer.
func GoogleAI(ctx context.Context, apiKey, model string) (*googleai.GoogleAI, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create google ai client: %w", err)
	}
	return llm, nil
}
