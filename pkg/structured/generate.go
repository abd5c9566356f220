package structured

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Completer is the slice of llms.Model the engine needs.
type Completer interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// Generator asks a model for a bare JSON object and parses the answer.
type Generator struct {
	LLM Completer
	// MaxAttempts bounds retries on parse failures. Completion errors are
	// never retried. Zero means a single attempt.
	MaxAttempts int
	Logger      *slog.Logger
}

// ResponseFormat builds the response-format instruction appended to a
// system prompt.
func ResponseFormat(schema string) string {
	return "# Response Format:\n\nReturn the JSON object directly without any formatting or additional text. " +
		"The JSON object must follow this schema and include every required property:\n" + schema
}

// Generate sends system and user prompts and decodes the answer into out.
// A completion failure is returned wrapped; a formatting failure is
// returned as a *ParseError.
func (g *Generator) Generate(ctx context.Context, system, user, schema string, out any) error {
	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system+"\n\n"+ResponseFormat(schema)),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			logger.Warn("Retrying structured generation", "attempt", i+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second * time.Duration(i)):
			}
		}

		resp, err := g.LLM.GenerateContent(ctx, messages, llms.WithJSONMode())
		if err != nil {
			return fmt.Errorf("llm generation failed: %w", err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			lastErr = ErrEmptyResponse
			continue
		}

		if err := Parse(resp.Choices[0].Content, out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if IsParseError(lastErr) {
		return lastErr
	}
	return &ParseError{Stage: StageNoJSON, Err: lastErr}
}
