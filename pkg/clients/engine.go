package clients

import (
	"context"
	"log/slog"

	"github.com/mikeboe/prospect-research/pkg/config"
	"github.com/mikeboe/prospect-research/pkg/research"
	"github.com/mikeboe/prospect-research/pkg/search"
	"github.com/mikeboe/prospect-research/pkg/structured"
)

// ResearchEngine wires the completion and search clients from cfg. Missing
// keys are not an error here; Execute reports them per session.
func ResearchEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*research.Engine, error) {
	var llm structured.Completer
	if cfg.GoogleApiKey != "" {
		model, err := GoogleAI(ctx, cfg.GoogleApiKey, cfg.FastModel)
		if err != nil {
			return nil, err
		}
		llm = model
	}

	searcher := search.NewPerplexityClient(search.Options{
		APIKey:            cfg.PerplexityApiKey,
		Model:             cfg.SearchModel,
		Timeout:           cfg.SearchTimeout,
		RequestsPerSecond: cfg.SearchRequestsPerSecond,
		Logger:            logger,
	})

	engine := research.NewEngine(research.Config{
		CompletionAPIKey: cfg.GoogleApiKey,
		SearchAPIKey:     cfg.PerplexityApiKey,
		MaxAttempts:      cfg.MaxAttempts,
	}, llm, searcher)
	if logger != nil {
		engine.Logger = logger
	}
	return engine, nil
}
