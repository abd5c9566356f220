package research

import (
	"context"
	"fmt"

	"github.com/mikeboe/prospect-research/pkg/metrics"
	"github.com/mikeboe/prospect-research/pkg/search"
)

const relevanceJudgePrompt = `You are a relevance judge for B2B sales research.
Decide whether a search result is worth keeping. A result is relevant only if:
1. it is about the correct company (not a namesake),
2. it contains specific, actionable facts rather than generic industry boilerplate,
3. it is recent or historically significant,
4. it does not repeat one of the known findings.
Give a confidence score between 0 and 1.`

const relevanceSchema = `{
  "type": "object",
  "properties": {
    "relevant": {"type": "boolean"},
    "score": {"type": "number", "minimum": 0, "maximum": 1},
    "reason": {"type": "string", "description": "One sentence justification"}
  },
  "required": ["relevant", "score", "reason"]
}`

// fallbackScore is used when the judge itself is unavailable.
const fallbackScore = 0.5

type relevanceVerdict struct {
	Relevant bool    `json:"relevant"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason" validate:"required"`
}

func (r *run) evaluate(ctx context.Context, query string, passages []search.Passage) []EvaluatedSearchResult {
	results := make([]EvaluatedSearchResult, 0, len(passages))
	for _, p := range passages {
		results = append(results, r.evaluateOne(ctx, query, p))
	}
	return results
}

func (r *run) evaluateOne(ctx context.Context, query string, p search.Passage) EvaluatedSearchResult {
	user := fmt.Sprintf(`%s
Search query: %s

Result title: %s
Result URL: %s
Result content:
%s

Known findings:
%s`, describeProspect(r.prospect), query, p.Title, p.URL, p.Content, summarizeLearnings(r.s.recentLearnings()))

	var v relevanceVerdict
	if err := r.gen.Generate(ctx, relevanceJudgePrompt, user, relevanceSchema, &v); err != nil {
		metrics.ParseFailures.WithLabelValues("evaluate").Inc()
		r.logger.Warn("Relevance evaluation failed, keeping result", "query", query, "url", p.URL, "error", err)
		return EvaluatedSearchResult{
			Query:          query,
			Passage:        p,
			RelevanceScore: fallbackScore,
			IsRelevant:     true,
			Reasoning:      "evaluation unavailable; kept by default",
		}
	}

	return EvaluatedSearchResult{
		Query:          query,
		Passage:        p,
		RelevanceScore: min(1, max(0, v.Score)),
		IsRelevant:     v.Relevant,
		Reasoning:      v.Reason,
	}
}
