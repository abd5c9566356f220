package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/prospect-research/pkg/locale"
	"github.com/mikeboe/prospect-research/pkg/metrics"
)

const queryPlannerPrompt = `You are a search query planner for B2B sales research.
Generate specific web search queries that move the research goal forward.
Each query must target facts not already covered by the known findings and must not repeat a previous query.`

const queriesSchema = `{
  "type": "object",
  "properties": {
    "queries": {"type": "array", "items": {"type": "string"}, "description": "New search queries"}
  },
  "required": ["queries"]
}`

type queryPlan struct {
	Queries []string `json:"queries" validate:"required"`
}

// generateQueries returns up to count new queries. The only error it
// returns is ErrCompletionAuth; other failures fall back to a single
// deterministic query.
func (r *run) generateQueries(ctx context.Context, phase Phase, goal string, count int) ([]string, error) {
	user := fmt.Sprintf(`%s
Research goal:
%s

Number of queries: %d
%s

Previous queries (do not repeat):
%s

Known findings:
%s`,
		describeProspect(r.prospect), goal, count, languageInstruction(r.lang),
		bulletList(r.s.Queries), summarizeLearnings(r.s.recentLearnings()))

	var plan queryPlan
	err := r.gen.Generate(ctx, queryPlannerPrompt, user, queriesSchema, &plan)
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrCompletionAuth, err)
		}
		metrics.ParseFailures.WithLabelValues("queries").Inc()
		r.logger.Warn("Query generation failed, using fallback query", "phase", phase, "error", err)
		return []string{r.fallbackQuery(phase)}, nil
	}

	queries := r.filterNewQueries(plan.Queries, count)
	if len(queries) == 0 {
		r.logger.Warn("Query generation produced no new queries, using fallback query", "phase", phase)
		return []string{r.fallbackQuery(phase)}, nil
	}
	return queries, nil
}

func (r *run) filterNewQueries(candidates []string, count int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, count)
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		k := queryKey(q)
		if k == "" || seen[k] || r.s.hasQuery(q) || r.s.isCompleted(q) {
			continue
		}
		seen[k] = true
		out = append(out, q)
		if len(out) == count {
			break
		}
	}
	return out
}

func (r *run) fallbackQuery(phase Phase) string {
	return r.prospect.Name + " " + locale.Keyword(r.lang.Code, string(phase))
}
