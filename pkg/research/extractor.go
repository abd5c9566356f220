package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/prospect-research/pkg/locale"
	"github.com/mikeboe/prospect-research/pkg/metrics"
)

const learningExtractorPrompt = `You are a research analyst extracting sales intelligence.
From the search result, extract at most ONE atomic, specific finding about the company.
Set hasLearning to false if the result adds nothing beyond the known findings.
Only attach follow-up questions (at most 2) when the finding is significant enough to deserve deeper research,
and never ask something a previous query already covered. Most findings need none.`

const learningSchema = `{
  "type": "object",
  "properties": {
    "hasLearning": {"type": "boolean"},
    "learning": {
      "type": "object",
      "properties": {
        "insight": {"type": "string"},
        "confidence": {"type": "string", "enum": ["high", "medium", "low"]},
        "category": {"type": "string", "enum": ["funding", "news", "product", "competitor", "leadership", "culture", "technology", "market", "pain_point", "opportunity", "general"]},
        "followUpQuestions": {"type": "array", "items": {"type": "string"}, "maxItems": 2}
      },
      "required": ["insight", "confidence", "category"]
    }
  },
  "required": ["hasLearning"]
}`

type extraction struct {
	HasLearning bool               `json:"hasLearning"`
	Learning    *extractedLearning `json:"learning" validate:"required_if=HasLearning true"`
}

type extractedLearning struct {
	Insight           string     `json:"insight" validate:"required"`
	Confidence        Confidence `json:"confidence" validate:"required,oneof=high medium low"`
	Category          Category   `json:"category" validate:"required,oneof=funding news product competitor leadership culture technology market pain_point opportunity general"`
	FollowUpQuestions []string   `json:"followUpQuestions"`
}

// extract turns one relevant result into at most one learning. Failures are
// logged and reported as "no learning".
func (r *run) extract(ctx context.Context, query string, res EvaluatedSearchResult) (Learning, bool) {
	user := fmt.Sprintf(`%s
Search query: %s

Result title: %s
Result URL: %s
Result content:
%s

Known findings:
%s

Previous queries:
%s`, describeProspect(r.prospect), query, res.Passage.Title, res.Passage.URL, res.Passage.Content,
		summarizeLearnings(r.s.recentLearnings()), bulletList(r.s.CompletedQueries))

	var out extraction
	if err := r.gen.Generate(ctx, learningExtractorPrompt, user, learningSchema, &out); err != nil {
		metrics.ParseFailures.WithLabelValues("extract").Inc()
		r.logger.Warn("Learning extraction failed, skipping result", "query", query, "url", res.Passage.URL, "error", err)
		return Learning{}, false
	}
	if !out.HasLearning || out.Learning == nil {
		return Learning{}, false
	}

	insight := strings.TrimSpace(out.Learning.Insight)
	if r.knownInsight(insight) {
		r.logger.Info("Dropping duplicate learning", "insight", insight)
		return Learning{}, false
	}

	return Learning{
		ID:                uuid.NewString(),
		Insight:           insight,
		Confidence:        out.Learning.Confidence,
		Category:          out.Learning.Category,
		Phase:             r.phase,
		SourceTitle:       res.Passage.Title,
		SourceURL:         res.Passage.URL,
		FollowUpQuestions: r.filterFollowUps(out.Learning.FollowUpQuestions),
		DiscoveredAt:      time.Now(),
	}, true
}

func (r *run) knownInsight(insight string) bool {
	k := locale.Fold(insight)
	for _, l := range r.s.Learnings {
		if locale.Fold(l.Insight) == k {
			return true
		}
	}
	return false
}

func (r *run) filterFollowUps(questions []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, q := range questions {
		q = strings.TrimSpace(q)
		k := queryKey(q)
		if k == "" || seen[k] || r.s.isCompleted(q) || r.s.hasQuery(q) {
			continue
		}
		seen[k] = true
		out = append(out, q)
		if len(out) == MaxFollowUpQuestions {
			break
		}
	}
	return out
}
