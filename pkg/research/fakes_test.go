package research

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/prospect-research/pkg/search"
)

// Roles are told apart by the first sentence of each step's system prompt.
const (
	rolePlanner = "search query planner"
	roleJudge   = "relevance judge"
	roleExtract = "research analyst extracting"
	rolePeople  = "extract named decision-makers"
	rolePattern = "identify company email address formats"
	roleSynth   = "sales strategist"
)

var roles = []string{rolePlanner, roleJudge, roleExtract, rolePeople, rolePattern, roleSynth}

type handler func(user string) (string, error)

// fakeLLM answers each role with a scripted handler and records prompts.
type fakeLLM struct {
	handlers map[string]handler
	prompts  map[string][]string
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{handlers: map[string]handler{}, prompts: map[string][]string{}}
}

func (f *fakeLLM) on(role string, h handler) *fakeLLM {
	f.handlers[role] = h
	return f
}

func (f *fakeLLM) calls(role string) int { return len(f.prompts[role]) }

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	system := textOf(messages[0])
	user := textOf(messages[len(messages)-1])

	for _, role := range roles {
		if !strings.Contains(system, role) {
			continue
		}
		f.prompts[role] = append(f.prompts[role], user)
		h, ok := f.handlers[role]
		if !ok {
			return nil, errors.New("no scripted answer for " + role)
		}
		answer, err := h(user)
		if err != nil {
			return nil, err
		}
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: answer}}}, nil
	}
	return nil, errors.New("unrecognised prompt")
}

func textOf(m llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// fakeSearcher returns scripted passages and records every query.
type fakeSearcher struct {
	results func(query string) []search.Passage
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) []search.Passage {
	f.queries = append(f.queries, query)
	if f.results == nil {
		return nil
	}
	return f.results(query)
}

func onePassage(query string) []search.Passage {
	return []search.Passage{{Title: "About " + query, URL: "https://news.example.com/" + slug(query), Content: "Content for " + query}}
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

// queryFromPrompt pulls the "Search query:" line out of a judge or
// extractor prompt.
func queryFromPrompt(user string) string {
	for _, line := range strings.Split(user, "\n") {
		if q, ok := strings.CutPrefix(line, "Search query: "); ok {
			return q
		}
	}
	return ""
}

func relevant(string) (string, error) {
	return `{"relevant": true, "score": 0.9, "reason": "specific and recent"}`, nil
}

func learningFor(followUps ...string) handler {
	return func(user string) (string, error) {
		q := queryFromPrompt(user)
		return `{"hasLearning": true, "learning": {"insight": "Finding from ` + q + `", "confidence": "high", "category": "news", "followUpQuestions": ` +
			jsonList(followUps) + `}}`, nil
	}
}

func jsonList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// numberedQueries answers every planner call with fresh, unique queries.
func numberedQueries(prefix string) handler {
	n := 0
	return func(user string) (string, error) {
		count := 1
		for _, line := range strings.Split(user, "\n") {
			if v, ok := strings.CutPrefix(line, "Number of queries: "); ok {
				count, _ = strconv.Atoi(strings.TrimSpace(v))
			}
		}
		qs := make([]string, 0, count)
		for i := 0; i < count; i++ {
			n++
			qs = append(qs, prefix+" query "+strconv.Itoa(n))
		}
		return `{"queries": ` + jsonList(qs) + `}`, nil
	}
}

const validSynthesis = `{
  "salesAngles": [{"angle": "Scale support for EU expansion", "reasoning": "New Berlin office", "talkingPoints": ["EU hiring"], "supportingEvidence": ["1"], "strength": "strong"}],
  "personalizationHooks": [{"hook": "Congrats on the Berlin office", "type": "company_milestone", "basis": "1", "freshness": "recent"}],
  "recommendedApproach": {"primaryAngle": "Scale support for EU expansion", "openingLine": "Saw the Berlin news", "keyPoints": ["EU"], "callToAction": "15 minute call", "avoidTopics": ["layoffs"]}
}`

func newTestEngine(llm *fakeLLM, searcher *fakeSearcher) *Engine {
	e := NewEngine(Config{CompletionAPIKey: "test-completion", SearchAPIKey: "test-search"}, llm, searcher)
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return e
}

var acme = ProspectContext{
	ID:       "p-1",
	Name:     "Acme",
	Website:  "https://www.acme.io",
	Industry: "logistics software",
	Country:  "United States",
}

type eventLog struct {
	events []ProgressEvent
}

func (l *eventLog) record(ev ProgressEvent) { l.events = append(l.events, ev) }

func (l *eventLog) last() ProgressEvent {
	if len(l.events) == 0 {
		return ProgressEvent{}
	}
	return l.events[len(l.events)-1]
}
