package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikeboe/prospect-research/pkg/locale"
	"github.com/mikeboe/prospect-research/pkg/metrics"
	"github.com/mikeboe/prospect-research/pkg/search"
	"github.com/mikeboe/prospect-research/pkg/structured"
)

// Searcher runs one free-text query. Implementations degrade to an empty
// result instead of failing.
type Searcher interface {
	Search(ctx context.Context, query string) []search.Passage
}

// Config holds the credentials and retry policy of an Engine.
type Config struct {
	CompletionAPIKey string
	SearchAPIKey     string
	// MaxAttempts bounds retries of a model call whose answer could not be
	// parsed. Zero means one attempt.
	MaxAttempts int
}

// Engine runs recursive prospect research sessions. One Engine can serve
// many sessions; each Execute call owns its own session state.
type Engine struct {
	Config Config
	LLM    structured.Completer
	Search Searcher
	Logger *slog.Logger
}

func NewEngine(cfg Config, llm structured.Completer, searcher Searcher) *Engine {
	return &Engine{
		Config: cfg,
		LLM:    llm,
		Search: searcher,
		Logger: slog.Default(),
	}
}

// run is the per-session state threaded through every step.
type run struct {
	e          *Engine
	s          *ResearchSession
	prospect   ProspectContext
	lang       locale.Language
	gen        *structured.Generator
	logger     *slog.Logger
	onProgress ProgressCallback

	phase      Phase
	phaseDepth int
	level      int
}

// Execute researches a prospect and returns the finished session. Only a
// missing credential, a rejected completion credential or a cancelled
// context produce an error; everything else degrades the output.
func (e *Engine) Execute(ctx context.Context, prospect ProspectContext, partial ResearchConfig, onProgress ProgressCallback) (*ResearchSession, error) {
	if e.Config.CompletionAPIKey == "" {
		return nil, ErrMissingCompletionKey
	}
	if e.Config.SearchAPIKey == "" {
		return nil, ErrMissingSearchKey
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := NewConfig(partial)
	lang := locale.Resolve(prospect.Country, prospect.Location)
	s := newSession(prospect, cfg, lang.Code)
	logger = logger.With("session_id", s.ID, "prospect", prospect.Name)

	r := &run{
		e:          e,
		s:          s,
		prospect:   prospect,
		lang:       lang,
		logger:     logger,
		onProgress: onProgress,
		gen:        &structured.Generator{LLM: e.LLM, MaxAttempts: e.Config.MaxAttempts, Logger: logger},
	}

	logger.Info("Starting prospect research", "depth", cfg.Depth, "breadth", cfg.Breadth, "focus", cfg.Focus, "language", lang.Code)
	r.emit(StateInitializing, "", nil, "Starting research on %s", prospect.Name)

	if err := r.runPhases(ctx); err != nil {
		return nil, r.fail(err)
	}

	r.synthesize(ctx)
	if err := ctx.Err(); err != nil {
		return nil, r.fail(err)
	}

	now := time.Now()
	s.CompletedAt = &now
	s.Stats.DurationMs = now.Sub(s.StartedAt).Milliseconds()
	s.State = StateComplete
	metrics.SessionsTotal.WithLabelValues(string(StateComplete)).Inc()
	metrics.SessionDuration.Observe(now.Sub(s.StartedAt).Seconds())

	logger.Info("Prospect research complete", "learnings", s.Stats.TotalLearnings, "queries", len(s.CompletedQueries), "duration_ms", s.Stats.DurationMs)
	r.emit(StateComplete, "", nil, "Research complete: %d learnings from %d queries", s.Stats.TotalLearnings, len(s.CompletedQueries))

	return s.snapshot(), nil
}

func (r *run) runPhases(ctx context.Context) error {
	cfg := r.s.Config
	reducedDepth := max(1, cfg.Depth-1)
	reducedBreadth := ceilHalf(cfg.Breadth)

	for _, phase := range ResearchPhases {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.phase = phase

		if !cfg.Enabled(phase) {
			r.logger.Info("Skipping research phase", "phase", phase, "reason", "disabled")
			r.s.completePhase(phase, 0)
			continue
		}

		var (
			count int
			err   error
		)
		switch phase {
		case PhaseCompany:
			count, err = r.startPhase(ctx, phase, cfg.Depth, cfg.Breadth)
		case PhaseContacts:
			if len(r.prospect.Contacts) == 0 {
				r.logger.Info("Skipping research phase", "phase", phase, "reason", "no known contacts")
				r.s.completePhase(phase, 0)
				continue
			}
			count, err = r.startPhase(ctx, phase, reducedDepth, reducedBreadth)
		case PhaseContactDiscovery:
			count, err = r.discoverContacts(ctx)
		case PhaseMarket:
			count, err = r.startPhase(ctx, phase, reducedDepth, reducedBreadth)
		}
		if err != nil {
			return err
		}

		r.s.completePhase(phase, count)
		r.logger.Info("Research phase complete", "phase", phase, "learnings", count)
	}
	return nil
}

func (r *run) startPhase(ctx context.Context, phase Phase, depth, breadth int) (int, error) {
	r.phaseDepth = depth
	goal := phaseGoal(r.prospect, phase, r.s.Config.Focus)
	return r.research(ctx, phase, goal, depth, breadth)
}

// research is one level of the depth-first loop. It returns the number of
// learnings found at this level and below.
func (r *run) research(ctx context.Context, phase Phase, goal string, depth, breadth int) (int, error) {
	if depth <= 0 || r.s.queryBudgetExhausted() {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	level := r.phaseDepth - depth + 1
	r.level = level
	r.s.reachDepth(level)

	r.emit(StateGeneratingQueries, "", nil, "Generating up to %d %s queries (level %d)", breadth, phase, level)
	queries, err := r.generateQueries(ctx, phase, goal, breadth)
	if err != nil {
		return 0, err
	}
	r.s.addQueries(queries)

	total := 0
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if !r.s.claimQuery(q) {
			if r.s.queryBudgetExhausted() {
				r.logger.Info("Query budget exhausted", "phase", phase, "limit", MaxTotalQueries)
				break
			}
			continue
		}
		r.level = level
		metrics.QueriesTotal.WithLabelValues(string(phase)).Inc()

		r.emit(StateSearching, q, nil, "Searching: %s", q)
		passages := r.e.Search.Search(ctx, q)

		r.emit(StateEvaluating, q, nil, "Evaluating %d results", len(passages))
		results := r.evaluate(ctx, q, passages)
		r.s.addResults(results)

		for _, res := range results {
			if !res.IsRelevant {
				continue
			}
			if err := ctx.Err(); err != nil {
				return total, err
			}

			r.emit(StateExtractingLearning, q, nil, "Extracting learning from %s", res.Passage.Title)
			l, ok := r.extract(ctx, q, res)
			if !ok {
				continue
			}
			r.s.addLearning(l)
			total++
			metrics.LearningsTotal.WithLabelValues(string(l.Category)).Inc()
			r.emit(StateExtractingLearning, q, &l, "New %s learning", l.Category)

			if len(l.FollowUpQuestions) > 0 && depth > 1 {
				r.emit(StateFollowingUp, q, &l, "Following up on %d questions", len(l.FollowUpQuestions))
				n, err := r.research(ctx, phase, followUpGoal(goal, l), depth-1, ceilHalf(breadth))
				total += n
				r.level = level
				if err != nil {
					return total, err
				}
			}
		}
	}
	return total, nil
}

func (r *run) fail(err error) error {
	r.s.State = StateFailed
	metrics.SessionsTotal.WithLabelValues(string(StateFailed)).Inc()
	r.logger.Error("Prospect research failed", "error", err)
	r.emit(StateFailed, "", nil, "Research failed: %v", err)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("research cancelled: %w", err)
	}
	return fmt.Errorf("research failed: %w", err)
}

func ceilHalf(n int) int {
	return max(1, (n+1)/2)
}
