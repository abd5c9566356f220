package research

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func newSession(prospect ProspectContext, cfg ResearchConfig, language string) *ResearchSession {
	s := &ResearchSession{
		ID:                   uuid.NewString(),
		ProspectID:           prospect.ID,
		ProspectName:         prospect.Name,
		Language:             language,
		Config:               cfg,
		Queries:              []string{},
		CompletedQueries:     []string{},
		SearchResults:        []EvaluatedSearchResult{},
		Learnings:            []Learning{},
		DiscoveredContacts:   []DiscoveredContact{},
		Phases:               map[Phase]PhaseRecord{},
		SalesAngles:          []SalesAngle{},
		PersonalizationHooks: []PersonalizationHook{},
		State:                StateInitializing,
		StartedAt:            time.Now(),
	}
	for _, p := range ResearchPhases {
		s.Phases[p] = PhaseRecord{}
	}
	s.Phases[PhaseSynthesis] = PhaseRecord{}
	return s
}

func queryKey(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// hasQuery reports whether q was already generated in this session.
func (s *ResearchSession) hasQuery(q string) bool {
	k := queryKey(q)
	for _, existing := range s.Queries {
		if queryKey(existing) == k {
			return true
		}
	}
	return false
}

func (s *ResearchSession) addQueries(qs []string) {
	for _, q := range qs {
		if !s.hasQuery(q) {
			s.Queries = append(s.Queries, q)
		}
	}
	s.Stats.TotalQueries = len(s.Queries)
}

func (s *ResearchSession) isCompleted(q string) bool {
	k := queryKey(q)
	for _, done := range s.CompletedQueries {
		if queryKey(done) == k {
			return true
		}
	}
	return false
}

// claimQuery records q as completed before it is searched, so the global
// cap holds even while recursive branches run underneath it. It returns
// false if q was already claimed or the cap is reached.
func (s *ResearchSession) claimQuery(q string) bool {
	if s.queryBudgetExhausted() || s.isCompleted(q) {
		return false
	}
	s.CompletedQueries = append(s.CompletedQueries, q)
	return true
}

func (s *ResearchSession) queryBudgetExhausted() bool {
	return len(s.CompletedQueries) >= MaxTotalQueries
}

// recentLearnings is the duplicate-detection window shown to the model.
func (s *ResearchSession) recentLearnings() []Learning {
	if len(s.Learnings) <= MaxContextLearnings {
		return s.Learnings
	}
	return s.Learnings[len(s.Learnings)-MaxContextLearnings:]
}

func (s *ResearchSession) addResults(results []EvaluatedSearchResult) {
	s.SearchResults = append(s.SearchResults, results...)
	s.Stats.TotalSearchResults += len(results)
	for _, r := range results {
		if r.IsRelevant {
			s.Stats.RelevantResults++
		}
	}
}

func (s *ResearchSession) addLearning(l Learning) {
	s.Learnings = append(s.Learnings, l)
	s.Stats.TotalLearnings = len(s.Learnings)
}

func (s *ResearchSession) completePhase(p Phase, count int) {
	s.Phases[p] = PhaseRecord{Completed: true, Count: count}
}

func (s *ResearchSession) reachDepth(level int) {
	if level > s.Stats.ResearchDepthReached {
		s.Stats.ResearchDepthReached = level
	}
}

// snapshot returns a deep copy safe to hand to callers.
func (s *ResearchSession) snapshot() *ResearchSession {
	c := *s
	c.Config.Phases = append([]Phase(nil), s.Config.Phases...)
	c.Queries = append([]string{}, s.Queries...)
	c.CompletedQueries = append([]string{}, s.CompletedQueries...)
	c.SearchResults = append([]EvaluatedSearchResult{}, s.SearchResults...)
	c.DiscoveredContacts = append([]DiscoveredContact{}, s.DiscoveredContacts...)
	c.Learnings = make([]Learning, len(s.Learnings))
	for i, l := range s.Learnings {
		c.Learnings[i] = l.clone()
	}
	c.Phases = make(map[Phase]PhaseRecord, len(s.Phases))
	for k, v := range s.Phases {
		c.Phases[k] = v
	}
	c.SalesAngles = make([]SalesAngle, len(s.SalesAngles))
	for i, a := range s.SalesAngles {
		a.TalkingPoints = append([]string{}, a.TalkingPoints...)
		a.SupportingEvidence = append([]string{}, a.SupportingEvidence...)
		c.SalesAngles[i] = a
	}
	c.PersonalizationHooks = append([]PersonalizationHook{}, s.PersonalizationHooks...)
	if s.RecommendedApproach != nil {
		ra := *s.RecommendedApproach
		ra.KeyPoints = append([]string{}, ra.KeyPoints...)
		ra.AvoidTopics = append([]string{}, ra.AvoidTopics...)
		c.RecommendedApproach = &ra
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (l Learning) clone() Learning {
	l.FollowUpQuestions = append([]string{}, l.FollowUpQuestions...)
	return l
}
