package research

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimQuery(t *testing.T) {
	s := newSession(acme, NewConfig(ResearchConfig{}), "en")

	require.True(t, s.claimQuery("Acme funding"))
	assert.False(t, s.claimQuery("acme   FUNDING"), "claims are case and whitespace insensitive")

	for i := 1; len(s.CompletedQueries) < MaxTotalQueries; i++ {
		require.True(t, s.claimQuery(fmt.Sprintf("query %d", i)))
	}
	assert.True(t, s.queryBudgetExhausted())
	assert.False(t, s.claimQuery("one more"))
	assert.Len(t, s.CompletedQueries, MaxTotalQueries)
}

func TestRecentLearnings(t *testing.T) {
	s := newSession(acme, NewConfig(ResearchConfig{}), "en")
	for i := 0; i < 15; i++ {
		s.addLearning(Learning{Insight: fmt.Sprintf("insight %d", i)})
	}

	recent := s.recentLearnings()
	require.Len(t, recent, MaxContextLearnings)
	assert.Equal(t, "insight 5", recent[0].Insight)
	assert.Equal(t, "insight 14", recent[len(recent)-1].Insight)
	assert.Equal(t, 15, s.Stats.TotalLearnings)
}

func TestNewSessionPhases(t *testing.T) {
	s := newSession(acme, NewConfig(ResearchConfig{}), "en")
	assert.Len(t, s.Phases, len(ResearchPhases)+1)
	for p, rec := range s.Phases {
		assert.False(t, rec.Completed, p)
	}
	assert.Len(t, ResearchPhases, 4)
}
