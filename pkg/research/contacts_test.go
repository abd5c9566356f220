package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPattern(t *testing.T) {
	tests := []struct {
		pattern EmailPattern
		name    string
		want    string
		wantOK  bool
	}{
		{PatternFirstDotLast, "Jane Doe", "jane.doe@acme.io", true},
		{PatternFirstLast, "Jane Doe", "janedoe@acme.io", true},
		{PatternFirstUnderLast, "Jane Doe", "jane_doe@acme.io", true},
		{PatternFirst, "Jane Doe", "jane@acme.io", true},
		{PatternFLast, "Jane Doe", "jdoe@acme.io", true},
		{PatternFirstL, "Jane Doe", "janed@acme.io", true},
		{PatternFirstDotLast, "José Álvarez", "jose.alvarez@acme.io", true},
		{PatternFirstDotLast, "Dr. Anna Maria Schmidt", "anna.schmidt@acme.io", true},
		{PatternFirstLast, "Seán O'Brien", "seanobrien@acme.io", true},
		{PatternFirst, "Cher", "cher@acme.io", true},
		{PatternFirstDotLast, "Cher", "", false},
		{PatternUnknown, "Jane Doe", "", false},
		{PatternFirstDotLast, "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.pattern)+"/"+tt.name, func(t *testing.T) {
			got, ok := ApplyPattern(tt.pattern, tt.name, "acme.io")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPattern(t *testing.T) {
	tests := []struct {
		email string
		name  string
		want  EmailPattern
	}{
		{"jane.doe@acme.io", "Jane Doe", PatternFirstDotLast},
		{"JDoe@acme.io", "Jane Doe", PatternFLast},
		{"jane_doe@acme.io", "Jane Doe", PatternFirstUnderLast},
		{"janed@acme.io", "Jane Doe", PatternFirstL},
		{"jose.alvarez@acme.io", "José Álvarez", PatternFirstDotLast},
		{"info@acme.io", "Jane Doe", PatternUnknown},
		{"not-an-email", "Jane Doe", PatternUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPattern(tt.email, tt.name))
		})
	}
}

func TestDomainFromWebsite(t *testing.T) {
	tests := map[string]string{
		"https://www.acme.io/about":   "acme.io",
		"acme.io":                     "acme.io",
		"WWW.Acme.IO":                 "acme.io",
		"http://shop.acme.co.uk:8080": "shop.acme.co.uk",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, DomainFromWebsite(in), in)
	}
}

func discoveryLLM(people string) *fakeLLM {
	return newFakeLLM().
		on(rolePeople, func(string) (string, error) { return people, nil }).
		on(roleSynth, func(string) (string, error) { return validSynthesis, nil })
}

var discoveryOnly = ResearchConfig{Phases: []Phase{PhaseContactDiscovery}}

func TestDiscoverContactsPatternFromFoundEmail(t *testing.T) {
	llm := discoveryLLM(`{"people": [
		{"name": "Jane Doe", "title": "CTO", "email": "Jane.Doe@acme.io"},
		{"name": "José Álvarez", "title": "CEO", "profileUrl": "https://linkedin.com/in/jalvarez"}
	]}`)
	searcher := &fakeSearcher{results: onePassage}

	s, err := newTestEngine(llm, searcher).Execute(context.Background(), acme, discoveryOnly, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Acme leadership team",
		"Acme CEO CTO CMO founders",
		"Acme logistics software decision makers",
	}, searcher.queries)
	assert.Zero(t, llm.calls(rolePattern), "pattern is derived from the found email")

	require.Len(t, s.DiscoveredContacts, 2)
	jane, jose := s.DiscoveredContacts[0], s.DiscoveredContacts[1]
	assert.Equal(t, "jane.doe@acme.io", jane.Email)
	assert.Equal(t, ContactSourceSearched, jane.EmailSource)
	assert.Equal(t, "jose.alvarez@acme.io", jose.Email)
	assert.Equal(t, ContactSourceGenerated, jose.EmailSource)
	assert.Equal(t, "https://linkedin.com/in/jalvarez", jose.ProfileURL)

	require.Len(t, s.Learnings, 1)
	l := s.Learnings[0]
	assert.Equal(t, CategoryLeadership, l.Category)
	assert.Equal(t, ConfidenceHigh, l.Confidence)
	assert.Equal(t, PhaseContactDiscovery, l.Phase)
	assert.Contains(t, l.Insight, "José Álvarez (CEO)")
	assert.Equal(t, PhaseRecord{Completed: true, Count: 2}, s.Phases[PhaseContactDiscovery])
}

func TestDiscoverContactsPatternFromSearch(t *testing.T) {
	llm := discoveryLLM(`{"people": [{"name": "José Álvarez", "title": "CEO"}]}`).
		on(rolePattern, func(string) (string, error) { return `{"pattern": "flast"}`, nil })
	searcher := &fakeSearcher{results: onePassage}

	s, err := newTestEngine(llm, searcher).Execute(context.Background(), acme, discoveryOnly, nil)
	require.NoError(t, err)

	require.Len(t, searcher.queries, 4)
	assert.Equal(t, "Acme email format acme.io", searcher.queries[3])
	assert.Contains(t, s.CompletedQueries, "Acme email format acme.io")

	require.Len(t, s.DiscoveredContacts, 1)
	assert.Equal(t, "jalvarez@acme.io", s.DiscoveredContacts[0].Email)
	assert.Equal(t, ContactSourceGenerated, s.DiscoveredContacts[0].EmailSource)
}

func TestDiscoverContactsRejectsMaskedEmail(t *testing.T) {
	llm := discoveryLLM(`{"people": [
		{"name": "Jane Doe", "title": "CTO", "email": "j***@acme.io"},
		{"name": "Bob Smith", "title": "VP Sales", "email": "bob@acme"}
	]}`).on(rolePattern, func(string) (string, error) { return `{"pattern": "first.last"}`, nil })

	s, err := newTestEngine(llm, &fakeSearcher{results: onePassage}).Execute(context.Background(), acme, discoveryOnly, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, llm.calls(rolePattern))
	require.Len(t, s.DiscoveredContacts, 2)
	assert.Equal(t, "jane.doe@acme.io", s.DiscoveredContacts[0].Email)
	assert.Equal(t, ContactSourceGenerated, s.DiscoveredContacts[0].EmailSource)
	assert.Equal(t, "bob.smith@acme.io", s.DiscoveredContacts[1].Email)
	assert.Equal(t, ContactSourceGenerated, s.DiscoveredContacts[1].EmailSource)
}

func TestDiscoverContactsIgnoresFreeMailDomain(t *testing.T) {
	llm := discoveryLLM(`{"people": [
		{"name": "Jane Doe", "title": "CTO", "email": "jane.doe@gmail.com"},
		{"name": "Bob Smith", "title": "VP Sales"}
	]}`)
	prospect := acme
	prospect.Website = ""
	searcher := &fakeSearcher{results: onePassage}

	s, err := newTestEngine(llm, searcher).Execute(context.Background(), prospect, discoveryOnly, nil)
	require.NoError(t, err)

	require.Len(t, s.DiscoveredContacts, 2)
	assert.Equal(t, "jane.doe@gmail.com", s.DiscoveredContacts[0].Email)
	assert.Empty(t, s.DiscoveredContacts[1].Email, "no address is generated at a personal mail domain")
	assert.Len(t, searcher.queries, 3)
	assert.Zero(t, llm.calls(rolePattern))
}

func TestDiscoverContactsUnknownPattern(t *testing.T) {
	llm := discoveryLLM(`{"people": [{"name": "José Álvarez", "title": "CEO"}]}`).
		on(rolePattern, func(string) (string, error) { return `{"pattern": "unknown"}`, nil })

	s, err := newTestEngine(llm, &fakeSearcher{results: onePassage}).Execute(context.Background(), acme, discoveryOnly, nil)
	require.NoError(t, err)

	require.Len(t, s.DiscoveredContacts, 1)
	assert.Empty(t, s.DiscoveredContacts[0].Email)
	assert.Empty(t, s.DiscoveredContacts[0].EmailSource)
}

func TestDiscoverContactsDeduplicates(t *testing.T) {
	llm := discoveryLLM(`{"people": [
		{"name": "Jane Doe", "title": "CTO"},
		{"name": "Bob Smith", "title": "VP Sales"},
		{"name": "BOB SMITH", "title": "Head of Sales"}
	]}`)
	prospect := acme
	prospect.Website = ""
	prospect.Contacts = []Contact{{Name: "Jane Doe", Title: "CTO"}}
	searcher := &fakeSearcher{results: onePassage}

	s, err := newTestEngine(llm, searcher).Execute(context.Background(), prospect, discoveryOnly, nil)
	require.NoError(t, err)

	require.Len(t, s.DiscoveredContacts, 1)
	assert.Equal(t, "Bob Smith", s.DiscoveredContacts[0].Name)
	assert.Empty(t, s.DiscoveredContacts[0].Email)
	assert.Len(t, searcher.queries, 3, "no domain means no pattern search")
}

func TestDiscoverContactsCapsPeople(t *testing.T) {
	llm := discoveryLLM(`{"people": [
		{"name": "A One", "title": "CEO"}, {"name": "B Two", "title": "CTO"}, {"name": "C Three", "title": "CFO"},
		{"name": "D Four", "title": "COO"}, {"name": "E Five", "title": "CMO"}, {"name": "F Six", "title": "CRO"}
	]}`).on(rolePattern, func(string) (string, error) { return `{"pattern": "first"}`, nil })

	s, err := newTestEngine(llm, &fakeSearcher{results: onePassage}).Execute(context.Background(), acme, discoveryOnly, nil)
	require.NoError(t, err)
	assert.Len(t, s.DiscoveredContacts, 5)
}

func TestDiscoverContactsNoResults(t *testing.T) {
	llm := discoveryLLM(`{"people": []}`)
	searcher := &fakeSearcher{}

	s, err := newTestEngine(llm, searcher).Execute(context.Background(), acme, discoveryOnly, nil)
	require.NoError(t, err)

	assert.Zero(t, llm.calls(rolePeople))
	assert.Empty(t, s.DiscoveredContacts)
	assert.Empty(t, s.Learnings)
	assert.Equal(t, PhaseRecord{Completed: true}, s.Phases[PhaseContactDiscovery])
}
