package research

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToLegacy(t *testing.T) {
	done := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &ResearchSession{
		ProspectID:   "p-1",
		ProspectName: "Acme",
		Learnings: []Learning{
			{Insight: "Raised a $40M Series B", Category: CategoryFunding, Confidence: ConfidenceHigh, Phase: PhaseCompany, SourceTitle: "TechCrunch", SourceURL: "https://tc.example.com/a"},
			{Insight: "Opened a Berlin office", Category: CategoryNews, Confidence: ConfidenceMedium, Phase: PhaseCompany, SourceURL: "https://tc.example.com/a"},
			{Insight: "Founded in 2015", Category: CategoryGeneral, Confidence: ConfidenceHigh, Phase: PhaseCompany},
			{Insight: "CTO spoke about scaling pains", Category: CategoryLeadership, Confidence: ConfidenceLow, Phase: PhaseContacts},
			{Insight: "Competes with Globex", Category: CategoryCompetitor, Confidence: ConfidenceMedium, Phase: PhaseMarket},
			{Insight: "Carrier costs are rising", Category: CategoryPainPoint, Confidence: ConfidenceMedium, Phase: PhaseMarket},
		},
		DiscoveredContacts:   []DiscoveredContact{{Name: "Jane Doe", Title: "CTO", Source: ContactSourceSearched}},
		SalesAngles:          []SalesAngle{{Angle: "EU expansion"}},
		PersonalizationHooks: []PersonalizationHook{{Hook: "Berlin office"}},
		RecommendedApproach:  &RecommendedApproach{OpeningLine: "Hi", CallToAction: "Call", AvoidTopics: []string{"layoffs"}},
		CompletedAt:          &done,
	}

	got := ToLegacy(s)

	assert.Equal(t, "Acme", got.ProspectName)
	assert.Equal(t, "2025-03-01T12:00:00Z", got.ResearchedAt)
	assert.Equal(t, []string{"Raised a $40M Series B"}, got.Company.Funding)
	assert.Equal(t, []string{"Opened a Berlin office"}, got.Company.News)
	assert.Equal(t, []string{"Founded in 2015"}, got.Company.Overview)
	assert.Equal(t, []string{"CTO spoke about scaling pains"}, got.Contacts.Leadership)
	assert.Len(t, got.Contacts.Discovered, 1)
	assert.Equal(t, []string{"Competes with Globex"}, got.Market.Competitors)
	assert.Equal(t, []string{"Carrier costs are rising"}, got.Market.PainPoints)
	assert.Empty(t, got.Market.Trends)
	assert.Equal(t, []LegacySource{{Title: "TechCrunch", URL: "https://tc.example.com/a"}}, got.Sources)
	assert.Equal(t, []string{"EU expansion"}, got.Sales.Angles)
	assert.Equal(t, []string{"layoffs"}, got.Sales.AvoidTopics)

	assert.Equal(t, "high", got.Confidence["company"])
	assert.Equal(t, "low", got.Confidence["contacts"])
	assert.Equal(t, "medium", got.Confidence["market"])

	assert.Len(t, s.Learnings, 6, "input is untouched")
}

func TestToLegacyNil(t *testing.T) {
	got := ToLegacy(nil)
	assert.NotNil(t, got.Company.News)
	assert.Equal(t, "", got.ProspectID)
}
