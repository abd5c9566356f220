package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/prospect-research/pkg/research"
)

func TestDocuments(t *testing.T) {
	s := &research.ResearchSession{
		ID:           "s-1",
		ProspectID:   "p-1",
		ProspectName: "Acme",
		Learnings: []research.Learning{
			{ID: "l-1", Insight: "Raised a $40M Series B", Category: research.CategoryFunding, Confidence: research.ConfidenceHigh, Phase: research.PhaseCompany, SourceURL: "https://tc.example.com/a"},
			{ID: "l-2", Insight: "Competes with Globex", Category: research.CategoryCompetitor, Confidence: research.ConfidenceMedium, Phase: research.PhaseMarket},
		},
	}

	docs := Documents(s)
	require.Len(t, docs, 2)
	assert.Equal(t, "Acme: Raised a $40M Series B", docs[0].Content)
	assert.Equal(t, Metadata{
		ProspectID:   "p-1",
		ProspectName: "Acme",
		SessionID:    "s-1",
		LearningID:   "l-1",
		Category:     "funding",
		Confidence:   "high",
		Phase:        "company",
		SourceURL:    "https://tc.example.com/a",
	}, docs[0].Metadata)
	assert.Equal(t, "market", docs[1].Metadata.Phase)
	assert.Nil(t, docs[0].Embedding)
}

func TestDocumentsEmptySession(t *testing.T) {
	assert.Empty(t, Documents(&research.ResearchSession{}))
}
