package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		partial ResearchConfig
		want    ResearchConfig
	}{
		{
			name:    "Defaults",
			partial: ResearchConfig{},
			want:    ResearchConfig{Depth: 2, Breadth: 3, Focus: FocusSales, Phases: ResearchPhases},
		},
		{
			name:    "Clamped above limits",
			partial: ResearchConfig{Depth: 9, Breadth: 50, Focus: FocusCompetitive},
			want:    ResearchConfig{Depth: MaxDepth, Breadth: MaxBreadth, Focus: FocusCompetitive, Phases: ResearchPhases},
		},
		{
			name:    "Raised below one",
			partial: ResearchConfig{Depth: -4, Breadth: -1},
			want:    ResearchConfig{Depth: 1, Breadth: 1, Focus: FocusSales, Phases: ResearchPhases},
		},
		{
			name:    "Unknown focus",
			partial: ResearchConfig{Depth: 1, Breadth: 1, Focus: "vibes"},
			want:    ResearchConfig{Depth: 1, Breadth: 1, Focus: FocusSales, Phases: ResearchPhases},
		},
		{
			name:    "Phases keep execution order and drop unknowns",
			partial: ResearchConfig{Phases: []Phase{PhaseMarket, "gossip", PhaseCompany, PhaseSynthesis}},
			want:    ResearchConfig{Depth: 2, Breadth: 3, Focus: FocusSales, Phases: []Phase{PhaseCompany, PhaseMarket}},
		},
		{
			name:    "Explicitly empty phases",
			partial: ResearchConfig{Phases: []Phase{}},
			want:    ResearchConfig{Depth: 2, Breadth: 3, Focus: FocusSales, Phases: []Phase{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewConfig(tt.partial))
		})
	}
}

func TestNewConfigDoesNotAliasPhases(t *testing.T) {
	cfg := NewConfig(ResearchConfig{})
	cfg.Phases[0] = PhaseMarket
	assert.Equal(t, PhaseCompany, ResearchPhases[0])
}

func TestEnabled(t *testing.T) {
	cfg := NewConfig(ResearchConfig{Phases: []Phase{PhaseContacts}})
	assert.True(t, cfg.Enabled(PhaseContacts))
	assert.False(t, cfg.Enabled(PhaseCompany))
}
