package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/prospect-research/pkg/research"
)

func TestResearchConfigFromFlags(t *testing.T) {
	depth, breadth, focus, phases = 1, 4, "competitive", "company, market,,"
	t.Cleanup(func() { depth, breadth, focus, phases = 0, 0, "", "" })

	rc := researchConfig()
	assert.Equal(t, 1, rc.Depth)
	assert.Equal(t, 4, rc.Breadth)
	assert.Equal(t, research.FocusCompetitive, rc.Focus)
	assert.Equal(t, []research.Phase{research.PhaseCompany, research.PhaseMarket}, rc.Phases)
}

func TestResearchConfigAllPhasesByDefault(t *testing.T) {
	assert.Nil(t, researchConfig().Phases)
}

func TestReadProspect(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "acme.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"p-1","name":"Acme","website":"https://acme.io","country":"Germany"}`), 0o644))
	p, err := readProspect(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, "Germany", p.Country)

	nameless := filepath.Join(dir, "nameless.json")
	require.NoError(t, os.WriteFile(nameless, []byte(`{"website":"https://acme.io"}`), 0o644))
	_, err = readProspect(nameless)
	assert.Error(t, err)

	_, err = readProspect(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeJSON(path, research.ToLegacy(&research.ResearchSession{ProspectName: "Acme"})))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got research.LegacyResearch
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Acme", got.ProspectName)
}
