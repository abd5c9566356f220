package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "SEARCH_MODEL", "SEARCH_TIMEOUT_SECONDS", "SEARCH_REQUESTS_PER_SECOND", "LEARNINGS_TABLE", "LLM_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "sonar", cfg.SearchModel)
	assert.Equal(t, 30*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 2.0, cfg.SearchRequestsPerSecond)
	assert.Equal(t, "prospect_learnings", cfg.LearningsTable)
	assert.Equal(t, 2, cfg.MaxAttempts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SEARCH_TIMEOUT_SECONDS", "5")
	t.Setenv("SEARCH_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("LLM_MAX_ATTEMPTS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 0.5, cfg.SearchRequestsPerSecond)
	assert.Equal(t, 2, cfg.MaxAttempts)
}
