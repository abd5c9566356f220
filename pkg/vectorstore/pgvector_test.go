package vectorstore

import (
	"encoding/json"
	"testing"
)

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid standard", "prospect_learnings", true},
		{"Valid with numbers", "learnings2", true},
		{"Valid short", "a", true},
		{"Valid max length", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_", true}, // 63 chars
		{"Invalid start with number", "1learnings", false},
		{"Invalid special chars", "prospect-learnings", false},
		{"Invalid SQL injection", "learnings; DROP TABLE prospect_research_jobs", false},
		{"Invalid empty", "", false},
		{"Invalid too long", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789__", false}, // 64 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidTableName(tt.input); got != tt.expected {
				t.Errorf("isValidTableName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    Filter
		preArgs   int
		wantQuery string
		wantArgs  int
	}{
		{
			name:      "Empty filter",
			wantQuery: "TRUE",
		},
		{
			name:      "Prospect only",
			filter:    Filter{ProspectID: "p-1"},
			wantQuery: "metadata @> $1",
			wantArgs:  1,
		},
		{
			name:      "Prospect and session share one containment check",
			filter:    Filter{ProspectID: "p-1", SessionID: "s-1"},
			wantQuery: "metadata @> $1",
			wantArgs:  1,
		},
		{
			name:      "Placeholders continue after the query vector",
			filter:    Filter{ProspectID: "p-1", Categories: []string{"funding", "news"}},
			preArgs:   1,
			wantQuery: "metadata @> $2 AND metadata->>'category' = ANY($3)",
			wantArgs:  3,
		},
		{
			name:      "Minimum confidence",
			filter:    Filter{MinConfidence: "Medium"},
			wantQuery: "metadata->>'confidence' = ANY($1)",
			wantArgs:  1,
		},
		{
			name:      "Low confidence matches everything",
			filter:    Filter{MinConfidence: "low"},
			wantQuery: "TRUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := make([]any, tt.preArgs)
			got := buildFilter(tt.filter, &args)
			if got != tt.wantQuery {
				t.Errorf("buildFilter() = %q, want %q", got, tt.wantQuery)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("buildFilter() args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestBuildFilterContainmentDocument(t *testing.T) {
	var args []any
	buildFilter(Filter{ProspectID: "p-1", SessionID: "s-1"}, &args)

	var got map[string]string
	if err := json.Unmarshal(args[0].([]byte), &got); err != nil {
		t.Fatal(err)
	}
	if got["prospect_id"] != "p-1" || got["session_id"] != "s-1" {
		t.Errorf("unexpected containment document %v", got)
	}
}
