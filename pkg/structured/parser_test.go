package structured

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type verdict struct {
	Relevant bool    `json:"relevant"`
	Score    float64 `json:"score" validate:"gte=0,lte=1"`
	Reason   string  `json:"reason" validate:"required"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"Bare object", `{"a":1}`, `{"a":1}`, true},
		{"Fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"Fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"Prose around", "Sure! Here it is: {\"a\":{\"b\":2}} Hope that helps.", `{"a":{"b":2}}`, true},
		{"Prose and fence", "Answer:\n```json\n{\"a\":1}\n```\nDone", `{"a":1}`, true},
		{"No braces", "I cannot help with that", "", false},
		{"Reversed braces", "} nope {", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		var v verdict
		require.NoError(t, Parse("```json\n{\"relevant\":true,\"score\":0.8,\"reason\":\"recent funding\"}\n```", &v))
		assert.True(t, v.Relevant)
		assert.InDelta(t, 0.8, v.Score, 1e-9)
	})

	tests := []struct {
		name  string
		input string
		stage string
	}{
		{"Missing JSON", "no json here", StageNoJSON},
		{"Broken JSON", `{"relevant": true, "score": }`, StageDecode},
		{"Schema violation", `{"relevant": true, "score": 3, "reason": "x"}`, StageValidate},
		{"Missing required", `{"relevant": true, "score": 0.2}`, StageValidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v verdict
			err := Parse(tt.input, &v)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.stage, pe.Stage)
			assert.NotEmpty(t, pe.Excerpt)
		})
	}
}

func TestParseErrorExcerptTruncated(t *testing.T) {
	var v verdict
	err := Parse(strings.Repeat("x", 500), &v)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, excerptRunes+3, len([]rune(pe.Excerpt)))
}

type scriptedLLM struct {
	answers []string
	err     error
	calls   int
}

func (s *scriptedLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	answer := s.answers[min(s.calls-1, len(s.answers)-1)]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: answer}}}, nil
}

func TestGenerate(t *testing.T) {
	t.Run("Parses first answer", func(t *testing.T) {
		llm := &scriptedLLM{answers: []string{`{"relevant":false,"score":0.1,"reason":"generic"}`}}
		g := &Generator{LLM: llm}
		var v verdict
		require.NoError(t, g.Generate(context.Background(), "judge", "passage", "{}", &v))
		assert.False(t, v.Relevant)
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("Completion error is not a parse error", func(t *testing.T) {
		llm := &scriptedLLM{err: errors.New("401 unauthorized")}
		g := &Generator{LLM: llm, MaxAttempts: 3}
		var v verdict
		err := g.Generate(context.Background(), "judge", "passage", "{}", &v)
		require.Error(t, err)
		assert.False(t, IsParseError(err))
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("Parse failure after single attempt", func(t *testing.T) {
		llm := &scriptedLLM{answers: []string{"nonsense"}}
		g := &Generator{LLM: llm}
		var v verdict
		err := g.Generate(context.Background(), "judge", "passage", "{}", &v)
		assert.True(t, IsParseError(err))
	})
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"jane.doe@acme.io", true},
		{"j.doe+sales@mail.acme.co.uk", true},
		{"j***@acme.io", false},
		{"jane@acme", false},
		{"jane.doe@", false},
		{"@acme.io", false},
		{"jane doe@acme.io", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}
