package research

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikeboe/prospect-research/pkg/structured"
)

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Sentinel", fmt.Errorf("wrapped: %w", ErrCompletionAuth), true},
		{"Invalid key", errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key."), true},
		{"HTTP 401", errors.New("llm generation failed: googleapi: Error 401: request had invalid credentials"), true},
		{"Status 403", errors.New("unexpected status: 403 Forbidden"), true},
		{"gRPC unauthenticated", errors.New("rpc error: code = Unauthenticated desc = missing credentials"), true},
		{"gRPC permission denied", errors.New("rpc error: code = PermissionDenied desc = caller lacks access"), true},
		{"Digits in request id", errors.New("googleapi: Error 503: backend busy (request 4017403)"), false},
		{"Token count", errors.New("input exceeds limit: 401 tokens over"), false},
		{"Parse error quoting a status", &structured.ParseError{
			Stage:   structured.StageNoJSON,
			Excerpt: "HTTP 403 means unauthorized access to Acme's 401(k) portal",
			Err:     errors.New("no JSON object found"),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthError(tt.err))
		})
	}
}
