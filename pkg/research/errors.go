package research

import (
	"errors"
	"regexp"
	"strings"

	"github.com/mikeboe/prospect-research/pkg/structured"
)

var (
	ErrMissingCompletionKey = errors.New("completion service API key is not configured")
	ErrMissingSearchKey     = errors.New("search service API key is not configured")
	// ErrCompletionAuth means the completion service rejected our
	// credentials; every following call would fail the same way.
	ErrCompletionAuth = errors.New("completion service authentication failed")
)

// authStatus matches an HTTP 401/403 only where a status code is reported
// ("Error 401", "status: 403", "code=401"), not any digits in the message.
var authStatus = regexp.MustCompile(`\b(error|status|code|http)\s*[:=]?\s*40[13]\b`)

// authMarkers are status names used by the Gemini REST and gRPC APIs.
var authMarkers = []string{
	"unauthenticated",
	"permission_denied",
	"permissiondenied",
	"api_key_invalid",
	"api key not valid",
	"invalid api key",
}

// isAuthError reports whether a completion error means the credentials were
// rejected. Parse failures are never auth errors: their message quotes
// model text.
func isAuthError(err error) bool {
	if err == nil || structured.IsParseError(err) {
		return false
	}
	if errors.Is(err, ErrCompletionAuth) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if authStatus.MatchString(msg) {
		return true
	}
	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
