// Package structured turns free-text model output into validated Go values.
//
// Every model-backed step in the research engine goes through Parse, so a
// badly formatted answer surfaces as a *ParseError instead of leaking a
// half-filled struct into session state.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Parse failure stages.
const (
	StageNoJSON   = "no_json"
	StageDecode   = "decode"
	StageValidate = "validate"
)

const excerptRunes = 200

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseError describes why raw model text could not be turned into the
// requested shape.
type ParseError struct {
	Stage   string
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structured output %s: %v (raw: %q)", e.Stage, e.Err, e.Excerpt)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err (or anything it wraps) is a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Parse extracts the outermost JSON object from raw, decodes it into out
// (a pointer to a struct) and validates it against out's `validate` tags.
func Parse(raw string, out any) error {
	body, ok := ExtractJSON(raw)
	if !ok {
		return &ParseError{Stage: StageNoJSON, Excerpt: excerpt(raw), Err: errors.New("no JSON object found")}
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &ParseError{Stage: StageDecode, Excerpt: excerpt(raw), Err: err}
	}

	if err := validate.Struct(out); err != nil {
		return &ParseError{Stage: StageValidate, Excerpt: excerpt(raw), Err: err}
	}
	return nil
}

// ValidEmail reports whether s is a complete email address. Masked or
// truncated addresses copied from web pages ("j***@acme.io", "jane@acme")
// fail.
func ValidEmail(s string) bool {
	if validate.Var(s, "required,email") != nil {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, host := s[:at], s[at+1:]
	return !strings.ContainsAny(local, "*…") && strings.Contains(host, ".")
}

// ExtractJSON strips markdown code fences and returns the span between the
// first '{' and the last '}'.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i != -1 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.LastIndex(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		s = rest
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

func excerpt(raw string) string {
	r := []rune(strings.TrimSpace(raw))
	if len(r) <= excerptRunes {
		return string(r)
	}
	return string(r[:excerptRunes]) + "..."
}
