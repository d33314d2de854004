package logging

import (
	"regexp"
	"strings"
)

// Sanitisation tokens and limits.
const (
	// maskToken replaces the middle of a partially masked API key.
	maskToken = "****"

	// redactedToken replaces excluded-header values and matched
	// credential values.
	redactedToken = "[REDACTED]"

	// maxSanitizeDepth bounds recursion over nested metadata. Realistic
	// payloads are far shallower; anything deeper is replaced rather
	// than emitted unsanitised.
	maxSanitizeDepth = 32
)

// postmanKeyPattern matches Postman-style API keys: the PMAK- prefix
// followed by at least 20 alphanumeric or hyphen characters.
var postmanKeyPattern = regexp.MustCompile(`PMAK-[A-Za-z0-9-]{20,}`)

// credentialPattern matches quoted password/secret/token fields embedded in
// string values, e.g. `"password":"hunter2"`. The key name is preserved;
// only the value is redacted.
var credentialPattern = regexp.MustCompile(`(?i)("(?:password|secret|token)"\s*:\s*)"[^"]*"`)

// Sanitizer masks sensitive data in log entries before they reach any sink.
//
// All methods are pure: inputs are never mutated, sanitised deep copies are
// returned. Masking is idempotent — sanitising already-sanitised data
// produces identical output.
type Sanitizer struct {
	enabled        bool
	excludeHeaders map[string]struct{}
}

// NewSanitizer creates a Sanitizer. When enabled is false every method is a
// pass-through. excludeHeaders must contain lowercase key names.
func NewSanitizer(enabled bool, excludeHeaders map[string]struct{}) *Sanitizer {
	if excludeHeaders == nil {
		excludeHeaders = map[string]struct{}{}
	}
	return &Sanitizer{
		enabled:        enabled,
		excludeHeaders: excludeHeaders,
	}
}

// SanitizeString applies pattern masking to a single string value.
//
// Postman API keys keep their PMAK- prefix, the first four and last four
// key characters; the middle collapses to the mask token. Quoted
// password/secret/token fields have their values replaced wholesale.
func (s *Sanitizer) SanitizeString(value string) string {
	if !s.enabled {
		return value
	}

	value = postmanKeyPattern.ReplaceAllStringFunc(value, maskPostmanKey)
	value = credentialPattern.ReplaceAllString(value, `${1}"`+redactedToken+`"`)
	return value
}

// maskPostmanKey partially masks a matched PMAK key: PMAK-abcd1234...9999
// becomes PMAK-abcd****9999. The masked form is too short to match the
// pattern again, which keeps masking idempotent.
func maskPostmanKey(match string) string {
	body := strings.TrimPrefix(match, "PMAK-")
	const keepHead, keepTail = 4, 4
	if len(body) <= keepHead+keepTail {
		return match
	}
	return "PMAK-" + body[:keepHead] + maskToken + body[len(body)-keepTail:]
}

// SanitizeValue returns a sanitised deep copy of an arbitrary metadata
// value. String leaves are pattern-masked; map keys matching the
// exclude-header list (exact lowercase comparison) have their values
// replaced wholesale regardless of type. Maps and slices are walked
// depth-first up to maxSanitizeDepth.
func (s *Sanitizer) SanitizeValue(value any) any {
	if !s.enabled {
		return value
	}
	return s.sanitize(value, 0)
}

func (s *Sanitizer) sanitize(value any, depth int) any {
	if depth > maxSanitizeDepth {
		// Never emit data we could not walk.
		return redactedToken
	}

	switch v := value.(type) {
	case string:
		return s.SanitizeString(v)
	case error:
		if v == nil {
			return nil
		}
		return s.SanitizeString(v.Error())
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if _, excluded := s.excludeHeaders[strings.ToLower(key)]; excluded {
				out[key] = redactedToken
				continue
			}
			out[key] = s.sanitize(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = s.sanitize(val, depth+1)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = s.SanitizeString(val)
		}
		return out
	default:
		// Non-string scalars (numbers, bools, time.Time, ...) carry no
		// maskable content; pass through untouched.
		return value
	}
}
