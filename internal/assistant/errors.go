package assistant

import "strings"

// errorCategory classifies a model call failure. Auth and rate-limit
// problems affect every model behind the same key, so they end the turn;
// everything else advances to the next fallback model.
type errorCategory int

const (
	categoryOther errorCategory = iota
	categoryAuth
	categoryRateLimit
	categoryModelNotFound
)

// Substring groups matched case-insensitively against err.Error().
//
// NOTE: string matching because Genkit and the provider SDKs do not expose
// typed errors for these failures. Re-evaluate if Genkit adds structured
// error types in a future version.
var (
	authPatterns          = []string{"401", "unauthorized", "invalid_api_key", "invalid api key", "incorrect api key", "authentication"}
	rateLimitPatterns     = []string{"rate limit", "quota exceeded", "429", "insufficient_quota"}
	modelNotFoundPatterns = []string{"model_not_found", "does not exist", "404", "not found"}
)

// classifyModelError buckets an error from a completion attempt.
func classifyModelError(err error) errorCategory {
	if err == nil {
		return categoryOther
	}
	msg := err.Error()
	switch {
	case containsAny(msg, authPatterns...):
		return categoryAuth
	case containsAny(msg, rateLimitPatterns...):
		return categoryRateLimit
	case containsAny(msg, modelNotFoundPatterns...):
		return categoryModelNotFound
	default:
		return categoryOther
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
