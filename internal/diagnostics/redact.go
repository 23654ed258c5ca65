package diagnostics

import (
	"regexp"
	"strings"
)

// sensitiveKeys marks config keys whose values never belong in a support
// report. Matching is by substring on the lowercased key.
var sensitiveKeys = []string{
	"dsn", "password", "token", "secret", "apikey", "credential",
}

const redactedValue = "[REDACTED]"

var endpointPattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}(:\d+)?$`)

// ScrubConfig redacts sensitive values from a generic config map. The input
// map is not modified.
func ScrubConfig(config map[string]any) map[string]any {
	scrubbed := make(map[string]any, len(config))
	for k, v := range config {
		scrubbed[k] = scrubValue(k, v)
	}
	return scrubbed
}

func scrubValue(key string, value any) any {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return redactedValue
		}
	}

	switch v := value.(type) {
	case map[string]any:
		scrubbed := make(map[string]any, len(v))
		for k, val := range v {
			scrubbed[k] = scrubValue(k, val)
		}
		return scrubbed
	case []any:
		scrubbed := make([]any, len(v))
		for i, item := range v {
			scrubbed[i] = scrubValue(key, item)
		}
		return scrubbed
	case string:
		return maskEndpoint(v)
	default:
		return value
	}
}

// maskEndpoint hides non-local IP addresses so a report does not leak the
// shape of someone's network.
func maskEndpoint(value string) string {
	if !endpointPattern.MatchString(value) || isLocalAddress(value) {
		return value
	}
	host, port, found := strings.Cut(value, ":")
	masked := strings.Repeat("*", len(host))
	if found {
		return masked + ":" + port
	}
	return masked
}

func isLocalAddress(value string) bool {
	return strings.HasPrefix(value, "127.") ||
		strings.HasPrefix(value, "0.0.0.0") ||
		strings.HasPrefix(value, "localhost")
}
