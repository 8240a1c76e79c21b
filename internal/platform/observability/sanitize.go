package observability

import "strings"

const (
	routeLimit  = 180
	methodLimit = 10
	userIDLimit = 64
	fieldLimit  = 256
)

// sanitizeString strips control characters that could break JSON log lines
// and clamps the value to limit runes.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = fieldLimit
	}

	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, value)

	runes := []rune(cleaned)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return cleaned
}

// SanitizeRoute returns a log-safe route pattern, never empty.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, routeLimit)
}

// SanitizeMethod returns a log-safe HTTP method.
func SanitizeMethod(method string) string {
	return sanitizeString(method, methodLimit)
}

// SanitizeUserID clamps user identifiers before they reach log output.
func SanitizeUserID(uid string) string {
	if uid == "" {
		return ""
	}
	return sanitizeString(uid, userIDLimit)
}
