package config

import (
	"regexp"
	"strings"
)

const DefaultID = "default"

var (
	validIDRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	leadingDash  = regexp.MustCompile(`^-+`)
	trailingDash = regexp.MustCompile(`-+$`)
)

// NormalizeBackend maps backend aliases onto the canonical names.
func NormalizeBackend(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendSQLite, "sqlite3":
		return BackendSQLite
	case BackendPostgres, "pg", "postgresql":
		return BackendPostgres
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// NormalizeID converts a configured identity into a valid id:
//   - Lowercase, max 64 chars
//   - Only [a-z0-9_-] allowed
//   - Invalid chars replaced with "-"
//   - Leading/trailing dashes stripped
//   - Empty result defaults to "default"
func NormalizeID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultID
	}

	lower := strings.ToLower(trimmed)
	if validIDRe.MatchString(lower) {
		return lower
	}

	result := invalidChars.ReplaceAllString(lower, "-")
	result = leadingDash.ReplaceAllString(result, "")
	result = trailingDash.ReplaceAllString(result, "")

	if len(result) > 64 {
		result = result[:64]
	}

	if result == "" {
		return DefaultID
	}
	return result
}
