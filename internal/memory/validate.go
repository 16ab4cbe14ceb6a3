package memory

import (
	"fmt"
	"strings"
)

// ScopeError reports a request whose identity fields violate the scope
// field matrix, or a request naming an unrecognized scope. It is always
// raised before any storage call.
type ScopeError struct {
	Scope Scope  // offending scope ("" when the scope itself is unknown)
	Field string // offending field name ("" when the scope itself is unknown)
	msg   string
}

func (e *ScopeError) Error() string { return e.msg }

func requiredField(scope Scope, field string) *ScopeError {
	return &ScopeError{
		Scope: scope,
		Field: field,
		msg:   fmt.Sprintf("%s is required for %s scope", field, strings.ToUpper(string(scope))),
	}
}

func forbiddenField(scope Scope, field string) *ScopeError {
	return &ScopeError{
		Scope: scope,
		Field: field,
		msg:   fmt.Sprintf("%s is not allowed for %s scope", field, strings.ToUpper(string(scope))),
	}
}

// ValidateScopeFields is the single source of truth for the scope field
// matrix:
//
//	PROJECT          project_id required, agent_id optional
//	AGENT            project_id required, agent_id required
//	USER_PREFERENCE  project_id forbidden, agent_id forbidden
//	SESSION          session_id required
//
// Both the write and read paths call it identically; no other code
// re-implements these rules. The scope may be given in string form and
// is matched case-insensitively.
func ValidateScopeFields(scope Scope, projectID, agentID, sessionID string) error {
	parsed, ok, err := ParseScope(string(scope))
	if err != nil || !ok {
		return &ScopeError{msg: fmt.Sprintf("unsupported scope: %s", scope)}
	}

	switch parsed {
	case ScopeProject:
		if projectID == "" {
			return requiredField(parsed, "project_id")
		}
	case ScopeAgent:
		if projectID == "" {
			return requiredField(parsed, "project_id")
		}
		if agentID == "" {
			return requiredField(parsed, "agent_id")
		}
	case ScopeUserPreference:
		if projectID != "" {
			return forbiddenField(parsed, "project_id")
		}
		if agentID != "" {
			return forbiddenField(parsed, "agent_id")
		}
	case ScopeSession:
		if sessionID == "" {
			return requiredField(parsed, "session_id")
		}
	}
	return nil
}
