// Package memory defines the domain model for scoped memories: the
// scope, kind and visibility enumerations, the write/read request
// types, and the scope field matrix that decides which identity fields
// a scope requires or forbids.
package memory

import (
	"fmt"
	"strings"
)

// Scope is the access boundary a memory belongs to. It is immutable
// once assigned to a record: re-scoping a memory would move it across
// an access boundary.
type Scope string

const (
	ScopeProject        Scope = "project"
	ScopeAgent          Scope = "agent"
	ScopeUserPreference Scope = "user_preference"
	ScopeSession        Scope = "session"
)

// ParseScope converts a string form into a canonical Scope. Matching is
// case-insensitive. An empty string returns the zero Scope with ok=false;
// an unrecognized value returns an error naming it.
func ParseScope(s string) (Scope, bool, error) {
	if s == "" {
		return "", false, nil
	}
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeProject:
		return ScopeProject, true, nil
	case ScopeAgent:
		return ScopeAgent, true, nil
	case ScopeUserPreference:
		return ScopeUserPreference, true, nil
	case ScopeSession:
		return ScopeSession, true, nil
	}
	return "", false, fmt.Errorf("unsupported scope: %s", s)
}

func (s Scope) String() string { return string(s) }

// Kind categorizes memory content. It is orthogonal to Scope: it
// describes what a memory is about, not who may see it. The set is open
// to extension, so unknown kinds are passed through rather than
// rejected.
type Kind string

const (
	KindFact       Kind = "fact"
	KindPreference Kind = "preference"
	KindGoal       Kind = "goal"
	KindHabit      Kind = "habit"
	KindEvent      Kind = "event"
	KindContext    Kind = "context"
)

// DefaultKind is used when a write does not name a kind.
const DefaultKind = KindContext

// Visibility controls who may read an agent-scoped memory. It only
// applies to ScopeAgent records.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// ParseVisibility lower-cases and validates a visibility string.
// Empty defaults to private.
func ParseVisibility(s string) (Visibility, error) {
	if s == "" {
		return VisibilityPrivate, nil
	}
	switch Visibility(strings.ToLower(s)) {
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityShared:
		return VisibilityShared, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	}
	return "", fmt.Errorf("visibility must be one of: private, shared, public")
}
