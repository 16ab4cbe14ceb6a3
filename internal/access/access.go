// Package access centralizes the scope-boundary checks for memory
// operations: scope parsing, mutation identity, visibility
// normalization, and the cross-scope recall policy. Every
// security-relevant decision the service makes funnels through this one
// gate; the service never hand-rolls a check of its own.
package access

import (
	"errors"
	"fmt"

	"github.com/hippocampai/memgate/internal/memory"
)

// Error reports a violated access rule: an unrecognized scope string, a
// mutation without an identified requester, an invalid visibility
// value, or an unscoped recall without the explicit cross-scope opt-in.
// When the underlying cause is a scope field matrix violation it wraps
// the *memory.ScopeError, preserving the original message.
type Error struct {
	msg   string
	cause error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.cause }

func newError(msg string) *Error { return &Error{msg: msg} }

func wrapError(err error) *Error { return &Error{msg: err.Error(), cause: err} }

// Wrap converts a scope validation failure into an *Error, preserving
// the original message and cause. A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return wrapError(err)
}

// IsAccessError reports whether err is (or wraps) an access rule
// violation.
func IsAccessError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}

// Controller enforces the access rules. The zero value is ready to use;
// it holds no state between calls, so every call re-validates from
// scratch.
type Controller struct{}

// NewController returns an access controller.
func NewController() *Controller { return &Controller{} }

// ParseScope normalizes a loosely-typed scope input. An empty string
// means "no scope" and returns ok=false. An unrecognized value is an
// input-shape error, reported as an *Error rather than a validation
// error.
func (c *Controller) ParseScope(scope string) (memory.Scope, bool, error) {
	parsed, ok, err := memory.ParseScope(scope)
	if err != nil {
		return "", false, newError(fmt.Sprintf("unsupported scope: %s", scope))
	}
	return parsed, ok, nil
}

// RequireActor fails unless userID identifies the requester. Every
// update and delete must name who is asking, even though the backend
// runs its own ownership check.
func (c *Controller) RequireActor(userID, action string) error {
	if userID == "" {
		return newError(fmt.Sprintf("user_id is required for %s", action))
	}
	return nil
}

// NormalizeVisibility lower-cases and validates a visibility value,
// defaulting empty input to private.
func (c *Controller) NormalizeVisibility(visibility string) (memory.Visibility, error) {
	v, err := memory.ParseVisibility(visibility)
	if err != nil {
		return "", wrapError(err)
	}
	return v, nil
}

// EnforceScopeFields applies the scope field matrix, wrapping a
// *memory.ScopeError in an *Error so callers see one error family for
// all access failures while errors.As still reaches the original.
func (c *Controller) EnforceScopeFields(scope memory.Scope, projectID, agentID, sessionID string) error {
	if err := memory.ValidateScopeFields(scope, projectID, agentID, sessionID); err != nil {
		return wrapError(err)
	}
	return nil
}

// EnforceRecallScope decides what a search may see. An absent scope
// fails closed unless includeCrossScope is explicitly true: an unscoped
// search would surface memories across project and agent boundaries, so
// it must be an opt-in act, never a default. With the opt-in it returns
// ok=false meaning "no scope constraint". A present scope is validated
// against the field matrix and returned.
func (c *Controller) EnforceRecallScope(scope string, projectID, agentID, sessionID string, includeCrossScope bool) (memory.Scope, bool, error) {
	parsed, ok, err := c.ParseScope(scope)
	if err != nil {
		return "", false, err
	}
	if !ok {
		if includeCrossScope {
			return "", false, nil
		}
		return "", false, newError("scope is required unless include_cross_scope is explicitly true")
	}
	if err := c.EnforceScopeFields(parsed, projectID, agentID, sessionID); err != nil {
		return "", false, err
	}
	return parsed, true, nil
}
