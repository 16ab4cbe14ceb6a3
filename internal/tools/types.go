// Package tools holds the caller-facing tool surface: the registry,
// per-tool argument schemas, and the conversion of core errors into
// error payloads.
package tools

import "context"

// Tool is the interface all tools implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *Result
}
