package tools

import (
	"encoding/json"
	"errors"

	"github.com/hippocampai/memgate/internal/access"
	"github.com/hippocampai/memgate/internal/memory"
	"github.com/hippocampai/memgate/internal/service"
)

// Result is the unified return type from tool execution. Payload is
// the JSON document handed back to the caller.
type Result struct {
	Payload string `json:"payload"`
	IsError bool   `json:"is_error"`
	Err     error  `json:"-"`
}

// ErrorPayload is the caller-facing error document.
type ErrorPayload struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// JSONResult marshals v as the tool payload.
func JSONResult(v any) *Result {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResult("internal_error", "failed to encode response", err, "")
	}
	return &Result{Payload: string(data)}
}

// ErrorResult builds an error payload result. The code argument is a
// fallback; well-known core errors override it with their own code.
func ErrorResult(code, message string, err error, correlationID string) *Result {
	payload := ErrorPayload{
		Code:          code,
		Message:       message,
		Details:       map[string]any{},
		CorrelationID: correlationID,
	}
	if err != nil {
		payload.Details["error"] = err.Error()
		if c, msg := classify(err); c != "" {
			payload.Code = c
			payload.Message = msg
		}
	}
	data, _ := json.Marshal(payload)
	return &Result{Payload: string(data), IsError: true, Err: err}
}

// classify maps core error families onto stable codes.
func classify(err error) (code, message string) {
	var se *memory.ScopeError
	switch {
	case errors.Is(err, service.ErrMemoryNotFound):
		return "memory_not_found", "memory not found"
	case errors.As(err, &se):
		return "scope_validation_failed", se.Error()
	case access.IsAccessError(err):
		return "access_denied", err.Error()
	}
	return "", ""
}
