package tools

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hippocampai/memgate/internal/telemetry"
)

// Registry manages tool registration and execution. Every execution
// gets a correlation id, lifecycle logs, an optional trace span and a
// recent-operations entry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	// nil = no rate limiting; swapped at runtime on config reload.
	rateLimiter atomic.Pointer[RateLimiter]

	log      *telemetry.ToolLogger
	recorder *telemetry.Recorder
	tracer   trace.Tracer
}

func NewRegistry(log *telemetry.ToolLogger, recorder *telemetry.Recorder) *Registry {
	if log == nil {
		log = telemetry.NewToolLogger(nil)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		log:      log,
		recorder: recorder,
		tracer:   noop.NewTracerProvider().Tracer("memgate"),
	}
}

// SetRateLimiter enables per-user tool rate limiting. Safe to call
// while Execute is running, so config hot reload can swap limits.
func (r *Registry) SetRateLimiter(rl *RateLimiter) {
	r.rateLimiter.Store(rl)
}

// SetTracer enables trace spans around tool execution.
func (r *Registry) SetTracer(tracer trace.Tracer) {
	if tracer != nil {
		r.tracer = tracer
	}
}

// Register adds a tool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name. userID keys the rate limiter and is
// echoed into logs and the operations record.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, userID string) *Result {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	correlationID := telemetry.NewCorrelationID()
	if !ok {
		return ErrorResult("unknown_tool", "unknown tool: "+name, nil, correlationID)
	}

	if rl := r.rateLimiter.Load(); rl != nil && userID != "" && !rl.Allow(userID) {
		return ErrorResult("rate_limited", "tool rate limit exceeded", nil, correlationID)
	}

	r.log.ToolStart(name, correlationID, userID)

	ctx = telemetry.WithCorrelationID(ctx, correlationID)
	ctx, span := r.tracer.Start(ctx, "tool."+name, trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.correlation_id", correlationID),
	))
	defer span.End()

	start := time.Now()
	result := tool.Execute(ctx, args)
	elapsed := time.Since(start)

	status := "ok"
	if result.IsError {
		status = "error"
		span.SetStatus(codes.Error, "tool failed")
		r.log.ToolError(name, correlationID, elapsed, result.Err)
	} else {
		r.log.ToolSuccess(name, correlationID, elapsed)
	}

	if r.recorder != nil {
		r.recorder.Record(ctx, telemetry.Operation{
			Tool:          name,
			CorrelationID: correlationID,
			UserID:        userID,
			Status:        status,
			Duration:      elapsed,
			At:            start,
		})
	}
	return result
}
