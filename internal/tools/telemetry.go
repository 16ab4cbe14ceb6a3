package tools

import (
	"context"

	"github.com/hippocampai/memgate/internal/telemetry"
)

// RegisterTelemetryTools exposes the recent-operations log.
func RegisterTelemetryTools(reg *Registry, recorder *telemetry.Recorder) {
	reg.Register(recentOperationsTool(recorder))
}

func recentOperationsTool(recorder *telemetry.Recorder) Tool {
	return &svcTool{
		name: "get_recent_operations",
		desc: "Return the most recent tool operations, newest first.",
		params: schema(map[string]any{
			"limit": prop("integer", "Maximum operations to return (default 20)"),
		}),
		errCode: "recent_operations_failed",
		errMsg:  "Failed to fetch recent operations",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			limit := intArg(args, "limit")
			if limit <= 0 {
				limit = 20
			}
			ops := recorder.Recent()
			if len(ops) > limit {
				ops = ops[:limit]
			}
			return map[string]any{
				"count":      len(ops),
				"operations": ops,
			}, nil
		},
	}
}
