package tools

import (
	"context"

	"github.com/hippocampai/memgate/internal/service"
	"github.com/hippocampai/memgate/internal/telemetry"
)

// svcTool is a tool backed by a service call. The handler returns the
// payload value or an error to be converted into an error payload.
type svcTool struct {
	name    string
	desc    string
	params  map[string]any
	errCode string
	errMsg  string
	run     func(ctx context.Context, args map[string]any) (any, error)
}

func (t *svcTool) Name() string               { return t.name }
func (t *svcTool) Description() string        { return t.desc }
func (t *svcTool) Parameters() map[string]any { return t.params }

func (t *svcTool) Execute(ctx context.Context, args map[string]any) *Result {
	v, err := t.run(ctx, args)
	if err != nil {
		return ErrorResult(t.errCode, t.errMsg, err, telemetry.CorrelationIDFrom(ctx))
	}
	return JSONResult(v)
}

func schema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func tagsProp(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

type rememberResponse struct {
	*service.Memory
	Message string `json:"message"`
}

// RegisterMemoryTools wires every memory operation onto the registry.
func RegisterMemoryTools(reg *Registry, svc *service.Service) {
	reg.Register(rememberTool(svc))
	reg.Register(recallTool(svc))
	reg.Register(getMemoriesTool(svc))
	reg.Register(updateMemoryTool(svc))
	reg.Register(deleteMemoryTool(svc))
	reg.Register(statsTool(svc))
	reg.Register(rememberProjectTool(svc))
	reg.Register(rememberAgentTool(svc))
	reg.Register(rememberPreferenceTool(svc))
	reg.Register(recallProjectTool(svc))
	reg.Register(recallAgentTool(svc))
	reg.Register(recallPreferencesTool(svc))
	reg.Register(getSessionMemoriesTool(svc))
	reg.Register(getAgentMemoriesTool(svc))
	reg.Register(getRecentMemoriesTool(svc))
}

func rememberParamsFromArgs(args map[string]any) service.RememberParams {
	return service.RememberParams{
		Text:       stringArg(args, "text"),
		UserID:     stringArg(args, "user_id"),
		Scope:      stringArg(args, "scope"),
		ProjectID:  stringArg(args, "project"),
		AgentID:    stringArg(args, "agent_id"),
		SessionID:  stringArg(args, "session_id"),
		Kind:       stringArg(args, "memory_type"),
		Importance: floatArg(args, "importance"),
		Tags:       stringSliceArg(args, "tags"),
		TTLDays:    intArg(args, "ttl_days"),
		Visibility: stringArg(args, "visibility"),
		RunID:      stringArg(args, "run_id"),
	}
}

func recallParamsFromArgs(args map[string]any) service.RecallParams {
	return service.RecallParams{
		Query:             stringArg(args, "query"),
		UserID:            stringArg(args, "user_id"),
		Scope:             stringArg(args, "scope"),
		ProjectID:         stringArg(args, "project"),
		AgentID:           stringArg(args, "agent_id"),
		SessionID:         stringArg(args, "session_id"),
		K:                 intArg(args, "k"),
		MinImportance:     floatArg(args, "min_importance"),
		Kind:              stringArg(args, "memory_type"),
		Tags:              stringSliceArg(args, "tags"),
		IncludeCrossScope: boolArg(args, "include_cross_scope"),
	}
}

func rememberTool(svc *service.Service) Tool {
	return &svcTool{
		name: "remember",
		desc: "Store a new memory. Scope is inferred from the ids provided unless given explicitly.",
		params: schema(map[string]any{
			"text":        prop("string", "The content to remember"),
			"user_id":     prop("string", "User identifier"),
			"session_id":  prop("string", "Session identifier"),
			"memory_type": prop("string", "Memory type: fact, preference, goal, habit, event, context"),
			"importance":  prop("number", "Importance score 0-10"),
			"tags":        tagsProp("Tags for categorization"),
			"agent_id":    prop("string", "Agent identifier"),
			"project":     prop("string", "Project identifier"),
			"scope":       prop("string", "Explicit scope: project, agent, user_preference, session"),
			"visibility":  prop("string", "Agent memory visibility: private, shared, public"),
			"ttl_days":    prop("integer", "Time-to-live in days"),
			"run_id":      prop("string", "Run identifier recorded in metadata"),
		}, "text", "user_id"),
		errCode: "memory_store_failed",
		errMsg:  "Failed to store memory",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			mem, err := svc.Remember(ctx, rememberParamsFromArgs(args))
			if err != nil {
				return nil, err
			}
			return rememberResponse{Memory: mem, Message: "Memory stored successfully with ID: " + mem.ID}, nil
		},
	}
}

func recallTool(svc *service.Service) Tool {
	return &svcTool{
		name: "recall",
		desc: "Search memories. Requires a scope unless include_cross_scope is true.",
		params: schema(map[string]any{
			"query":               prop("string", "Search query"),
			"user_id":             prop("string", "User identifier"),
			"session_id":          prop("string", "Filter by session"),
			"k":                   prop("integer", "Number of results (default 5)"),
			"min_importance":      prop("number", "Minimum importance threshold"),
			"memory_type":         prop("string", "Filter by memory type"),
			"tags":                tagsProp("Filter by tags (AND logic)"),
			"agent_id":            prop("string", "Filter by agent"),
			"project":             prop("string", "Filter by project"),
			"scope":               prop("string", "Scope to search in"),
			"include_cross_scope": prop("boolean", "Search across all scopes"),
		}, "query", "user_id"),
		errCode: "memory_recall_failed",
		errMsg:  "Failed to recall memories",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.Recall(ctx, recallParamsFromArgs(args))
		},
	}
}

func getMemoriesTool(svc *service.Service) Tool {
	return &svcTool{
		name: "get_memories",
		desc: "List and browse memories with filtering and sorting. A session, agent or project filter scopes the listing.",
		params: schema(map[string]any{
			"user_id":     prop("string", "User identifier"),
			"memory_type": prop("string", "Filter by type"),
			"tags":        tagsProp("Filter by tags (AND logic)"),
			"session_id":  prop("string", "Filter by session"),
			"agent_id":    prop("string", "Filter by agent"),
			"project":     prop("string", "Filter by project"),
			"limit":       prop("integer", "Maximum results (default 50)"),
			"sort_by":     prop("string", "Sort field: created_at, importance"),
			"order":       prop("string", "Sort order: asc, desc"),
		}, "user_id"),
		errCode: "memory_list_failed",
		errMsg:  "Failed to list memories",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			p := service.ListParams{
				UserID:    stringArg(args, "user_id"),
				Kind:      stringArg(args, "memory_type"),
				Tags:      stringSliceArg(args, "tags"),
				SessionID: stringArg(args, "session_id"),
				AgentID:   stringArg(args, "agent_id"),
				ProjectID: stringArg(args, "project"),
				Limit:     intArg(args, "limit"),
				SortBy:    stringArg(args, "sort_by"),
				Order:     stringArg(args, "order"),
			}
			// Filters imply a scope for the listing.
			switch {
			case p.SessionID != "":
				p.Scope = "session"
			case p.AgentID != "":
				p.Scope = "agent"
			case p.ProjectID != "":
				p.Scope = "project"
			}
			return svc.List(ctx, p)
		},
	}
}

func updateMemoryTool(svc *service.Service) Tool {
	return &svcTool{
		name: "update_memory",
		desc: "Update a memory's text, importance or tags. Scope and identity are immutable.",
		params: schema(map[string]any{
			"memory_id":  prop("string", "Memory identifier"),
			"user_id":    prop("string", "User identifier"),
			"text":       prop("string", "New text"),
			"importance": prop("number", "New importance score"),
			"tags":       tagsProp("Replacement tags"),
		}, "memory_id", "user_id"),
		errCode: "memory_update_failed",
		errMsg:  "Failed to update memory",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			p := service.UpdateParams{
				MemoryID:   stringArg(args, "memory_id"),
				UserID:     stringArg(args, "user_id"),
				Importance: floatArg(args, "importance"),
			}
			if v, ok := args["text"].(string); ok {
				p.Text = &v
			}
			if _, ok := args["tags"]; ok {
				p.Tags = stringSliceArg(args, "tags")
			}
			return svc.Update(ctx, p)
		},
	}
}

func deleteMemoryTool(svc *service.Service) Tool {
	return &svcTool{
		name: "delete_memory",
		desc: "Delete a memory. Deleting a missing memory reports success=false.",
		params: schema(map[string]any{
			"memory_id": prop("string", "Memory identifier"),
			"user_id":   prop("string", "User identifier"),
		}, "memory_id", "user_id"),
		errCode: "memory_delete_failed",
		errMsg:  "Failed to delete memory",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.Delete(ctx, stringArg(args, "memory_id"), stringArg(args, "user_id"))
		},
	}
}

func statsTool(svc *service.Service) Tool {
	return &svcTool{
		name: "get_memory_statistics",
		desc: "Aggregate memory counts for a user.",
		params: schema(map[string]any{
			"user_id": prop("string", "User identifier"),
		}, "user_id"),
		errCode: "memory_stats_failed",
		errMsg:  "Failed to fetch memory statistics",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.Stats(ctx, stringArg(args, "user_id"))
		},
	}
}

func rememberProjectTool(svc *service.Service) Tool {
	return &svcTool{
		name: "remember_project_memory",
		desc: "Store a memory scoped to a project.",
		params: schema(map[string]any{
			"text":        prop("string", "The content to remember"),
			"user_id":     prop("string", "User identifier"),
			"project_id":  prop("string", "Project identifier"),
			"memory_type": prop("string", "Memory type"),
			"importance":  prop("number", "Importance score 0-10"),
			"tags":        tagsProp("Tags for categorization"),
			"ttl_days":    prop("integer", "Time-to-live in days"),
		}, "text", "user_id", "project_id"),
		errCode: "remember_project_failed",
		errMsg:  "Failed to store project memory",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.RememberProjectMemory(ctx, rememberParamsFromArgs(args), stringArg(args, "project_id"))
		},
	}
}

func rememberAgentTool(svc *service.Service) Tool {
	return &svcTool{
		name: "remember_agent_memory",
		desc: "Store a memory scoped to an agent within a project.",
		params: schema(map[string]any{
			"text":        prop("string", "The content to remember"),
			"user_id":     prop("string", "User identifier"),
			"project_id":  prop("string", "Project identifier"),
			"agent_id":    prop("string", "Agent identifier"),
			"visibility":  prop("string", "private, shared or public (default private)"),
			"memory_type": prop("string", "Memory type"),
			"importance":  prop("number", "Importance score 0-10"),
			"tags":        tagsProp("Tags for categorization"),
		}, "text", "user_id", "project_id", "agent_id"),
		errCode: "remember_agent_failed",
		errMsg:  "Failed to store agent memory",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.RememberAgentMemory(ctx, rememberParamsFromArgs(args),
				stringArg(args, "project_id"), stringArg(args, "agent_id"))
		},
	}
}

func rememberPreferenceTool(svc *service.Service) Tool {
	return &svcTool{
		name: "remember_user_preference",
		desc: "Store a user-level preference, independent of any project or agent.",
		params: schema(map[string]any{
			"text":        prop("string", "The preference to remember"),
			"user_id":     prop("string", "User identifier"),
			"memory_type": prop("string", "Memory type (default preference)"),
			"importance":  prop("number", "Importance score 0-10"),
			"tags":        tagsProp("Tags for categorization"),
		}, "text", "user_id"),
		errCode: "remember_preference_failed",
		errMsg:  "Failed to store user preference",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			p := rememberParamsFromArgs(args)
			if p.Kind == "" {
				p.Kind = "preference"
			}
			return svc.RememberUserPreference(ctx, p)
		},
	}
}

func recallProjectTool(svc *service.Service) Tool {
	return &svcTool{
		name: "recall_project_context",
		desc: "Search memories within a project scope.",
		params: schema(map[string]any{
			"query":      prop("string", "Search query"),
			"user_id":    prop("string", "User identifier"),
			"project_id": prop("string", "Project identifier"),
			"k":          prop("integer", "Number of results (default 5)"),
		}, "query", "user_id", "project_id"),
		errCode: "recall_project_failed",
		errMsg:  "Failed to recall project context",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.RecallProjectContext(ctx, recallParamsFromArgs(args), stringArg(args, "project_id"))
		},
	}
}

func recallAgentTool(svc *service.Service) Tool {
	return &svcTool{
		name: "recall_agent_context",
		desc: "Search memories within an agent's scope.",
		params: schema(map[string]any{
			"query":      prop("string", "Search query"),
			"user_id":    prop("string", "User identifier"),
			"project_id": prop("string", "Project identifier"),
			"agent_id":   prop("string", "Agent identifier"),
			"k":          prop("integer", "Number of results (default 5)"),
		}, "query", "user_id", "project_id", "agent_id"),
		errCode: "recall_agent_failed",
		errMsg:  "Failed to recall agent context",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.RecallAgentContext(ctx, recallParamsFromArgs(args),
				stringArg(args, "project_id"), stringArg(args, "agent_id"))
		},
	}
}

func getSessionMemoriesTool(svc *service.Service) Tool {
	return &svcTool{
		name: "get_session_memories",
		desc: "List all memories from one session.",
		params: schema(map[string]any{
			"session_id": prop("string", "Session identifier"),
			"user_id":    prop("string", "User identifier"),
			"limit":      prop("integer", "Maximum results (default 100)"),
		}, "session_id", "user_id"),
		errCode: "session_memories_failed",
		errMsg:  "Failed to list session memories",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			limit := intArg(args, "limit")
			if limit <= 0 {
				limit = 100
			}
			return svc.List(ctx, service.ListParams{
				UserID:    stringArg(args, "user_id"),
				SessionID: stringArg(args, "session_id"),
				Scope:     "session",
				Limit:     limit,
			})
		},
	}
}

type agentMemoriesResponse struct {
	*service.ListResponse
	AgentID string `json:"agent_id"`
}

func getAgentMemoriesTool(svc *service.Service) Tool {
	return &svcTool{
		name: "get_agent_memories",
		desc: "List memories owned by one agent, across the user's projects.",
		params: schema(map[string]any{
			"agent_id": prop("string", "Agent identifier"),
			"user_id":  prop("string", "User identifier"),
			"limit":    prop("integer", "Maximum results (default 100)"),
		}, "agent_id", "user_id"),
		errCode: "agent_memories_failed",
		errMsg:  "Failed to list agent memories",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			limit := intArg(args, "limit")
			if limit <= 0 {
				limit = 100
			}
			agentID := stringArg(args, "agent_id")
			// Unscoped listing: an agent filter without a project id
			// would not satisfy the agent scope's field requirements.
			resp, err := svc.List(ctx, service.ListParams{
				UserID:  stringArg(args, "user_id"),
				AgentID: agentID,
				Limit:   limit,
			})
			if err != nil {
				return nil, err
			}
			return agentMemoriesResponse{ListResponse: resp, AgentID: agentID}, nil
		},
	}
}

func getRecentMemoriesTool(svc *service.Service) Tool {
	return &svcTool{
		name: "get_recent_memories",
		desc: "List memories from a recent time window.",
		params: schema(map[string]any{
			"user_id":     prop("string", "User identifier"),
			"time_window": prop("string", "LASTHOUR, LASTDAY, LASTWEEK, LASTMONTH or LASTYEAR (default LASTDAY)"),
			"project":     prop("string", "Optional project filter"),
		}, "user_id"),
		errCode: "recent_memories_failed",
		errMsg:  "Failed to list recent memories",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.RecentMemories(ctx,
				stringArg(args, "user_id"),
				stringArg(args, "time_window"),
				stringArg(args, "project"))
		},
	}
}

func recallPreferencesTool(svc *service.Service) Tool {
	return &svcTool{
		name: "recall_user_preferences",
		desc: "Search user-level preferences.",
		params: schema(map[string]any{
			"query":   prop("string", "Search query"),
			"user_id": prop("string", "User identifier"),
			"k":       prop("integer", "Number of results (default 5)"),
		}, "query", "user_id"),
		errCode: "recall_preferences_failed",
		errMsg:  "Failed to recall user preferences",
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.RecallUserPreferences(ctx, recallParamsFromArgs(args))
		},
	}
}
