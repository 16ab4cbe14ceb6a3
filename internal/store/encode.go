package store

import "github.com/hippocampai/memgate/internal/memory"

// Tag prefixes for the synthetic identity tags adapters append to the
// caller's free-form tags. They share one namespace with user tags for
// backend compatibility; EncodeTags de-duplicates so a caller-supplied
// copy of an identity tag never appears twice.
const (
	TagScopePrefix   = "scope:"
	TagProjectPrefix = "project:"
	TagAgentPrefix   = "agent:"
)

// EncodeTags merges user tags with the synthetic scope/project/agent
// tags. The result preserves insertion order (user tags first, then
// scope, project, agent) and drops exact duplicates, so the same inputs
// always produce an identical ordered list.
func EncodeTags(scope memory.Scope, projectID, agentID string, tags []string) []string {
	merged := make([]string, 0, len(tags)+3)
	merged = append(merged, tags...)

	if scope != "" {
		merged = append(merged, TagScopePrefix+scope.String())
	}
	if projectID != "" {
		merged = append(merged, TagProjectPrefix+projectID)
	}
	if agentID != "" {
		merged = append(merged, TagAgentPrefix+agentID)
	}

	deduped := merged[:0]
	seen := make(map[string]struct{}, len(merged))
	for _, tag := range merged {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		deduped = append(deduped, tag)
	}
	return deduped
}

// EncodeMetadata merges caller metadata with the identity fields,
// mirroring EncodeTags in a parallel map. The input map is not
// modified.
func EncodeMetadata(scope memory.Scope, projectID, agentID string, metadata map[string]any) map[string]any {
	merged := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		merged[k] = v
	}
	if scope != "" {
		merged["scope"] = scope.String()
	}
	if projectID != "" {
		merged["project_id"] = projectID
	}
	if agentID != "" {
		merged["agent_id"] = agentID
	}
	return merged
}
