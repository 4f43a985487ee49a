package aws

const (
	summarizeMaxItems  = 5
	summarizeMaxString = 6000
)

// Summarize recursively bounds a JSON-like value so provider responses stay
// small enough for a model context window. Long strings are truncated, lists
// are capped at maxItems, and a map whose list value was capped gains a
// sibling "<key>_summary" with shown/total counts. The operation is
// idempotent: already-bounded values pass through unchanged.
func Summarize(value any) any {
	return summarize(value, summarizeMaxItems, summarizeMaxString)
}

// SummarizeMap is Summarize specialized for handler result maps.
func SummarizeMap(value map[string]any) map[string]any {
	return summarize(value, summarizeMaxItems, summarizeMaxString).(map[string]any)
}

func summarize(value any, maxItems, maxString int) any {
	switch v := value.(type) {
	case string:
		return truncateString(v, maxString)
	case []any:
		trimmed := v
		if len(trimmed) > maxItems {
			trimmed = trimmed[:maxItems]
		}
		out := make([]any, len(trimmed))
		for i, item := range trimmed {
			out[i] = summarize(item, maxItems, maxString)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if list, ok := item.([]any); ok {
				total := len(list)
				capped := summarize(list, maxItems, maxString).([]any)
				out[key] = capped
				if total > maxItems {
					out[key+"_summary"] = map[string]any{"shown": len(capped), "total": total}
				}
				continue
			}
			out[key] = summarize(item, maxItems, maxString)
		}
		return out
	default:
		return value
	}
}

func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}
