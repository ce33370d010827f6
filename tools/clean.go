package tools

// CleanArguments normalises a tool call's arguments per spec.md §4.2:
//  1. drop keys whose value is null
//  2. recursively clean nested objects/arrays; drop ones that become empty
//  3. a "sources" key holding an array of strings is rewritten into an
//     array of {"type": s} objects
func CleanArguments(args map[string]any) map[string]any {
	cleaned, _ := cleanValue(args).(map[string]any)
	if cleaned == nil {
		return map[string]any{}
	}
	return cleaned
}

// cleanValue returns the cleaned value, or nil if it should be dropped
// entirely (null, or an object/array that became empty after cleaning).
func cleanValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, raw := range val {
			if raw == nil {
				continue
			}
			if k == "sources" {
				if arr, ok := raw.([]any); ok {
					if converted, ok2 := sourcesQuirk(arr); ok2 {
						out[k] = converted
						continue
					}
				}
			}
			cv := cleanValue(raw)
			if cv == nil {
				continue
			}
			out[k] = cv
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			cv := cleanValue(item)
			if cv == nil {
				continue
			}
			out = append(out, cv)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return val
	}
}

// sourcesQuirk converts a "sources" array of strings into an array of
// {"type": s} objects, per spec.md's domain quirk. ok is false when arr
// isn't a pure string array, in which case the caller falls back to plain
// recursive cleaning.
func sourcesQuirk(arr []any) (out []any, ok bool) {
	result := make([]any, 0, len(arr))
	for _, item := range arr {
		s, isStr := item.(string)
		if !isStr {
			return nil, false
		}
		result = append(result, map[string]any{"type": s})
	}
	return result, true
}
