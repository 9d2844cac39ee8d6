package docstore

// Field coercion helpers. Store documents come back as untyped maps; these
// centralize the missing-field defaults so hydration stays idempotent instead
// of scattering fallbacks across every decode site.

// String returns the field as a string, or def when absent or mistyped.
func String(fields map[string]any, key, def string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return def
}

// Float returns the field as a float64, widening integer encodings the store
// drivers produce, or def when absent.
func Float(fields map[string]any, key string, def float64) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns the field as a bool, or def when absent or mistyped.
func Bool(fields map[string]any, key string, def bool) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return def
}

// Slice returns the field as a slice of untyped values. Both []any and
// []map[string]any encodings are accepted; anything else yields nil.
func Slice(fields map[string]any, key string) []any {
	switch v := fields[key].(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

// Map returns an element of a Slice result as a field map, or nil.
func Map(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
