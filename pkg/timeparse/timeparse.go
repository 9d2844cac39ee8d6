package timeparse

import "time"

// nativeTimestamp matches store-native timestamp values (for example the Mongo
// driver's primitive.DateTime) without importing the driver here.
type nativeTimestamp interface {
	Time() time.Time
}

// Normalize coerces a store-provided timestamp value into an ISO-8601 string.
// Absent values and unknown shapes degrade to "". Strings pass through
// unchanged, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case nativeTimestamp:
		return v.Time().UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Instant parses a normalized timestamp back into a time.Time for ordering.
// Unparseable input yields the zero time, which sorts last in descending views.
func Instant(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

// NowISO returns the current instant in the canonical string form.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
