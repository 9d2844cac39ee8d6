// Package collate implements the result-set merging used by list views: union
// two partial query results, drop duplicate identities, and order the outcome.
// It is pure so the merge semantics can be tested without a live store.
package collate

import (
	"sort"
	"time"
)

// MergeByID unions two slices, keeping the first occurrence of each identity.
// Elements of a come before elements of b, so callers that sort afterwards get
// a stable tie-break on insertion order.
func MergeByID[T any](a, b []T, id func(T) string) []T {
	merged := make([]T, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, item := range a {
		key := id(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range b {
		key := id(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}
	return merged
}

// SortByTimeDesc orders items newest first. The sort is stable, so equal
// timestamps keep their insertion order.
func SortByTimeDesc[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}
