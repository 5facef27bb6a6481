package aptcore

import (
	"strings"
)

// Field selects one text attribute of a record for keyword matching.
type Field[T any] struct {
	Name  string
	Value func(T) string
}

var (
	// DescriptionField is the only match surface of knowledge-base groups.
	DescriptionField = Field[GroupRecord]{Name: "description", Value: func(g GroupRecord) string { return g.Description }}

	TargetsField = Field[TrackerRow]{Name: "targets", Value: func(r TrackerRow) string { return r.Targets }}
	CommentField = Field[TrackerRow]{Name: "comment", Value: func(r TrackerRow) string { return r.Comment }}
)

// Match returns every record in which any keyword occurs, case-insensitively,
// as a substring of any of the given fields. Results are concatenated in
// keyword order, so a record matching two keywords appears twice.
func Match[T any](records []T, keywords []string, fields ...Field[T]) []T {
	var matched []T
	for _, keyword := range keywords {
		needle := strings.ToLower(strings.TrimSpace(keyword))
		if needle == "" {
			continue
		}
		for _, record := range records {
			if matchesAny(record, needle, fields) {
				matched = append(matched, record)
			}
		}
	}
	return matched
}

func matchesAny[T any](record T, needle string, fields []Field[T]) bool {
	for _, field := range fields {
		value := field.Value(record)
		if value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

// Dedupe drops repeated records, keeping the first occurrence of each key.
func Dedupe[T any, K comparable](records []T, key func(T) K) []T {
	seen := make(map[K]bool, len(records))
	out := make([]T, 0, len(records))
	for _, record := range records {
		k := key(record)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, record)
	}
	return out
}

// GroupKey identifies a knowledge-base group for Dedupe.
func GroupKey(g GroupRecord) string { return g.ID }

// TrackerKey identifies a tracker row for Dedupe. Rows are compared by sheet
// and all cell values.
func TrackerKey(r TrackerRow) TrackerRow { return r }

// ParseList splits a comma-separated list, trimming entries and dropping empty ones.
func ParseList(input string) []string {
	var items []string
	for _, part := range strings.Split(input, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
