package aptcore

import "sort"

// SearchOptions controls post-processing of keyword searches.
type SearchOptions struct {
	// Dedupe removes records that matched more than one keyword.
	Dedupe bool
}

// SearchGroups matches keywords against group descriptions and returns the
// result sorted by group name.
func SearchGroups(groups []GroupRecord, keywords []string, opts SearchOptions) *SearchResult[GroupRecord] {
	rows := Match(groups, keywords, DescriptionField)
	if opts.Dedupe {
		rows = Dedupe(rows, GroupKey)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return &SearchResult[GroupRecord]{Source: SourceMitre, Rows: rows}
}

// SearchTracker runs AggregateTracker and applies opts to its result.
func SearchTracker(wb Workbook, keywords []string, opts SearchOptions) (*SearchResult[TrackerRow], error) {
	result, err := AggregateTracker(wb, keywords)
	if opts.Dedupe {
		result.Rows = Dedupe(result.Rows, TrackerKey)
	}
	return result, err
}
