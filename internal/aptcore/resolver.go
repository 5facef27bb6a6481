package aptcore

import "strings"

// Resolve returns the first group that lists alias among its aliases. The
// comparison is exact and case-insensitive. Group names are not consulted.
func Resolve(groups []GroupRecord, alias string) (GroupRecord, error) {
	for _, group := range groups {
		for _, a := range group.Aliases {
			if strings.EqualFold(a, alias) {
				return group, nil
			}
		}
	}
	return GroupRecord{}, sourceErr(SourceMitre, alias, ErrGroupNotFound)
}
