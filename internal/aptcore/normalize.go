package aptcore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// intrusionSetType is the STIX type of threat-actor groups in the ATT&CK bundle.
const intrusionSetType = "intrusion-set"

// LoadGroups reads the knowledge-base snapshot at path and returns its active groups.
func LoadGroups(path string) ([]GroupRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, sourceErr(SourceMitre, path, fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
	}
	defer file.Close()

	objects, err := DecodeBundle(file)
	if err != nil {
		return nil, sourceErr(SourceMitre, path, err)
	}
	return Normalize(objects), nil
}

// DecodeBundle parses a STIX bundle and returns its objects.
func DecodeBundle(r io.Reader) ([]AttackObject, error) {
	var bundle AttackBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal ATT&CK JSON: %v", ErrMalformedSource, err)
	}
	if bundle.Objects == nil {
		return nil, fmt.Errorf("%w: bundle has no objects", ErrMalformedSource)
	}
	return bundle.Objects, nil
}

// Normalize converts bundle objects into group records. Only intrusion sets
// are kept and deprecated or revoked entries are dropped. Source order is
// preserved.
func Normalize(objects []AttackObject) []GroupRecord {
	var groups []GroupRecord
	for _, obj := range objects {
		if obj.Type != intrusionSetType || obj.Deprecated || obj.Revoked {
			continue
		}

		group := GroupRecord{
			ID:          obj.ID,
			Name:        obj.Name,
			Aliases:     obj.Aliases,
			Description: obj.Description,
			Created:     parseTimestamp(obj.Created),
			Modified:    parseTimestamp(obj.Modified),
		}
		// The first reference is the group's own ATT&CK page.
		if len(obj.ExternalReferences) > 0 {
			ref := obj.ExternalReferences[0]
			if ref.URL != "" && ref.ExternalID != "" {
				group.Link = &ExternalLink{URL: ref.URL, ExternalID: ref.ExternalID}
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// parseTimestamp returns the zero time for absent or unparsable values.
func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
