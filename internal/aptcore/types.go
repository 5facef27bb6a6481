package aptcore

import (
	"strings"
	"time"
)

// AttackBundle represents the top-level structure of the enterprise-attack.json file.
type AttackBundle struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Objects []AttackObject `json:"objects"`
}

// AttackObject represents a single object within the bundle. Only the fields
// needed to build a GroupRecord are decoded.
type AttackObject struct {
	Type               string              `json:"type"`
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Aliases            []string            `json:"aliases"`
	ExternalReferences []ExternalReference `json:"external_references"`
	Created            string              `json:"created"`
	Modified           string              `json:"modified"`
	Deprecated         bool                `json:"x_mitre_deprecated"`
	Revoked            bool                `json:"revoked"`
}

// ExternalReference points at the public ATT&CK page of an object, e.g. G0040.
type ExternalReference struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
	ExternalID string `json:"external_id"`
}

// ExternalLink is the base URL and external id used to build artifact URLs.
type ExternalLink struct {
	URL        string `json:"url"`
	ExternalID string `json:"external_id"`
}

// LayerURL returns the address of the group's enterprise navigator layer.
func (l ExternalLink) LayerURL() string {
	return strings.TrimRight(l.URL, "/") + "/" + l.LayerFileName()
}

// LayerFileName is the file name the layer is saved under.
func (l ExternalLink) LayerFileName() string {
	return l.ExternalID + "-enterprise-layer.json"
}

// Row is a single line of a search result table.
type Row interface {
	// Key is the canonical sort key of the row.
	Key() string
	// Cells returns the row values in report column order.
	Cells() []string
}

// GroupRecord represents one threat actor / intrusion set from the knowledge base.
type GroupRecord struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Aliases     []string      `json:"aliases,omitempty"`
	Description string        `json:"description,omitempty"`
	Link        *ExternalLink `json:"external_link,omitempty"`
	Created     time.Time     `json:"created,omitempty"`
	Modified    time.Time     `json:"modified,omitempty"`
}

func (g GroupRecord) Key() string { return g.Name }

func (g GroupRecord) Cells() []string {
	return []string{g.Name, strings.Join(g.Aliases, ", "), g.Description}
}

// TrackerRow represents one row of one sheet of the APT tracker spreadsheet.
// An empty string marks a missing cell until placeholders are filled in.
type TrackerRow struct {
	Sheet      string `json:"sheet"`
	CommonName string `json:"common_name"`
	Toolset    string `json:"toolset"`
	Targets    string `json:"targets"`
	Comment    string `json:"comment"`
}

func (r TrackerRow) Key() string { return r.CommonName }

func (r TrackerRow) Cells() []string {
	return []string{r.CommonName, r.Toolset, r.Targets, r.Comment}
}

// SearchResult is an ordered table of matched rows from one source.
type SearchResult[T Row] struct {
	Source string `json:"source"`
	Rows   []T    `json:"rows"`
}

// Empty reports whether the search produced no rows.
func (r *SearchResult[T]) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Table returns the cell values of every row.
func (r *SearchResult[T]) Table() [][]string {
	if r == nil {
		return nil
	}
	table := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		table = append(table, row.Cells())
	}
	return table
}
