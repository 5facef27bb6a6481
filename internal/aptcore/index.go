package aptcore

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

const indexBatchSize = 100

// groupDocument is the document stored in the full-text index.
type groupDocument struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
}

// GroupHit is a ranked full-text match.
type GroupHit struct {
	Group GroupRecord `json:"group"`
	Score float64     `json:"score"`
}

// GroupIndex is an in-memory full-text index over group names, aliases and
// descriptions.
type GroupIndex struct {
	index  bleve.Index
	groups map[string]GroupRecord
}

// NewGroupIndexMapping builds the mapping used by GroupIndex.
func NewGroupIndexMapping() *mapping.IndexMappingImpl {
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	textFieldMapping := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("aliases", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("type", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.TypeField = "type"
	indexMapping.AddDocumentMapping("group", docMapping)
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// NewGroupIndex indexes groups into a memory-only bleve index.
func NewGroupIndex(groups []GroupRecord) (*GroupIndex, error) {
	index, err := bleve.NewMemOnly(NewGroupIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create group index: %w", err)
	}

	gi := &GroupIndex{index: index, groups: make(map[string]GroupRecord, len(groups))}
	batch := index.NewBatch()
	for _, group := range groups {
		id := group.ID
		if id == "" {
			id = group.Name
		}
		gi.groups[id] = group
		doc := groupDocument{
			Name:        group.Name,
			Aliases:     group.Aliases,
			Description: group.Description,
			Type:        "group",
		}
		if err := batch.Index(id, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to index group %s: %w", id, err)
		}
		if batch.Size() >= indexBatchSize {
			if err := index.Batch(batch); err != nil {
				index.Close()
				return nil, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	return gi, nil
}

// Search runs a match query and returns at most size hits ordered by score.
func (gi *GroupIndex) Search(query string, size int) ([]GroupHit, error) {
	if size <= 0 {
		size = 10
	}
	request := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	request.Size = size

	results, err := gi.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]GroupHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		group, ok := gi.groups[hit.ID]
		if !ok {
			continue
		}
		hits = append(hits, GroupHit{Group: group, Score: hit.Score})
	}
	return hits, nil
}

// DocCount returns the number of indexed groups.
func (gi *GroupIndex) DocCount() (uint64, error) {
	return gi.index.DocCount()
}

// Close releases the index.
func (gi *GroupIndex) Close() error {
	return gi.index.Close()
}
