package docindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/irtaza129/datashare/errors"
)

// Document is one indexable item.
type Document struct {
	ID      string `json:"id"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
}

// Hit is one search match.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index wraps a bleve full-text index over document contents.
type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it if absent.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening document index",
			errors.WithCategory(errors.CategoryFatal))
	}
	return &Index{idx: idx}, nil
}

// OpenMemory creates a transient in-memory index.
func OpenMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory index")
	}
	return &Index{idx: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	return bleve.NewIndexMapping()
}

// Add indexes one document, replacing any previous version.
func (i *Index) Add(doc Document) error {
	if doc.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document id required")
	}
	if err := i.idx.Index(doc.ID, doc); err != nil {
		return errors.Wrap(err, "indexing document")
	}
	return nil
}

// Delete removes one document.
func (i *Index) Delete(id string) error {
	if err := i.idx.Delete(id); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return nil
}

// Search runs a query-string search and returns up to limit hits.
func (i *Index) Search(query string, limit int) ([]Hit, uint64, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "searching index")
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, Hit{ID: hit.ID, Score: hit.Score})
	}
	return hits, res.Total, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	count, err := i.idx.DocCount()
	if err != nil {
		return 0, errors.Wrap(err, "counting documents")
	}
	return count, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}
