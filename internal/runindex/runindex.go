package runindex

import (
	"sync"
	"time"

	"github.com/blevesearch/bleve"
)

// Doc is the indexed shape of a run: the question plus the final answer.
type Doc struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit is one search result over past runs.
type Hit struct {
	RunID    string
	Question string
	Score    float64
	Rank     int
}

// Index is an in-memory full-text index over completed runs.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
	meta  map[string]Doc
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: make(map[string]Doc)}, nil
}

// IndexRun adds or replaces a run in the index.
func (ix *Index) IndexRun(runID string, doc Doc) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.bleve.Index(runID, doc); err != nil {
		return err
	}
	ix.meta[runID] = doc
	return nil
}

// Remove drops a run from the index. Unknown ids are a no-op.
func (ix *Index) Remove(runID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.bleve.Delete(runID); err != nil {
		return err
	}
	delete(ix.meta, runID)
	return nil
}

// Search runs a query-string search and returns up to k hits.
func (ix *Index) Search(q string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k, 0, false)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, err := ix.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}
	var out []Hit
	for i, hit := range res.Hits {
		doc := ix.meta[hit.ID]
		out = append(out, Hit{
			RunID:    hit.ID,
			Question: doc.Question,
			Score:    hit.Score,
			Rank:     i + 1,
		})
	}
	return out, nil
}
