// Package rank provides an optional keyword-fusion helper layered on top of
// the vector store's semantic search: a bleve in-memory index over stored
// chunk content, combined with vector scores via reciprocal rank fusion.
// Not part of the certified search contract — callers that only need
// semantic search can ignore this package entirely.
package rank

import (
	"context"
	"sort"

	"github.com/blevesearch/bleve/v2"

	"github.com/guobin211/opencontext/pkg/search"
)

// Fuser maintains a transient bleve index built from the current chunk set,
// rebuilt on demand (it mirrors the vector store, not a separate database).
type Fuser struct {
	index bleve.Index
	ids   []string
}

type indexedChunk struct {
	Content string `json:"content"`
}

// Build creates an in-memory bleve index over chunks' content, keyed by
// chunk id.
func Build(chunks []search.StoredChunk) (*Fuser, error) {
	mapping := bleve.NewIndexMapping()
	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(chunks))
	batch := index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, indexedChunk{Content: c.Content}); err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	if err := index.Batch(batch); err != nil {
		return nil, err
	}

	return &Fuser{index: index, ids: ids}, nil
}

// Close releases the in-memory index.
func (f *Fuser) Close() error {
	return f.index.Close()
}

const rrfK = 60

// Fuse combines vector results with a bleve keyword search over query using
// reciprocal rank fusion (score = sum of 1/(k+rank) across the two rankings)
// and returns semantic results re-ordered by fused score.
func (f *Fuser) Fuse(ctx context.Context, query string, semantic []search.SearchResult) ([]search.SearchResult, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = len(f.ids)
	result, err := f.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	keywordRank := make(map[string]int, len(result.Hits))
	for i, hit := range result.Hits {
		keywordRank[hit.ID] = i + 1
	}

	type scored struct {
		result search.SearchResult
		score  float64
	}
	fused := make([]scored, len(semantic))
	for i, r := range semantic {
		s := 1.0 / float64(rrfK+i+1)
		if kr, ok := keywordRank[r.Chunk.ID]; ok {
			s += 1.0 / float64(rrfK+kr)
		}
		fused[i] = scored{result: r, score: s}
	}

	sort.Slice(fused, func(i, j int) bool { return fused[i].score > fused[j].score })

	out := make([]search.SearchResult, len(fused))
	for i, s := range fused {
		out[i] = s.result
	}
	return out, nil
}
