package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	chromem "github.com/philippgille/chromem-go"

	"ona/internal/term"
)

// embeddingDimensions bounds the bag-of-atoms embedding's vector length.
// Each distinct atom hashes into one of this many buckets; collisions
// degrade precision gracefully rather than growing the vector per distinct
// atom ever seen, which would make embeddings incomparable across terms
// added at different times.
const embeddingDimensions = 64

// ConceptCollection is the chromem-go collection name concepts are indexed
// under.
const ConceptCollection = "concepts"

// SimilarityIndex answers "concepts near this term" queries using a local,
// dependency-free bag-of-atoms embedding: no external embedding API is
// involved, matching spec.md's requirement that the inverted atom index
// remain the cycle's only related-concepts source and this index stay
// supplementary, diagnostic-only.
type SimilarityIndex struct {
	db *chromem.DB
}

// SimilarityIndexConfig configures a SimilarityIndex.
type SimilarityIndexConfig struct {
	// PersistPath persists the index to disk; empty keeps it in memory only.
	PersistPath string
}

// NewSimilarityIndex creates a similarity index, persistent if cfg.PersistPath
// is set.
func NewSimilarityIndex(cfg SimilarityIndexConfig) (*SimilarityIndex, error) {
	if cfg.PersistPath == "" {
		return &SimilarityIndex{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(cfg.PersistPath, false)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open persistent similarity index at %s: %w", cfg.PersistPath, err)
	}
	return &SimilarityIndex{db: db}, nil
}

// embedAtoms renders t's distinct atomic leaves as a fixed-length vector:
// each atom contributes a unit increment to the bucket its FNV-1a hash
// falls into, then the vector is L2-normalized so cosine similarity behaves
// as a Jaccard-like overlap measure between two terms' atom sets.
func embedAtoms(t term.Term) []float32 {
	vec := make([]float32, embeddingDimensions)
	for _, atom := range term.Atoms(t) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(atom))
		vec[h.Sum32()%embeddingDimensions]++
	}

	var sumSquares float32
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return vec
	}
	norm := float32(math.Sqrt(float64(sumSquares)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}

// getOrCreateCollection returns the concept collection, creating it on
// first use.
func (idx *SimilarityIndex) getOrCreateCollection() (*chromem.Collection, error) {
	if c := idx.db.GetCollection(ConceptCollection, nil); c != nil {
		return c, nil
	}
	return idx.db.CreateCollection(ConceptCollection, nil, nil)
}

// IndexConcept embeds key's term and stores it in the similarity index,
// overwriting any previous embedding for the same key.
func (idx *SimilarityIndex) IndexConcept(ctx context.Context, key string, t term.Term) error {
	collection, err := idx.getOrCreateCollection()
	if err != nil {
		return fmt.Errorf("knowledge: get concept collection: %w", err)
	}
	err = collection.AddDocument(ctx, chromem.Document{
		ID:        key,
		Content:   key,
		Embedding: embedAtoms(t),
	})
	if err != nil {
		return fmt.Errorf("knowledge: index concept %s: %w", key, err)
	}
	return nil
}

// SimilarConcepts returns the keys of up to limit concepts whose embedding
// is nearest t's, most similar first.
func (idx *SimilarityIndex) SimilarConcepts(ctx context.Context, t term.Term, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	collection := idx.db.GetCollection(ConceptCollection, nil)
	if collection == nil {
		return nil, nil
	}

	results, err := collection.QueryEmbedding(ctx, embedAtoms(t), limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: similarity query: %w", err)
	}

	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.ID
	}
	return keys, nil
}
