package facematch

import (
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/attendease/internal/database"
)

// hnswMaxNeighbors is the M parameter for the candidate graph.
const hnswMaxNeighbors = 16

// CandidateIndex is an optional in-memory HNSW index over stored
// embeddings. It pre-selects the nearest stored vectors for a query and
// rescores them exactly with CosineDistance, so enabling it changes
// latency, not which distances decide a match. Approximate search can
// miss the true nearest vector; the exact brute-force path stays the
// default.
type CandidateIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	owners  map[int64]int64     // embedding row id -> user id
	vectors map[int64][]float32 // embedding row id -> vector
}

// NewCandidateIndex creates an empty index.
func NewCandidateIndex() *CandidateIndex {
	return &CandidateIndex{
		owners:  make(map[int64]int64),
		vectors: make(map[int64][]float32),
	}
}

// Build replaces the index contents from a slice of stored embeddings.
func (idx *CandidateIndex) Build(embeddings []database.StoredEmbedding) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(embeddings) == 0 {
		idx.graph = nil
		idx.owners = make(map[int64]int64)
		idx.vectors = make(map[int64][]float32)
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	idx.owners = make(map[int64]int64, len(embeddings))
	idx.vectors = make(map[int64][]float32, len(embeddings))

	for i := range embeddings {
		emb := &embeddings[i]
		if len(emb.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(emb.ID, emb.Embedding))
		idx.owners[emb.ID] = emb.UserID
		idx.vectors[emb.ID] = emb.Embedding
	}

	idx.graph = g
}

// Add inserts a single embedding without rebuilding.
func (idx *CandidateIndex) Add(emb *database.StoredEmbedding) {
	if len(emb.Embedding) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph == nil {
		idx.graph = hnsw.NewGraph[int64]()
		idx.graph.M = hnswMaxNeighbors
		idx.graph.Ml = 1.0 / float64(hnswMaxNeighbors)
		idx.graph.Distance = hnsw.CosineDistance
	}
	idx.graph.Add(hnsw.MakeNode(emb.ID, emb.Embedding))
	idx.owners[emb.ID] = emb.UserID
	idx.vectors[emb.ID] = emb.Embedding
}

// Len returns the number of indexed vectors.
func (idx *CandidateIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.owners)
}

// BestMatch searches the index for the k nearest stored vectors and
// applies the same exact-distance decision as the brute-force matcher.
func (idx *CandidateIndex) BestMatch(query []float32, k int, threshold float64) *Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil {
		return nil
	}
	if k <= 0 {
		k = hnswMaxNeighbors
	}

	neighbors := idx.graph.Search(query, k)

	// Rescore exactly and regroup per user; the decision then matches
	// BestMatch over the pre-selected candidate set.
	candidates := make(map[int64][][]float32, len(neighbors))
	for _, n := range neighbors {
		userID, ok := idx.owners[n.Key]
		if !ok {
			continue
		}
		candidates[userID] = append(candidates[userID], idx.vectors[n.Key])
	}

	return BestMatch(query, candidates, threshold)
}
