package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Suitable for tests and single-node deployments.
type MemoryIndex struct {
	dimensions int
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

type namespace struct {
	ids      []string
	vectors  [][]float32
	payloads []*Payload
	position map[string]int
}

// NewMemoryIndex creates an in-memory index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		namespaces: make(map[string]*namespace),
	}, nil
}

// Upsert inserts or replaces the vector for id in the user's namespace.
func (m *MemoryIndex) Upsert(ctx context.Context, user, id string, vec []float32, payload *Payload) error {
	if len(vec) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	stored := make([]float32, m.dimensions)
	copy(stored, vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[user]
	if !ok {
		ns = &namespace{position: make(map[string]int)}
		m.namespaces[user] = ns
	}
	if pos, exists := ns.position[id]; exists {
		ns.vectors[pos] = stored
		ns.payloads[pos] = payload
		return nil
	}
	ns.position[id] = len(ns.ids)
	ns.ids = append(ns.ids, id)
	ns.vectors = append(ns.vectors, stored)
	ns.payloads = append(ns.payloads, payload)
	return nil
}

// Search returns the top-k hits by cosine similarity within the user's namespace.
// An unknown namespace yields zero hits.
func (m *MemoryIndex) Search(ctx context.Context, user string, vec []float32, topK int, scoreThreshold float64) ([]*Hit, error) {
	if len(vec) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[user]
	if !ok || topK <= 0 {
		return nil, nil
	}

	hits := make([]*Hit, 0, len(ns.ids))
	for i, stored := range ns.vectors {
		score := CosineSimilarity(vec, stored)
		if scoreThreshold > -1 && score < scoreThreshold {
			continue
		}
		hit := &Hit{ID: ns.ids[i], Score: score}
		if p := ns.payloads[i]; p != nil {
			hit.Filename = p.Filename
			hit.Metadata = p.Metadata
		}
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes the vector for id from the user's namespace.
// Deleting an unknown id is a no-op.
func (m *MemoryIndex) Delete(ctx context.Context, user, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[user]
	if !ok {
		return nil
	}
	pos, exists := ns.position[id]
	if !exists {
		return nil
	}
	last := len(ns.ids) - 1
	if pos != last {
		ns.ids[pos] = ns.ids[last]
		ns.vectors[pos] = ns.vectors[last]
		ns.payloads[pos] = ns.payloads[last]
		ns.position[ns.ids[pos]] = pos
	}
	ns.ids = ns.ids[:last]
	ns.vectors = ns.vectors[:last]
	ns.payloads = ns.payloads[:last]
	delete(ns.position, id)
	return nil
}

// Size returns the number of vectors stored for the user.
func (m *MemoryIndex) Size(user string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ns, ok := m.namespaces[user]; ok {
		return len(ns.ids)
	}
	return 0
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
