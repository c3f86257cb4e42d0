package vector

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

type persistedNamespace struct {
	IDs      []string
	Vectors  [][]float32
	Payloads []*Payload
}

type persistedIndex struct {
	Dimensions int
	Namespaces map[string]persistedNamespace
}

// Save persists the index to path. An empty path is a no-op.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	m.mu.RLock()
	snapshot := persistedIndex{
		Dimensions: m.dimensions,
		Namespaces: make(map[string]persistedNamespace, len(m.namespaces)),
	}
	for user, ns := range m.namespaces {
		snapshot.Namespaces[user] = persistedNamespace{
			IDs:      append([]string(nil), ns.ids...),
			Vectors:  append([][]float32(nil), ns.vectors...),
			Payloads: append([]*Payload(nil), ns.payloads...),
		}
	}
	m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// Load restores the index from path. A missing file leaves the index empty
// and is not an error.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	var snapshot persistedIndex
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}
	if snapshot.Dimensions != m.dimensions {
		return fmt.Errorf("index dimension mismatch: file has %d, expected %d", snapshot.Dimensions, m.dimensions)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespaces = make(map[string]*namespace, len(snapshot.Namespaces))
	for user, pns := range snapshot.Namespaces {
		ns := &namespace{
			ids:      pns.IDs,
			vectors:  pns.Vectors,
			payloads: pns.Payloads,
			position: make(map[string]int, len(pns.IDs)),
		}
		for i, id := range pns.IDs {
			ns.position[id] = i
		}
		m.namespaces[user] = ns
	}
	return nil
}
