package ripple

import (
	"maps"
	"sync"
)

// MetadataManager holds global metadata merged into every tracked event.
type MetadataManager struct {
	metadata map[string]any
	mu       sync.RWMutex
}

func NewMetadataManager() *MetadataManager {
	return &MetadataManager{
		metadata: make(map[string]any),
	}
}

func (m *MetadataManager) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
}

func (m *MetadataManager) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key]
}

// GetAll returns a copy of the metadata, or nil when none is set.
func (m *MetadataManager) GetAll() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.metadata) == 0 {
		return nil
	}
	return maps.Clone(m.metadata)
}

// Merge returns the global metadata overlaid with perEvent. Per-event keys win.
func (m *MetadataManager) Merge(perEvent map[string]any) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.metadata) == 0 && len(perEvent) == 0 {
		return nil
	}
	merged := make(map[string]any, len(m.metadata)+len(perEvent))
	maps.Copy(merged, m.metadata)
	maps.Copy(merged, perEvent)
	return merged
}

func (m *MetadataManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata = make(map[string]any)
}
