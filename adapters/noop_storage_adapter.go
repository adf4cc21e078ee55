package adapters

// NoOpStorageAdapter discards everything. Use it when events need not survive a restart.
type NoOpStorageAdapter struct{}

var _ StorageAdapter = (*NoOpStorageAdapter)(nil)

// NewNoOpStorageAdapter creates a new NoOpStorageAdapter instance.
func NewNoOpStorageAdapter() *NoOpStorageAdapter {
	return &NoOpStorageAdapter{}
}

func (n *NoOpStorageAdapter) Save(events []Event) error {
	return nil
}

// Load always returns an empty, non-nil slice.
func (n *NoOpStorageAdapter) Load() ([]Event, error) {
	return []Event{}, nil
}

func (n *NoOpStorageAdapter) Clear() error {
	return nil
}
