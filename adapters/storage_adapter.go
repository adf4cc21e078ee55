package adapters

// StorageAdapter persists events that could not be delivered yet, so they
// survive a restart. Save always replaces the whole stored set.
type StorageAdapter interface {
	// Save replaces the persisted events with events.
	Save(events []Event) error

	// Load returns the persisted events, or an empty slice when there are none.
	Load() ([]Event, error)

	// Clear removes all persisted events.
	Clear() error
}
