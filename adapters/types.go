package adapters

import "github.com/Tap30/ripple-events-go/event"

// Event represents a tracked event.
type Event struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Schema    string                     `json:"schema,omitempty"`
	Payload   map[string]any             `json:"payload"`
	Contexts  []event.SelfDescribingJSON `json:"contexts,omitempty"`
	Metadata  map[string]any             `json:"metadata"`
	IssuedAt  int64                      `json:"issuedAt"`
	SessionID *string                    `json:"sessionId"`
	Platform  *Platform                  `json:"platform"`
}

// EventMetadata contains optional event metadata.
type EventMetadata = map[string]any

// Platform represents server platform information.
type Platform struct {
	Type string `json:"type"`
}

// StorageQuotaExceededError is returned by storage adapters that cap the number of persisted events.
type StorageQuotaExceededError struct {
	Message string
}

func (e *StorageQuotaExceededError) Error() string {
	if e.Message == "" {
		return "storage quota exceeded"
	}
	return e.Message
}
