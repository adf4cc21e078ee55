package ripple

import (
	"fmt"
	"time"

	"github.com/Tap30/ripple-events-go/adapters"
)

// Re-export adapter types for convenience
type (
	Event          = adapters.Event
	EventMetadata  = adapters.EventMetadata
	Platform       = adapters.Platform
	HTTPAdapter    = adapters.HTTPAdapter
	HTTPResponse   = adapters.HTTPResponse
	StorageAdapter = adapters.StorageAdapter
	LoggerAdapter  = adapters.LoggerAdapter
	LogLevel       = adapters.LogLevel
)

// HTTPError reports a batch the collector kept rejecting.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d", e.Status)
}

type ClientConfig struct {
	APIKey        string
	Endpoint      string
	APIKeyHeader  *string
	FlushInterval time.Duration
	MaxBatchSize  int
	MaxRetries    int

	HTTPAdapter    HTTPAdapter
	StorageAdapter StorageAdapter
	LoggerAdapter  LoggerAdapter
}

type DispatcherConfig struct {
	APIKey        string
	APIKeyHeader  string
	Endpoint      string
	FlushInterval time.Duration
	MaxBatchSize  int
	MaxRetries    int
}
