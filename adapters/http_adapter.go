package adapters

import "context"

// HTTPResponse represents the response from an HTTP request.
type HTTPResponse struct {
	OK     bool
	Status int
	Data   any
}

// HTTPAdapter is an interface for HTTP communication.
// Implement this interface to use custom HTTP clients.
type HTTPAdapter interface {
	// Send events to the specified endpoint.
	//
	// Parameters:
	//   - ctx: Cancels the request
	//   - endpoint: The API endpoint URL
	//   - events: Array of events to send
	//   - headers: Optional custom headers to merge with defaults
	//
	// Returns HTTP response or error.
	Send(ctx context.Context, endpoint string, events []Event, headers map[string]string) (*HTTPResponse, error)
}
