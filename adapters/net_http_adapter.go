package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gowebpki/jcs"
)

// NetHTTPAdapter is the standard HTTP adapter implementation using net/http package.
// Request bodies are canonical JSON (RFC 8785), so the same batch always
// produces the same bytes.
type NetHTTPAdapter struct {
	client *http.Client
}

// Ensure NetHTTPAdapter implements HTTPAdapter interface
var _ HTTPAdapter = (*NetHTTPAdapter)(nil)

// NewNetHTTPAdapter creates a new NetHTTPAdapter instance.
func NewNetHTTPAdapter() HTTPAdapter {
	return NewNetHTTPAdapterWithTimeout(30 * time.Second)
}

// NewNetHTTPAdapterWithTimeout creates a NetHTTPAdapter whose requests give up after timeout.
func NewNetHTTPAdapterWithTimeout(timeout time.Duration) HTTPAdapter {
	return &NetHTTPAdapter{
		client: &http.Client{Timeout: timeout},
	}
}

// Send sends events to the specified endpoint with the given headers.
func (h *NetHTTPAdapter) Send(ctx context.Context, endpoint string, events []Event, headers map[string]string) (*HTTPResponse, error) {
	body, err := EncodeBatch(events)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return &HTTPResponse{
		Status: resp.StatusCode,
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
	}, nil
}

// EncodeBatch renders events as the canonical {"events": [...]} request body.
func EncodeBatch(events []Event) ([]byte, error) {
	payload := map[string]any{
		"events": events,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}

	canonical, err := jcs.Transform(jsonData)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize events: %w", err)
	}
	return canonical, nil
}
