package ripple

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tap30/ripple-events-go/adapters"
)

const maxNameLength = 255

var serverPlatform = &Platform{Type: "server"}

type Client struct {
	config          ClientConfig
	metadataManager *MetadataManager
	dispatcher      *Dispatcher
	httpAdapter     HTTPAdapter
	storageAdapter  StorageAdapter
	loggerAdapter   LoggerAdapter
	// ownedStorage is closed on dispose when the client opened the storage itself.
	ownedStorage    io.Closer
	initialized     bool
	mu              sync.RWMutex
}

// NewClient validates config and fills in defaults. Call Init before tracking.
func NewClient(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("apiKey must be provided in config")
	}
	if config.Endpoint == "" {
		return nil, errors.New("endpoint must be provided in config")
	}
	if config.HTTPAdapter == nil || config.StorageAdapter == nil {
		return nil, errors.New("both HTTPAdapter and StorageAdapter must be provided in config")
	}

	if config.FlushInterval < 0 {
		return nil, errors.New("flushInterval cannot be negative")
	}
	if config.MaxRetries < 0 {
		return nil, errors.New("maxRetries cannot be negative")
	}

	if config.FlushInterval == 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 10
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	client := &Client{
		config:          config,
		metadataManager: NewMetadataManager(),
		httpAdapter:     config.HTTPAdapter,
		storageAdapter:  config.StorageAdapter,
		loggerAdapter:   config.LoggerAdapter,
	}
	if client.loggerAdapter == nil {
		client.loggerAdapter = adapters.NewPrintLoggerAdapter(adapters.LogLevelWarn)
	}

	return client, nil
}

// SetHTTPAdapter sets a custom HTTP adapter.
// Must be called before Init().
func (c *Client) SetHTTPAdapter(adapter HTTPAdapter) {
	c.httpAdapter = adapter
}

// SetStorageAdapter sets a custom storage adapter.
// Must be called before Init().
func (c *Client) SetStorageAdapter(adapter StorageAdapter) {
	c.storageAdapter = adapter
}

// Init starts the dispatcher and restores persisted events. Calling it again is a no-op.
func (c *Client) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	apiKeyHeader := "X-API-Key"
	if c.config.APIKeyHeader != nil {
		apiKeyHeader = *c.config.APIKeyHeader
	}

	headers := map[string]string{
		apiKeyHeader: c.config.APIKey,
	}

	dispatcherConfig := DispatcherConfig{
		APIKey:        c.config.APIKey,
		APIKeyHeader:  apiKeyHeader,
		Endpoint:      c.config.Endpoint,
		FlushInterval: c.config.FlushInterval,
		MaxBatchSize:  c.config.MaxBatchSize,
		MaxRetries:    c.config.MaxRetries,
	}

	dispatcher := NewDispatcher(dispatcherConfig, c.httpAdapter, c.storageAdapter, headers)
	dispatcher.SetLoggerAdapter(c.loggerAdapter)
	if err := dispatcher.Start(); err != nil {
		return err
	}

	c.dispatcher = dispatcher
	c.initialized = true
	c.loggerAdapter.Info("Client initialized successfully")
	return nil
}

func (c *Client) SetMetadata(key string, value any) error {
	if err := validateName("metadata key", key); err != nil {
		return err
	}
	c.metadataManager.Set(key, value)
	return nil
}

// ClearMetadata removes all global metadata.
func (c *Client) ClearMetadata() {
	c.metadataManager.Clear()
}

func (c *Client) GetMetadata(key string) any {
	return c.metadataManager.Get(key)
}

// GetAllMetadata returns a copy of the global metadata, or nil when none is set.
func (c *Client) GetAllMetadata() map[string]any {
	return c.metadataManager.GetAll()
}

// GetSessionId always returns nil: server environments don't use session IDs.
func (c *Client) GetSessionId() *string {
	return nil
}

// Track queues a named event with a free-form payload.
func (c *Client) Track(name string, payload map[string]any, metadata EventMetadata) error {
	if err := validateName("event name", name); err != nil {
		return err
	}
	if err := c.checkInitialized(); err != nil {
		return err
	}

	return c.enqueue(Event{
		ID:       uuid.NewString(),
		Name:     name,
		Payload:  payload,
		Metadata: c.metadataManager.Merge(metadata),
		IssuedAt: time.Now().UnixMilli(),
		Platform: serverPlatform,
	})
}

func (c *Client) checkInitialized() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return errors.New("client not initialized. Call Init() before tracking events")
	}
	return nil
}

func (c *Client) enqueue(event Event) error {
	c.mu.RLock()
	dispatcher := c.dispatcher
	c.mu.RUnlock()

	c.loggerAdapter.Debug("Tracking event: %s", event.Name)
	return dispatcher.Enqueue(event)
}

func (c *Client) Flush() {
	c.mu.RLock()
	initialized := c.initialized
	dispatcher := c.dispatcher
	c.mu.RUnlock()

	if !initialized {
		c.loggerAdapter.Warn("Flush called before initialization")
		return
	}

	c.loggerAdapter.Debug("Flushing events")
	dispatcher.Flush()
}

// Dispose flushes pending events, persists what could not be sent and stops the client.
func (c *Client) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return c.closeOwnedStorage()
	}

	c.loggerAdapter.Info("Disposing client")
	err := c.dispatcher.Stop()
	c.initialized = false
	return errors.Join(err, c.closeOwnedStorage())
}

// DisposeWithoutFlush stops the client and persists events to storage without flushing to server
func (c *Client) DisposeWithoutFlush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return c.closeOwnedStorage()
	}

	c.loggerAdapter.Info("Disposing client without flush")
	err := c.dispatcher.StopWithoutFlush()
	c.initialized = false
	return errors.Join(err, c.closeOwnedStorage())
}

// closeOwnedStorage must be called with c.mu held.
func (c *Client) closeOwnedStorage() error {
	if c.ownedStorage == nil {
		return nil
	}
	err := c.ownedStorage.Close()
	c.ownedStorage = nil
	return err
}

// Close is Dispose, for use with io.Closer.
func (c *Client) Close() error {
	return c.Dispose()
}

func validateName(what, name string) error {
	if len(name) == 0 {
		return errors.New(what + " cannot be empty")
	}
	if len(name) > maxNameLength {
		return errors.New(what + " cannot exceed 255 characters")
	}
	return nil
}
