package ripple

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type mockHTTPAdapter struct {
	mu         sync.Mutex
	calls      int
	batches    [][]Event
	fail       bool
	err        error
	statusCode int
}

func (m *mockHTTPAdapter) Send(ctx context.Context, endpoint string, events []Event, headers map[string]string) (*HTTPResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, append([]Event(nil), events...))
	if m.err != nil {
		return nil, m.err
	}
	if m.fail {
		status := m.statusCode
		if status == 0 {
			status = 500
		}
		return &HTTPResponse{Status: status}, nil
	}
	return &HTTPResponse{Status: 200, OK: true}, nil
}

func (m *mockHTTPAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockHTTPAdapter) sent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Event
	for _, b := range m.batches {
		all = append(all, b...)
	}
	return all
}

type mockStorageAdapter struct {
	mu      sync.Mutex
	saved   []Event
	loaded  []Event
	cleared int
	err     error
}

func (m *mockStorageAdapter) Save(events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = events
	return nil
}

func (m *mockStorageAdapter) Load() ([]Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.loaded, nil
}

func (m *mockStorageAdapter) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	return nil
}

func noWait(context.Context, time.Duration) bool { return true }

func newTestDispatcher(config DispatcherConfig, httpAdapter HTTPAdapter, storageAdapter StorageAdapter) *Dispatcher {
	if config.Endpoint == "" {
		config.Endpoint = "http://test.com"
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 10 * time.Second
	}
	if config.MaxBatchSize == 0 {
		config.MaxBatchSize = 10
	}
	d := NewDispatcher(config, httpAdapter, storageAdapter, nil)
	d.wait = noWait
	return d
}

func TestDispatcher_EnqueueFlushesFullBatch(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxBatchSize: 2, MaxRetries: 3}, httpAdapter, &mockStorageAdapter{})
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "test1"})
	dispatcher.Enqueue(Event{Name: "test2"})

	deadline := time.Now().Add(2 * time.Second)
	for httpAdapter.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if httpAdapter.callCount() == 0 {
		t.Fatal("expected HTTP adapter to be called")
	}
}

func TestDispatcher_FlushOnTimer(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{FlushInterval: 20 * time.Millisecond, MaxRetries: 3}, httpAdapter, &mockStorageAdapter{})
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "timed"})

	deadline := time.Now().Add(2 * time.Second)
	for httpAdapter.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if httpAdapter.callCount() == 0 {
		t.Fatal("expected timer to flush the queue")
	}
}

func TestDispatcher_Flush(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, httpAdapter, &mockStorageAdapter{})
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected 1 call, got %d", httpAdapter.callCount())
	}
}

func TestDispatcher_LoadPersistedEvents(t *testing.T) {
	storageAdapter := &mockStorageAdapter{loaded: []Event{{Name: "persisted"}}}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, &mockHTTPAdapter{}, storageAdapter)
	dispatcher.Start()
	defer dispatcher.Stop()

	if dispatcher.queue.Len() != 1 {
		t.Fatal("expected 1 persisted event in queue")
	}
}

func TestDispatcher_StartLoadError(t *testing.T) {
	storageAdapter := &mockStorageAdapter{err: errors.New("load error")}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, &mockHTTPAdapter{}, storageAdapter)

	if err := dispatcher.Start(); err == nil {
		t.Fatal("expected error from Start")
	}
}

func TestDispatcher_PersistOnStop(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{fail: true}
	storageAdapter := &mockStorageAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 0}, httpAdapter, storageAdapter)
	dispatcher.Start()
	dispatcher.Enqueue(Event{Name: "test"})

	dispatcher.Stop()

	if len(storageAdapter.saved) != 1 || storageAdapter.saved[0].Name != "test" {
		t.Fatal("expected events to be persisted on stop")
	}
}

func TestDispatcher_StopWithoutFlush(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, httpAdapter, storageAdapter)
	dispatcher.Start()
	dispatcher.Enqueue(Event{Name: "kept"})

	if err := dispatcher.StopWithoutFlush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpAdapter.callCount() != 0 {
		t.Fatal("expected no HTTP calls")
	}
	if len(storageAdapter.saved) != 1 || storageAdapter.saved[0].Name != "kept" {
		t.Fatal("expected queued events to be persisted")
	}
}

func TestDispatcher_StopTwice(t *testing.T) {
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, &mockHTTPAdapter{}, &mockStorageAdapter{})
	dispatcher.Start()
	dispatcher.Enqueue(Event{Name: "test"})

	if err := dispatcher.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dispatcher.Stop(); err != nil {
		t.Fatalf("unexpected error on second stop: %v", err)
	}
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	storageAdapter := &mockStorageAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, &mockHTTPAdapter{}, storageAdapter)
	dispatcher.Start()
	if err := dispatcher.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := dispatcher.Enqueue(Event{Name: "late"}); !errors.Is(err, ErrDispatcherStopped) {
		t.Fatalf("expected ErrDispatcherStopped, got %v", err)
	}
	if dispatcher.queue.Len() != 0 {
		t.Fatal("expected rejected event to stay out of the queue")
	}
	dispatcher.timerMu.Lock()
	started := dispatcher.timerStarted
	dispatcher.timerMu.Unlock()
	if started {
		t.Fatal("expected no flush timer after stop")
	}
}

func TestDispatcher_4xxClientError_DropsEvents(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{fail: true, statusCode: 400}
	storageAdapter := &mockStorageAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, httpAdapter, storageAdapter)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected 1 call for 4xx error, got %d", httpAdapter.callCount())
	}
	if len(storageAdapter.saved) > 0 {
		t.Fatal("expected no events to be persisted for 4xx error")
	}
	if dispatcher.queue.Len() != 0 {
		t.Fatal("expected 4xx events to be dropped")
	}
}

func TestDispatcher_5xxServerError_RetriesAndPersists(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{fail: true, statusCode: 500}
	storageAdapter := &mockStorageAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 2}, httpAdapter, storageAdapter)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	if httpAdapter.callCount() != 3 {
		t.Fatalf("expected 3 calls for 5xx error with 2 retries, got %d", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() != 1 {
		t.Fatal("expected events to be re-queued after 5xx max retries")
	}
	if len(storageAdapter.saved) != 1 {
		t.Fatal("expected re-queued events to be persisted")
	}
}

func TestDispatcher_NetworkError_RetriesAndPersists(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{err: errors.New("network timeout")}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 1}, httpAdapter, &mockStorageAdapter{})
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	if httpAdapter.callCount() != 2 {
		t.Fatalf("expected 2 calls for network error with 1 retry, got %d", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() == 0 {
		t.Fatal("expected events to be re-queued after network error max retries")
	}
}

func TestDispatcher_FailedBatchRequeuedAhead(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{err: errors.New("offline")}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxBatchSize: 2, MaxRetries: 0}, httpAdapter, &mockStorageAdapter{})
	dispatcher.queue.LoadFromSlice([]Event{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	dispatcher.Flush()
	dispatcher.queue.Enqueue(Event{Name: "d"})

	got := dispatcher.queue.ToSlice()
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected flush to stop after the failed batch, got %d calls", httpAdapter.callCount())
	}
}

func TestDispatcher_2xxSuccess_ClearsStorage(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	storageAdapter := &mockStorageAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 3}, httpAdapter, storageAdapter)
	dispatcher.Start()
	defer dispatcher.Stop()

	dispatcher.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected 1 call for 2xx success, got %d", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() != 0 {
		t.Fatal("expected queue to be empty after successful send")
	}
	if storageAdapter.cleared == 0 {
		t.Fatal("expected storage to be cleared")
	}
}

func TestDispatcher_DynamicRebatching(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxBatchSize: 3, MaxRetries: 3}, httpAdapter, &mockStorageAdapter{})
	dispatcher.queue.LoadFromSlice(nil)

	for i := 0; i < 7; i++ {
		dispatcher.queue.Enqueue(Event{Name: fmt.Sprintf("test%d", i)})
	}
	dispatcher.Flush()

	if httpAdapter.callCount() != 3 {
		t.Fatalf("expected 3 calls for dynamic rebatching, got %d", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() != 0 {
		t.Fatal("expected queue to be empty after successful send")
	}
}

func TestDispatcher_RetryCanceled(t *testing.T) {
	httpAdapter := &mockHTTPAdapter{err: errors.New("offline")}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 5}, httpAdapter, &mockStorageAdapter{})
	dispatcher.wait = sleepContext
	dispatcher.cancel()

	dispatcher.queue.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	if httpAdapter.callCount() != 1 {
		t.Fatalf("expected no retries after cancel, got %d calls", httpAdapter.callCount())
	}
	if dispatcher.queue.Len() != 1 {
		t.Fatal("expected event to stay queued")
	}
}

func TestDispatcher_SendSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	httpAdapter := &mockHTTPAdapter{fail: true, statusCode: 503}
	dispatcher := newTestDispatcher(DispatcherConfig{MaxRetries: 1}, httpAdapter, &mockStorageAdapter{})
	dispatcher.SetTracerProvider(provider)

	dispatcher.queue.Enqueue(Event{Name: "test"})
	dispatcher.Flush()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "ripple.send_batch" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if span.Status().Code != otelcodes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
	attrs := map[string]int64{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	if attrs["ripple.batch.size"] != 1 || attrs["ripple.attempt"] != 2 || attrs["http.status_code"] != 503 {
		t.Errorf("unexpected attributes %v", attrs)
	}
}
