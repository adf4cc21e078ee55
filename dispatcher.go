package ripple

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tap30/ripple-events-go/adapters"
)

const tracerName = "github.com/Tap30/ripple-events-go"

// ErrDispatcherStopped is returned by Enqueue once Stop or StopWithoutFlush has begun.
var ErrDispatcherStopped = errors.New("dispatcher is stopped")

type Dispatcher struct {
	config         DispatcherConfig
	queue          *Queue
	httpAdapter    HTTPAdapter
	storageAdapter StorageAdapter
	loggerAdapter  LoggerAdapter
	tracer         trace.Tracer
	headers        map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	// wait blocks for the retry backoff; it returns false when ctx is done first.
	wait func(ctx context.Context, d time.Duration) bool

	ticker       *time.Ticker
	stopChan     chan struct{}
	stopOnce     sync.Once
	flushMu      sync.Mutex
	wg           sync.WaitGroup
	timerStarted bool
	stopped      bool
	timerMu      sync.Mutex
}

func NewDispatcher(config DispatcherConfig, httpAdapter HTTPAdapter, storageAdapter StorageAdapter, headers map[string]string) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		config:         config,
		queue:          NewQueue(),
		httpAdapter:    httpAdapter,
		storageAdapter: storageAdapter,
		loggerAdapter:  adapters.NewPrintLoggerAdapter(adapters.LogLevelWarn),
		tracer:         otel.Tracer(tracerName),
		headers:        headers,
		ctx:            ctx,
		cancel:         cancel,
		wait:           sleepContext,
		stopChan:       make(chan struct{}),
	}
}

// SetLoggerAdapter sets a custom logger adapter
func (d *Dispatcher) SetLoggerAdapter(logger LoggerAdapter) {
	d.loggerAdapter = logger
}

// SetTracerProvider replaces the global OpenTelemetry provider for send spans.
func (d *Dispatcher) SetTracerProvider(tp trace.TracerProvider) {
	d.tracer = tp.Tracer(tracerName)
}

// Start restores events persisted by a previous run.
// The flush timer only starts with the first new event.
func (d *Dispatcher) Start() error {
	events, err := d.storageAdapter.Load()
	if err != nil {
		return err
	}
	d.queue.LoadFromSlice(events)
	return nil
}

// Enqueue queues an event and flushes in the background once a batch is full.
func (d *Dispatcher) Enqueue(event Event) error {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}
	d.queue.Enqueue(event)

	d.startTimerLocked()

	if d.queue.Len() >= d.config.MaxBatchSize {
		d.wg.Go(d.Flush)
	}
	return nil
}

// startTimerLocked must be called with d.timerMu held.
func (d *Dispatcher) startTimerLocked() {
	if d.timerStarted {
		return
	}
	d.ticker = time.NewTicker(d.config.FlushInterval)
	d.timerStarted = true
	d.wg.Go(func() {
		for {
			select {
			case <-d.ticker.C:
				d.Flush()
			case <-d.stopChan:
				return
			}
		}
	})
}

// Flush sends every queued event in batches of MaxBatchSize.
// Concurrent calls are serialized.
func (d *Dispatcher) Flush() {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	if d.queue.IsEmpty() {
		return
	}

	d.loggerAdapter.Debug("Starting flush operation")
	allEvents := d.queue.Drain()

	for i := 0; i < len(allEvents); i += d.config.MaxBatchSize {
		end := min(i+d.config.MaxBatchSize, len(allEvents))
		batch := allEvents[i:end]

		d.loggerAdapter.Debug("Sending batch of %d events", len(batch))
		if err := d.sendWithRetry(d.ctx, batch); err != nil {
			d.loggerAdapter.Error("Failed to send batch: %v", err)
			// The failed batch and everything after it go back ahead of newer events.
			d.queue.PushFront(allEvents[i:])
			d.persistQueue()
			return
		}
		d.loggerAdapter.Debug("Successfully sent batch of %d events", len(batch))
	}
}

// sendWithRetry delivers one batch. It returns an error only when the batch
// must stay queued; 4xx responses drop the batch and return nil.
func (d *Dispatcher) sendWithRetry(ctx context.Context, events []Event) error {
	ctx, span := d.tracer.Start(ctx, "ripple.send_batch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("ripple.batch.size", len(events))),
	)
	defer span.End()

	for attempt := 0; ; attempt++ {
		d.loggerAdapter.Debug("Sending HTTP request, attempt %d/%d", attempt+1, d.config.MaxRetries+1)
		span.SetAttributes(attribute.Int("ripple.attempt", attempt+1))

		resp, err := d.httpAdapter.Send(ctx, d.config.Endpoint, events, d.headers)
		retryErr := err
		switch {
		case err != nil:
			d.loggerAdapter.Error("Network error occurred: %v", err)
		case resp.Status >= 200 && resp.Status < 300:
			span.SetAttributes(attribute.Int("http.status_code", resp.Status))
			d.loggerAdapter.Debug("HTTP request successful, clearing storage")
			d.clearStorage()
			return nil
		case resp.Status >= 400 && resp.Status < 500:
			span.SetAttributes(attribute.Int("http.status_code", resp.Status))
			d.loggerAdapter.Warn("%d client error, dropping %d events", resp.Status, len(events))
			d.clearStorage()
			return nil
		case resp.Status >= 500:
			span.SetAttributes(attribute.Int("http.status_code", resp.Status))
			retryErr = &HTTPError{Status: resp.Status}
		default:
			// 1xx and 3xx are not retried; the batch is dropped.
			span.SetAttributes(attribute.Int("http.status_code", resp.Status))
			d.loggerAdapter.Warn("Unexpected status code: %d", resp.Status)
			span.SetStatus(codes.Error, "unexpected status")
			return nil
		}

		if attempt >= d.config.MaxRetries {
			d.loggerAdapter.Error("Max retries (%d) reached for %d events: %v", d.config.MaxRetries, len(events), retryErr)
			span.RecordError(retryErr)
			span.SetStatus(codes.Error, retryErr.Error())
			return retryErr
		}

		backoff := time.Duration(1<<attempt) * time.Second
		jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
		d.loggerAdapter.Warn("Send failed (%v), retrying in %v (attempt %d/%d)", retryErr, backoff+jitter, attempt+1, d.config.MaxRetries)
		if !d.wait(ctx, backoff+jitter) {
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "canceled")
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) clearStorage() {
	if err := d.storageAdapter.Clear(); err != nil {
		d.loggerAdapter.Warn("Failed to clear storage: %v", err)
	}
}

func (d *Dispatcher) persistQueue() {
	events := d.queue.ToSlice()
	if len(events) == 0 {
		return
	}
	if err := d.storageAdapter.Save(events); err != nil {
		d.loggerAdapter.Error("Failed to persist %d events: %v", len(events), err)
	}
}

func (d *Dispatcher) stopTimer() {
	d.stopOnce.Do(func() {
		d.timerMu.Lock()
		d.stopped = true
		if d.ticker != nil {
			d.ticker.Stop()
		}
		d.timerMu.Unlock()
		close(d.stopChan)
	})
	d.wg.Wait()
}

// Stop flushes what is queued and persists whatever could not be sent.
func (d *Dispatcher) Stop() error {
	d.stopTimer()
	d.Flush()
	d.cancel()

	events := d.queue.ToSlice()
	if len(events) > 0 {
		return d.storageAdapter.Save(events)
	}
	return nil
}

// StopWithoutFlush stops the dispatcher and persists events to storage without flushing to server
func (d *Dispatcher) StopWithoutFlush() error {
	d.cancel()
	d.stopTimer()

	events := d.queue.ToSlice()
	if len(events) > 0 {
		return d.storageAdapter.Save(events)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
