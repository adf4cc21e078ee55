package ripple

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/Tap30/ripple-events-go/event"
)

// ErrNilEvent is returned when TrackSelfDescribing gets no event, including
// a nil pointer returned by a factory that found no usable input.
var ErrNilEvent = errors.New("event cannot be nil")

// TrackSelfDescribing queues a self-describing event. The event name is the
// name segment of its schema and the payload is its data payload at call time.
// The caller must not mutate ev afterwards.
func (c *Client) TrackSelfDescribing(ev event.SelfDescribing) error {
	if ev == nil {
		return ErrNilEvent
	}
	if v := reflect.ValueOf(ev); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrNilEvent
	}
	if err := c.checkInitialized(); err != nil {
		return err
	}

	tracked, err := c.buildSelfDescribing(ev, time.Now())
	if err != nil {
		return err
	}
	return c.enqueue(tracked)
}

func (c *Client) buildSelfDescribing(ev event.SelfDescribing, now time.Time) (Event, error) {
	schema := ev.Schema()
	ref, err := event.ParseSchema(schema)
	if err != nil {
		return Event{}, fmt.Errorf("track %q: %w", schema, err)
	}

	tracked := Event{
		ID:       uuid.NewString(),
		Name:     ref.Name,
		Schema:   schema,
		Payload:  ev.DataPayload(),
		Metadata: c.metadataManager.Merge(nil),
		IssuedAt: now.UnixMilli(),
		Platform: serverPlatform,
	}
	if contextual, ok := ev.(event.Contextual); ok {
		tracked.Contexts = contextual.Entities()
		if ts, ok := contextual.TrueTimestamp(); ok {
			tracked.IssuedAt = ts.UnixMilli()
		}
	}
	return tracked, nil
}
