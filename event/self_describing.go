// Package event defines self-describing events: payloads paired with the iglu
// schema they conform to, ready to be handed to a tracker for delivery.
package event

import (
	"maps"
	"time"
)

// UnstructEventSchema wraps a self-describing event on the wire.
const UnstructEventSchema = "iglu:com.snowplowanalytics.snowplow/unstruct_event/jsonschema/1-0-0"

// SelfDescribing is implemented by every event variant the tracker accepts.
// The delivery pipeline only ever reads events through this interface.
type SelfDescribing interface {
	// Schema returns the fixed iglu URI of the variant.
	Schema() string
	// DataPayload returns a new map built from the event's current fields.
	DataPayload() map[string]any
}

// Contextual is implemented by events that carry entities or a true timestamp
// attached by the caller before tracking.
type Contextual interface {
	Entities() []SelfDescribingJSON
	TrueTimestamp() (time.Time, bool)
}

// SelfDescribingJSON is the {schema, data} pair used for events and entities on the wire.
type SelfDescribingJSON struct {
	Schema string `json:"schema"`
	Data   any    `json:"data"`
}

// Envelope wraps the event payload together with its schema.
func Envelope(ev SelfDescribing) SelfDescribingJSON {
	return SelfDescribingJSON{Schema: ev.Schema(), Data: ev.DataPayload()}
}

// UnstructEvent wraps the envelope of ev in the unstruct_event schema.
func UnstructEvent(ev SelfDescribing) SelfDescribingJSON {
	return SelfDescribingJSON{Schema: UnstructEventSchema, Data: Envelope(ev)}
}

// Enrichment holds the context attached to an event from outside its own fields.
// Embed it in a variant to satisfy Contextual.
type Enrichment struct {
	entities      []SelfDescribingJSON
	trueTimestamp *time.Time
}

// AddEntity attaches a context entity. The data map is copied.
func (e *Enrichment) AddEntity(schema string, data map[string]any) {
	e.entities = append(e.entities, SelfDescribingJSON{Schema: schema, Data: maps.Clone(data)})
}

// Entities returns a copy of the attached entities.
func (e *Enrichment) Entities() []SelfDescribingJSON {
	if len(e.entities) == 0 {
		return nil
	}
	out := make([]SelfDescribingJSON, len(e.entities))
	copy(out, e.entities)
	return out
}

// SetTrueTimestamp records when the event actually happened, as opposed to when it was tracked.
func (e *Enrichment) SetTrueTimestamp(t time.Time) {
	e.trueTimestamp = &t
}

func (e *Enrichment) TrueTimestamp() (time.Time, bool) {
	if e.trueTimestamp == nil {
		return time.Time{}, false
	}
	return *e.trueTimestamp, true
}
