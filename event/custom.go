package event

import "maps"

// Custom is a self-describing event for any schema the tracker has no dedicated type for.
type Custom struct {
	Enrichment

	schema string
	data   map[string]any
}

var _ SelfDescribing = (*Custom)(nil)

// NewCustom creates an event with the given schema. The data map is copied.
func NewCustom(schema string, data map[string]any) *Custom {
	return &Custom{schema: schema, data: maps.Clone(data)}
}

func (c *Custom) Schema() string {
	return c.schema
}

func (c *Custom) DataPayload() map[string]any {
	if c.data == nil {
		return map[string]any{}
	}
	return maps.Clone(c.data)
}
