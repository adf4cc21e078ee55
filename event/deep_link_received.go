package event

// DeepLinkReceivedSchema is the registered schema of DeepLinkReceived.
const DeepLinkReceivedSchema = "iglu:com.snowplowanalytics.mobile/deep_link_received/jsonschema/1-0-0"

// Payload keys of DeepLinkReceived.
const (
	ParamURL      = "url"
	ParamReferrer = "referrer"
)

// DeepLinkReceived is tracked when the app is opened through a deep link.
//
// The url is fixed at construction. The referrer stays absent until set with
// WithReferrer. An instance must not be mutated once handed to a tracker.
type DeepLinkReceived struct {
	Enrichment

	url      string
	referrer *string
}

var (
	_ SelfDescribing = (*DeepLinkReceived)(nil)
	_ Contextual     = (*DeepLinkReceived)(nil)
)

// NewDeepLinkReceived creates the event for the URL found in the deep link.
// The URL is not checked for emptiness.
func NewDeepLinkReceived(url string) *DeepLinkReceived {
	return &DeepLinkReceived{url: url}
}

// WithReferrer sets the URL that sent the user to the deep link. A nil
// referrer makes it absent again. It returns the receiver for chaining.
func (d *DeepLinkReceived) WithReferrer(referrer *string) *DeepLinkReceived {
	if referrer == nil {
		d.referrer = nil
		return d
	}
	r := *referrer
	d.referrer = &r
	return d
}

// URL returns the URL in the received deep link.
func (d *DeepLinkReceived) URL() string {
	return d.url
}

// Referrer returns the referrer URL and whether it is set.
func (d *DeepLinkReceived) Referrer() (string, bool) {
	if d.referrer == nil {
		return "", false
	}
	return *d.referrer, true
}

func (d *DeepLinkReceived) Schema() string {
	return DeepLinkReceivedSchema
}

func (d *DeepLinkReceived) DataPayload() map[string]any {
	payload := map[string]any{ParamURL: d.url}
	if d.referrer != nil {
		payload[ParamReferrer] = *d.referrer
	}
	return payload
}
