package event

import (
	"net/url"
	"reflect"
)

// ExtraReferrer is the extras key under which the launching app stores its referrer URI.
const ExtraReferrer = "android.intent.extra.REFERRER"

// Intent is the navigation intent that opened the app.
type Intent interface {
	// Data returns the target URI, or nil when the intent has none.
	Data() *url.URL
	// Extras returns the auxiliary data, or nil when the intent has none.
	Extras() Bundle
}

// Bundle is a read-only view over the auxiliary data of an intent.
type Bundle interface {
	Get(key string) (any, bool)
}

// ReferrerDetails is the record returned by the install referrer service.
type ReferrerDetails interface {
	// InstallReferrer returns the referrer URL and whether it is present.
	InstallReferrer() (string, bool)
}

// MapBundle is a Bundle backed by a map.
type MapBundle map[string]any

func (b MapBundle) Get(key string) (any, bool) {
	v, ok := b[key]
	return v, ok
}

// NavigationIntent is a plain Intent implementation.
type NavigationIntent struct {
	URI       *url.URL
	ExtraData MapBundle
}

func (i *NavigationIntent) Data() *url.URL {
	return i.URI
}

func (i *NavigationIntent) Extras() Bundle {
	if i.ExtraData == nil {
		return nil
	}
	return i.ExtraData
}

// InstallReferrerRecord is a plain ReferrerDetails implementation.
type InstallReferrerRecord struct {
	Referrer *string
}

func (r *InstallReferrerRecord) InstallReferrer() (string, bool) {
	if r.Referrer == nil {
		return "", false
	}
	return *r.Referrer, true
}

// DeepLinkFromIntent builds a DeepLinkReceived from the intent that opened the
// app. It returns nil when there is no intent or the intent has no target URI.
// The referrer is taken from ExtraReferrer only when that value is a URI.
func DeepLinkFromIntent(intent Intent) *DeepLinkReceived {
	if isNil(intent) {
		return nil
	}
	uri := intent.Data()
	if uri == nil {
		return nil
	}

	ev := NewDeepLinkReceived(uri.String())
	if extras := intent.Extras(); !isNil(extras) {
		if referrer, ok := referrerURI(extras); ok {
			ev.WithReferrer(&referrer)
		}
	}
	return ev
}

// DeepLinkFromReferrerDetails builds a DeepLinkReceived whose URL is the install
// referrer. It returns nil when there are no details or no referrer.
func DeepLinkFromReferrerDetails(details ReferrerDetails) *DeepLinkReceived {
	if isNil(details) {
		return nil
	}
	referrer, ok := details.InstallReferrer()
	if !ok {
		return nil
	}
	return NewDeepLinkReceived(referrer)
}

func referrerURI(extras Bundle) (string, bool) {
	v, ok := extras.Get(ExtraReferrer)
	if !ok {
		return "", false
	}
	switch u := v.(type) {
	case *url.URL:
		if u == nil {
			return "", false
		}
		return u.String(), true
	case url.URL:
		return u.String(), true
	default:
		return "", false
	}
}

// isNil reports whether v is nil or an interface holding a nil pointer or map.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
