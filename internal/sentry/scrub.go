// Package sentry scrubs credentials out of Sentry events before they leave the process.
package sentry

import (
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
)

const filtered = "[Filtered]"

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
}

// sensitiveKeys may appear in tags, breadcrumb data, extras and query strings.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"passwordhash":  true,
	"token":         true,
	"secret":        true,
	"adminsecret":   true,
	"jwt":           true,
	"authorization": true,
	"cookie":        true,
}

func isSensitive(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// ScrubEvent redacts sensitive headers and query parameters, strips request
// bodies, and filters sensitive tags, extras and breadcrumb data.
func ScrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for header := range event.Request.Headers {
			if sensitiveHeaders[strings.ToLower(header)] {
				event.Request.Headers[header] = filtered
			}
		}
		// Registration and login bodies carry passwords and the admin secret.
		event.Request.Data = ""
		event.Request.QueryString = scrubQuery(event.Request.QueryString)
		event.Request.Cookies = ""
	}

	for key := range event.Tags {
		if isSensitive(key) {
			event.Tags[key] = filtered
		}
	}
	for key := range event.Extra {
		if isSensitive(key) {
			event.Extra[key] = filtered
		}
	}
	for _, b := range event.Breadcrumbs {
		for key := range b.Data {
			if isSensitive(key) {
				b.Data[key] = filtered
			}
		}
	}

	return event
}

// ScrubTransaction applies the same scrubbing logic to transaction events.
func ScrubTransaction(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	return ScrubEvent(event, hint)
}

// scrubQuery filters sensitive parameters; /ws carries its bearer token as ?token=.
func scrubQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return filtered
	}
	for key := range values {
		if isSensitive(key) {
			values[key] = []string{filtered}
		}
	}
	return values.Encode()
}
