package sentry

import (
	"net/url"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestScrubEvent_RedactsSensitiveHeaders(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Headers: map[string]string{
				"Authorization": "Bearer secret-token",
				"Cookie":        "session=abc123",
				"Content-Type":  "application/json",
			},
		},
	}

	result := ScrubEvent(event, nil)

	if result.Request.Headers["Authorization"] != "[Filtered]" {
		t.Errorf("expected Authorization to be [Filtered], got %s", result.Request.Headers["Authorization"])
	}
	if result.Request.Headers["Cookie"] != "[Filtered]" {
		t.Errorf("expected Cookie to be [Filtered], got %s", result.Request.Headers["Cookie"])
	}
	if result.Request.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected Content-Type to be preserved, got %s", result.Request.Headers["Content-Type"])
	}
}

func TestScrubEvent_StripsRequestBody(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Data: `{"username":"conductor","password":"hunter22","adminSecret":"s3cret"}`,
		},
	}

	result := ScrubEvent(event, nil)

	if result.Request.Data != "" {
		t.Errorf("expected request body to be stripped, got %s", result.Request.Data)
	}
}

func TestScrubEvent_ScrubsQueryToken(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			URL:         "http://localhost:3000/ws",
			QueryString: "token=eyJhbGciOi&debug=1",
		},
	}

	result := ScrubEvent(event, nil)

	values, err := url.ParseQuery(result.Request.QueryString)
	if err != nil {
		t.Fatalf("scrubbed query does not parse: %v", err)
	}
	if values.Get("token") != "[Filtered]" {
		t.Errorf("expected token to be [Filtered], got %s", values.Get("token"))
	}
	if values.Get("debug") != "1" {
		t.Errorf("expected debug to be preserved, got %s", values.Get("debug"))
	}
}

func TestScrubEvent_ScrubsTagsExtrasAndBreadcrumbs(t *testing.T) {
	event := &sentry.Event{
		Tags: map[string]string{
			"environment": "production",
			"adminSecret": "s3cret",
		},
		Extra: map[string]interface{}{
			"song_id":  "1",
			"password": "hunter22",
		},
		Breadcrumbs: []*sentry.Breadcrumb{
			{Data: map[string]interface{}{"url": "/api/users/login", "jwt": "eyJhbGciOi"}},
		},
	}

	result := ScrubEvent(event, nil)

	if result.Tags["environment"] != "production" {
		t.Errorf("expected environment tag to be preserved, got %s", result.Tags["environment"])
	}
	if result.Tags["adminSecret"] != "[Filtered]" {
		t.Errorf("expected adminSecret tag to be [Filtered], got %s", result.Tags["adminSecret"])
	}
	if result.Extra["song_id"] != "1" {
		t.Errorf("expected song_id extra to be preserved, got %v", result.Extra["song_id"])
	}
	if result.Extra["password"] != "[Filtered]" {
		t.Errorf("expected password extra to be [Filtered], got %v", result.Extra["password"])
	}
	if result.Breadcrumbs[0].Data["url"] != "/api/users/login" {
		t.Errorf("expected url breadcrumb to be preserved, got %v", result.Breadcrumbs[0].Data["url"])
	}
	if result.Breadcrumbs[0].Data["jwt"] != "[Filtered]" {
		t.Errorf("expected jwt breadcrumb to be [Filtered], got %v", result.Breadcrumbs[0].Data["jwt"])
	}
}

func TestScrubEvent_HandlesEmptyEvent(t *testing.T) {
	if result := ScrubEvent(&sentry.Event{}, nil); result == nil {
		t.Error("expected non-nil event")
	}
}

func TestScrubTransaction_AppliesSameScrubbing(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Headers: map[string]string{"Authorization": "Bearer token"},
			Data:    `{"password":"value"}`,
		},
	}

	result := ScrubTransaction(event, nil)

	if result.Request.Headers["Authorization"] != "[Filtered]" {
		t.Errorf("expected Authorization to be [Filtered], got %s", result.Request.Headers["Authorization"])
	}
	if result.Request.Data != "" {
		t.Errorf("expected request body to be stripped, got %s", result.Request.Data)
	}
}
