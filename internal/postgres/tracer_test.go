package postgres

import (
	"context"
	"testing"
	"time"
)

func TestWithHTTPMethod_RoundTrip(t *testing.T) {
	ctx := WithHTTPMethod(context.Background(), "POST")
	if got := httpMethodFromContext(ctx); got != "POST" {
		t.Errorf("method = %q, want %q", got, "POST")
	}
}

func TestWithHTTPMethod_Empty(t *testing.T) {
	ctx := WithHTTPMethod(context.Background(), "")
	if got := httpMethodFromContext(ctx); got != "" {
		t.Errorf("method = %q, want empty", got)
	}
}

func TestSetQueryObserver(t *testing.T) {
	defer SetQueryObserver(nil)

	var observed bool
	SetQueryObserver(QueryObserverFunc(
		func(_ context.Context, method, route, outcome string, dur time.Duration) {
			observed = true
			if method != "GET" {
				t.Errorf("method = %q, want GET", method)
			}
			if outcome != "ok" {
				t.Errorf("outcome = %q, want ok", outcome)
			}
		},
	))

	obs := getQueryObserver()
	if obs == nil {
		t.Fatal("observer not set")
	}
	obs.ObserveQuery(context.Background(), "GET", "/api/v1/results/{fingerprint}", "ok", time.Millisecond)
	if !observed {
		t.Fatal("observer not invoked")
	}

	SetQueryObserver(nil)
	if getQueryObserver() != nil {
		t.Fatal("observer still set after clearing")
	}
}
