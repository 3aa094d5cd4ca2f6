package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCircuitBreakerFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("apk body"))
	}))
	defer server.Close()

	cbf := NewCircuitBreakerFetcher(NewFetcher(), 0)
	artifact, err := cbf.Fetch(context.Background(), server.URL+"/app.apk")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer func() { _ = artifact.Body.Close() }()

	body, _ := io.ReadAll(artifact.Body)
	if string(body) != "apk body" {
		t.Errorf("body = %q", string(body))
	}

	for host, state := range cbf.States() {
		if state != "closed" {
			t.Errorf("breaker for %s = %s, want closed", host, state)
		}
	}
}

func TestCircuitBreakerNotFoundDoesNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cbf := NewCircuitBreakerFetcher(NewFetcher(WithMaxRetries(0)), 2)
	for i := 0; i < 5; i++ {
		if _, err := cbf.Fetch(context.Background(), server.URL+"/gone.apk"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Fetch = %v, want ErrNotFound", err)
		}
	}
	for _, state := range cbf.States() {
		if state != "closed" {
			t.Errorf("breaker = %s after 404s, want closed", state)
		}
	}
}

func TestCircuitBreakerOpensOnFailures(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cbf := NewCircuitBreakerFetcher(NewFetcher(WithMaxRetries(0), WithBaseDelay(0)), 3)
	for i := 0; i < 10; i++ {
		_, _ = cbf.Fetch(context.Background(), server.URL+"/app.apk")
	}

	open := false
	for _, state := range cbf.States() {
		if state == "open" {
			open = true
		}
	}
	if !open {
		t.Error("breaker still closed after repeated failures")
	}
	if hits >= 10 {
		t.Errorf("host hit %d times, breaker never short-circuited", hits)
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://dl.apkmirror.example/wp-content/app.apk", "dl.apkmirror.example"},
		{"https://example.com:8080/path", "example.com:8080"},
		{"not-a-url", "not-a-url"},
	}
	for _, tt := range tests {
		if got := hostOf(tt.url); got != tt.want {
			t.Errorf("hostOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
