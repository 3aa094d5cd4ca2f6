package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	content := "PK\x03\x04 fake apk"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "https://mirror.example/app" {
			t.Errorf("Referer = %q", got)
		}
		w.Header().Set("Content-Type", "application/vnd.android.package-archive")
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	ctx := WithReferer(context.Background(), "https://mirror.example/app")
	artifact, err := NewFetcher().Fetch(ctx, server.URL+"/app.apk")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer func() { _ = artifact.Body.Close() }()

	if artifact.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", artifact.Size, len(content))
	}
	if artifact.ContentType != "application/vnd.android.package-archive" {
		t.Errorf("ContentType = %q", artifact.ContentType)
	}
	body, err := io.ReadAll(artifact.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(body) != content {
		t.Errorf("body = %q, want %q", string(body), content)
	}
}

func TestFetchWithoutReferer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "" {
			t.Errorf("Referer = %q, want none", got)
		}
		_, _ = w.Write([]byte("apk"))
	}))
	defer server.Close()

	ctx := WithReferer(context.Background(), "")
	artifact, err := NewFetcher().Fetch(ctx, server.URL+"/app.apk")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	_ = artifact.Body.Close()
}

func TestFetchFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/app.apk", http.StatusFound)
	})
	mux.HandleFunc("/files/app.apk", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("apk"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := NewFetcher().Fetch(context.Background(), server.URL+"/dl")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer func() { _ = artifact.Body.Close() }()

	if want := server.URL + "/files/app.apk"; artifact.FinalURL != want {
		t.Errorf("FinalURL = %q, want %q", artifact.FinalURL, want)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher().Fetch(context.Background(), server.URL+"/missing.apk")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch = %v, want ErrNotFound", err)
	}
}

func TestFetchRateLimitRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(10 * time.Millisecond))
	artifact, err := f.Fetch(context.Background(), server.URL+"/app.apk")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	_ = artifact.Body.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestFetchUpstreamDownExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(WithMaxRetries(2), WithBaseDelay(time.Millisecond))
	_, err := f.Fetch(context.Background(), server.URL+"/app.apk")
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("Fetch = %v, want ErrUpstreamDown", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestFetchContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(WithBaseDelay(time.Second))
	if _, err := f.Fetch(ctx, server.URL+"/app.apk"); err == nil {
		t.Error("Fetch with cancelled context = nil error")
	}
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Length", "4096")
		w.Header().Set("Content-Type", "application/octet-stream")
	}))
	defer server.Close()

	size, ct, err := NewFetcher().Head(context.Background(), server.URL+"/app.apk")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if size != 4096 || ct != "application/octet-stream" {
		t.Errorf("Head = %d, %q", size, ct)
	}
}
