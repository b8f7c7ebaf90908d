package imgcache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testFetcher() *Fetcher {
	return NewFetcher(5*time.Second, 1500, 2000000)
}

func imageServer(t *testing.T, size int, contentType string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(bytes.Repeat([]byte{0xAB}, size))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSizePolicy(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		rejected bool
	}{
		{"tracking pixel", 1000, true},
		{"normal image", 50000, false},
		{"oversized", 3000000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := imageServer(t, tt.size, "image/png")
			body, _, err := testFetcher().Fetch(context.Background(), srv.URL)

			if tt.rejected {
				var sizeErr *SizeError
				if !errors.As(err, &sizeErr) {
					t.Fatalf("expected SizeError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(body) != tt.size {
				t.Errorf("body truncated: got %d bytes, want %d", len(body), tt.size)
			}
		})
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, _, err := testFetcher().Fetch(context.Background(), srv.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.Code)
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, _, err := testFetcher().Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected network error")
	}
	var sizeErr *SizeError
	var statusErr *StatusError
	if errors.As(err, &sizeErr) || errors.As(err, &statusErr) {
		t.Errorf("network failure mistyped: %v", err)
	}
}

func TestFetchSendsSpoofedHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write(bytes.Repeat([]byte{1}, 2000))
	}))
	defer srv.Close()

	if _, _, err := testFetcher().Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != acceptHeader {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestFetchReturnsContentType(t *testing.T) {
	srv := imageServer(t, 2000, "image/webp")
	_, ct, err := testFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ct != "image/webp" {
		t.Errorf("content type = %q", ct)
	}
}
