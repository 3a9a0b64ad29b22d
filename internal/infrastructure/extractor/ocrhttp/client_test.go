package ocrhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

func TestExtractTextSuccess(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/recognize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  recognized text  "}`))
	}))
	defer srv.Close()

	client := New(srv.URL, Options{RequestsPerSecond: 1000, Burst: 10})
	text, err := client.ExtractText(context.Background(), "png", []byte{0x89, 0x50})
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "recognized text" {
		t.Fatalf("text = %q", text)
	}
	if gotContentType != "image/png" {
		t.Fatalf("Content-Type = %q", gotContentType)
	}
	if len(gotBody) != 2 {
		t.Fatalf("expected raw bytes forwarded, got %d bytes", len(gotBody))
	}
}

func TestExtractTextServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL, Options{RequestsPerSecond: 1000, Burst: 10})
	_, err := client.ExtractText(context.Background(), "jpg", []byte("img"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind for 503, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected HTTPStatusError 503, got %v", err)
	}
}

func TestExtractTextClientErrorNotTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unsupported image", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := New(srv.URL, Options{RequestsPerSecond: 1000, Burst: 10})
	_, err := client.ExtractText(context.Background(), "png", []byte("img"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("422 must not be retryable, got %v", err)
	}
}

func TestExtractTextBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := New(srv.URL, Options{RequestsPerSecond: 1000, Burst: 10})
	if _, err := client.ExtractText(context.Background(), "png", []byte("img")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"png":  "image/png",
		"JPG":  "image/jpeg",
		"jpeg": "image/jpeg",
		"bin":  "application/octet-stream",
	}
	for in, want := range cases {
		if got := contentTypeFor(in); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}
