package downloader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/thumb.jpg":
			_, _ = w.Write([]byte("0123456789"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		path     string
		maxBytes int64
		expected string
		wantErr  bool
	}{
		{"full body", "/thumb.jpg", 0, "0123456789", false},
		{"limited body", "/thumb.jpg", 4, "0123", false},
		{"not found", "/missing.jpg", 0, "", true},
	}

	for _, test := range tests {
		f := NewHTTPFetcher(5*time.Second, test.maxBytes)
		body, err := f.Download(context.Background(), srv.URL+test.path)
		if test.wantErr {
			if err == nil {
				body.Close()
				t.Errorf("%s: Download() expected error", test.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: Download() error = %v", test.name, err)
			continue
		}
		data, err := io.ReadAll(body)
		body.Close()
		if err != nil || string(data) != test.expected {
			t.Errorf("%s: body = %q, %v, expected %q", test.name, data, err, test.expected)
		}
	}
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHTTPFetcher(time.Second, 0).Download(ctx, srv.URL); err == nil {
		t.Error("Download() expected an error for a cancelled context")
	}
}
