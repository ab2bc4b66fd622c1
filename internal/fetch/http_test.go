package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/encoding/japanese"
)

var _ Fetcher = (*HTTPFetcher)(nil)

// TestHTTPFetcherFetchLinks tests page retrieval and link extraction.
func TestHTTPFetcherFetchLinks(t *testing.T) {
	t.Parallel()

	t.Run("extracts anchor hrefs", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><body>
				<a href="/product/abc-123">Product</a>
				<a href="https://shop.example.com/sale">Sale</a>
				<a href="relative/page">Relative</a>
				<area href="/map-link">
				<a href="javascript:void(0)">JS</a>
				<a href="mailto:shop@example.com">Mail</a>
				<a href="tel:+123456">Call</a>
				<a href="#">Top</a>
				<a>No href</a>
			</body></html>`))
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		links, err := f.FetchLinks(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"/product/abc-123", "https://shop.example.com/sale", "relative/page", "/map-link"}
		if len(links) != len(want) {
			t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
		}
		for i, link := range links {
			if link != want[i] {
				t.Errorf("link %d: expected %q, got %q", i, want[i], link)
			}
		}
	})

	t.Run("sends configured headers", func(t *testing.T) {
		t.Parallel()

		var gotAgent, gotKey, gotCookie string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAgent = r.Header.Get("User-Agent")
			gotKey = r.Header.Get("X-Api-Key")
			gotCookie = r.Header.Get("Cookie")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body></body></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{
			UserAgent: "custom-agent/2.0",
			Headers:   map[string]string{"X-Api-Key": "secret"},
			Cookie:    "session=abc123",
		})
		defer f.Close() //nolint:errcheck

		if _, err := f.FetchLinks(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotAgent != "custom-agent/2.0" {
			t.Errorf("expected custom user agent, got %q", gotAgent)
		}
		if gotKey != "secret" {
			t.Errorf("expected extra header to be sent, got %q", gotKey)
		}
		if gotCookie != "session=abc123" {
			t.Errorf("expected cookie header, got %q", gotCookie)
		}
	})

	t.Run("classifies 403 as blocked", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		_, err := f.FetchLinks(context.Background(), server.URL)
		if KindOf(err) != KindBlocked {
			t.Errorf("expected KindBlocked, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("classifies 429 as blocked", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		_, err := f.FetchLinks(context.Background(), server.URL)
		if KindOf(err) != KindBlocked {
			t.Errorf("expected KindBlocked, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("classifies other error statuses as network", func(t *testing.T) {
		t.Parallel()

		for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))

			f := NewHTTPFetcher(Config{})
			_, err := f.FetchLinks(context.Background(), server.URL)
			if KindOf(err) != KindNetwork {
				t.Errorf("status %d: expected KindNetwork, got %v (%v)", status, KindOf(err), err)
			}

			_ = f.Close() //nolint:errcheck
			server.Close()
		}
	})

	t.Run("classifies slow responses as timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`<html></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{Timeout: 50 * time.Millisecond})
		defer f.Close() //nolint:errcheck

		_, err := f.FetchLinks(context.Background(), server.URL)
		if KindOf(err) != KindTimeout {
			t.Errorf("expected KindTimeout, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("classifies unreachable hosts as network", func(t *testing.T) {
		t.Parallel()

		// A closed port on localhost refuses the connection immediately.
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		f := NewHTTPFetcher(Config{Timeout: 2 * time.Second})
		defer f.Close() //nolint:errcheck

		_, err := f.FetchLinks(context.Background(), url)
		if KindOf(err) != KindNetwork {
			t.Errorf("expected KindNetwork, got %v (%v)", KindOf(err), err)
		}
	})

	t.Run("decodes gzip bodies", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(`<html><body><a href="/product/gz">gz</a></body></html>`)) //nolint:errcheck
		_ = gz.Close()                                                                     //nolint:errcheck

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(buf.Bytes()) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		links, err := f.FetchLinks(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links) != 1 || links[0] != "/product/gz" {
			t.Errorf("expected the gzip page link, got %v", links)
		}
	})

	t.Run("decodes brotli bodies", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		br := brotli.NewWriter(&buf)
		_, _ = br.Write([]byte(`<html><body><a href="/product/br">br</a></body></html>`)) //nolint:errcheck
		_ = br.Close()                                                                    //nolint:errcheck

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(buf.Bytes()) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		links, err := f.FetchLinks(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links) != 1 || links[0] != "/product/br" {
			t.Errorf("expected the brotli page link, got %v", links)
		}
	})

	t.Run("converts legacy charsets to UTF-8", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><a href="/製品/1">製品ページ</a></body></html>`
		sjis, err := japanese.ShiftJIS.NewEncoder().String(page)
		if err != nil {
			t.Fatalf("failed to encode fixture: %v", err)
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=shift_jis")
			_, _ = w.Write([]byte(sjis)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		links, err := f.FetchLinks(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links) != 1 || links[0] != "/製品/1" {
			t.Errorf("expected the decoded href, got %v", links)
		}
	})

	t.Run("truncates oversized bodies", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><a href="/early">early</a>` +
			strings.Repeat("x", 4096) +
			`<a href="/late">late</a></body></html>`

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(page)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{MaxBodyBytes: 256})
		defer f.Close() //nolint:errcheck

		links, err := f.FetchLinks(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 1 || links[0] != "/early" {
			t.Errorf("expected only the early link to survive truncation, got %v", links)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`<html></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{})
		defer f.Close() //nolint:errcheck

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := f.FetchLinks(ctx, server.URL)
		if err == nil {
			t.Fatal("expected an error after cancellation")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected wrapped context.Canceled, got %v", err)
		}
	})

	t.Run("rate limiter paces fetches", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><a href="/a">a</a></body></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(Config{RequestsPerSecond: 50})
		defer f.Close() //nolint:errcheck

		start := time.Now()
		for i := 0; i < 3; i++ {
			if _, err := f.FetchLinks(context.Background(), server.URL); err != nil {
				t.Fatalf("fetch %d: unexpected error: %v", i, err)
			}
		}

		// Three fetches at 50 rps spend at least two limiter slots.
		if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
			t.Errorf("expected the limiter to pace fetches, finished in %v", elapsed)
		}
	})
}

// TestHTTPFetcherClient verifies the underlying client is exposed for reuse.
func TestHTTPFetcherClient(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(Config{Timeout: 7 * time.Second})
	defer f.Close() //nolint:errcheck

	if f.Client() == nil {
		t.Fatal("expected a non-nil client")
	}
	if f.Client().Timeout != 7*time.Second {
		t.Errorf("expected client timeout 7s, got %v", f.Client().Timeout)
	}
}
