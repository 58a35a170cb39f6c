package mediahttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

func TestDurationSource_Duration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media/vid-1/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"durationSeconds": 1830.5}`))
		case "/media/live/meta":
			_, _ = w.Write([]byte(`{"durationSeconds": null}`))
		case "/media/broken/meta":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	src := NewDurationSource(srv.URL+"/", 0)
	ctx := context.Background()

	d, err := src.Duration(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if want := 1830*time.Second + 500*time.Millisecond; d != want {
		t.Fatalf("want %v, got %v", want, d)
	}

	for _, ref := range []string{"live", "missing", ""} {
		if _, err := src.Duration(ctx, ref); !errors.Is(err, ports.ErrDurationUnavailable) {
			t.Fatalf("ref %q: expected ErrDurationUnavailable, got %v", ref, err)
		}
	}

	if _, err := src.Duration(ctx, "broken"); err == nil || errors.Is(err, ports.ErrDurationUnavailable) {
		t.Fatalf("expected transport error for 500, got %v", err)
	}
}

func TestDurationSource_NotConfigured(t *testing.T) {
	_, err := NewDurationSource("", 0).Duration(context.Background(), "vid-1")
	if !errors.Is(err, ports.ErrDurationUnavailable) || !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected unavailable + not configured, got %v", err)
	}
}

func TestDurationSource_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"durationSeconds": 60}`))
	}))
	t.Cleanup(srv.Close)

	src := NewDurationSource(srv.URL, 1)
	if _, err := src.Duration(context.Background(), "vid-1"); err != nil {
		t.Fatalf("first call uses the burst token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Duration(ctx, "vid-2"); !errors.Is(err, ports.ErrDurationUnavailable) {
		t.Fatalf("expected ErrDurationUnavailable while throttled, got %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("throttled call must not reach the host, hits=%d", n)
	}
}
