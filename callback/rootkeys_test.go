package callback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"thde.io/gwallet"
)

func TestHTTPRootKeys_CachedPerEnvironment(t *testing.T) {
	f := newFixture(t)
	keys := f.rootKeys(t)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		// Expirations are published as strings.
		_, _ = w.Write([]byte(`{"keys":[{"keyValue":"` + keys[0].KeyValue +
			`","protocolVersion":"ECv2SigningOnly","keyExpiration":"32503680000000"}]}`))
	}))
	defer server.Close()

	src := NewHTTPRootKeys(server.Client())
	src.SetURL(gwallet.EnvironmentProduction, server.URL)
	src.SetURL(gwallet.EnvironmentTesting, server.URL)

	for range 3 {
		got, err := src.RootKeys(context.Background(), gwallet.EnvironmentProduction)
		if err != nil {
			t.Fatalf("RootKeys() error = %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("RootKeys() returned %d keys, want 1", len(got))
		}
		if got[0].KeyValue != keys[0].KeyValue {
			t.Errorf("KeyValue = %q, want %q", got[0].KeyValue, keys[0].KeyValue)
		}
		if got[0].KeyExpiration != 32503680000000 {
			t.Errorf("KeyExpiration = %d, want 32503680000000", got[0].KeyExpiration)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}

	if _, err := src.RootKeys(context.Background(), gwallet.EnvironmentTesting); err != nil {
		t.Fatalf("RootKeys(testing) error = %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times, want 2: each environment has its own cache entry", n)
	}

	src.Clear()

	if _, err := src.RootKeys(context.Background(), gwallet.EnvironmentProduction); err != nil {
		t.Fatalf("RootKeys() after Clear error = %v", err)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hit %d times, want 3: Clear forces a refetch", n)
	}
}

func TestHTTPRootKeys_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: gwallet.ErrStatus},
		{name: "empty key set", status: http.StatusOK, body: `{"keys":[]}`},
		{name: "invalid json", status: http.StatusOK, body: `{"keys":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			src := NewHTTPRootKeys(server.Client())
			src.SetURL(gwallet.EnvironmentProduction, server.URL)

			_, err := src.RootKeys(context.Background(), gwallet.EnvironmentProduction)
			if err == nil {
				t.Fatal("RootKeys() error = nil, want an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("RootKeys() error = %v, want %v", err, tt.wantErr)
			}

			// Failures are not cached.
			if _, err := src.RootKeys(context.Background(), gwallet.EnvironmentProduction); err == nil {
				t.Error("second RootKeys() error = nil, want an error")
			}
			if n := hits.Load(); n != 2 {
				t.Errorf("server hit %d times, want 2", n)
			}
		})
	}
}

func TestHTTPRootKeys_CancelledCallerDoesNotAbortFetch(t *testing.T) {
	keys := newFixture(t).rootKeys(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write([]byte(`{"keys":[{"keyValue":"` + keys[0].KeyValue + `","protocolVersion":"ECv2SigningOnly"}]}`))
	}))
	defer server.Close()

	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	src := NewHTTPRootKeys(server.Client())
	src.SetURL(gwallet.EnvironmentProduction, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := src.RootKeys(ctx, gwallet.EnvironmentProduction)
		errc <- err
	}()

	<-started
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("RootKeys() with cancelled context error = %v, want %v", err, context.Canceled)
	}

	unblock()

	// The shared fetch keeps going and fills the cache.
	deadline := time.Now().Add(time.Second)
	for {
		src.mu.RLock()
		_, cached := src.cache[gwallet.EnvironmentProduction]
		src.mu.RUnlock()
		if cached {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("keys were not cached after the first caller cancelled")
		}
		time.Sleep(10 * time.Millisecond)
	}

	got, err := src.RootKeys(context.Background(), gwallet.EnvironmentProduction)
	if err != nil {
		t.Fatalf("RootKeys() error = %v", err)
	}
	if len(got) != 1 || got[0].KeyValue != keys[0].KeyValue {
		t.Errorf("RootKeys() = %v, want %v", got, keys)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestHTTPRootKeys_UnknownEnvironment(t *testing.T) {
	_, err := NewHTTPRootKeys(nil).RootKeys(context.Background(), "staging")
	if err == nil || !strings.Contains(err.Error(), "unknown environment") {
		t.Errorf("RootKeys(staging) error = %v, want unknown environment", err)
	}
}

func TestHTTPRootKeys_DefaultURLs(t *testing.T) {
	src := NewHTTPRootKeys(nil)

	if got := src.urls[gwallet.EnvironmentProduction]; got != ProductionKeysURL {
		t.Errorf("production URL = %q, want %q", got, ProductionKeysURL)
	}
	if got := src.urls[gwallet.EnvironmentTesting]; got != TestingKeysURL {
		t.Errorf("testing URL = %q, want %q", got, TestingKeysURL)
	}
}
