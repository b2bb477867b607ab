package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"thde.io/gwallet"
)

// Root key endpoints per environment.
const (
	ProductionKeysURL = "https://pay.google.com/gp/m/issuer/keys"
	TestingKeysURL    = "https://payments.developers.google.com/paymentmethodtoken/test/keys.json"
)

// fetchTimeout bounds one root key download.
const fetchTimeout = 10 * time.Second

// RootKey is a published root signing public key.
type RootKey struct {
	// KeyValue is a base64 DER-encoded public key.
	KeyValue        string `json:"keyValue"`
	ProtocolVersion string `json:"protocolVersion"`
	KeyExpiration   Millis `json:"keyExpiration,omitempty"`
}

// RootKeySource returns the root keys of an environment.
type RootKeySource interface {
	RootKeys(ctx context.Context, environment string) ([]RootKey, error)
}

// HTTPRootKeys fetches root keys over HTTP and caches them per environment
// for the life of the process. Concurrent misses share one fetch.
type HTTPRootKeys struct {
	client *http.Client
	urls   map[string]string

	mu    sync.RWMutex
	cache map[string][]RootKey
	group singleflight.Group
}

// NewHTTPRootKeys returns a source using the published endpoints.
// A nil client uses a client bounded by the fetch timeout.
func NewHTTPRootKeys(client *http.Client) *HTTPRootKeys {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &HTTPRootKeys{
		client: client,
		urls: map[string]string{
			gwallet.EnvironmentProduction: ProductionKeysURL,
			gwallet.EnvironmentTesting:    TestingKeysURL,
		},
		cache: map[string][]RootKey{},
	}
}

// SetURL overrides the endpoint of environment and drops its cached keys.
func (h *HTTPRootKeys) SetURL(environment, url string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.urls[environment] = url
	delete(h.cache, environment)
}

// RootKeys implements [RootKeySource].
func (h *HTTPRootKeys) RootKeys(ctx context.Context, environment string) ([]RootKey, error) {
	h.mu.RLock()
	keys, ok := h.cache[environment]
	url := h.urls[environment]
	h.mu.RUnlock()

	if ok {
		return keys, nil
	}
	if url == "" {
		return nil, fmt.Errorf("root keys: unknown environment %q", environment)
	}

	ch := h.group.DoChan(environment, func() (any, error) {
		// Shared by every waiting caller, so no single caller may cancel it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		keys, err := h.fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		h.cache[environment] = keys
		h.mu.Unlock()

		return keys, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]RootKey), nil
	}
}

// Clear drops every cached key set.
func (h *HTTPRootKeys) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.cache)
}

func (h *HTTPRootKeys) fetch(ctx context.Context, url string) ([]RootKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("root keys: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("root keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("root keys: %s: %d, %w", http.StatusText(resp.StatusCode), resp.StatusCode, gwallet.ErrStatus)
	}

	var body struct {
		Keys []RootKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("root keys: decode: %w", err)
	}
	if len(body.Keys) == 0 {
		return nil, errors.New("root keys: empty key set")
	}

	return body.Keys, nil
}
