package gwallet

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	oauthjwt "golang.org/x/oauth2/jwt"
)

// flavor separates the pools of blocking and non-blocking call sites.
type flavor int

const (
	blocking flavor = iota
	nonBlocking
)

func (f flavor) String() string {
	if f == nonBlocking {
		return "non-blocking"
	}
	return "blocking"
}

// AuthenticatedClient is a pooled HTTP client bound to one credential key.
// It owns its transport exclusively.
type AuthenticatedClient struct {
	// Key is the [CredentialKey] of the credentials the client was built for.
	Key  string
	HTTP *http.Client

	transport *http.Transport
	closeOnce sync.Once
	closed    chan struct{}
}

// NewAuthenticatedClient wraps hc. If transport is non-nil it is released
// on Close.
func NewAuthenticatedClient(hc *http.Client, transport *http.Transport) *AuthenticatedClient {
	return &AuthenticatedClient{
		HTTP:      hc,
		transport: transport,
		closed:    make(chan struct{}),
	}
}

// Close releases the idle connections of the client. It is idempotent.
func (a *AuthenticatedClient) Close() {
	a.closeOnce.Do(func() {
		if a.transport != nil {
			a.transport.CloseIdleConnections()
		}
		close(a.closed)
	})
}

// Closed reports whether Close has been called.
func (a *AuthenticatedClient) Closed() bool {
	select {
	case <-a.closed:
		return true
	default:
		return false
	}
}

// ClientBuilder constructs the pooled client of creds.
type ClientBuilder func(ctx context.Context, creds *Credentials) (*AuthenticatedClient, error)

// Pool caches one [AuthenticatedClient] per credential key.
// Lookups of cached clients do not lock; construction is serialized.
type Pool struct {
	name  string
	build ClientBuilder

	mu      sync.Mutex
	clients sync.Map
}

// NewPool returns an empty pool that constructs clients with build.
func NewPool(name string, build ClientBuilder) *Pool {
	return &Pool{name: name, build: build}
}

// Get returns the cached client of creds or builds it.
// Concurrent first use builds at most one client per key.
func (p *Pool) Get(ctx context.Context, creds *Credentials) (*AuthenticatedClient, error) {
	if creds == nil {
		return nil, fmt.Errorf("%s pool: credentials: %w", p.name, ErrMissingField)
	}

	key := CredentialKey(creds)
	if v, ok := p.clients.Load(key); ok {
		return v.(*AuthenticatedClient), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.clients.Load(key); ok {
		return v.(*AuthenticatedClient), nil
	}

	ac, err := p.build(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%s pool: build client: %w", p.name, err)
	}
	ac.Key = key
	p.clients.Store(key, ac)

	return ac, nil
}

// Len returns the number of cached clients.
func (p *Pool) Len() int {
	n := 0
	p.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll closes and evicts every cached client. It is safe to call on an
// empty pool and more than once.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clients.Range(func(k, v any) bool {
		p.clients.Delete(k)
		v.(*AuthenticatedClient).Close()
		return true
	})
}

// oauthBuilder builds clients that authenticate with a service-account
// JWT-bearer assertion (RS256, kid = private_key_id, aud = token endpoint).
func oauthBuilder(scopes []string, timeout time.Duration) ClientBuilder {
	return func(ctx context.Context, creds *Credentials) (*AuthenticatedClient, error) {
		if err := creds.Validate(); err != nil {
			return nil, err
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		base := &http.Client{Transport: transport, Timeout: timeout}

		cfg := &oauthjwt.Config{
			Email:        creds.ClientEmail,
			Subject:      creds.ClientEmail,
			PrivateKey:   []byte(creds.PrivateKey),
			PrivateKeyID: creds.PrivateKeyID,
			Scopes:       scopes,
			TokenURL:     creds.tokenURL(),
			Audience:     creds.tokenURL(),
		}

		// The token source keeps this context for later refreshes, so it must
		// outlive the call that triggered construction.
		tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base)
		hc := cfg.Client(tokenCtx)
		hc.Timeout = timeout

		return NewAuthenticatedClient(hc, transport), nil
	}
}

// staticBuilder wraps a caller-supplied client. Every build gets its own
// clone of the underlying *http.Transport, so closing one pooled client
// leaves the others connected. Other round trippers are shared as is.
func staticBuilder(hc *http.Client) ClientBuilder {
	return func(context.Context, *Credentials) (*AuthenticatedClient, error) {
		client := *hc

		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		transport, ok := base.(*http.Transport)
		if !ok {
			return NewAuthenticatedClient(&client, nil), nil
		}

		transport = transport.Clone()
		client.Transport = transport
		return NewAuthenticatedClient(&client, transport), nil
	}
}
