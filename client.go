package gwallet

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ProductionURL is the base URL of the wallet objects API.
	ProductionURL = "https://walletobjects.googleapis.com/walletobjects/v1"
	// SaveURL is the base URL of save-to-wallet links.
	SaveURL = "https://pay.google.com/gp/v/save"
	// Scope is the OAuth 2.0 scope of the wallet objects API.
	Scope = "https://www.googleapis.com/auth/wallet_object.issuer"
	// DefaultPageSize is the page size of listings that do not set one.
	DefaultPageSize = 100

	modulePath = "thde.io/gwallet"
)

// Client holds configuration needed to call the wallet objects API.
// Use [New] to create a new client. A Client is safe for concurrent use;
// the handles returned by [Client.ForCredentials] and [Client.NonBlocking]
// share its pools.
type Client struct {
	baseURL *url.URL
	saveURL string

	registry *Registry
	source   CredentialSource
	creds    *Credentials
	scopes   []string

	timeout   time.Duration
	pageSize  int
	userAgent string
	logger    *slog.Logger
	limiter   *rate.Limiter

	httpClient *http.Client
	builder    ClientBuilder

	flavor flavor
	shared *shared
}

// shared is the state common to every handle derived from one [New] call.
type shared struct {
	pools [2]*Pool

	retryAfterMU sync.Mutex
	retryAfter   time.Time
}

// ClientOption configures a Client before use.
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL *url.URL) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithSaveURL sets a custom save-link base URL.
func WithSaveURL(saveURL string) ClientOption {
	return func(c *Client) {
		c.saveURL = strings.TrimRight(saveURL, "/")
	}
}

// WithRegistry sets the resource registry. Defaults to [DefaultRegistry].
func WithRegistry(r *Registry) ClientOption {
	return func(c *Client) {
		c.registry = r
	}
}

// WithCredentials sets the credentials used when a call carries none.
func WithCredentials(creds *Credentials) ClientOption {
	return func(c *Client) {
		c.creds = creds
	}
}

// WithCredentialSource sets where credentials are loaded from when neither
// the handle nor [WithCredentials] provides them.
func WithCredentialSource(src CredentialSource) ClientOption {
	return func(c *Client) {
		c.source = src
	}
}

// WithScopes overrides the OAuth 2.0 scopes requested for API tokens.
func WithScopes(scopes ...string) ClientOption {
	return func(c *Client) {
		c.scopes = scopes
	}
}

// WithTimeout bounds every API call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithPageSize sets the page size of listings that do not set one.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		c.pageSize = n
	}
}

// WithHTTPClient makes pooled clients use httpClient without OAuth 2.0.
// Intended for tests and for callers that authenticate in their own
// transport. An *http.Transport is cloned per pooled client; any other
// RoundTripper is shared by all of them.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientBuilder replaces the constructor of pooled clients.
func WithClientBuilder(b ClientBuilder) ClientOption {
	return func(c *Client) {
		c.builder = b
	}
}

// WithUserAgent sets a custom User-Agent header for API requests.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit limits outgoing requests of the client and its handles.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithConfig applies the values of cfg.
func WithConfig(cfg *Config) ClientOption {
	return func(c *Client) {
		if cfg.APIURL != "" {
			if u, err := url.Parse(cfg.APIURL); err == nil {
				c.baseURL = u
			}
		}
		if cfg.SaveURL != "" {
			c.saveURL = strings.TrimRight(cfg.SaveURL, "/")
		}
		if cfg.CredentialsFile != "" {
			c.source = FileCredentials(cfg.CredentialsFile)
		}
		if len(cfg.Scopes) > 0 {
			c.scopes = cfg.Scopes
		}
		if cfg.RequestTimeout > 0 {
			c.timeout = cfg.RequestTimeout
		}
		if cfg.PageSize > 0 {
			c.pageSize = cfg.PageSize
		}
	}
}

// New creates a wallet API client.
// The client defaults to the production endpoint, the default registry and
// the wallet issuer scope, and applies any provided options.
func New(opts ...ClientOption) *Client {
	productionURL, _ := url.Parse(ProductionURL)

	c := &Client{
		baseURL:  productionURL,
		saveURL:  SaveURL,
		scopes:   []string{Scope},
		timeout:  30 * time.Second,
		pageSize: DefaultPageSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	if c.userAgent == "" {
		c.userAgent = userAgent()
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "gwallet")
	}
	if c.builder == nil {
		if c.httpClient != nil {
			c.builder = staticBuilder(c.httpClient)
		} else {
			c.builder = oauthBuilder(c.scopes, c.timeout)
		}
	}

	c.shared = &shared{}
	c.shared.pools[blocking] = NewPool(blocking.String(), c.builder)
	c.shared.pools[nonBlocking] = NewPool(nonBlocking.String(), c.builder)

	return c
}

// Registry returns the registry the client resolves resources with.
func (c *Client) Registry() *Registry {
	return c.registry
}

// ForCredentials returns a handle that authenticates with creds.
func (c *Client) ForCredentials(creds *Credentials) *Client {
	h := *c
	h.creds = creds
	return &h
}

// NonBlocking returns a handle whose calls use the non-blocking pool.
func (c *Client) NonBlocking() *Client {
	h := *c
	h.flavor = nonBlocking
	return &h
}

// credentials resolves the credentials of the handle.
func (c *Client) credentials(ctx context.Context, creds *Credentials) (*Credentials, error) {
	switch {
	case creds != nil:
		return creds, nil
	case c.creds != nil:
		return c.creds, nil
	case c.source != nil:
		return c.source.Credentials(ctx)
	case c.httpClient != nil:
		// Unauthenticated clients share one anonymous pool entry.
		return &Credentials{}, nil
	}
	return nil, fmt.Errorf("no credentials configured: %w", ErrMissingField)
}

// GetClient returns the pooled blocking client of creds, or of the
// configured credentials if creds is nil.
func (c *Client) GetClient(ctx context.Context, creds *Credentials) (*AuthenticatedClient, error) {
	return c.getClient(ctx, blocking, creds)
}

// GetAsyncClient returns the pooled non-blocking client of creds, or of the
// configured credentials if creds is nil.
func (c *Client) GetAsyncClient(ctx context.Context, creds *Credentials) (*AuthenticatedClient, error) {
	return c.getClient(ctx, nonBlocking, creds)
}

func (c *Client) getClient(ctx context.Context, f flavor, creds *Credentials) (*AuthenticatedClient, error) {
	resolved, err := c.credentials(ctx, creds)
	if err != nil {
		return nil, err
	}
	return c.shared.pools[f].Get(ctx, resolved)
}

// CloseAll releases every pooled blocking client.
func (c *Client) CloseAll() {
	c.shared.pools[blocking].CloseAll()
}

// CloseAllAsync releases every pooled non-blocking client. It returns
// early with the context's error if ctx is done first.
func (c *Client) CloseAllAsync(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.shared.pools[nonBlocking].CloseAll()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Close releases the clients of both pools. Go has no exit hook, so
// programs should defer Close after [New].
func (c *Client) Close() error {
	c.CloseAll()
	return c.CloseAllAsync(context.Background())
}

// BuildURL returns {baseURL}/{urlPart}{additionalPath} for the resource name.
func (c *Client) BuildURL(name, additionalPath string) (string, error) {
	entry, err := c.registry.LookupByName(name)
	if err != nil {
		return "", err
	}
	return c.entryURL(entry, additionalPath), nil
}

func (c *Client) entryURL(entry *RegistryEntry, additionalPath string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + entry.URLPart + additionalPath
}

// version returns the module version of the gwallet package.
// It returns "devel" if built without module version information.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			if dep.Version == "(devel)" {
				return "devel"
			}

			return dep.Version
		}
	}

	if info.Main.Path == modulePath && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return "devel"
}

// userAgent returns the default User-Agent string for this package.
func userAgent() string {
	return fmt.Sprintf("go-gwallet/%s (%s; %s/%s)", version(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
