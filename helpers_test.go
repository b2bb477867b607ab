package gwallet

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyPEM  string
)

// generateTestKey returns an RSA key shared by the tests of the package.
func generateTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			panic(err)
		}
		testKey = key
		testKeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	})

	return testKey, testKeyPEM
}

// testCredentials returns valid service-account credentials with keyID.
func testCredentials(t *testing.T, keyID string) *Credentials {
	t.Helper()

	_, keyPEM := generateTestKey(t)
	return &Credentials{
		Type:         "service_account",
		ProjectID:    "test-project",
		PrivateKeyID: keyID,
		PrivateKey:   keyPEM,
		ClientEmail:  "wallet@test-project.iam.gserviceaccount.com",
	}
}

// newTestClient returns a client talking to a test server running h.
func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	opts = append([]ClientOption{
		WithHTTPClient(server.Client()),
		WithBaseURL(mustParseURL(server.URL)),
	}, opts...)

	c := New(opts...)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func apiError(code int, status, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"status":  status,
		},
	}
}

func mustParseURL(urlStr string) *url.URL {
	u, err := url.Parse(urlStr)
	if err != nil {
		panic(err)
	}
	return u
}
