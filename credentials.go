package gwallet

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenURL is the OAuth 2.0 token endpoint of service accounts.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

// Credentials are the fields of a service-account key file the client uses.
type Credentials struct {
	Type         string `json:"type,omitempty"`
	ProjectID    string `json:"project_id,omitempty"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id,omitempty"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// ParseCredentials decodes and validates a service-account key file.
func ParseCredentials(data []byte) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Validate checks that the principal, key id and private key are present
// and that the key parses.
func (c *Credentials) Validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("credentials: %w", ErrMissingField)
	case c.ClientEmail == "":
		return fmt.Errorf("credentials client_email: %w", ErrMissingField)
	case c.PrivateKeyID == "":
		return fmt.Errorf("credentials private_key_id: %w", ErrMissingField)
	case c.PrivateKey == "":
		return fmt.Errorf("credentials private_key: %w", ErrMissingField)
	}
	if _, err := c.signingKey(); err != nil {
		return err
	}
	return nil
}

// tokenURL returns the token endpoint, falling back to [DefaultTokenURL].
func (c *Credentials) tokenURL() string {
	if c.TokenURI != "" {
		return c.TokenURI
	}
	return DefaultTokenURL
}

func (c *Credentials) signingKey() (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("credentials private_key: %w", err)
	}
	return key, nil
}

// CredentialKey derives the pool cache key of c from its principal and key
// id, so a rotated key maps to a different key.
func CredentialKey(c *Credentials) string {
	sum := sha256.Sum256([]byte(c.ClientEmail + "\x00" + c.PrivateKeyID))
	return hex.EncodeToString(sum[:])
}

// StripPEM removes PEM armor lines and whitespace from key, leaving the
// concatenated base64 body.
func StripPEM(key string) string {
	var b strings.Builder
	for line := range strings.Lines(key) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		b.WriteString(strings.Join(strings.Fields(line), ""))
	}
	return b.String()
}

// CredentialSource supplies credentials when a call does not carry its own.
type CredentialSource interface {
	Credentials(ctx context.Context) (*Credentials, error)
}

// StaticCredentials always returns the wrapped credentials.
type StaticCredentials struct {
	Creds *Credentials
}

// Credentials implements [CredentialSource].
func (s StaticCredentials) Credentials(context.Context) (*Credentials, error) {
	if s.Creds == nil {
		return nil, fmt.Errorf("static credentials: %w", ErrMissingField)
	}
	return s.Creds, nil
}

// FileCredentials reads a service-account key file on every call, so a
// replaced file with a rotated key is picked up.
type FileCredentials string

// Credentials implements [CredentialSource].
func (f FileCredentials) Credentials(context.Context) (*Credentials, error) {
	if f == "" {
		return nil, fmt.Errorf("credentials file: %w", ErrMissingField)
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return ParseCredentials(data)
}
