package gwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SaveAudience is the fixed audience of save-link tokens.
	SaveAudience = "google"
	// SaveType is the fixed type of save-link tokens.
	SaveType = "savetowallet"

	// recommendedTokenSize is the largest token the wallet recommends;
	// longer tokens work but may be truncated by some browsers.
	recommendedTokenSize = 1800
)

// signingMethod is the algorithm of save-link tokens.
var signingMethod = jwt.SigningMethodRS256

// Payload groups save-link items by the plural key of their resource type.
type Payload map[string][]Named

// SaveClaims are the claims of a save-link token.
type SaveClaims struct {
	Issuer    string      `json:"iss"`
	Audience  string      `json:"aud"`
	Type      string      `json:"typ"`
	IssuedAt  json.Number `json:"iat,omitempty"`
	ExpiresAt json.Number `json:"exp,omitempty"`
	Origins   []string    `json:"origins"`
	Payload   Payload     `json:"payload"`
}

// CreatePayload groups items by plural key, keeping encounter order within
// each key. Items are resource instances or [Reference] values.
func (c *Client) CreatePayload(items ...Named) (Payload, error) {
	p := Payload{}
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("payload item %d: nil: %w", i, ErrInvalidArgument)
		}
		entry, err := c.registry.LookupByName(item.ResourceName())
		if err != nil {
			return nil, fmt.Errorf("payload item %d: %w", i, err)
		}
		p[entry.Plural] = append(p[entry.Plural], item)
	}
	return p, nil
}

// CreateClaims builds the claims of a save link.
func (c *Client) CreateClaims(issuer string, origins []string, items []Named, issuedAt, expiresAt Timestamp) (*SaveClaims, error) {
	iat, err := issuedAt.normalize()
	if err != nil {
		return nil, fmt.Errorf("iat: %w", err)
	}
	exp, err := expiresAt.normalize()
	if err != nil {
		return nil, fmt.Errorf("exp: %w", err)
	}

	payload, err := c.CreatePayload(items...)
	if err != nil {
		return nil, err
	}

	return &SaveClaims{
		Issuer:    issuer,
		Audience:  SaveAudience,
		Type:      SaveType,
		IssuedAt:  json.Number(iat),
		ExpiresAt: json.Number(exp),
		Origins:   append([]string{}, origins...),
		Payload:   payload,
	}, nil
}

// SaveLink returns a link that saves items to the wallet of whoever opens
// it. The token is signed with the handle's credentials.
func (c *Client) SaveLink(ctx context.Context, items []Named, origins []string, issuedAt, expiresAt Timestamp) (string, error) {
	creds, err := c.credentials(ctx, nil)
	if err != nil {
		return "", err
	}
	key, err := creds.signingKey()
	if err != nil {
		return "", err
	}

	claims, err := c.CreateClaims(creds.ClientEmail, origins, items, issuedAt, expiresAt)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	token.Header["kid"] = creds.PrivateKeyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign save link: %w", err)
	}

	if len(signed) > recommendedTokenSize {
		c.logger.WarnContext(ctx, "save link token exceeds recommended size",
			"size", len(signed),
			"recommended", recommendedTokenSize,
		)
	}

	return c.saveURL + "/" + signed, nil
}

// GetExpirationTime implements [jwt.Claims].
func (s *SaveClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(s.ExpiresAt)
}

// GetIssuedAt implements [jwt.Claims].
func (s *SaveClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(s.IssuedAt)
}

// GetNotBefore implements [jwt.Claims].
func (s *SaveClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements [jwt.Claims].
func (s *SaveClaims) GetIssuer() (string, error) {
	return s.Issuer, nil
}

// GetSubject implements [jwt.Claims].
func (s *SaveClaims) GetSubject() (string, error) {
	return "", nil
}

// GetAudience implements [jwt.Claims].
func (s *SaveClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{s.Audience}, nil
}

func numericDate(n json.Number) (*jwt.NumericDate, error) {
	if n == "" {
		return nil, nil
	}
	secs, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return nil, err
	}
	return jwt.NewNumericDate(time.Unix(secs, 0)), nil
}
