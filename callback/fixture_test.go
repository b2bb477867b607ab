package callback

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

const testIssuerID = "3388000000012345678"

// fixture signs envelopes the way the wallet does.
type fixture struct {
	root         *ecdsa.PrivateKey
	intermediate *ecdsa.PrivateKey
	sender       string
	recipient    string
	keyExpiry    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{
		root:         generateKey(t),
		intermediate: generateKey(t),
		sender:       DefaultSenderID,
		recipient:    testIssuerID,
		keyExpiry:    time.Now().Add(time.Hour),
	}
}

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func encodePublicKey(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func sign(t *testing.T, key *ecdsa.PrivateKey, data []byte) string {
	t.Helper()

	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return base64.StdEncoding.EncodeToString(sig)
}

func (f *fixture) rootKeys(t *testing.T) []RootKey {
	t.Helper()

	return []RootKey{{
		KeyValue:        encodePublicKey(t, f.root),
		ProtocolVersion: ProtocolECv2SigningOnly,
		KeyExpiration:   Millis(time.Now().Add(24 * time.Hour).UnixMilli()),
	}}
}

func (f *fixture) envelope(t *testing.T, msg Message) Envelope {
	t.Helper()

	signedKey, err := json.Marshal(map[string]string{
		"keyValue":      encodePublicKey(t, f.intermediate),
		"keyExpiration": strconv.FormatInt(f.keyExpiry.UnixMilli(), 10),
	})
	if err != nil {
		t.Fatalf("failed to marshal signed key: %v", err)
	}

	signedMessage, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}

	return Envelope{
		Signature: sign(t, f.intermediate,
			lengthValue(f.sender, f.recipient, ProtocolECv2SigningOnly, string(signedMessage))),
		IntermediateSigningKey: IntermediateSigningKey{
			SignedKey: string(signedKey),
			Signatures: []string{
				sign(t, f.root, lengthValue(f.sender, ProtocolECv2SigningOnly, string(signedKey))),
			},
		},
		ProtocolVersion: ProtocolECv2SigningOnly,
		SignedMessage:   string(signedMessage),
	}
}

func testMessage() Message {
	return Message{
		ClassID:       testIssuerID + ".class",
		ObjectID:      testIssuerID + ".object",
		EventType:     EventSave,
		ExpTimeMillis: Millis(time.Now().Add(time.Hour).UnixMilli()),
		Count:         1,
		Nonce:         "nonce-1",
	}
}

// staticRootKeys serves a fixed key set.
type staticRootKeys []RootKey

func (s staticRootKeys) RootKeys(context.Context, string) ([]RootKey, error) {
	return s, nil
}

// failingRootKeys fails the test when used.
type failingRootKeys struct {
	t *testing.T
}

func (f failingRootKeys) RootKeys(context.Context, string) ([]RootKey, error) {
	f.t.Error("root keys requested")
	return nil, nil
}

// unsigned returns an envelope that carries msg without any signature.
func unsigned(t *testing.T, msg any) Envelope {
	t.Helper()

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	return Envelope{SignedMessage: string(data)}
}
