package callback

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// ProtocolECv2SigningOnly is the only protocol version callbacks use.
	ProtocolECv2SigningOnly = "ECv2SigningOnly"
	// DefaultSenderID identifies the wallet as the sender of callbacks.
	DefaultSenderID = "GooglePayPasses"
)

var (
	errNoRootKey           = errors.New("no usable root key")
	errIntermediateSig     = errors.New("intermediate signing key signature does not verify")
	errIntermediateExpired = errors.New("intermediate signing key expired")
	errMessageSig          = errors.New("message signature does not verify")
	errUnsupportedProtocol = errors.New("unsupported protocol version")
)

// Params are the inputs of a [Primitive] besides the envelope.
type Params struct {
	RootKeys    []RootKey
	RecipientID string
	// PrivateKey is the recipient's key material without PEM armor.
	PrivateKey string
	Now        time.Time
}

// Primitive checks the signature chain of an envelope and returns the
// signed message.
type Primitive interface {
	Verify(ctx context.Context, env Envelope, p Params) (string, error)
}

// ECv2SigningOnly verifies envelopes of the ECv2SigningOnly protocol:
// a root key signs the intermediate key, the intermediate key signs the
// message, both with ECDSA P-256 over SHA-256. The protocol carries no
// ciphertext, so the private key is not used.
type ECv2SigningOnly struct {
	SenderID string
}

// Verify implements [Primitive].
func (e ECv2SigningOnly) Verify(_ context.Context, env Envelope, p Params) (string, error) {
	if env.ProtocolVersion != ProtocolECv2SigningOnly {
		return "", fmt.Errorf("%w: %q", errUnsupportedProtocol, env.ProtocolVersion)
	}
	if err := env.checkSigned(); err != nil {
		return "", err
	}

	sender := e.SenderID
	if sender == "" {
		sender = DefaultSenderID
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	roots, err := usableRootKeys(p.RootKeys, env.ProtocolVersion, now)
	if err != nil {
		return "", err
	}

	ik := env.IntermediateSigningKey
	signedKeyData := lengthValue(sender, env.ProtocolVersion, ik.SignedKey)
	if !anyVerifies(roots, ik.Signatures, signedKeyData) {
		return "", errIntermediateSig
	}

	var key SignedKey
	if err := json.Unmarshal([]byte(ik.SignedKey), &key); err != nil {
		return "", fmt.Errorf("%w: signedKey: %w", ErrMalformed, err)
	}
	if int64(key.KeyExpiration) <= now.UnixMilli() {
		return "", errIntermediateExpired
	}
	intermediate, err := parsePublicKey(key.KeyValue)
	if err != nil {
		return "", err
	}

	messageData := lengthValue(sender, p.RecipientID, env.ProtocolVersion, env.SignedMessage)
	if !anyVerifies([]*ecdsa.PublicKey{intermediate}, []string{env.Signature}, messageData) {
		return "", errMessageSig
	}

	return env.SignedMessage, nil
}

func usableRootKeys(keys []RootKey, protocol string, now time.Time) ([]*ecdsa.PublicKey, error) {
	var out []*ecdsa.PublicKey
	for _, k := range keys {
		if k.ProtocolVersion != protocol {
			continue
		}
		if k.KeyExpiration != 0 && int64(k.KeyExpiration) <= now.UnixMilli() {
			continue
		}
		pub, err := parsePublicKey(k.KeyValue)
		if err != nil {
			continue
		}
		out = append(out, pub)
	}
	if len(out) == 0 {
		return nil, errNoRootKey
	}
	return out, nil
}

func anyVerifies(keys []*ecdsa.PublicKey, signatures []string, data []byte) bool {
	digest := sha256.Sum256(data)
	for _, s := range signatures {
		sig, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			continue
		}
		for _, k := range keys {
			if ecdsa.VerifyASN1(k, digest[:], sig) {
				return true
			}
		}
	}
	return false
}

func parsePublicKey(b64 string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrMalformed, err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrMalformed, err)
	}
	ec, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, want ECDSA", ErrMalformed, pub)
	}
	return ec, nil
}

// lengthValue concatenates each chunk prefixed by its 4-byte little-endian
// length.
func lengthValue(chunks ...string) []byte {
	var out []byte
	for _, c := range chunks {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(c)))
		out = append(out, c...)
	}
	return out
}
