package callback

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned for envelopes and messages that do not parse or
// lack required fields.
var ErrMalformed = errors.New("malformed callback")

// Envelope is the signed body of a callback request.
type Envelope struct {
	Signature              string                 `json:"signature"`
	IntermediateSigningKey IntermediateSigningKey `json:"intermediateSigningKey"`
	ProtocolVersion        string                 `json:"protocolVersion"`
	SignedMessage          string                 `json:"signedMessage"`
}

// IntermediateSigningKey carries the key that signed the message, itself
// signed by one of the root keys.
type IntermediateSigningKey struct {
	// SignedKey is a JSON-encoded [SignedKey].
	SignedKey  string   `json:"signedKey"`
	Signatures []string `json:"signatures"`
}

// SignedKey is the decoded form of [IntermediateSigningKey.SignedKey].
type SignedKey struct {
	// KeyValue is a base64 DER-encoded public key.
	KeyValue      string `json:"keyValue"`
	KeyExpiration Millis `json:"keyExpiration"`
}

// Message is the trusted content of a verified callback.
type Message struct {
	ClassID       string `json:"classId"`
	ObjectID      string `json:"objectId"`
	EventType     string `json:"eventType"`
	ExpTimeMillis Millis `json:"expTimeMillis"`
	Count         int    `json:"count"`
	Nonce         string `json:"nonce"`
}

// Event types of [Message].
const (
	EventSave = "save"
	EventDel  = "del"
)

// ParseEnvelope decodes a callback request body.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: envelope: %w", ErrMalformed, err)
	}
	if env.SignedMessage == "" {
		return env, fmt.Errorf("%w: envelope without signedMessage", ErrMalformed)
	}
	return env, nil
}

// checkSigned reports whether env carries the fields signature checks need.
func (env Envelope) checkSigned() error {
	switch {
	case env.Signature == "":
		return fmt.Errorf("%w: missing signature", ErrMalformed)
	case env.ProtocolVersion == "":
		return fmt.Errorf("%w: missing protocolVersion", ErrMalformed)
	case env.IntermediateSigningKey.SignedKey == "":
		return fmt.Errorf("%w: missing intermediateSigningKey.signedKey", ErrMalformed)
	case len(env.IntermediateSigningKey.Signatures) == 0:
		return fmt.Errorf("%w: missing intermediateSigningKey.signatures", ErrMalformed)
	}
	return nil
}

func decodeMessage(signed string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(signed), &msg); err != nil {
		return msg, fmt.Errorf("%w: signedMessage: %w", ErrMalformed, err)
	}
	if msg.ClassID == "" || msg.ObjectID == "" || msg.EventType == "" {
		return msg, fmt.Errorf("%w: signedMessage without classId, objectId or eventType", ErrMalformed)
	}
	return msg, nil
}

// Millis is a time in milliseconds since the epoch. It unmarshals from a
// JSON number or a decimal string.
type Millis int64

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (m *Millis) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		data = []byte(s)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("millis %s: %w", data, err)
	}
	*m = Millis(n)
	return nil
}
