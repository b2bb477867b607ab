package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"thde.io/gwallet"
)

// ErrVerificationRejected is returned for envelopes whose signature chain
// or structure does not verify.
var ErrVerificationRejected = errors.New("callback verification rejected")

// Verifier checks callback envelopes against the root keys of the
// configured environment.
type Verifier struct {
	verify      bool
	environment string
	issuerID    string

	source    gwallet.CredentialSource
	keys      RootKeySource
	primitive Primitive
	now       func() time.Time
	logger    *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithoutSignature disables signature checks. Only for testing.
func WithoutSignature() VerifierOption {
	return func(v *Verifier) {
		v.verify = false
	}
}

// WithEnvironment selects the root key set, [gwallet.EnvironmentProduction]
// or [gwallet.EnvironmentTesting].
func WithEnvironment(env string) VerifierOption {
	return func(v *Verifier) {
		v.environment = env
	}
}

// WithIssuerID sets the recipient id the message signature is bound to.
func WithIssuerID(id string) VerifierOption {
	return func(v *Verifier) {
		v.issuerID = id
	}
}

// WithCredentialSource sets where the service credentials are loaded from.
func WithCredentialSource(src gwallet.CredentialSource) VerifierOption {
	return func(v *Verifier) {
		v.source = src
	}
}

// WithRootKeys sets the root key source.
func WithRootKeys(src RootKeySource) VerifierOption {
	return func(v *Verifier) {
		v.keys = src
	}
}

// WithPrimitive replaces the signature primitive.
func WithPrimitive(p Primitive) VerifierOption {
	return func(v *Verifier) {
		v.primitive = p
	}
}

// WithClock sets the time source used for key expiry.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithConfig applies the callback-related values of cfg. Signatures stay
// checked unless cfg.SkipSignature is set.
func WithConfig(cfg *gwallet.Config) VerifierOption {
	return func(v *Verifier) {
		if cfg.SkipSignature {
			v.verify = false
		}
		if cfg.Environment != "" {
			v.environment = cfg.Environment
		}
		if cfg.IssuerID != "" {
			v.issuerID = cfg.IssuerID
		}
		if cfg.CredentialsFile != "" {
			v.source = gwallet.FileCredentials(cfg.CredentialsFile)
		}
	}
}

// NewVerifier returns a verifier that checks signatures against the
// production root keys unless configured otherwise.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		verify:      true,
		environment: gwallet.EnvironmentProduction,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.keys == nil {
		v.keys = NewHTTPRootKeys(nil)
	}
	if v.primitive == nil {
		v.primitive = ECv2SigningOnly{}
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.logger == nil {
		v.logger = slog.Default().With("component", "gwallet/callback")
	}

	return v
}

// Verify checks env and returns its trusted message.
// Every failure wraps [ErrVerificationRejected].
func (v *Verifier) Verify(ctx context.Context, env Envelope) (Message, error) {
	signed, err := v.verified(ctx, env)
	if err != nil {
		v.logger.WarnContext(ctx, "callback rejected", "error", err)
		return Message{}, fmt.Errorf("%w: %w", ErrVerificationRejected, err)
	}

	msg, err := decodeMessage(signed)
	if err != nil {
		v.logger.WarnContext(ctx, "callback rejected", "error", err)
		return Message{}, fmt.Errorf("%w: %w", ErrVerificationRejected, err)
	}

	return msg, nil
}

// verified returns the signed message of env once its chain checks out.
func (v *Verifier) verified(ctx context.Context, env Envelope) (string, error) {
	if !v.verify {
		return env.SignedMessage, nil
	}

	if err := env.checkSigned(); err != nil {
		return "", err
	}
	if v.source == nil {
		return "", fmt.Errorf("no credential source: %w", gwallet.ErrMissingField)
	}

	creds, err := v.source.Credentials(ctx)
	if err != nil {
		return "", err
	}
	keys, err := v.keys.RootKeys(ctx, v.environment)
	if err != nil {
		return "", err
	}

	return v.primitive.Verify(ctx, env, Params{
		RootKeys:    keys,
		RecipientID: v.issuerID,
		PrivateKey:  gwallet.StripPEM(creds.PrivateKey),
		Now:         v.now(),
	})
}
