package callback

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrImageNotFound is returned by providers for unknown image ids.
	ErrImageNotFound = errors.New("image not found")
	// ErrImageProvider is returned when not exactly one provider is registered.
	ErrImageProvider = errors.New("exactly one image provider required")
)

// Image is raw image data served to the wallet.
type Image struct {
	Data     []byte
	MimeType string
}

// ImageProvider looks up images referenced by passes.
type ImageProvider interface {
	ImageByID(ctx context.Context, id string) (Image, error)
}

// ImageProviderFunc adapts a function to an [ImageProvider].
type ImageProviderFunc func(ctx context.Context, id string) (Image, error)

// ImageByID implements [ImageProvider].
func (f ImageProviderFunc) ImageByID(ctx context.Context, id string) (Image, error) {
	return f(ctx, id)
}

// ImageProviders is the set of registered providers.
type ImageProviders []ImageProvider

// Resolve returns the single registered provider.
func (p ImageProviders) Resolve() (ImageProvider, error) {
	if len(p) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrImageProvider, len(p))
	}
	return p[0], nil
}
