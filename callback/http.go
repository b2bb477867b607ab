package callback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"thde.io/gwallet"
)

// Bodies of failed inbound requests. Internal error text never leaves the
// process.
const (
	msgNotFound = "not found"
	msgInternal = "internal server error"
)

const (
	maxEnvelopeSize     = 64 << 10
	defaultImageTimeout = 5 * time.Second
)

// RouterConfig holds the collaborators of [NewRouter].
type RouterConfig struct {
	Verifier   *Verifier
	Dispatcher *Dispatcher
	Images     ImageProviders

	ImageTimeout time.Duration
	Logger       *slog.Logger
}

// NewRouterConfig builds the collaborators of [NewRouter] from conf: the
// verifier settings, the handler timeout and the image timeout.
func NewRouterConfig(conf *gwallet.Config, images ImageProviders, handlers ...Handler) RouterConfig {
	return RouterConfig{
		Verifier:     NewVerifier(WithConfig(conf)),
		Dispatcher:   NewDispatcher(conf.CallbackTimeout, handlers...),
		Images:       images,
		ImageTimeout: conf.ImageTimeout,
	}
}

// NewRouter returns the inbound routes:
//
//	POST /callback      verify and dispatch a callback envelope
//	GET  /images/{id}   serve an image from the registered provider
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = defaultImageTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "gwallet/callback")
	}

	h := &handlers{cfg: cfg}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, msgNotFound, http.StatusNotFound)
	})
	r.Post("/callback", h.callback)
	r.Get("/images/{id}", h.image)
	return r
}

type handlers struct {
	cfg RouterConfig
}

func (h *handlers) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cfg.Verifier == nil || h.cfg.Dispatcher == nil {
		h.fail(ctx, w, http.StatusInternalServerError, errors.New("callback route not configured"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEnvelopeSize))
	if err != nil {
		h.fail(ctx, w, http.StatusInternalServerError, err)
		return
	}

	env, err := ParseEnvelope(body)
	if err != nil {
		h.fail(ctx, w, http.StatusInternalServerError, err)
		return
	}

	msg, err := h.cfg.Verifier.Verify(ctx, env)
	if err != nil {
		h.fail(ctx, w, http.StatusInternalServerError, err)
		return
	}

	if err := h.cfg.Dispatcher.Dispatch(ctx, msg); err != nil {
		h.fail(ctx, w, http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *handlers) image(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ImageTimeout)
	defer cancel()

	provider, err := h.cfg.Images.Resolve()
	if err != nil {
		h.fail(ctx, w, http.StatusInternalServerError, err)
		return
	}

	img, err := provider.ImageByID(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrImageNotFound):
		h.fail(ctx, w, http.StatusNotFound, err)
		return
	case err != nil:
		h.fail(ctx, w, http.StatusInternalServerError, err)
		return
	}

	mime := img.MimeType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	w.Header().Set("Content-Type", mime)
	_, _ = w.Write(img.Data)
}

func (h *handlers) fail(ctx context.Context, w http.ResponseWriter, status int, err error) {
	msg := msgInternal
	if status == http.StatusNotFound {
		msg = msgNotFound
	}
	h.cfg.Logger.WarnContext(ctx, "inbound request failed", "status", status, "error", err)
	http.Error(w, msg, status)
}
