package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrCallbackFailed is returned when any handler fails or the handlers do
// not finish in time. The failing handler is not identified.
var ErrCallbackFailed = errors.New("callback processing failed")

// DefaultDispatchTimeout bounds all handlers of one dispatch.
const DefaultDispatchTimeout = 5 * time.Second

// Handler consumes verified callback messages.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to a [Handler].
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle implements [Handler].
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Dispatcher fans a message out to every registered handler.
type Dispatcher struct {
	handlers []Handler
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher returns a dispatcher bounded by timeout. A zero timeout
// uses [DefaultDispatchTimeout].
func NewDispatcher(timeout time.Duration, handlers ...Handler) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		handlers: handlers,
		timeout:  timeout,
		logger:   slog.Default().With("component", "gwallet/callback"),
	}
}

// Add registers h.
func (d *Dispatcher) Add(h Handler) {
	d.handlers = append(d.handlers, h)
}

// SetLogger replaces the logger.
func (d *Dispatcher) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Dispatch runs every handler in parallel and waits until all returned or
// the timeout elapsed. A handler that ignores its context is abandoned at
// the timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range d.handlers {
		g.Go(func() error {
			if err := h.Handle(gctx, msg); err != nil {
				return fmt.Errorf("handler %d: %w", i, err)
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		d.logger.ErrorContext(ctx, "callback handlers failed",
			"classId", msg.ClassID,
			"objectId", msg.ObjectID,
			"eventType", msg.EventType,
			"error", err,
		)
		return ErrCallbackFailed
	}

	return nil
}
