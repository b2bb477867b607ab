package gwallet

import (
	"context"
)

// Future is the pending result of a call started with [Submit].
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Submit runs fn in its own goroutine and returns its future result.
func Submit[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done. Abandoning a
// future does not cancel the call; cancel the context passed to [Submit]
// for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, timeoutError(ctx.Err())
	case <-f.done:
		return f.val, f.err
	}
}

// CreateAsync is [Create] on the non-blocking pool.
func CreateAsync[T Resource](ctx context.Context, c *Client, payload T) *Future[T] {
	nb := c.NonBlocking()
	return Submit(ctx, func(ctx context.Context) (T, error) {
		return Create(ctx, nb, payload)
	})
}

// ReadAsync is [Read] on the non-blocking pool.
func ReadAsync[T Resource](ctx context.Context, c *Client, id string) *Future[T] {
	nb := c.NonBlocking()
	return Submit(ctx, func(ctx context.Context) (T, error) {
		return Read[T](ctx, nb, id)
	})
}

// UpdateAsync is [Update] on the non-blocking pool.
func UpdateAsync[T Resource](ctx context.Context, c *Client, payload T, mode UpdateMode) *Future[T] {
	nb := c.NonBlocking()
	return Submit(ctx, func(ctx context.Context) (T, error) {
		return Update(ctx, nb, payload, mode)
	})
}

// AddMessageAsync is [AddMessage] on the non-blocking pool.
func AddMessageAsync[T Resource](ctx context.Context, c *Client, id string, msg Message) *Future[T] {
	nb := c.NonBlocking()
	return Submit(ctx, func(ctx context.Context) (T, error) {
		return AddMessage[T](ctx, nb, id, msg)
	})
}

// ListPageAsync is [ListPage] on the non-blocking pool.
func ListPageAsync[T Resource](ctx context.Context, c *Client, opts ListOptions) *Future[Page[T]] {
	nb := c.NonBlocking()
	return Submit(ctx, func(ctx context.Context) (Page[T], error) {
		return ListPage[T](ctx, nb, opts)
	})
}
