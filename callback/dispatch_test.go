package callback

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_AllHandlersRun(t *testing.T) {
	msg := testMessage()

	var calls atomic.Int32
	record := HandlerFunc(func(_ context.Context, got Message) error {
		calls.Add(1)
		if got != msg {
			t.Errorf("handler got %+v, want %+v", got, msg)
		}
		return nil
	})

	d := NewDispatcher(time.Second, record, record)
	d.Add(record)

	if err := d.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("handlers ran %d times, want 3", n)
	}
}

func TestDispatcher_NoHandlers(t *testing.T) {
	if err := NewDispatcher(0).Dispatch(context.Background(), testMessage()); err != nil {
		t.Errorf("Dispatch() error = %v, want nil", err)
	}
}

func TestDispatcher_HandlerFailure(t *testing.T) {
	d := NewDispatcher(time.Second,
		HandlerFunc(func(context.Context, Message) error { return nil }),
		HandlerFunc(func(context.Context, Message) error { return errors.New("database unavailable") }),
	)

	err := d.Dispatch(context.Background(), testMessage())
	if !errors.Is(err, ErrCallbackFailed) {
		t.Fatalf("Dispatch() error = %v, want %v", err, ErrCallbackFailed)
	}
	if strings.Contains(err.Error(), "database") {
		t.Errorf("Dispatch() error %q leaks the handler failure", err)
	}
}

func TestDispatcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	d := NewDispatcher(50*time.Millisecond,
		// Ignores its context.
		HandlerFunc(func(context.Context, Message) error {
			<-release
			return nil
		}),
	)

	start := time.Now()
	err := d.Dispatch(context.Background(), testMessage())

	if !errors.Is(err, ErrCallbackFailed) {
		t.Errorf("Dispatch() error = %v, want %v", err, ErrCallbackFailed)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Dispatch() took %v, want it bounded by its timeout", elapsed)
	}
}

func TestDispatcher_FailureCancelsOthers(t *testing.T) {
	cancelled := make(chan struct{})

	d := NewDispatcher(time.Second,
		HandlerFunc(func(ctx context.Context, _ Message) error {
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		}),
		HandlerFunc(func(context.Context, Message) error { return errors.New("boom") }),
	)

	if err := d.Dispatch(context.Background(), testMessage()); !errors.Is(err, ErrCallbackFailed) {
		t.Errorf("Dispatch() error = %v, want %v", err, ErrCallbackFailed)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("the remaining handler was not cancelled")
	}
}
