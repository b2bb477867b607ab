package gwallet

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestCreateAsync_UsesNonBlockingPool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "issuer.obj", "classId": "issuer.class"})
	})

	f := CreateAsync(context.Background(), c, testObject())

	got, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if got.ID != "issuer.obj" {
		t.Errorf("ID = %q, want issuer.obj", got.ID)
	}

	select {
	case <-f.Done():
	default:
		t.Error("Done() not closed after Await returned")
	}

	if n := c.shared.pools[nonBlocking].Len(); n != 1 {
		t.Errorf("non-blocking pool Len() = %d, want 1", n)
	}
	if n := c.shared.pools[blocking].Len(); n != 0 {
		t.Errorf("blocking pool Len() = %d, want 0", n)
	}
}

func TestAsync_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, apiError(404, "NOT_FOUND", "missing"))
	})
	ctx := context.Background()

	if _, err := ReadAsync[GenericObject](ctx, c, "missing-id").Await(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadAsync() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := UpdateAsync(ctx, c, testObject(), UpdatePartial).Await(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAsync() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := AddMessageAsync[GenericObject](ctx, c, "missing-id", Message{}).Await(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddMessageAsync() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := ListPageAsync[GenericObject](ctx, c, ListOptions{}).Await(ctx); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ListPageAsync() error = %v, want %v", err, ErrInvalidArgument)
	}
}

func TestFuture_AwaitDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := Submit(context.Background(), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.Is(err, ErrTimeout) {
		t.Errorf("Await() error = %v, want %v", err, ErrTimeout)
	}
}
