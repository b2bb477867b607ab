package gwallet

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_handleRetryAfter(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantMin time.Duration
		wantMax time.Duration
		wantSet bool
	}{
		{
			name:    "seconds",
			header:  "2",
			wantMin: 1 * time.Second,
			wantMax: 3 * time.Second,
			wantSet: true,
		},
		{
			name:    "http date",
			header:  time.Now().Add(time.Hour).UTC().Format(http.TimeFormat),
			wantMin: 59 * time.Minute,
			wantMax: 61 * time.Minute,
			wantSet: true,
		},
		{
			name:   "empty header",
			header: "",
		},
		{
			name:   "invalid format - not a number",
			header: "not-a-number",
		},
		{
			name:   "invalid format - float",
			header: "1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.handleRetryAfter(tt.header)

			got := c.shared.retryAfter
			if !tt.wantSet {
				if !got.IsZero() {
					t.Errorf("retryAfter = %v, want zero", got)
				}
				return
			}

			until := time.Until(got)
			if until < tt.wantMin || until > tt.wantMax {
				t.Errorf("retryAfter in %v, want between %v and %v", until, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestClient_handleRetryAfter_OnlyUpdatesIfLater(t *testing.T) {
	c := New()

	// Set initial retry time to a future time
	futureTime := time.Now().Add(2 * time.Hour)
	c.shared.retryAfter = futureTime

	// Try to update with an earlier time
	c.handleRetryAfter(strconv.Itoa(int(time.Hour / time.Second)))

	// Retry time should not have changed
	if !c.shared.retryAfter.Equal(futureTime) {
		t.Errorf(
			"retryAfter should not be updated to earlier time, got %v, want %v",
			c.shared.retryAfter,
			futureTime,
		)
	}
}

func TestClient_handleRetryAfter_SharedByHandles(t *testing.T) {
	c := New()
	nb := c.NonBlocking()

	nb.handleRetryAfter("60")

	if c.shared.retryAfter.IsZero() {
		t.Error("retry-after gate set on a handle is not visible to its parent")
	}
}

func TestClient_wait_NoWaiting(t *testing.T) {
	c := New()

	// Set retry time to the past
	c.shared.retryAfter = time.Now().Add(-1 * time.Second)

	start := time.Now()
	err := c.wait(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("wait() error = %v, want nil", err)
	}

	// Should return immediately
	if elapsed > 100*time.Millisecond {
		t.Errorf("wait() took %v, should be nearly instant", elapsed)
	}
}

func TestClient_wait_WaitsUntilTime(t *testing.T) {
	c := New()

	// Set retry time to 200ms in the future
	waitDuration := 200 * time.Millisecond
	c.shared.retryAfter = time.Now().Add(waitDuration)

	start := time.Now()
	err := c.wait(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("wait() error = %v, want nil", err)
	}

	// Allow some tolerance for timing inaccuracy
	if elapsed < waitDuration-50*time.Millisecond {
		t.Errorf("wait() took %v, expected at least %v", elapsed, waitDuration-50*time.Millisecond)
	}
}

func TestClient_wait_ContextCancellation(t *testing.T) {
	c := New()

	// Set retry time far in the future
	c.shared.retryAfter = time.Now().Add(10 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after a short delay
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := c.wait(ctx)
	elapsed := time.Since(start)

	if err != context.Canceled {
		t.Errorf("wait() error = %v, want context.Canceled", err)
	}

	// Should return quickly due to cancellation
	if elapsed > 1*time.Second {
		t.Errorf("wait() took %v, should return quickly after cancellation", elapsed)
	}
}

func TestClient_wait_ZeroTime(t *testing.T) {
	c := New()
	// retryAfter is zero time by default

	start := time.Now()
	err := c.wait(context.Background())
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("wait() error = %v, want nil", err)
	}

	// Should return immediately for zero time
	if elapsed > 50*time.Millisecond {
		t.Errorf("wait() took %v, should be nearly instant for zero time", elapsed)
	}
}

func TestClient_TooManyRequests(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		writeJSON(t, w, http.StatusTooManyRequests, apiError(429, "RESOURCE_EXHAUSTED", "slow down"))
	})

	_, err := Read[GenericObject](context.Background(), c, "issuer.obj")
	if !errors.Is(err, ErrRateLimit) {
		t.Errorf("Read() error = %v, want %v", err, ErrRateLimit)
	}
	if calls.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (no automatic retry)", calls.Load())
	}
	if time.Until(c.shared.retryAfter) < 20*time.Second {
		t.Errorf("retryAfter = %v, want about 30s from now", c.shared.retryAfter)
	}

	// The next call waits for the gate and gives up with its context.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = Read[GenericObject](ctx, c, "issuer.obj")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Read() while gated error = %v, want %v", err, ErrTimeout)
	}
	if calls.Load() != 1 {
		t.Errorf("server hit %d times while gated, want 1", calls.Load())
	}
}

func TestClient_RateLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "issuer.obj", "classId": "issuer.class"})
	}, WithRateLimit(1, 1))

	if _, err := Read[GenericObject](context.Background(), c, "issuer.obj"); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The limiter refuses to wait past the deadline.
	if _, err := Read[GenericObject](ctx, c, "issuer.obj"); err == nil {
		t.Error("Read() beyond the rate limit should fail before its deadline")
	}
}

func TestClient_UserAgent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "custom/1.0" {
			t.Errorf("User-Agent = %q, want custom/1.0", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "issuer.obj", "classId": "issuer.class"})
	}, WithUserAgent("custom/1.0"))

	if _, err := Read[GenericObject](context.Background(), c, "issuer.obj"); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
}
