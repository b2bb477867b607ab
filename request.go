package gwallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// exchange describes one API call.
type exchange struct {
	method string
	url    string
	params url.Values
	body   any

	// resource and id name the target in classified errors.
	resource string
	id       string
}

// newRequest creates a new HTTP request.
func (c *Client) newRequest(ctx context.Context, x exchange) (*http.Request, error) {
	u, err := url.Parse(x.url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(x.params) > 0 {
		u.RawQuery = x.params.Encode()
	}

	var reqBody io.Reader
	if x.body != nil {
		jsonData, err := json.Marshal(x.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, x.method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if x.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// doJSON executes x with the pooled client of the handle and decodes a
// successful response into v. Non-2xx responses are classified.
func (c *Client) doJSON(ctx context.Context, x exchange, v any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ac, err := c.getClient(ctx, c.flavor, nil)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, x)
	if err != nil {
		return err
	}

	resp, err := c.do(ac, req)
	if err != nil {
		return timeoutError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return timeoutError(fmt.Errorf("read response: %w", err))
	}

	c.logger.DebugContext(ctx, "api call",
		"method", x.method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"flavor", c.flavor.String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.handleRetryAfter(resp.Header.Get("Retry-After"))
		}
		return classify(resp.StatusCode, body, x.resource, x.id)
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("decode %s response: %w", x.resource, err)
		}
	}

	return nil
}

// do waits for the rate-limit gates and sends req.
func (c *Client) do(ac *AuthenticatedClient, req *http.Request) (*http.Response, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	resp, err := ac.HTTP.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}

	return resp, nil
}

// wait checks if the client is currently rate-limited.
// If so, it blocks until the reset time or until the context is canceled.
func (c *Client) wait(ctx context.Context) error {
	c.shared.retryAfterMU.Lock()
	waitUntil := c.shared.retryAfter
	c.shared.retryAfterMU.Unlock()

	if time.Now().After(waitUntil) {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Until(waitUntil)):
		return nil
	}
}

// handleRetryAfter moves the retry-after gate forward based on a
// Retry-After header in seconds or HTTP-date form. Invalid values are ignored.
func (c *Client) handleRetryAfter(header string) {
	if header == "" {
		return
	}

	var t time.Time
	if secs, err := strconv.ParseInt(header, 10, 64); err == nil {
		t = time.Now().Add(time.Duration(secs) * time.Second)
	} else if parsed, err := http.ParseTime(header); err == nil {
		t = parsed
	} else {
		c.logger.Warn("invalid Retry-After header", "value", header)
		return
	}

	c.shared.retryAfterMU.Lock()
	defer c.shared.retryAfterMU.Unlock()

	if t.After(c.shared.retryAfter) {
		c.shared.retryAfter = t
	}
}

// timeoutError marks deadline failures with [ErrTimeout].
func timeoutError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
