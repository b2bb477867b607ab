package gwallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrStatus is the kind of any unexpected non-2xx response.
	ErrStatus = errors.New("unexpected status code")
	// ErrDuplicateRegistration is returned when a resource name is registered twice.
	ErrDuplicateRegistration = errors.New("resource already registered")
	// ErrNotRegistered is returned when a resource name or plural key is unknown.
	ErrNotRegistered = errors.New("resource not registered")
	// ErrCapability is returned when a resource type does not permit an operation.
	ErrCapability = errors.New("operation not supported by resource")
	// ErrNotFound is returned on 404 responses.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned on 409 responses to create.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrQuotaExceeded is returned on 403 responses that report exhausted quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrPermissionDenied is returned on any other 403 response.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument is returned for contradictory or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrRateLimit is returned when the API answers 429.
	ErrRateLimit = errors.New("rate limit exceeded")
)

// quotaMarkers are matched case-insensitively against 403 response bodies;
// the API does not always expose a structured code for quota exhaustion.
var quotaMarkers = []string{"quota", "resource_exhausted", "rate limit"}

// Error is a classified API failure. It unwraps to one of the kind
// sentinels above so callers can use [errors.Is].
type Error struct {
	StatusCode int
	// Status is the API's error status, e.g. "PERMISSION_DENIED".
	Status string
	// Message is the API's error message.
	Message    string
	Resource   string
	ResourceID string

	kind error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.kind.Error())
	if e.Resource != "" {
		fmt.Fprintf(&b, ": %s", e.Resource)
		if e.ResourceID != "" {
			fmt.Fprintf(&b, " %q", e.ResourceID)
		}
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %s: %d", http.StatusText(e.StatusCode), e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.kind
}

// apiErrorBody is the error envelope returned by the API.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classify maps a non-2xx response to an [*Error].
func classify(statusCode int, body []byte, resource, id string) *Error {
	e := &Error{
		StatusCode: statusCode,
		Resource:   resource,
		ResourceID: id,
		kind:       ErrStatus,
	}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		e.Message = parsed.Error.Message
		e.Status = parsed.Error.Status
	} else {
		e.Message = string(bytes.TrimSpace(body))
	}

	switch statusCode {
	case http.StatusNotFound:
		e.kind = ErrNotFound
	case http.StatusConflict:
		e.kind = ErrAlreadyExists
	case http.StatusTooManyRequests:
		e.kind = ErrRateLimit
	case http.StatusForbidden:
		e.kind = ErrPermissionDenied
		text := strings.ToLower(e.Message + " " + e.Status + " " + string(body))
		for _, marker := range quotaMarkers {
			if strings.Contains(text, marker) {
				e.kind = ErrQuotaExceeded
				break
			}
		}
	}

	return e
}
