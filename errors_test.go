package gwallet

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       error
		wantMsg    string
	}{
		{
			name:       "not found",
			statusCode: http.StatusNotFound,
			body:       `{"error":{"code":404,"message":"No resource","status":"NOT_FOUND"}}`,
			want:       ErrNotFound,
			wantMsg:    "No resource",
		},
		{
			name:       "conflict",
			statusCode: http.StatusConflict,
			body:       `{"error":{"code":409,"message":"exists"}}`,
			want:       ErrAlreadyExists,
			wantMsg:    "exists",
		},
		{
			name:       "quota in status only",
			statusCode: http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"denied","status":"RESOURCE_EXHAUSTED"}}`,
			want:       ErrQuotaExceeded,
			wantMsg:    "denied",
		},
		{
			name:       "permission",
			statusCode: http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`,
			want:       ErrPermissionDenied,
			wantMsg:    "The caller does not have permission",
		},
		{
			name:       "too many requests",
			statusCode: http.StatusTooManyRequests,
			body:       ``,
			want:       ErrRateLimit,
		},
		{
			name:       "server error with text body",
			statusCode: http.StatusBadGateway,
			body:       "  upstream failure\n",
			want:       ErrStatus,
			wantMsg:    "upstream failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.statusCode, []byte(tt.body), "GenericClass", "issuer.class")

			if !errors.Is(err, tt.want) {
				t.Errorf("classify() = %v, want %v", err, tt.want)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.statusCode)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	err := classify(http.StatusNotFound, []byte(`{"error":{"message":"gone"}}`), "GenericObject", "missing-id")

	want := `resource not found: GenericObject "missing-id": Not Found: 404: gone`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
