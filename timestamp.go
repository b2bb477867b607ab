package gwallet

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp is the value of an iat or exp claim: empty (claim omitted) or
// a decimal string of seconds since the epoch.
type Timestamp string

// TimestampOf returns the Timestamp of t in whole seconds.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(strconv.FormatInt(t.Unix(), 10))
}

// normalize validates ts. A non-empty value must be a non-negative integer
// below 2^32.
func (ts Timestamp) normalize() (string, error) {
	if ts == "" {
		return "", nil
	}

	n, err := strconv.ParseInt(string(ts), 10, 64)
	if err != nil {
		return "", fmt.Errorf("timestamp %q: not a decimal integer: %w", string(ts), ErrInvalidArgument)
	}
	if n < 0 || n > math.MaxUint32 {
		return "", fmt.Errorf("timestamp %q: out of range [0, 2^32): %w", string(ts), ErrInvalidArgument)
	}

	return strconv.FormatInt(n, 10), nil
}
