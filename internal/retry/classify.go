package retry

import (
	"errors"
	"strings"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

var retryableStatuses = map[int]bool{
	503: true,
	429: true,
	502: true,
	504: true,
}

// Matched against the lower-cased error message.
var retryableSubstrings = []string{
	"overloaded",
	"timeout",
	"network",
	"service unavailable",
	"503",
}

// IsRetryable reports whether err is transient. Everything else is fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var sc provider.StatusCoder
	if errors.As(err, &sc) && retryableStatuses[sc.StatusCode()] {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}

// Backoff returns min(base * 2^attempt, max) for a 0-based attempt index.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 63 || base > max>>uint(attempt) {
		return max
	}

	return base << uint(attempt)
}
