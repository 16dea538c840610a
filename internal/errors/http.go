package errors

import "fmt"

// categoryForStatus maps HTTP status codes to retry categories:
// 4xx client errors (except 408/429) are irrecoverable, 5xx and anything
// unexpected are recoverable.
func categoryForStatus(statusCode int) Category {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	default:
		return Recoverable
	}
}

// NewHTTPError builds a Classified error for a non-success HTTP response.
func NewHTTPError(kind Kind, statusCode int, body, operation string) *Classified {
	msg := fmt.Sprintf("%s failed: HTTP %d", operation, statusCode)
	return &Classified{
		Kind:       kind,
		Category:   categoryForStatus(statusCode),
		StatusCode: statusCode,
		Message:    msg,
		Underlying: fmt.Errorf("%s: %s", msg, body),
	}
}

// NewNetworkError builds a Classified error for a transport-level failure.
// Network errors are always recoverable as they may be transient.
func NewNetworkError(kind Kind, operation string, err error) *Classified {
	return &Classified{
		Kind:       kind,
		Category:   Recoverable,
		Message:    fmt.Sprintf("%s failed: network error", operation),
		Underlying: fmt.Errorf("%s network error: %w", operation, err),
	}
}

// NewConfigError marks an operation that cannot proceed because the backend
// is not configured.
func NewConfigError(operation string) *Classified {
	return &Classified{
		Kind:       KindConfig,
		Category:   Irrecoverable,
		Message:    "backend is not configured",
		Underlying: fmt.Errorf("%s: backend not configured", operation),
	}
}
