// Package errors provides error classification for the gajni client.
// Every failure that crosses a component boundary is wrapped in a
// Classified error carrying its kind (which subsystem failed) and its
// category (whether retrying could help).
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies the subsystem a failure belongs to.
type Kind int

const (
	// KindConfig: the backend is not configured. Degrade gracefully, never crash.
	KindConfig Kind = iota
	// KindAuth: credential or network failure during sign-in/up. Surfaced to
	// the user as an inline message.
	KindAuth
	// KindStore: remote CRUD failure. Logged, never surfaced as a blocking
	// error; local cache and optimistic state serve as fallback.
	KindStore
	// KindCache: serialization or quota failure in the local cache. Logged
	// and swallowed, never affects in-memory state.
	KindCache
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindStore:
		return "store"
	case KindCache:
		return "cache"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Category determines how errors should be handled by retry logic.
type Category int

const (
	// Recoverable errors may be retried with exponential backoff.
	// Examples: 5xx responses, network timeouts, connection failures.
	Recoverable Category = iota

	// Irrecoverable errors fail immediately without retry.
	// Examples: 400, 401, 403, 404.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Classified wraps an error with kind and category metadata.
type Classified struct {
	Kind       Kind
	Category   Category
	StatusCode int    // HTTP status code (0 for non-HTTP errors)
	Message    string // human-readable summary, safe to show inline
	Underlying error
}

func (e *Classified) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: [%s] HTTP %d: %v", e.Kind, e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s: [%s] %v", e.Kind, e.Category, e.Underlying)
}

func (e *Classified) Unwrap() error { return e.Underlying }

// IsKind reports whether err (or anything it wraps) is a Classified error of
// the given kind.
func IsKind(err error, k Kind) bool {
	var ce *Classified
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// IsIrrecoverable reports whether err should not be retried.
func IsIrrecoverable(err error) bool {
	var ce *Classified
	if errors.As(err, &ce) {
		return ce.Category == Irrecoverable
	}
	return false
}
