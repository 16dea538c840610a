package gajni

import (
	"errors"

	ierrors "github.com/gajni/gajni-go/internal/errors"
	"github.com/gajni/gajni-go/internal/memsync"
	"github.com/gajni/gajni-go/speech"
)

// ErrNoIdentity is returned by mutations that need a signed-in user.
var ErrNoIdentity = memsync.ErrNoIdentity

// ErrSavedLocallyOnly is delivered on an Ack when the remote create failed
// and the record lives only in the local cache. Suitable for a soft
// user-visible notice; it is never a blocking error.
var ErrSavedLocallyOnly = memsync.ErrSavedLocallyOnly

// ErrSpeechUnavailable is returned by the dictation and read-back helpers
// when no speech devices were installed.
var ErrSpeechUnavailable = speech.ErrUnavailable

// IsAuthError reports whether err came from the identity provider.
func IsAuthError(err error) bool { return ierrors.IsKind(err, ierrors.KindAuth) }

// IsStoreError reports whether err came from the remote data store.
func IsStoreError(err error) bool { return ierrors.IsKind(err, ierrors.KindStore) }

// IsNotConfigured reports whether err means the hosted backend is absent.
func IsNotConfigured(err error) bool { return ierrors.IsKind(err, ierrors.KindConfig) }

// ErrorMessage extracts the human-readable, inline-displayable message from
// a classified error, falling back to err.Error().
func ErrorMessage(err error) string {
	var ce *ierrors.Classified
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
