package gajni

import (
	"github.com/gajni/gajni-go/internal/memsync"
	"github.com/gajni/gajni-go/internal/types"
)

// Public aliases for the domain types so embedders never import internal
// packages.

type (
	// MemoryRecord is one memory as the UI renders it.
	MemoryRecord = types.MemoryRecord
	// RecordPatch is a partial update to a MemoryRecord.
	RecordPatch = types.RecordPatch
	// Identity is the opaque user handle from the identity provider.
	Identity = types.Identity
	// Session is an authenticated session.
	Session = types.Session
	// AuthEvent is an identity-change notification.
	AuthEvent = types.AuthEvent
	// Ack reports the eventual outcome of an optimistic create.
	Ack = memsync.Ack
)

// Auth event types, re-exported.
const (
	AuthSignedIn       = types.AuthSignedIn
	AuthSignedOut      = types.AuthSignedOut
	AuthTokenRefreshed = types.AuthTokenRefreshed
)

// MaxTitleLen caps memory titles.
const MaxTitleLen = types.MaxTitleLen
