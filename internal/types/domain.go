package types

import (
	"strings"
	"time"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// LocalIDPrefix marks a record id that was generated client-side and has not
// yet been assigned a persisted id by the remote store.
const LocalIDPrefix = "local_"

// MemoryRecord is the canonical client-side shape of one memory.
type MemoryRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Timestamp   int64  `json:"timestamp"` // creation time, epoch milliseconds
	Completed   bool   `json:"completed"`
}

// IsLocal reports whether the record carries a provisional client-generated id.
func (m MemoryRecord) IsLocal() bool { return strings.HasPrefix(m.ID, LocalIDPrefix) }

// RecordPatch is a partial update to a MemoryRecord. Nil fields are left
// untouched.
type RecordPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Apply copies the non-nil patch fields onto rec.
func (p RecordPatch) Apply(rec *MemoryRecord) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Completed != nil {
		rec.Completed = *p.Completed
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Identity is the opaque user handle issued by the identity provider.
type Identity struct {
	ID       string            `json:"id"`
	Email    string            `json:"email,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasStableID reports whether the identity can own remote records.
func (i *Identity) HasStableID() bool { return i != nil && i.ID != "" }

// Session is an authenticated session issued by the identity provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     Identity  `json:"identity"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// ------------------------------
// Auth events
// ------------------------------

// AuthEventType enumerates identity-change notifications.
type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to auth subscribers whenever the session changes.
// Session is nil for AuthSignedOut.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}
