package cache

import "github.com/gajni/gajni-go/internal/types"

// DefaultNamespace is the shared namespace used when no identity is
// available (unauthenticated, local-only use).
const DefaultNamespace = "gajni-memories"

// ResolveNamespace derives the cache namespace for an identity.
//
// Precedence: Identity.ID, then the "sub" metadata claim (external-provider
// logins carry the stable subject there), then DefaultNamespace. The per-user
// forms are DefaultNamespace + "-" + id so one user's snapshot can never be
// read back under another's key.
func ResolveNamespace(identity *types.Identity) string {
	if identity != nil {
		if identity.ID != "" {
			return DefaultNamespace + "-" + identity.ID
		}
		if sub := identity.Metadata["sub"]; sub != "" {
			return DefaultNamespace + "-" + sub
		}
	}
	return DefaultNamespace
}
