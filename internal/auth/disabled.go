package auth

import (
	"context"
	"fmt"

	ierrors "github.com/gajni/gajni-go/internal/errors"
	"github.com/gajni/gajni-go/internal/types"
)

// Disabled is the identity provider used when the backend is not
// configured: no identity, not loading, and credential operations fail
// with a human-readable auth error instead of crashing.
type Disabled struct{}

// NewDisabled returns the no-backend auth variant.
func NewDisabled() *Disabled { return &Disabled{} }

func notConfigured(operation string) error {
	return &ierrors.Classified{
		Kind:       ierrors.KindAuth,
		Category:   ierrors.Irrecoverable,
		Message:    "authentication is not configured",
		Underlying: fmt.Errorf("%s: authentication is not configured", operation),
	}
}

func (*Disabled) Start(context.Context) {}

func (*Disabled) SignUp(context.Context, string, string) (*types.Session, error) {
	return nil, notConfigured("sign up")
}

func (*Disabled) SignIn(context.Context, string, string) (*types.Session, error) {
	return nil, notConfigured("sign in")
}

func (*Disabled) SignInWithProvider(string, string) (string, error) {
	return "", notConfigured("sign in with provider")
}

func (*Disabled) ExchangeSession(context.Context, *types.Session) {}

// SignOut without a backend just succeeds; there is no local session to clear.
func (*Disabled) SignOut(context.Context) error { return nil }

func (*Disabled) Identity() *types.Identity   { return nil }
func (*Disabled) Session() *types.Session     { return nil }
func (*Disabled) AccessToken() string         { return "" }
func (*Disabled) Loading() bool               { return false }
func (*Disabled) Subscribe(Subscriber) string { return "" }
func (*Disabled) Unsubscribe(string)          {}
func (*Disabled) Close()                      {}
