// Package auth wraps the hosted GoTrue identity service into a reactive
// identity value: a current session, a loading flag until the initial
// session check settles, and a subscription stream of identity changes.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ierrors "github.com/gajni/gajni-go/internal/errors"
	"github.com/gajni/gajni-go/internal/types"
)

// refreshLead is how far before token expiry the refresh loop fires.
const refreshLead = 60 * time.Second

// SessionStore persists sessions across restarts. Implementations are
// best-effort; the provider works without one.
type SessionStore interface {
	ReadSession(ctx context.Context) (*types.Session, bool)
	WriteSession(ctx context.Context, sess *types.Session)
	ClearSession(ctx context.Context)
}

// Subscriber receives identity-change events. Callbacks run on the
// provider's goroutine and must not block.
type Subscriber func(types.AuthEvent)

// Provider is the GoTrue-backed identity provider adapter.
type Provider struct {
	rc    *resty.Client
	store SessionStore
	log   zerolog.Logger

	mu      sync.Mutex
	session *types.Session
	loading bool
	subs    map[string]Subscriber

	refreshCancel context.CancelFunc
	refreshDone   chan struct{}
}

// New constructs a Provider against the given Supabase project.
func New(baseURL, anonKey string, store SessionStore, log zerolog.Logger) *Provider {
	rc := resty.New().
		SetBaseURL(baseURL+"/auth/v1").
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", anonKey).
		SetTimeout(30 * time.Second)

	return &Provider{
		rc:      rc,
		store:   store,
		log:     log,
		loading: true,
		subs:    make(map[string]Subscriber),
	}
}

// gotrue wire shapes.

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	User         gotrueUser `json:"user"`
	ErrorDesc    string     `json:"error_description"`
	Msg          string     `json:"msg"`
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u gotrueUser) identity() types.Identity {
	ident := types.Identity{ID: u.ID, Email: u.Email}
	// Metadata carries mixed-type claims; only string values (like the
	// external-provider "sub") matter for namespace derivation.
	for k, v := range u.UserMetadata {
		if s, ok := v.(string); ok {
			if ident.Metadata == nil {
				ident.Metadata = make(map[string]string)
			}
			ident.Metadata[k] = s
		}
	}
	return ident
}

func (t *tokenResponse) session(now time.Time) *types.Session {
	return &types.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(t.ExpiresIn) * time.Second),
		Identity:     t.User.identity(),
	}
}

// Start restores a persisted session, refreshing it when expired, and
// begins the token refresh loop. The loading flag stays true until this
// settles. Start never returns an error: a failed restore just means no
// identity.
func (p *Provider) Start(ctx context.Context) {
	defer p.setLoading(false)

	if p.store == nil {
		return
	}
	sess, ok := p.store.ReadSession(ctx)
	if !ok {
		return
	}
	if sess.Expired(time.Now()) {
		refreshed, err := p.refresh(ctx, sess.RefreshToken)
		if err != nil {
			p.log.Warn().Err(err).Msg("persisted session could not be refreshed, signing out")
			p.store.ClearSession(ctx)
			return
		}
		sess = refreshed
	}
	p.adoptSession(ctx, sess, types.AuthSignedIn)
}

// SignUp registers a new account with email and password.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*types.Session, error) {
	var out tokenResponse
	resp, err := p.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&out).
		Post("/signup")
	if err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindAuth, "sign up", err)
	}
	if resp.IsError() {
		return nil, authHTTPError(resp.StatusCode(), &out, "sign up")
	}
	// Projects with email confirmation enabled return no tokens yet.
	if out.AccessToken == "" {
		return nil, nil
	}
	sess := out.session(time.Now())
	p.adoptSession(ctx, sess, types.AuthSignedIn)
	return sess, nil
}

// SignIn authenticates with email and password (the password grant).
func (p *Provider) SignIn(ctx context.Context, email, password string) (*types.Session, error) {
	var out tokenResponse
	resp, err := p.rc.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&out).
		Post("/token")
	if err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindAuth, "sign in", err)
	}
	if resp.IsError() {
		return nil, authHTTPError(resp.StatusCode(), &out, "sign in")
	}
	sess := out.session(time.Now())
	p.adoptSession(ctx, sess, types.AuthSignedIn)
	return sess, nil
}

// SignInWithProvider builds the authorize URL for an external OAuth
// provider (e.g. "google"). The embedder opens it in a browser and, once
// the round-trip completes, hands the resulting tokens to ExchangeSession.
func (p *Provider) SignInWithProvider(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", &ierrors.Classified{
			Kind: ierrors.KindAuth, Category: ierrors.Irrecoverable,
			Message:    "provider is required",
			Underlying: fmt.Errorf("sign in with provider: empty provider"),
		}
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return p.rc.BaseURL + "/authorize?" + q.Encode(), nil
}

// ExchangeSession installs a session obtained out-of-band (OAuth redirect).
func (p *Provider) ExchangeSession(ctx context.Context, sess *types.Session) {
	if sess == nil {
		return
	}
	p.adoptSession(ctx, sess, types.AuthSignedIn)
}

// SignOut revokes the session remotely and clears local state. The local
// state is cleared even when the revoke call fails.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()

	var revokeErr error
	if sess != nil {
		resp, err := p.rc.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+sess.AccessToken).
			Post("/logout")
		if err != nil {
			revokeErr = ierrors.NewNetworkError(ierrors.KindAuth, "sign out", err)
		} else if resp.IsError() && resp.StatusCode() != 401 {
			revokeErr = ierrors.NewHTTPError(ierrors.KindAuth, resp.StatusCode(), string(resp.Body()), "sign out")
		}
	}

	p.clearSession(ctx)
	return revokeErr
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*types.Session, error) {
	var out tokenResponse
	resp, err := p.rc.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&out).
		SetError(&out).
		Post("/token")
	if err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindAuth, "refresh token", err)
	}
	if resp.IsError() {
		return nil, authHTTPError(resp.StatusCode(), &out, "refresh token")
	}
	return out.session(time.Now()), nil
}

// Identity returns the current identity, or nil when signed out.
func (p *Provider) Identity() *types.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	ident := p.session.Identity
	return &ident
}

// Session returns the current session, or nil.
func (p *Provider) Session() *types.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// AccessToken returns the current bearer token, or "" when signed out.
// Wired into the remote store adapter as its TokenFunc.
func (p *Provider) AccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ""
	}
	return p.session.AccessToken
}

// Loading reports whether the initial session check is still in flight.
func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Subscribe registers fn for identity-change events and returns an
// unsubscribe handle.
func (p *Provider) Subscribe(fn Subscriber) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.subs[id] = fn
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (p *Provider) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, id)
}

// Close stops the refresh loop.
func (p *Provider) Close() {
	p.mu.Lock()
	cancel, done := p.refreshCancel, p.refreshDone
	p.refreshCancel, p.refreshDone = nil, nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// --- internals ---

func (p *Provider) setLoading(v bool) {
	p.mu.Lock()
	p.loading = v
	p.mu.Unlock()
}

func (p *Provider) adoptSession(ctx context.Context, sess *types.Session, event types.AuthEventType) {
	p.mu.Lock()
	p.session = sess
	subs := p.snapshotSubsLocked()
	p.mu.Unlock()

	if p.store != nil {
		p.store.WriteSession(ctx, sess)
	}
	p.restartRefreshLoop(sess)
	for _, fn := range subs {
		fn(types.AuthEvent{Type: event, Session: sess})
	}
}

func (p *Provider) clearSession(ctx context.Context) {
	p.mu.Lock()
	p.session = nil
	subs := p.snapshotSubsLocked()
	p.mu.Unlock()

	if p.store != nil {
		p.store.ClearSession(ctx)
	}
	p.restartRefreshLoop(nil)
	for _, fn := range subs {
		fn(types.AuthEvent{Type: types.AuthSignedOut})
	}
}

func (p *Provider) snapshotSubsLocked() []Subscriber {
	out := make([]Subscriber, 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

// restartRefreshLoop replaces the refresh goroutine to track sess's expiry.
func (p *Provider) restartRefreshLoop(sess *types.Session) {
	p.mu.Lock()
	cancel, done := p.refreshCancel, p.refreshDone
	p.refreshCancel, p.refreshDone = nil, nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	if sess == nil || sess.RefreshToken == "" {
		return
	}

	ctx, cancelNew := context.WithCancel(context.Background())
	doneNew := make(chan struct{})
	p.mu.Lock()
	p.refreshCancel, p.refreshDone = cancelNew, doneNew
	p.mu.Unlock()

	wait := time.Until(sess.ExpiresAt.Add(-refreshLead))
	if wait < time.Second {
		wait = time.Second
	}
	go func() {
		defer close(doneNew)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// Detach before adopting the refreshed session, otherwise the
		// restart below would wait on this goroutine's own done channel.
		p.mu.Lock()
		if p.refreshDone == doneNew {
			p.refreshCancel, p.refreshDone = nil, nil
		}
		p.mu.Unlock()
		refreshed, err := p.refresh(ctx, sess.RefreshToken)
		if err != nil {
			p.log.Warn().Err(err).Msg("token refresh failed, signing out")
			p.clearSession(ctx)
			return
		}
		p.adoptSession(ctx, refreshed, types.AuthTokenRefreshed)
	}()
}

func authHTTPError(status int, out *tokenResponse, operation string) *ierrors.Classified {
	msg := out.ErrorDesc
	if msg == "" {
		msg = out.Msg
	}
	if msg == "" {
		msg = fmt.Sprintf("%s failed", operation)
	}
	e := ierrors.NewHTTPError(ierrors.KindAuth, status, msg, operation)
	e.Message = msg
	return e
}
