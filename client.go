// Package gajni is an offline-first client for the gajni personal memory
// service. It keeps the visible memory list responsive by applying every
// mutation optimistically, mirroring state into a local durable cache, and
// reconciling with the hosted backend in the background. When the backend
// is not configured the client degrades to local-only operation.
package gajni

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/gajni/gajni-go/internal/auth"
	"github.com/gajni/gajni-go/internal/cache"
	"github.com/gajni/gajni-go/internal/memsync"
	"github.com/gajni/gajni-go/internal/store"
	"github.com/gajni/gajni-go/internal/types"
	"github.com/gajni/gajni-go/speech"
)

// identityProvider is the surface the facade needs from the auth adapter.
// Satisfied by both the real GoTrue provider and the disabled variant.
type identityProvider interface {
	Start(ctx context.Context)
	SignUp(ctx context.Context, email, password string) (*types.Session, error)
	SignIn(ctx context.Context, email, password string) (*types.Session, error)
	SignInWithProvider(provider, redirectTo string) (string, error)
	ExchangeSession(ctx context.Context, sess *types.Session)
	SignOut(ctx context.Context) error
	Identity() *types.Identity
	Session() *types.Session
	AccessToken() string
	Loading() bool
	Subscribe(fn auth.Subscriber) string
	Unsubscribe(id string)
	Close()
}

// Client wires the identity provider, the remote store, the local cache and
// the synchronization core together behind one facade.
type Client struct {
	cfg  Config
	log  zerolog.Logger
	http *http.Client
	now  func() time.Time

	cache      *cache.Store
	auth       identityProvider
	core       *memsync.Core
	recognizer speech.Recognizer
	synth      speech.Synthesizer

	authSub    string
	closedOnce uint32
}

// New constructs a Client. A missing backend configuration is not an
// error: the client comes up with authentication disabled and serves the
// shared local namespace only. Only a cache that cannot even be opened is
// fatal, since without it the client has no durable state at all.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		log:        zlog.Logger,
		http:       &http.Client{Timeout: cfg.HTTPTimeout},
		now:        time.Now,
		recognizer: speech.Unavailable{},
		synth:      speech.Unavailable{},
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	cacheStore, err := cache.Open(cfg.CachePath, c.log)
	if err != nil {
		return nil, err
	}
	c.cache = cacheStore

	var remote memsync.RemoteStore
	if cfg.Configured() {
		c.auth = auth.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cacheStore, c.log)
		remote = store.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, c.auth.AccessToken, c.http, c.log)
	} else {
		c.log.Warn().Msg("backend not configured, authentication disabled and memories kept local-only")
		c.auth = auth.NewDisabled()
		remote = store.NewDisabled()
	}

	c.core = memsync.New(remote, cacheStore, c.log, c.now)

	// Initialize for "no identity" first so the shared-namespace snapshot
	// is visible immediately, then let the restored session (if any)
	// re-initialize for its user.
	ctx := context.Background()
	c.core.SetIdentity(ctx, nil)
	c.authSub = c.auth.Subscribe(func(ev types.AuthEvent) {
		switch ev.Type {
		case types.AuthSignedIn:
			ident := ev.Session.Identity
			c.core.SetIdentity(context.Background(), &ident)
		case types.AuthSignedOut:
			c.core.SetIdentity(context.Background(), nil)
		case types.AuthTokenRefreshed:
			// Same identity, fresher token; nothing to reload.
		}
	})
	c.auth.Start(ctx)

	return c, nil
}

func (c *Client) httpTransport() http.RoundTripper {
	if c.http.Transport != nil {
		return c.http.Transport
	}
	return http.DefaultTransport
}

// Close flushes in-flight remote legs, stops the auth refresh loop and
// closes the cache. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = c.core.AwaitIdle(ctx)
	c.auth.Unsubscribe(c.authSub)
	c.auth.Close()
	return c.cache.Close()
}

// --------------------------------------------------------------------
// Memory operations - delegated to the synchronization core
// --------------------------------------------------------------------

// Memories returns the current list, newest first.
func (c *Client) Memories() []MemoryRecord { return c.core.Records() }

// Loading reports whether the initial session check or a remote load is
// still in flight.
func (c *Client) Loading() bool { return c.auth.Loading() || c.core.Loading() }

// SearchMemories filters the current list by term, case-insensitively,
// over titles and descriptions.
func (c *Client) SearchMemories(term string) []MemoryRecord { return c.core.Search(term) }

// AddMemory creates a memory. The record is visible at the head of the
// list before this returns; the Ack settles once the remote create does,
// delivering ErrSavedLocallyOnly when the record could not be persisted.
func (c *Client) AddMemory(ctx context.Context, title, description string) (*Ack, error) {
	if err := types.ValidateTitle(title); err != nil {
		return nil, err
	}
	return c.core.Add(ctx, title, description)
}

// UpdateMemory applies a partial update to the matching record. No-op if
// the record is absent or no user is signed in.
func (c *Client) UpdateMemory(ctx context.Context, id string, patch RecordPatch) {
	c.core.Update(ctx, id, patch)
}

// DeleteMemory removes the matching record. No-op if absent.
func (c *Client) DeleteMemory(ctx context.Context, id string) { c.core.Delete(ctx, id) }

// ToggleCompletion flips the completed flag of the matching record.
func (c *Client) ToggleCompletion(ctx context.Context, id string) {
	c.core.ToggleCompletion(ctx, id)
}

// SubscribeMemories registers fn to run after every visible list change.
func (c *Client) SubscribeMemories(fn func()) string { return c.core.Subscribe(fn) }

// UnsubscribeMemories removes a subscriber registered with SubscribeMemories.
func (c *Client) UnsubscribeMemories(id string) { c.core.Unsubscribe(id) }

// AwaitIdle blocks until all background remote work has settled. Mostly
// useful in tests and before shutdown.
func (c *Client) AwaitIdle(ctx context.Context) error { return c.core.AwaitIdle(ctx) }

// --------------------------------------------------------------------
// Auth operations - delegated to the identity provider adapter
// --------------------------------------------------------------------

// Identity returns the signed-in identity, or nil.
func (c *Client) Identity() *Identity { return c.auth.Identity() }

// Session returns the current session, or nil.
func (c *Client) Session() *Session { return c.auth.Session() }

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.auth.SignUp(ctx, email, password)
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.auth.SignIn(ctx, email, password)
}

// SignInWithProvider returns the authorize URL for an external OAuth
// provider. Complete the browser round-trip and hand the tokens to
// ExchangeSession.
func (c *Client) SignInWithProvider(provider, redirectTo string) (string, error) {
	return c.auth.SignInWithProvider(provider, redirectTo)
}

// ExchangeSession installs a session obtained out-of-band (OAuth redirect).
func (c *Client) ExchangeSession(ctx context.Context, sess *Session) {
	c.auth.ExchangeSession(ctx, sess)
}

// SignOut ends the session. Local state is cleared even if the remote
// revocation fails.
func (c *Client) SignOut(ctx context.Context) error { return c.auth.SignOut(ctx) }

// SubscribeAuth registers fn for identity-change events.
func (c *Client) SubscribeAuth(fn func(AuthEvent)) string {
	return c.auth.Subscribe(auth.Subscriber(fn))
}

// UnsubscribeAuth removes a subscriber registered with SubscribeAuth.
func (c *Client) UnsubscribeAuth(id string) { c.auth.Unsubscribe(id) }

// --------------------------------------------------------------------
// Speech conveniences
// --------------------------------------------------------------------

// DictateMemory captures one utterance through the installed recognizer
// and adds it as a memory under the given title.
func (c *Client) DictateMemory(ctx context.Context, title string) (*Ack, error) {
	text, err := c.recognizer.Transcribe(ctx)
	if err != nil {
		return nil, err
	}
	return c.AddMemory(ctx, title, text)
}

// ReadMemoryAloud speaks the matching record's title and description
// through the installed synthesizer. No-op error if the record is absent.
func (c *Client) ReadMemoryAloud(ctx context.Context, id string) error {
	for _, rec := range c.core.Records() {
		if rec.ID == id {
			text := rec.Title
			if rec.Description != "" {
				text += ". " + rec.Description
			}
			return c.synth.Speak(ctx, text)
		}
	}
	return nil
}
