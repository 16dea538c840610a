// Package memsync owns the canonical in-memory memory list for the current
// identity and keeps three copies of it in agreement: the in-memory list
// the UI renders, the local durable cache, and the remote store. Mutations
// apply optimistically to the in-memory list and are persisted remotely in
// the background; remote failures never roll the visible state back.
package memsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/gajni/gajni-go/internal/cache"
	"github.com/gajni/gajni-go/internal/types"
)

// ErrNoIdentity is returned when a mutation needs a signed-in user and
// there is none.
var ErrNoIdentity = errors.New("no signed-in user")

// ErrSavedLocallyOnly is delivered on an Ack when the remote create failed:
// the record is kept in the list and in the local cache, but the remote
// store does not have it.
var ErrSavedLocallyOnly = errors.New("memory saved locally only")

// RemoteStore is the remote data store the core persists through.
type RemoteStore interface {
	ListByUser(ctx context.Context, userID string) ([]types.MemoryRecord, error)
	Create(ctx context.Context, userID, title, description string) (*types.MemoryRecord, error)
	Update(ctx context.Context, id, userID string, patch types.RecordPatch) error
	Delete(ctx context.Context, id, userID string) error
}

// SnapshotCache is the local durable mirror of the list.
type SnapshotCache interface {
	Read(ctx context.Context, namespace string) ([]types.MemoryRecord, bool)
	Write(ctx context.Context, namespace string, records []types.MemoryRecord)
}

// Ack reports the eventual outcome of an optimistic create's remote leg.
type Ack struct {
	done chan error
}

// Await blocks until the remote create settles. A nil result means the
// record was persisted remotely (or the result was superseded and
// discarded); ErrSavedLocallyOnly means it lives only in the local cache.
func (a *Ack) Await(ctx context.Context) error {
	select {
	case err := <-a.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Core is the memory synchronization core.
type Core struct {
	store RemoteStore
	cache SnapshotCache
	log   zerolog.Logger
	now   func() time.Time

	mu        sync.Mutex
	records   []types.MemoryRecord
	loading   bool
	identity  *types.Identity
	namespace string
	epoch     uint64
	subs      map[string]func()

	wg sync.WaitGroup
}

// New constructs a Core. now may be nil (defaults to time.Now).
func New(store RemoteStore, snap SnapshotCache, log zerolog.Logger, now func() time.Time) *Core {
	if now == nil {
		now = time.Now
	}
	return &Core{
		store:     store,
		cache:     snap,
		log:       log,
		now:       now,
		namespace: cache.DefaultNamespace,
		subs:      make(map[string]func()),
	}
}

// SetIdentity (re)initializes the core for a new identity, including nil
// for signed-out use. The cached snapshot for the identity's namespace is
// installed synchronously so callers have something to render immediately;
// the authoritative remote list is loaded in the background when the
// identity has a stable id.
//
// Only the most recently initiated load is meaningful: a load still in
// flight for a previous identity is discarded when it settles.
func (c *Core) SetIdentity(ctx context.Context, identity *types.Identity) {
	ns := cache.ResolveNamespace(identity)
	cached, ok := c.cache.Read(ctx, ns)

	hasID := identity.HasStableID()

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.identity = identity
	c.namespace = ns
	if ok {
		c.records = cached
	} else {
		c.records = nil
	}
	c.loading = hasID
	c.mu.Unlock()
	c.notify()

	if !hasID {
		return
	}

	userID := identity.ID
	c.wg.Add(1)
	go c.loadRemote(ctx, epoch, userID, ns)
}

func (c *Core) loadRemote(ctx context.Context, epoch uint64, userID, ns string) {
	defer c.wg.Done()

	records, err := c.store.ListByUser(ctx, userID)

	c.mu.Lock()
	if c.epoch != epoch {
		// Identity changed while the load was in flight; this result
		// belongs to a superseded identity.
		c.mu.Unlock()
		return
	}
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		remoteFailures.WithLabelValues("list").Inc()
		c.log.Error().Err(err).Str("user_id", userID).Msg("remote load failed, keeping cached records")
		c.notify()
		return
	}
	c.records = records
	c.mu.Unlock()

	c.cache.Write(ctx, ns, records)
	c.notify()
}

// Add creates a memory optimistically: the provisional record is visible at
// the head of the list before the remote create is even dispatched. The
// returned Ack settles once the remote leg does.
func (c *Core) Add(ctx context.Context, title, description string) (*Ack, error) {
	c.mu.Lock()
	if !c.identity.HasStableID() {
		c.mu.Unlock()
		c.log.Warn().Msg("no user id, cannot add memory")
		return nil, ErrNoIdentity
	}
	temp := types.MemoryRecord{
		ID:          localID(),
		Title:       title,
		Description: description,
		Timestamp:   c.now().UnixMilli(),
		Completed:   false,
	}
	c.records = append([]types.MemoryRecord{temp}, c.records...)
	epoch := c.epoch
	ns := c.namespace
	userID := c.identity.ID
	c.mu.Unlock()

	optimisticOps.WithLabelValues("add").Inc()
	c.notify()

	ack := &Ack{done: make(chan error, 1)}
	c.wg.Add(1)
	go c.persistCreate(ctx, ack, epoch, ns, userID, temp.ID, title, description)
	return ack, nil
}

func (c *Core) persistCreate(ctx context.Context, ack *Ack, epoch uint64, ns, userID, tempID, title, description string) {
	defer c.wg.Done()

	persisted, err := c.store.Create(ctx, userID, title, description)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		ack.done <- nil
		return
	}

	if err != nil {
		// Keep the provisional record so the user does not lose their
		// input; mirror the list (temp record included) into the cache.
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		remoteFailures.WithLabelValues("create").Inc()
		c.log.Error().Err(err).Str("temp_id", tempID).Msg("remote create failed, memory saved locally only")
		c.cache.Write(ctx, ns, snapshot)
		ack.done <- ErrSavedLocallyOnly
		return
	}

	idx := c.indexOfLocked(tempID)
	if idx < 0 {
		// The record was deleted while the create was in flight; the
		// persisted result must not resurrect it.
		c.mu.Unlock()
		c.log.Debug().Str("temp_id", tempID).Msg("record superseded before create settled, discarding result")
		ack.done <- nil
		return
	}
	c.records[idx] = *persisted
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.cache.Write(ctx, ns, snapshot)
	c.notify()
	ack.done <- nil
}

// Update applies a partial mutation optimistically and mirrors it into the
// cache before dispatching the remote update. A remote failure is logged
// only; the optimistic state stands. No-op when signed out or when no
// record matches id.
func (c *Core) Update(ctx context.Context, id string, patch types.RecordPatch) {
	if patch.IsEmpty() {
		return
	}

	c.mu.Lock()
	if !c.identity.HasStableID() {
		c.mu.Unlock()
		return
	}
	idx := c.indexOfLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	patch.Apply(&c.records[idx])
	local := c.records[idx].IsLocal()
	snapshot := c.snapshotLocked()
	ns := c.namespace
	userID := c.identity.ID
	c.mu.Unlock()

	optimisticOps.WithLabelValues("update").Inc()
	c.cache.Write(ctx, ns, snapshot)
	c.notify()

	if local {
		// Never persisted remotely, so there is no remote row to patch.
		c.log.Debug().Str("id", id).Msg("record is local-only, skipping remote update")
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.store.Update(ctx, id, userID, patch); err != nil {
			remoteFailures.WithLabelValues("update").Inc()
			c.log.Error().Err(err).Str("id", id).Msg("remote update failed, optimistic state kept")
		}
	}()
}

// Delete removes a memory optimistically and mirrors the removal into the
// cache before dispatching the remote delete. A remote failure is logged
// only. No-op when signed out or when no record matches id.
func (c *Core) Delete(ctx context.Context, id string) {
	c.mu.Lock()
	if !c.identity.HasStableID() {
		c.mu.Unlock()
		return
	}
	idx := c.indexOfLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	local := c.records[idx].IsLocal()
	c.records = append(c.records[:idx], c.records[idx+1:]...)
	snapshot := c.snapshotLocked()
	ns := c.namespace
	userID := c.identity.ID
	c.mu.Unlock()

	optimisticOps.WithLabelValues("delete").Inc()
	c.cache.Write(ctx, ns, snapshot)
	c.notify()

	if local {
		c.log.Debug().Str("id", id).Msg("record is local-only, skipping remote delete")
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.store.Delete(ctx, id, userID); err != nil {
			remoteFailures.WithLabelValues("delete").Inc()
			c.log.Error().Err(err).Str("id", id).Msg("remote delete failed, record stays removed locally")
		}
	}()
}

// ToggleCompletion flips the completed flag of the matching record. No-op
// when no record matches id.
func (c *Core) ToggleCompletion(ctx context.Context, id string) {
	c.mu.Lock()
	idx := c.indexOfLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	next := !c.records[idx].Completed
	c.mu.Unlock()

	c.Update(ctx, id, types.RecordPatch{Completed: &next})
}

// Records returns a copy of the current list, newest first.
func (c *Core) Records() []types.MemoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Loading reports whether a remote load is in flight.
func (c *Core) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Identity returns the identity the core is currently bound to, or nil.
func (c *Core) Identity() *types.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Search returns the records whose title or description contains term,
// case-insensitively. An empty term returns the full list. The result is
// recomputed from current state on every call.
func (c *Core) Search(term string) []types.MemoryRecord {
	records := c.Records()
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)
	out := make([]types.MemoryRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe registers fn to run after every visible state change and
// returns an unsubscribe handle. Subscribers pull current values via
// Records and Loading.
func (c *Core) Subscribe(fn func()) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	c.subs[id] = fn
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (c *Core) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

// AwaitIdle blocks until every background remote leg spawned so far has
// settled. Used by Close and by tests.
func (c *Core) AwaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- internals ---

func (c *Core) indexOfLocked(id string) int {
	for i := range c.records {
		if c.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Core) snapshotLocked() []types.MemoryRecord {
	out := make([]types.MemoryRecord, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Core) notify() {
	c.mu.Lock()
	subs := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func localID() string {
	id, _ := gonanoid.New()
	return types.LocalIDPrefix + id
}
