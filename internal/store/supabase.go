// Package store adapts the hosted Supabase PostgREST table `memories_v2`
// (columns id, user_id, title, content, is_favorite, created_at) to the
// client's MemoryRecord shape. All failures come back as classified store
// errors; the sync core decides what to do with them.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	ierrors "github.com/gajni/gajni-go/internal/errors"
	"github.com/gajni/gajni-go/internal/types"
)

const table = "memories_v2"

// TokenFunc returns the bearer token to authenticate a request with. It is
// re-invoked per request so token refreshes take effect immediately.
type TokenFunc func() string

// Supabase issues filtered CRUD calls against the remote table.
type Supabase struct {
	baseURL string
	anonKey string
	token   TokenFunc
	http    *http.Client
	log     zerolog.Logger

	// list retries are bounded; writes are single-shot.
	maxListRetries uint64
}

// New constructs the adapter. token may be nil, in which case the anon key
// authenticates all requests.
func New(baseURL, anonKey string, token TokenFunc, httpClient *http.Client, log zerolog.Logger) *Supabase {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		baseURL:        baseURL,
		anonKey:        anonKey,
		token:          token,
		http:           httpClient,
		log:            log,
		maxListRetries: 3,
	}
}

// row is the remote schema of one memory.
type row struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r row) toRecord() types.MemoryRecord {
	return types.MemoryRecord{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Content,
		Timestamp:   r.CreatedAt.UnixMilli(),
		Completed:   r.IsFavorite,
	}
}

// ListByUser returns all of userID's memories, newest first. Recoverable
// failures are retried with capped exponential backoff; the read is
// idempotent so retrying is safe.
func (s *Supabase) ListByUser(ctx context.Context, userID string) ([]types.MemoryRecord, error) {
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return nil, err
	}

	var records []types.MemoryRecord
	op := func() error {
		rows, err := s.list(ctx, userID)
		if err != nil {
			if ierrors.IsIrrecoverable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		records = make([]types.MemoryRecord, 0, len(rows))
		for _, r := range rows {
			records = append(records, r.toRecord())
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxListRetries), ctx)
	notify := func(err error, next time.Duration) {
		s.log.Debug().Err(err).Dur("retry_in", next).Str("user_id", userID).Msg("list memories failed, retrying")
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Supabase) list(ctx context.Context, userID string) ([]row, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.do(req)
	if err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindStore, "list memories", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, ierrors.NewHTTPError(ierrors.KindStore, resp.StatusCode, readBody(resp), "list memories")
	}
	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindStore, "list memories decode", err)
	}
	return rows, nil
}

// Create inserts one memory for userID and returns the persisted record with
// its store-assigned id and creation time.
func (s *Supabase) Create(ctx context.Context, userID, title, description string) (*types.MemoryRecord, error) {
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return nil, err
	}
	if err := types.ValidateTitle(title); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"user_id":     userID,
		"title":       title,
		"content":     description,
		"is_favorite": false,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.do(req)
	if err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindStore, "create memory", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, ierrors.NewHTTPError(ierrors.KindStore, resp.StatusCode, readBody(resp), "create memory")
	}
	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, ierrors.NewNetworkError(ierrors.KindStore, "create memory decode", err)
	}
	if len(rows) == 0 {
		return nil, ierrors.NewHTTPError(ierrors.KindStore, resp.StatusCode, "empty representation", "create memory")
	}
	rec := rows[0].toRecord()
	return &rec, nil
}

// Update patches one memory, scoped by both record id and user id so a
// stale or hostile id can never mutate another user's row.
func (s *Supabase) Update(ctx context.Context, id, userID string, patch types.RecordPatch) error {
	if err := types.ValidateIDPresent(id, "id"); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return err
	}

	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["content"] = *patch.Description
	}
	if patch.Completed != nil {
		fields["is_favorite"] = *patch.Completed
	}
	if len(fields) == 0 {
		return nil
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, scopeQuery(id, userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return ierrors.NewNetworkError(ierrors.KindStore, "update memory", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return ierrors.NewHTTPError(ierrors.KindStore, resp.StatusCode, readBody(resp), "update memory")
	}
	return nil
}

// Delete removes one memory, scoped by both record id and user id.
func (s *Supabase) Delete(ctx context.Context, id, userID string) error {
	if err := types.ValidateIDPresent(id, "id"); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, scopeQuery(id, userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.do(req)
	if err != nil {
		return ierrors.NewNetworkError(ierrors.KindStore, "delete memory", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return ierrors.NewHTTPError(ierrors.KindStore, resp.StatusCode, readBody(resp), "delete memory")
	}
	return nil
}

func scopeQuery(id, userID string) string {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+userID)
	return q.Encode()
}

// do attaches the Supabase auth headers and executes the request.
func (s *Supabase) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("apikey", s.anonKey)
	token := s.anonKey
	if s.token != nil {
		if t := s.token(); t != "" {
			token = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return s.http.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return string(b)
}
