package gajni

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves just enough GoTrue and PostgREST to exercise the whole
// client: sign-in, list, create.
type fakeBackend struct {
	mu   sync.Mutex
	rows []map[string]any
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u1", "email": "u1@example.com"},
		})
	})
	mux.HandleFunc("/rest/v1/memories_v2", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.rows)
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			row := map[string]any{
				"id":          "srv-1",
				"user_id":     body["user_id"],
				"title":       body["title"],
				"content":     body["content"],
				"is_favorite": false,
				"created_at":  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
			}
			f.rows = append([]map[string]any{row}, f.rows...)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode([]map[string]any{row})
		case http.MethodPatch, http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	return mux
}

func TestClient_SignInLoadAndAdd(t *testing.T) {
	backend := &fakeBackend{
		rows: []map[string]any{{
			"id": "m1", "user_id": "u1", "title": "Trip", "content": "Paris",
			"is_favorite": false, "created_at": time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		}},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "cache.db")
	cfg := Config{SupabaseURL: srv.URL, SupabaseAnonKey: "anon", CachePath: cachePath}
	c, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	sess, err := c.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, sess)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AwaitIdle(ctx))

	got := c.Memories()
	require.Len(t, got, 1)
	assert.Equal(t, "Trip", got[0].Title)
	assert.Equal(t, "Paris", got[0].Description)

	ack, err := c.AddMemory(context.Background(), "Gift", "Watch")
	require.NoError(t, err)
	require.NoError(t, ack.Await(context.Background()))
	require.NoError(t, c.AwaitIdle(ctx))

	got = c.Memories()
	require.Len(t, got, 2)
	assert.Equal(t, "srv-1", got[0].ID, "temp record reconciled with the store-assigned id")
	assert.Equal(t, "Gift", got[0].Title)

	require.Len(t, c.SearchMemories("watch"), 1)
	assert.Empty(t, c.SearchMemories("nope"))
}

type scriptedRecognizer struct{ text string }

func (s scriptedRecognizer) Transcribe(context.Context) (string, error) { return s.text, nil }

type recordingSynth struct {
	mu     sync.Mutex
	spoken []string
}

func (r *recordingSynth) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	return nil
}

func TestClient_DictationAndReadBack(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	synth := &recordingSynth{}
	cfg := Config{SupabaseURL: srv.URL, SupabaseAnonKey: "anon", CachePath: filepath.Join(t.TempDir(), "cache.db")}
	c, err := New(cfg, WithRecognizer(scriptedRecognizer{text: "Buy milk"}), WithSynthesizer(synth))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)

	ack, err := c.DictateMemory(context.Background(), "Note")
	require.NoError(t, err)
	require.NoError(t, ack.Await(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AwaitIdle(ctx))

	got := c.Memories()
	require.Len(t, got, 1)
	assert.Equal(t, "Buy milk", got[0].Description)

	require.NoError(t, c.ReadMemoryAloud(context.Background(), got[0].ID))
	synth.mu.Lock()
	defer synth.mu.Unlock()
	require.Len(t, synth.spoken, 1)
	assert.Equal(t, "Note. Buy milk", synth.spoken[0])
}

func TestClient_SessionRestoredAcrossRestart(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "cache.db")
	cfg := Config{SupabaseURL: srv.URL, SupabaseAnonKey: "anon", CachePath: cachePath}

	first, err := New(cfg)
	require.NoError(t, err)
	_, err = first.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	ident := second.Identity()
	require.NotNil(t, ident, "persisted session must be restored at startup")
	assert.Equal(t, "u1", ident.ID)
}
