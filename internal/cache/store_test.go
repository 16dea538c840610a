package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajni/gajni-go/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []types.MemoryRecord{
		{ID: "m1", Title: "Trip", Description: "Paris", Timestamp: 100, Completed: false},
		{ID: "local_x", Title: "Draft", Timestamp: 200, Completed: true},
	}
	s.Write(ctx, "gajni-memories-u1", records)

	got, ok := s.Read(ctx, "gajni-memories-u1")
	require.True(t, ok)
	assert.Equal(t, records, got)
}

func TestReadMissingNamespace(t *testing.T) {
	s := openTestStore(t)
	got, ok := s.Read(context.Background(), "gajni-memories-unknown")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestWriteOverwritesPriorSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Write(ctx, "ns", []types.MemoryRecord{{ID: "old"}})
	s.Write(ctx, "ns", []types.MemoryRecord{{ID: "new"}})

	got, ok := s.Read(ctx, "ns")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Write(ctx, "gajni-memories-alice", []types.MemoryRecord{{ID: "a"}})
	s.Write(ctx, "gajni-memories-bob", []types.MemoryRecord{{ID: "b"}})

	got, ok := s.Read(ctx, "gajni-memories-alice")
	require.True(t, ok)
	assert.Equal(t, "a", got[0].ID)
}

func TestMalformedSnapshotReportsAbsence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Snapshots (Namespace, Payload, UpdatedAt) VALUES (?,?,?)`,
		"broken", []byte("{not json"), time.Now().UTC())
	require.NoError(t, err)

	got, ok := s.Read(ctx, "broken")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSessionPersistence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok := s.ReadSession(ctx)
	assert.False(t, ok)

	sess := &types.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Identity:     types.Identity{ID: "u1", Email: "u1@example.com"},
	}
	s.WriteSession(ctx, sess)

	got, ok := s.ReadSession(ctx)
	require.True(t, ok)
	assert.Equal(t, sess, got)

	s.ClearSession(ctx)
	_, ok = s.ReadSession(ctx)
	assert.False(t, ok)
}

func TestResolveNamespace(t *testing.T) {
	cases := []struct {
		name     string
		identity *types.Identity
		want     string
	}{
		{"nil identity", nil, DefaultNamespace},
		{"stable id", &types.Identity{ID: "u1"}, "gajni-memories-u1"},
		{"sub fallback", &types.Identity{Metadata: map[string]string{"sub": "s1"}}, "gajni-memories-s1"},
		{"id wins over sub", &types.Identity{ID: "u1", Metadata: map[string]string{"sub": "s1"}}, "gajni-memories-u1"},
		{"empty identity", &types.Identity{}, DefaultNamespace},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveNamespace(tc.identity))
		})
	}
}
