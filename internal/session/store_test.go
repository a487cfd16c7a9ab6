package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/credential"
	"docqa/internal/pkg/jwtutil"
)

type failingStore struct {
	*credential.MemoryStore
	getErr error
	setErr error
}

func (f *failingStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	backend := credential.NewMemoryStore()
	store := NewStore(backend, nil)

	require.NoError(t, store.Login(ctx, "pw1-token", "alice"))

	snap := store.Snapshot()
	assert.True(t, snap.Authenticated())
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "alice", snap.Identity.Username)

	token, err := backend.Get(ctx, credential.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "pw1-token", token)
	user, err := backend.Get(ctx, credential.KeyUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice"}`, user)

	require.NoError(t, store.Logout(ctx))
	snap = store.Snapshot()
	assert.False(t, snap.Authenticated())
	assert.Nil(t, snap.Identity)
	assert.Equal(t, 0, backend.Len(), "persisted storage is empty")
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	backend := credential.NewMemoryStore()
	store := NewStore(backend, nil)
	require.NoError(t, store.Login(ctx, "tok", "alice"))

	require.NoError(t, store.Logout(ctx))
	once := store.Snapshot()
	require.NoError(t, store.Logout(ctx))
	twice := store.Snapshot()

	assert.Equal(t, once, twice)
	assert.Equal(t, 0, backend.Len())
}

func TestLogin_RejectsEmpty(t *testing.T) {
	store := NewStore(credential.NewMemoryStore(), nil)

	assert.ErrorIs(t, store.Login(context.Background(), "  ", "alice"), ErrEmptyToken)
	assert.ErrorIs(t, store.Login(context.Background(), "tok", ""), ErrEmptyUsername)
	assert.False(t, store.Authenticated())
}

func TestLogin_PersistFailureKeepsMemoryState(t *testing.T) {
	backend := &failingStore{MemoryStore: credential.NewMemoryStore(), setErr: errors.New("disk full")}
	store := NewStore(backend, nil)

	err := store.Login(context.Background(), "tok", "alice")
	require.Error(t, err)
	assert.True(t, store.Authenticated())
}

func TestRestore(t *testing.T) {
	live, err := jwtutil.GenerateToken("s", time.Hour, "u1", "alice")
	require.NoError(t, err)
	expired, err := jwtutil.GenerateToken("s", -time.Hour, "u1", "alice")
	require.NoError(t, err)

	tests := []struct {
		name     string
		values   map[string]string
		wantAuth bool
		wantUser string
	}{
		{name: "nothing persisted"},
		{
			name:     "opaque token",
			values:   map[string]string{credential.KeyToken: "opaque", credential.KeyUser: `{"username":"alice"}`},
			wantAuth: true,
			wantUser: "alice",
		},
		{
			name:     "live jwt",
			values:   map[string]string{credential.KeyToken: live, credential.KeyUser: `{"username":"alice"}`},
			wantAuth: true,
			wantUser: "alice",
		},
		{
			name:   "expired jwt",
			values: map[string]string{credential.KeyToken: expired, credential.KeyUser: `{"username":"alice"}`},
		},
		{
			name:   "token without user",
			values: map[string]string{credential.KeyToken: "opaque"},
		},
		{
			name:   "malformed user",
			values: map[string]string{credential.KeyToken: "opaque", credential.KeyUser: `{"username":`},
		},
		{
			name:   "user without username",
			values: map[string]string{credential.KeyToken: "opaque", credential.KeyUser: `{}`},
		},
		{
			name:   "empty token",
			values: map[string]string{credential.KeyToken: "", credential.KeyUser: `{"username":"alice"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := credential.NewMemoryStore()
			for k, v := range tt.values {
				require.NoError(t, backend.Set(ctx, k, v))
			}
			store := NewStore(backend, nil)
			store.Restore(ctx)

			snap := store.Snapshot()
			assert.Equal(t, tt.wantAuth, snap.Authenticated())
			if tt.wantUser == "" {
				assert.Nil(t, snap.Identity, "identity is never set without a token")
			} else {
				require.NotNil(t, snap.Identity)
				assert.Equal(t, tt.wantUser, snap.Identity.Username)
			}
		})
	}
}

func TestRestore_BackendErrorIsSilent(t *testing.T) {
	backend := &failingStore{MemoryStore: credential.NewMemoryStore(), getErr: errors.New("connection refused")}
	store := NewStore(backend, nil)

	store.Restore(context.Background())
	assert.False(t, store.Authenticated())
}

func TestRestore_RunsOnce(t *testing.T) {
	ctx := context.Background()
	backend := credential.NewMemoryStore()
	store := NewStore(backend, nil)

	store.Restore(ctx)
	require.NoError(t, backend.Set(ctx, credential.KeyToken, "late"))
	require.NoError(t, backend.Set(ctx, credential.KeyUser, `{"username":"bob"}`))
	store.Restore(ctx)

	assert.False(t, store.Authenticated())
}
