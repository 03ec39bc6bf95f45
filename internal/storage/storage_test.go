package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, KeyDraft)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, KeyDraft, `[{"id":"contact"}]`))
	v, err := kv.Get(ctx, KeyDraft)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"contact"}]`, v)

	require.NoError(t, kv.Set(ctx, KeyDraft, "second"))
	v, err = kv.Get(ctx, KeyDraft)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	big := strings.Repeat("experience ", 5000)
	require.NoError(t, kv.Set(ctx, KeyTemplate, big))
	v, err = kv.Get(ctx, KeyTemplate)
	require.NoError(t, err)
	assert.Equal(t, big, v)

	require.NoError(t, kv.Delete(ctx, KeyDraft))
	require.NoError(t, kv.Delete(ctx, KeyDraft))
	_, err = kv.Get(ctx, KeyDraft)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := GetOr(ctx, kv, KeyDraft, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseKV(t, m)
	assert.Equal(t, 3, m.Writes())
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Set(ctx, KeyAccessToken, "t")
			_, _ = m.Get(ctx, KeyAccessToken)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.Writes())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	kv, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	exerciseKV(t, kv)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSQLite_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	kv, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, KeyAccessToken, "abc"))
	require.NoError(t, kv.Close())

	// migrations are idempotent
	kv, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	v, err := kv.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(ctx, "memory:")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, kv)
	require.NoError(t, kv.Close())
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "open", storeErr.Op)
}

func TestCodec_RoundTrip(t *testing.T) {
	in := []byte(strings.Repeat("abc", 100))
	packed, err := values.compress(in)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(in))

	out, err := values.decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = values.decompress([]byte("not zstd"))
	assert.Error(t, err)
}
