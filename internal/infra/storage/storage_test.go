package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	file, err := OpenFile(filepath.Join(dir, "files"))
	require.NoError(t, err)

	db, err := OpenSQLite(filepath.Join(dir, "db", "hibiki.db"))
	require.NoError(t, err)

	backends := map[string]Backend{
		KindMemory: NewMemory(),
		KindFile:   file,
		KindSQLite: db,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			b.Close()
		}
	})
	return backends
}

func TestBackend_GetSet(t *testing.T) {
	ctx := context.Background()

	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Get(ctx, "hibiki-queue")
			require.NoError(t, err)
			assert.False(t, ok, "missing key")

			require.NoError(t, b.Set(ctx, "hibiki-queue", `{"volume":0.5}`))
			v, ok, err := b.Get(ctx, "hibiki-queue")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"volume":0.5}`, v)

			require.NoError(t, b.Set(ctx, "hibiki-queue", `{}`))
			v, _, err = b.Get(ctx, "hibiki-queue")
			require.NoError(t, err)
			assert.Equal(t, `{}`, v, "set replaces the previous value")
		})
	}
}

func TestBackend_EmptyKey(t *testing.T) {
	ctx := context.Background()

	for name, b := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := b.Get(ctx, "")
			assert.Error(t, err)
			assert.Error(t, b.Set(ctx, "", "x"))
		})
	}
}

func TestFile_RejectsPathTraversal(t *testing.T) {
	f, err := OpenFile(t.TempDir())
	require.NoError(t, err)

	err = f.Set(context.Background(), "../escape", "x")
	assert.Error(t, err)
}

func TestFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFile(dir)
	require.NoError(t, err)

	require.NoError(t, f.Set(context.Background(), "hibiki-queue", "value"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hibiki-queue.json", entries[0].Name())
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hibiki.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "k", "v"))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		kind    string
		path    string
		wantErr bool
	}{
		{name: "memory", kind: KindMemory},
		{name: "default is memory", kind: ""},
		{name: "file", kind: KindFile, path: filepath.Join(dir, "state")},
		{name: "sqlite", kind: KindSQLite, path: filepath.Join(dir, "state.db")},
		{name: "file without path", kind: KindFile, wantErr: true},
		{name: "unknown", kind: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(tt.kind, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, b.Close())
		})
	}
}
