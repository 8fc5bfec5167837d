package vault

import (
	"context"
	"sort"
	"testing"

	"stash/internal/errors"
	"stash/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVaultTree(t *testing.T, target string) *Tree {
	t.Helper()

	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := NewBlobStore(db, 16)
	require.NoError(t, err)

	return NewTree(db, blobs, target, zap.NewNop())
}

func TestTreeWriteReadStat(t *testing.T) {
	vt := newVaultTree(t, "docs")

	require.NoError(t, vt.WriteFile("guide/intro.md", []byte("# Intro")))

	data, err := vt.ReadFile("guide/intro.md")
	require.NoError(t, err)
	assert.Equal(t, "# Intro", string(data))

	info, err := vt.Stat("guide/intro.md")
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.False(t, info.IsDir)

	// Parent directories materialize with the write.
	info, err = vt.Stat("guide")
	require.NoError(t, err)
	assert.True(t, info.IsDir)
}

func TestTreeStatMissing(t *testing.T) {
	vt := newVaultTree(t, "docs")

	_, err := vt.Stat("absent.txt")
	assert.ErrorIs(t, err, tree.ErrNotExist)
}

func TestTreeReadDirectory(t *testing.T) {
	vt := newVaultTree(t, "docs")
	require.NoError(t, vt.MkdirAll("sub"))

	_, err := vt.ReadFile("sub")
	assert.Error(t, err)
}

func TestTreeWalk(t *testing.T) {
	vt := newVaultTree(t, "docs")
	require.NoError(t, vt.WriteFile("a.txt", []byte("a")))
	require.NoError(t, vt.WriteFile("sub/b.txt", []byte("b")))

	var paths []string
	err := vt.Walk(func(info tree.Info) error {
		paths = append(paths, info.Path)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)
	assert.Equal(t, []string{"a.txt", "sub", "sub/b.txt"}, paths)
}

func TestTreeRemoveRecursive(t *testing.T) {
	vt := newVaultTree(t, "docs")
	require.NoError(t, vt.WriteFile("sub/a.txt", []byte("a")))
	require.NoError(t, vt.WriteFile("sub/deep/b.txt", []byte("b")))
	require.NoError(t, vt.WriteFile("keep.txt", []byte("k")))

	require.NoError(t, vt.Remove("sub"))

	_, err := vt.Stat("sub")
	assert.ErrorIs(t, err, tree.ErrNotExist)
	_, err = vt.Stat("sub/deep/b.txt")
	assert.ErrorIs(t, err, tree.ErrNotExist)

	_, err = vt.Stat("keep.txt")
	assert.NoError(t, err)

	// Removing a missing path is a no-op.
	assert.NoError(t, vt.Remove("sub"))
}

func TestTreeMkdirAllReplacesFileEntry(t *testing.T) {
	vt := newVaultTree(t, "docs")
	require.NoError(t, vt.WriteFile("thing", []byte("x")))

	require.NoError(t, vt.MkdirAll("thing"))

	info, err := vt.Stat("thing")
	require.NoError(t, err)
	assert.True(t, info.IsDir)
}

func TestTreeWriteFileReplacesDirectoryEntry(t *testing.T) {
	vt := newVaultTree(t, "docs")
	require.NoError(t, vt.WriteFile("thing/a.txt", []byte("a")))
	require.NoError(t, vt.WriteFile("thing/deep/b.txt", []byte("b")))

	require.NoError(t, vt.WriteFile("thing", []byte("file now")))

	data, err := vt.ReadFile("thing")
	require.NoError(t, err)
	assert.Equal(t, "file now", string(data))

	// The old directory's children do not linger in the index.
	_, err = vt.Stat("thing/a.txt")
	assert.ErrorIs(t, err, tree.ErrNotExist)
	_, err = vt.Stat("thing/deep/b.txt")
	assert.ErrorIs(t, err, tree.ErrNotExist)
}

func TestTreeTargetsAreIsolated(t *testing.T) {
	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := NewBlobStore(db, 16)
	require.NoError(t, err)

	first := NewTree(db, blobs, "first", zap.NewNop())
	second := NewTree(db, blobs, "second", zap.NewNop())

	require.NoError(t, first.WriteFile("only-here.txt", []byte("x")))

	_, err = second.Stat("only-here.txt")
	assert.ErrorIs(t, err, tree.ErrNotExist)
}

func TestTreeWatchNotifiesInOrder(t *testing.T) {
	vt := newVaultTree(t, "docs")

	var events []string
	unsubscribe, err := vt.Watch(func(path string) {
		events = append(events, path)
	})
	require.NoError(t, err)

	require.NoError(t, vt.WriteFile("a/b.txt", []byte("x")))
	assert.Equal(t, []string{"a", "a/b.txt"}, events, "parent creation precedes the file event")

	require.NoError(t, unsubscribe())
	require.NoError(t, vt.Remove("a"))
	assert.Len(t, events, 2, "no events after unsubscribing")
}

func TestRegistryLifecycle(t *testing.T) {
	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := NewRegistry(db)
	target := "vault://notes"

	require.NoError(t, reg.Create("alice", target))
	assert.Error(t, reg.Create("alice", target), "duplicate create fails")

	info, err := reg.Get(target)
	require.NoError(t, err)
	assert.Equal(t, "notes", info.Name)
	assert.Equal(t, "alice", info.Owner)
	assert.True(t, info.Retained)

	require.NoError(t, reg.CanWrite("alice", target))

	err = reg.CanWrite("bob", target)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotWritable))

	require.NoError(t, reg.Retire(target))
	err = reg.CanWrite("alice", target)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotWritable))
}

func TestRegistryCanWriteUnknownVault(t *testing.T) {
	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := NewRegistry(db)
	err = reg.CanWrite("alice", "vault://ghost")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotWritable))
}

func TestProviderSharesHandles(t *testing.T) {
	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := NewBlobStore(db, 16)
	require.NoError(t, err)
	reg := NewRegistry(db)
	require.NoError(t, reg.Create("alice", "vault://notes"))

	provider := NewProvider(db, blobs, reg, zap.NewNop())

	first, err := provider.GetOrLoad(context.Background(), "vault://notes")
	require.NoError(t, err)
	second, err := provider.GetOrLoad(context.Background(), "vault://notes")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestProviderUnknownTarget(t *testing.T) {
	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := NewBlobStore(db, 16)
	require.NoError(t, err)
	provider := NewProvider(db, blobs, NewRegistry(db), zap.NewNop())

	_, err = provider.GetOrLoad(context.Background(), "vault://ghost")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestProviderHonorsCancellation(t *testing.T) {
	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := NewBlobStore(db, 16)
	require.NoError(t, err)
	provider := NewProvider(db, blobs, NewRegistry(db), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.GetOrLoad(ctx, "vault://notes")
	assert.ErrorIs(t, err, context.Canceled)
}
