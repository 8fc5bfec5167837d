package workspace

import (
	"testing"

	"stash/internal/errors"
	"stash/internal/vault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	db, err := vault.InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db)
}

func validRecord() *Record {
	return &Record{
		ProfileID: "alice",
		Name:      "notes",
		LocalPath: "/home/alice/notes",
		Target:    "vault://notes",
	}
}

func TestSaveAssignsIDAndTimestamps(t *testing.T) {
	store := newStore(t)

	r := validRecord()
	require.NoError(t, store.Save(r))

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())
	assert.False(t, r.UpdatedAt.IsZero())
}

func TestSaveThenGet(t *testing.T) {
	store := newStore(t)

	r := validRecord()
	require.NoError(t, store.Save(r))

	got, err := store.Get("alice", "notes")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "/home/alice/notes", got.LocalPath)
	assert.Equal(t, "vault://notes", got.Target)
}

func TestSaveUpdatesKeepID(t *testing.T) {
	store := newStore(t)

	r := validRecord()
	require.NoError(t, store.Save(r))
	id := r.ID

	r.LocalPath = "/home/alice/elsewhere"
	require.NoError(t, store.Save(r))

	got, err := store.Get("alice", "notes")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "/home/alice/elsewhere", got.LocalPath)
}

func TestSaveRejectsInvalidRecords(t *testing.T) {
	store := newStore(t)

	r := validRecord()
	r.ProfileID = ""
	assert.Error(t, store.Save(r))

	r = validRecord()
	r.Name = "has spaces"
	assert.Error(t, store.Save(r))

	r = validRecord()
	r.Target = "http://not-a-vault"
	assert.Error(t, store.Save(r))

	r = validRecord()
	r.LocalPath = ""
	err := store.Save(r)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))
}

func TestGetMissing(t *testing.T) {
	store := newStore(t)

	_, err := store.Get("alice", "ghost")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestDelete(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Save(validRecord()))
	require.NoError(t, store.Delete("alice", "notes"))

	_, err := store.Get("alice", "notes")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestListIsScopedToProfile(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Save(validRecord()))

	other := validRecord()
	other.ProfileID = "bob"
	other.Name = "work"
	require.NoError(t, store.Save(other))

	records, err := store.List("alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "notes", records[0].Name)
}
