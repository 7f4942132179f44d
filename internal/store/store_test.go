package store_test

import (
	"context"
	"testing"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/josh-kwaku/pix-relay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func exerciseStore(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	var p payload
	ok, err := store.GetJSON(ctx, s, "missing", &p)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetJSON(ctx, s, "k", payload{Name: "a", Count: 1}))
	require.NoError(t, store.SetJSON(ctx, s, "k", payload{Name: "b", Count: 2}))

	ok, err = store.GetJSON(ctx, s, "k", &p)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "b", Count: 2}, p)

	require.NoError(t, s.Remove(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Remove(ctx, "never-set"))
	require.NoError(t, s.Ping(ctx))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, store.NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	v := []byte(`"abc"`)
	require.NoError(t, m.Set(ctx, "k", v))
	v[1] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got))
}

func TestMemory_DecodeError(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("not json")))

	var p payload
	_, err := store.GetJSON(ctx, m, "k", &p)
	require.Error(t, err)
}

func TestPostgres(t *testing.T) {
	exerciseStore(t, testutil.SetupTestStore(t))
}

func TestMigrateRollback(t *testing.T) {
	dsn := testutil.SetupTestDSN(t)
	dir := testutil.MigrationsDir()

	applied, err := store.Migrate(dsn, dir)
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, store.Rollback(dsn, dir, 1))
	pg := store.NewPostgres(testutil.OpenTestDB(t, dsn))
	require.Error(t, pg.Set(context.Background(), "k", []byte(`"v"`)))

	applied, err = store.Migrate(dsn, dir)
	require.NoError(t, err)
	assert.True(t, applied)
	require.NoError(t, pg.Set(context.Background(), "k", []byte(`"v"`)))
}
