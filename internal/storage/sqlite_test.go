package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t,
		func(t *testing.T) Store { return newTestStore(t) },
		func(t *testing.T, s Store, name string) int {
			var n int
			require.NoError(t, s.(*SQLiteStore).db.QueryRow(
				`SELECT times_called FROM command_analytics WHERE command_name = ?`, name).Scan(&n))
			return n
		},
	)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.AddSummoner(ctx, "g1", Summoner{PUUID: "p1", Name: "First #NA1"})
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	// Migrations are safe to run against an existing schema
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close(ctx)

	list, err := s.ListSummoners(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "", "", "")
	assert.Error(t, err)
}
