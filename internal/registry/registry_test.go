package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/storage"
)

type fakeResolver struct {
	accounts map[string]*riot.Account
	regions  map[string]string
	resolves int
	// detect overrides the region lookup when set
	detect func(ctx context.Context, puuid string) (string, error)
}

func (f *fakeResolver) ResolvePlayer(ctx context.Context, riotID string) (*riot.Account, error) {
	if _, _, err := riot.ParseRiotID(riotID); err != nil {
		return nil, err
	}
	f.resolves++
	if a, ok := f.accounts[riotID]; ok {
		return a, nil
	}
	return nil, riot.ErrNotFound
}

func (f *fakeResolver) DetectRegion(ctx context.Context, puuid string) (string, error) {
	if f.detect != nil {
		return f.detect(ctx, puuid)
	}
	return f.regions[puuid], nil
}

func blockUntilDone(ctx context.Context, puuid string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestRegistry(t *testing.T) (*Registry, *fakeResolver) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	resolver := &fakeResolver{
		accounts: map[string]*riot.Account{
			"Faker #KR1":      {PUUID: "puuid-faker", GameName: "Faker", TagLine: "KR1"},
			"Doublelift #NA1": {PUUID: "puuid-dl", GameName: "Doublelift", TagLine: "NA1"},
		},
		regions: map[string]string{"puuid-faker": "kr"},
	}
	return New(resolver, store), resolver
}

func TestAddPlayer(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	s, added, err := r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "puuid-faker", s.PUUID)
	assert.Equal(t, "Faker #KR1", s.Name)
	assert.Equal(t, "kr", s.Region)

	_, added, err = r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.False(t, added)

	players, err := r.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, players, 1)
}

func TestAddPlayerErrors(t *testing.T) {
	r, resolver := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := r.AddPlayer(ctx, "g1", "Faker")
	assert.ErrorIs(t, err, riot.ErrInvalidIdentifierFormat)
	assert.Zero(t, resolver.resolves)

	_, _, err = r.AddPlayer(ctx, "g1", "Nobody #EUW")
	assert.ErrorIs(t, err, riot.ErrNotFound)

	players, err := r.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestAddPlayerStoresRegion(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)

	players, err := r.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "kr", players[0].Region)
}

func TestAddPlayerRegionDetectionIsBounded(t *testing.T) {
	r, resolver := newTestRegistry(t)
	resolver.detect = blockUntilDone
	r.regionTimeout = 50 * time.Millisecond

	s, added, err := r.AddPlayer(context.Background(), "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Empty(t, s.Region)

	players, err := r.ListPlayers(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "puuid-faker", players[0].PUUID)
}

func TestAddPlayerSurvivesRegionDetectionUsingDeadline(t *testing.T) {
	r, resolver := newTestRegistry(t)
	resolver.detect = blockUntilDone

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, added, err := r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.True(t, added)

	players, err := r.ListPlayers(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, players, 1)
}

func TestAddPlayerRegionDetectionError(t *testing.T) {
	r, resolver := newTestRegistry(t)
	resolver.detect = func(ctx context.Context, puuid string) (string, error) {
		return "", riot.ErrRateLimitExhausted
	}

	s, added, err := r.AddPlayer(context.Background(), "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Empty(t, s.Region)
}

func TestRemovePlayer(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	_, _, err = r.AddPlayer(ctx, "g1", "Doublelift #NA1")
	require.NoError(t, err)

	removed, err := r.RemovePlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.RemovePlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = r.RemovePlayer(ctx, "g1", "#KR1")
	assert.ErrorIs(t, err, riot.ErrInvalidIdentifierFormat)

	_, err = r.RemovePlayer(ctx, "g1", "Nobody #EUW")
	assert.ErrorIs(t, err, riot.ErrNotFound)

	players, err := r.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "puuid-dl", players[0].PUUID)
}

func TestFindPlayer(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)

	s, ok, err := r.FindPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "puuid-faker", s.PUUID)

	_, ok, err = r.FindPlayer(ctx, "g2", "Faker #KR1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = r.FindPlayer(ctx, "g1", "Nobody #EUW")
	assert.ErrorIs(t, err, riot.ErrNotFound)
}

func TestFindPlayerAfterRename(t *testing.T) {
	r, resolver := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := r.AddPlayer(ctx, "g1", "Faker #KR1")
	require.NoError(t, err)

	resolver.accounts["Hide on bush #KR1"] = &riot.Account{PUUID: "puuid-faker", GameName: "Hide on bush", TagLine: "KR1"}
	delete(resolver.accounts, "Faker #KR1")

	s, ok, err := r.FindPlayer(ctx, "g1", "Hide on bush #KR1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Faker #KR1", s.Name)

	// The old name is gone upstream, so the stored name still finds the player
	removed, err := r.RemovePlayer(ctx, "g1", "faker #kr1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRiotIDTakenOverByAnotherAccount(t *testing.T) {
	r, resolver := newTestRegistry(t)
	ctx := context.Background()

	resolver.accounts["Foo #NA1"] = &riot.Account{PUUID: "puuid-a", GameName: "Foo", TagLine: "NA1"}
	_, _, err := r.AddPlayer(ctx, "g1", "Foo #NA1")
	require.NoError(t, err)

	// A renames away and B claims the old Riot ID
	resolver.accounts["Foo #NA1"] = &riot.Account{PUUID: "puuid-b", GameName: "Foo", TagLine: "NA1"}
	_, _, err = r.AddPlayer(ctx, "g1", "Foo #NA1")
	require.NoError(t, err)

	s, ok, err := r.FindPlayer(ctx, "g1", "Foo #NA1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "puuid-b", s.PUUID)

	removed, err := r.RemovePlayer(ctx, "g1", "Foo #NA1")
	require.NoError(t, err)
	assert.True(t, removed)

	players, err := r.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "puuid-a", players[0].PUUID)
}

func TestNotificationChannel(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	created, err := r.RegisterGuild(ctx, "g1", "Guild")
	require.NoError(t, err)
	assert.True(t, created)

	changed, err := r.SetNotificationChannel(ctx, "g1", "c1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.SetNotificationChannel(ctx, "g1", "c1")
	require.NoError(t, err)
	assert.False(t, changed)

	channel, err := r.GetNotificationChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "c1", channel)
}
