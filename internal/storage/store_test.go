package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flor3z/scuttle-bot/internal/riot"
)

// storeFactory opens an empty store that is closed on test cleanup
type storeFactory func(t *testing.T) Store

// commandCounter reads a command's analytics counter straight from the backend
type commandCounter func(t *testing.T, s Store, name string) int

func testRecord(puuid, matchID string, start int64) *MatchRecord {
	return &MatchRecord{
		MatchID:            matchID,
		PlayerID:           puuid,
		GameStartTimestamp: start,
		QueueID:            riot.QueueRankedSolo,
		GameDuration:       1800,
		Participants: []riot.Participant{
			{PUUID: puuid, ChampionName: "Ahri", Kills: 7, Deaths: 2, Assists: 9, Win: true,
				Challenges: &riot.Challenges{KDA: 8, DamagePerMinute: 812.5}},
			{PUUID: "other", ChampionName: "Zed"},
		},
		CachedAt: time.UnixMilli(start).UTC(),
	}
}

// runStoreContract runs the behaviour every Store backend must share
func runStoreContract(t *testing.T, newStore storeFactory, timesCalled commandCounter) {
	t.Run("RegisterGuild", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.RegisterGuild(ctx, "g1", "Rift Enjoyers")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.RegisterGuild(ctx, "g1", "Renamed")
		require.NoError(t, err)
		assert.False(t, created)

		g, err := s.GetGuild(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "Rift Enjoyers", g.Name)
		assert.Empty(t, g.Summoners)

		_, err = s.GetGuild(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("AddSummonerSetSemantics", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		added, err := s.AddSummoner(ctx, "g1", Summoner{PUUID: "p2", Name: "Second #EUW", Region: "euw1"})
		require.NoError(t, err)
		assert.True(t, added)

		added, err = s.AddSummoner(ctx, "g1", Summoner{PUUID: "p1", Name: "First #NA1"})
		require.NoError(t, err)
		assert.True(t, added)

		added, err = s.AddSummoner(ctx, "g1", Summoner{PUUID: "p2", Name: "Second #EUW"})
		require.NoError(t, err)
		assert.False(t, added)

		list, err := s.ListSummoners(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "p2", list[0].PUUID)
		assert.Equal(t, "euw1", list[0].Region)
		assert.Equal(t, "p1", list[1].PUUID)

		// Same player in a second guild is independent
		added, err = s.AddSummoner(ctx, "g2", Summoner{PUUID: "p2", Name: "Second #EUW"})
		require.NoError(t, err)
		assert.True(t, added)

		removed, err := s.RemoveSummoner(ctx, "g1", "p2")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = s.RemoveSummoner(ctx, "g1", "p2")
		require.NoError(t, err)
		assert.False(t, removed)

		list, err = s.ListSummoners(ctx, "g2")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("ListGuilds", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.RegisterGuild(ctx, "g1", "One")
		require.NoError(t, err)
		_, err = s.AddSummoner(ctx, "g2", Summoner{PUUID: "p1", Name: "A #B"})
		require.NoError(t, err)

		guilds, err := s.ListGuilds(ctx)
		require.NoError(t, err)
		require.Len(t, guilds, 2)

		byID := map[string]*Guild{}
		for _, g := range guilds {
			byID[g.GuildID] = g
		}
		assert.Len(t, byID["g2"].Summoners, 1)
		assert.Empty(t, byID["g1"].Summoners)
	})

	t.Run("NotificationChannel", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		channel, err := s.GetNotificationChannel(ctx, "g1")
		require.NoError(t, err)
		assert.Empty(t, channel)

		changed, err := s.SetNotificationChannel(ctx, "g1", "c1")
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = s.SetNotificationChannel(ctx, "g1", "c1")
		require.NoError(t, err)
		assert.False(t, changed)

		changed, err = s.SetNotificationChannel(ctx, "g1", "c2")
		require.NoError(t, err)
		assert.True(t, changed)

		channel, err = s.GetNotificationChannel(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "c2", channel)
	})

	t.Run("PlayerCached", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		cached, err := s.IsPlayerCached(ctx, "p1")
		require.NoError(t, err)
		assert.False(t, cached)

		require.NoError(t, s.EnsurePlayerBucket(ctx, "p1", "First #NA1"))
		require.NoError(t, s.EnsurePlayerBucket(ctx, "p1", "First #NA1"))

		cached, err = s.IsPlayerCached(ctx, "p1")
		require.NoError(t, err)
		assert.False(t, cached)

		require.NoError(t, s.MarkPlayerCached(ctx, "p1", time.Now()))

		cached, err = s.IsPlayerCached(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, cached)
	})

	t.Run("AppendMatchIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec := testRecord("p1", "NA1_1", 1_700_000_000_000)

		inserted, err := s.AppendMatch(ctx, rec)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = s.AppendMatch(ctx, rec)
		require.NoError(t, err)
		assert.False(t, inserted)

		// The same match in another player's bucket is a separate record
		inserted, err = s.AppendMatch(ctx, testRecord("p2", "NA1_1", 1_700_000_000_000))
		require.NoError(t, err)
		assert.True(t, inserted)

		has, err := s.HasMatch(ctx, "p1", "NA1_1")
		require.NoError(t, err)
		assert.True(t, has)

		has, err = s.HasMatch(ctx, "p1", "NA1_2")
		require.NoError(t, err)
		assert.False(t, has)

		records, err := s.QueryMatches(ctx, "p1", 0)
		require.NoError(t, err)
		require.Len(t, records, 1)

		got := records[0]
		assert.Equal(t, "NA1_1", got.MatchID)
		assert.Equal(t, riot.QueueRankedSolo, got.QueueID)
		require.Len(t, got.Participants, 2)
		self := got.FindParticipant("p1")
		require.NotNil(t, self)
		assert.Equal(t, 9, self.Assists)
		require.NotNil(t, self.Challenges)
		assert.Equal(t, 812.5, self.Challenges.DamagePerMinute)
		assert.Nil(t, got.FindParticipant("nobody"))
	})

	t.Run("QueryMatchesInclusiveLowerBound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const since = int64(1_700_000_000_000)
		for id, start := range map[string]int64{
			"NA1_before": since - 1,
			"NA1_exact":  since,
			"NA1_after":  since + 60_000,
		} {
			_, err := s.AppendMatch(ctx, testRecord("p1", id, start))
			require.NoError(t, err)
		}

		records, err := s.QueryMatches(ctx, "p1", since)
		require.NoError(t, err)

		var ids []string
		for _, r := range records {
			ids = append(ids, r.MatchID)
		}
		assert.ElementsMatch(t, []string{"NA1_exact", "NA1_after"}, ids)

		records, err = s.QueryMatches(ctx, "unknown", 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("PruneMatches", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.AppendMatch(ctx, testRecord("p1", "NA1_old", 1000))
		require.NoError(t, err)
		_, err = s.AppendMatch(ctx, testRecord("p1", "NA1_new", 5000))
		require.NoError(t, err)

		n, err := s.PruneMatches(ctx, 5000)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		records, err := s.QueryMatches(ctx, "p1", 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "NA1_new", records[0].MatchID)
	})

	t.Run("UpdateSummonerRegion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.AddSummoner(ctx, "g1", Summoner{PUUID: "p1", Name: "First #NA1"})
		require.NoError(t, err)
		_, err = s.AddSummoner(ctx, "g1", Summoner{PUUID: "p2", Name: "Second #EUW"})
		require.NoError(t, err)

		updated, err := s.UpdateSummonerRegion(ctx, "g1", "p2", "euw1")
		require.NoError(t, err)
		assert.True(t, updated)

		updated, err = s.UpdateSummonerRegion(ctx, "g1", "missing", "na1")
		require.NoError(t, err)
		assert.False(t, updated)

		list, err := s.ListSummoners(ctx, "g1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Empty(t, list[0].Region)
		assert.Equal(t, "euw1", list[1].Region)
	})

	t.Run("RecordCommand", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.RecordCommand(ctx, "stats"))
		require.NoError(t, s.RecordCommand(ctx, "stats"))
		require.NoError(t, s.RecordCommand(ctx, "help"))

		assert.Equal(t, 2, timesCalled(t, s, "stats"))
		assert.Equal(t, 1, timesCalled(t, s, "help"))
	})
}
