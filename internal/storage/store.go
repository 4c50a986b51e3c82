package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a keyed lookup matches no document
var ErrNotFound = errors.New("storage: not found")

// Store is the persistence contract shared by the MongoDB and SQLite backends.
// Every method is a single independent operation; none needs a transaction.
type Store interface {
	// RegisterGuild creates the guild document on first contact. It reports
	// whether a document was created.
	RegisterGuild(ctx context.Context, guildID, name string) (bool, error)
	GetGuild(ctx context.Context, guildID string) (*Guild, error)
	ListGuilds(ctx context.Context) ([]*Guild, error)

	// AddSummoner appends s to the guild with set semantics keyed by PUUID.
	AddSummoner(ctx context.Context, guildID string, s Summoner) (bool, error)
	// UpdateSummonerRegion sets the home region of a registered player. It
	// reports false when the player is not in the guild.
	UpdateSummonerRegion(ctx context.Context, guildID, puuid, region string) (bool, error)
	RemoveSummoner(ctx context.Context, guildID, puuid string) (bool, error)
	// ListSummoners returns the guild's players in registration order.
	ListSummoners(ctx context.Context, guildID string) ([]Summoner, error)

	// SetNotificationChannel reports whether the stored value changed.
	SetNotificationChannel(ctx context.Context, guildID, channelID string) (bool, error)
	// GetNotificationChannel returns "" when no channel is set.
	GetNotificationChannel(ctx context.Context, guildID string) (string, error)

	EnsurePlayerBucket(ctx context.Context, puuid, name string) error
	MarkPlayerCached(ctx context.Context, puuid string, at time.Time) error
	IsPlayerCached(ctx context.Context, puuid string) (bool, error)

	// AppendMatch inserts rec unless the player already has that match id.
	AppendMatch(ctx context.Context, rec *MatchRecord) (bool, error)
	HasMatch(ctx context.Context, puuid, matchID string) (bool, error)
	// QueryMatches returns matches with GameStartTimestamp >= since (Unix ms).
	QueryMatches(ctx context.Context, puuid string, since int64) ([]*MatchRecord, error)
	// PruneMatches deletes matches that started before the given Unix ms.
	PruneMatches(ctx context.Context, before int64) (int64, error)

	RecordCommand(ctx context.Context, name string) error

	Close(ctx context.Context) error
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// Open builds the backend selected by driver
func Open(ctx context.Context, driver string, mongoURI, mongoDatabase, sqlitePath string) (Store, error) {
	switch driver {
	case "mongo":
		return NewMongoStore(ctx, mongoURI, mongoDatabase)
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
