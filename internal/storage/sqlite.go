package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the poller and commands
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS guilds (
			guild_id VARCHAR(20) PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			main_channel_id VARCHAR(20),
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS guild_summoners (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id VARCHAR(20) NOT NULL,
			puuid VARCHAR(100) NOT NULL,
			name VARCHAR(50) NOT NULL,
			region VARCHAR(10) NOT NULL DEFAULT '',
			UNIQUE(guild_id, puuid)
		)`,
		`CREATE TABLE IF NOT EXISTS player_buckets (
			puuid VARCHAR(100) PRIMARY KEY,
			name VARCHAR(50) NOT NULL,
			created_at INTEGER NOT NULL,
			last_fetched INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS cached_matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			summoner_puuid VARCHAR(100) NOT NULL,
			match_id VARCHAR(50) NOT NULL,
			game_start_timestamp INTEGER NOT NULL,
			queue_id INTEGER NOT NULL DEFAULT 0,
			game_duration INTEGER NOT NULL DEFAULT 0,
			participants TEXT NOT NULL,
			cached_at INTEGER NOT NULL,
			UNIQUE(summoner_puuid, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS command_analytics (
			command_name VARCHAR(50) PRIMARY KEY,
			times_called INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guild_summoners_guild ON guild_summoners(guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cached_matches_start ON cached_matches(summoner_puuid, game_start_timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Guild operations

// RegisterGuild inserts the guild row unless it already exists
func (s *SQLiteStore) RegisterGuild(ctx context.Context, guildID, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO guilds (guild_id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(guild_id) DO NOTHING`,
		guildID, name, time.Now().UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// GetGuild retrieves a guild and its summoners
func (s *SQLiteStore) GetGuild(ctx context.Context, guildID string) (*Guild, error) {
	g := &Guild{}
	var channel sql.NullString
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT guild_id, name, main_channel_id, created_at FROM guilds WHERE guild_id = ?`,
		guildID,
	).Scan(&g.GuildID, &g.Name, &channel, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.MainChannelID = channel.String
	g.CreatedAt = time.UnixMilli(createdAt).UTC()

	g.Summoners, err = s.ListSummoners(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListGuilds returns every registered guild with its summoners
func (s *SQLiteStore) ListGuilds(ctx context.Context) ([]*Guild, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id FROM guilds ORDER BY created_at, guild_id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	guilds := make([]*Guild, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGuild(ctx, id)
		if err != nil {
			return nil, err
		}
		guilds = append(guilds, g)
	}
	return guilds, nil
}

// Summoner operations

// AddSummoner registers s in the guild, creating the guild row if needed
func (s *SQLiteStore) AddSummoner(ctx context.Context, guildID string, sm Summoner) (bool, error) {
	if _, err := s.RegisterGuild(ctx, guildID, ""); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO guild_summoners (guild_id, puuid, name, region) VALUES (?, ?, ?, ?)
		 ON CONFLICT(guild_id, puuid) DO NOTHING`,
		guildID, sm.PUUID, sm.Name, sm.Region,
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// RemoveSummoner removes a summoner from a guild
func (s *SQLiteStore) RemoveSummoner(ctx context.Context, guildID, puuid string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM guild_summoners WHERE guild_id = ? AND puuid = ?`,
		guildID, puuid,
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// UpdateSummonerRegion sets the region of a registered summoner
func (s *SQLiteStore) UpdateSummonerRegion(ctx context.Context, guildID, puuid, region string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE guild_summoners SET region = ? WHERE guild_id = ? AND puuid = ?`,
		region, guildID, puuid,
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// ListSummoners returns all summoners registered in a guild
func (s *SQLiteStore) ListSummoners(ctx context.Context, guildID string) ([]Summoner, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT puuid, name, region FROM guild_summoners WHERE guild_id = ? ORDER BY id`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summoners []Summoner
	for rows.Next() {
		var sm Summoner
		if err := rows.Scan(&sm.PUUID, &sm.Name, &sm.Region); err != nil {
			return nil, err
		}
		summoners = append(summoners, sm)
	}

	return summoners, rows.Err()
}

// Guild settings operations

// SetNotificationChannel creates or updates the guild's main channel
func (s *SQLiteStore) SetNotificationChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO guilds (guild_id, main_channel_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET main_channel_id = excluded.main_channel_id
		 WHERE guilds.main_channel_id IS NOT excluded.main_channel_id`,
		guildID, channelID, time.Now().UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// GetNotificationChannel retrieves the guild's main channel
func (s *SQLiteStore) GetNotificationChannel(ctx context.Context, guildID string) (string, error) {
	var channel sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT main_channel_id FROM guilds WHERE guild_id = ?`,
		guildID,
	).Scan(&channel)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return channel.String, nil
}

// Match cache operations

// EnsurePlayerBucket creates the player's bucket on first sight
func (s *SQLiteStore) EnsurePlayerBucket(ctx context.Context, puuid, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_buckets (puuid, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(puuid) DO NOTHING`,
		puuid, name, time.Now().UnixMilli(),
	)
	return err
}

// MarkPlayerCached records a completed ingestion pass for puuid
func (s *SQLiteStore) MarkPlayerCached(ctx context.Context, puuid string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_buckets (puuid, name, created_at, last_fetched) VALUES (?, '', ?, ?)
		 ON CONFLICT(puuid) DO UPDATE SET last_fetched = excluded.last_fetched`,
		puuid, at.UnixMilli(), at.UnixMilli(),
	)
	return err
}

// IsPlayerCached reports whether an ingestion pass has completed for puuid
func (s *SQLiteStore) IsPlayerCached(ctx context.Context, puuid string) (bool, error) {
	var lastFetched sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_fetched FROM player_buckets WHERE puuid = ?`,
		puuid,
	).Scan(&lastFetched)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lastFetched.Valid, nil
}

// AppendMatch inserts the record unless the player already has the match
func (s *SQLiteStore) AppendMatch(ctx context.Context, rec *MatchRecord) (bool, error) {
	participants, err := json.Marshal(rec.Participants)
	if err != nil {
		return false, fmt.Errorf("failed to encode participants: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO cached_matches
		 (summoner_puuid, match_id, game_start_timestamp, queue_id, game_duration, participants, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(summoner_puuid, match_id) DO NOTHING`,
		rec.PlayerID, rec.MatchID, rec.GameStartTimestamp, rec.QueueID, rec.GameDuration,
		string(participants), rec.CachedAt.UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// HasMatch reports whether the player's bucket already holds matchID
func (s *SQLiteStore) HasMatch(ctx context.Context, puuid, matchID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cached_matches WHERE summoner_puuid = ? AND match_id = ?`,
		puuid, matchID,
	).Scan(&n)
	return n > 0, err
}

// QueryMatches returns the player's matches started at or after since
func (s *SQLiteStore) QueryMatches(ctx context.Context, puuid string, since int64) ([]*MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, summoner_puuid, game_start_timestamp, queue_id, game_duration, participants, cached_at
		 FROM cached_matches WHERE summoner_puuid = ? AND game_start_timestamp >= ?`,
		puuid, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*MatchRecord
	for rows.Next() {
		rec := &MatchRecord{}
		var participants string
		var cachedAt int64
		if err := rows.Scan(&rec.MatchID, &rec.PlayerID, &rec.GameStartTimestamp, &rec.QueueID,
			&rec.GameDuration, &participants, &cachedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(participants), &rec.Participants); err != nil {
			return nil, fmt.Errorf("failed to decode participants for match %s: %w", rec.MatchID, err)
		}
		rec.CachedAt = time.UnixMilli(cachedAt).UTC()
		records = append(records, rec)
	}

	return records, rows.Err()
}

// PruneMatches deletes matches that started before the cutoff
func (s *SQLiteStore) PruneMatches(ctx context.Context, before int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cached_matches WHERE game_start_timestamp < ?`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RecordCommand increments the usage counter for a slash command
func (s *SQLiteStore) RecordCommand(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_analytics (command_name, times_called) VALUES (?, 1)
		 ON CONFLICT(command_name) DO UPDATE SET times_called = times_called + 1`,
		name,
	)
	return err
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
