package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flor3z/scuttle-bot/internal/registry"
	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/stats"
	"github.com/flor3z/scuttle-bot/internal/storage"
)

var (
	// ErrNotRegistered means the player is not tracked in the guild
	ErrNotRegistered = errors.New("player is not registered in this guild")
	// ErrNoDataYet means no ingestion pass has completed for the player
	ErrNoDataYet = errors.New("no match data cached yet")
	// ErrNoSummoners means the guild has nobody to compare
	ErrNoSummoners = errors.New("no summoners registered in this guild")
	// ErrInvalidDays means a day range below one
	ErrInvalidDays = errors.New("day range must be at least 1")
)

// MatchAPI is the part of the Riot client used during ingestion
type MatchAPI interface {
	ListMatchIDs(ctx context.Context, puuid string, window riot.TimeWindow, queue int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.Match, error)
}

// Store is the slice of storage.Store the tracker reads and writes
type Store interface {
	ListGuilds(ctx context.Context) ([]*storage.Guild, error)
	ListSummoners(ctx context.Context, guildID string) ([]storage.Summoner, error)
	EnsurePlayerBucket(ctx context.Context, puuid, name string) error
	MarkPlayerCached(ctx context.Context, puuid string, at time.Time) error
	IsPlayerCached(ctx context.Context, puuid string) (bool, error)
	AppendMatch(ctx context.Context, rec *storage.MatchRecord) (bool, error)
	HasMatch(ctx context.Context, puuid, matchID string) (bool, error)
	QueryMatches(ctx context.Context, puuid string, since int64) ([]*storage.MatchRecord, error)
	PruneMatches(ctx context.Context, before int64) (int64, error)
}

// Config tunes ingestion and retention
type Config struct {
	// WindowDays is how far back each ingestion pass lists matches
	WindowDays int
	// RetentionDays drops cached matches older than this; 0 keeps everything
	RetentionDays int
	// ReportConcurrency bounds parallel aggregate reads while building a report
	ReportConcurrency int
}

// Tracker runs ingestion and answers stats queries
type Tracker struct {
	api      MatchAPI
	store    Store
	registry *registry.Registry
	cfg      Config
	now      func() time.Time
}

// New creates a Tracker
func New(api MatchAPI, store Store, reg *registry.Registry, cfg Config) *Tracker {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.ReportConcurrency <= 0 {
		cfg.ReportConcurrency = 4
	}
	return &Tracker{
		api:      api,
		store:    store,
		registry: reg,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Registry returns the guild/player registry the tracker writes through
func (t *Tracker) Registry() *registry.Registry {
	return t.registry
}

// Report is the guild leaderboard over a day range
type Report struct {
	GuildID      string              `json:"guildId"`
	Days         int                 `json:"days"`
	Superlatives []stats.Superlative `json:"superlatives"`
	// Compared lists players whose aggregates took part, in registration order
	Compared []string `json:"compared"`
	// Pending lists players with no completed ingestion pass
	Pending []string `json:"pending"`
}

// IsPlayerCached reports whether at least one ingestion pass completed for puuid
func (t *Tracker) IsPlayerCached(ctx context.Context, puuid string) (bool, error) {
	return t.store.IsPlayerCached(ctx, puuid)
}

// GetStats aggregates the player's cached matches from the last days days.
// It returns ErrNoDataYet until the player has been ingested once.
func (t *Tracker) GetStats(ctx context.Context, puuid string, days int) (stats.Aggregate, error) {
	if days < 1 {
		return stats.Aggregate{}, ErrInvalidDays
	}

	cached, err := t.store.IsPlayerCached(ctx, puuid)
	if err != nil {
		return stats.Aggregate{}, fmt.Errorf("failed to check cache: %w", err)
	}
	if !cached {
		return stats.Aggregate{}, ErrNoDataYet
	}

	return t.aggregate(ctx, puuid, days)
}

func (t *Tracker) aggregate(ctx context.Context, puuid string, days int) (stats.Aggregate, error) {
	since := t.now().AddDate(0, 0, -days).UnixMilli()
	matches, err := t.store.QueryMatches(ctx, puuid, since)
	if err != nil {
		return stats.Aggregate{}, fmt.Errorf("failed to query matches: %w", err)
	}

	agg, err := stats.Compute(puuid, matches)
	if err != nil {
		// Corrupt records were skipped; the partial aggregate stands
		slog.Warn("Aggregate built from partial data", "puuid", puuid, "error", err)
	}
	return agg, nil
}

// GetReport compares every cached player in the guild over the last days days
func (t *Tracker) GetReport(ctx context.Context, guildID string, days int) (*Report, error) {
	if days < 1 {
		return nil, ErrInvalidDays
	}

	summoners, err := t.store.ListSummoners(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list summoners: %w", err)
	}
	if len(summoners) == 0 {
		return nil, ErrNoSummoners
	}

	type result struct {
		cached bool
		agg    stats.Aggregate
	}
	results := make([]result, len(summoners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.ReportConcurrency)
	for i, s := range summoners {
		i, s := i, s
		g.Go(func() error {
			cached, err := t.store.IsPlayerCached(gctx, s.PUUID)
			if err != nil {
				return fmt.Errorf("failed to check cache for %s: %w", s.Name, err)
			}
			if !cached {
				return nil
			}
			agg, err := t.aggregate(gctx, s.PUUID, days)
			if err != nil {
				return err
			}
			results[i] = result{cached: true, agg: agg}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{GuildID: guildID, Days: days, Compared: []string{}, Pending: []string{}}
	var entries []stats.Entry
	for i, s := range summoners {
		if !results[i].cached {
			report.Pending = append(report.Pending, s.Name)
			continue
		}
		report.Compared = append(report.Compared, s.Name)
		entries = append(entries, stats.Entry{Name: s.Name, Stats: results[i].agg})
	}
	report.Superlatives = stats.Compare(entries)
	if report.Superlatives == nil {
		report.Superlatives = []stats.Superlative{}
	}
	return report, nil
}

// RegisterPlayer resolves riotID, adds it to the guild and opens its match bucket
func (t *Tracker) RegisterPlayer(ctx context.Context, guildID, riotID string) (storage.Summoner, bool, error) {
	s, added, err := t.registry.AddPlayer(ctx, guildID, riotID)
	if err != nil {
		return storage.Summoner{}, false, err
	}
	// The next ingestion pass creates the bucket if this fails
	if err := t.store.EnsurePlayerBucket(ctx, s.PUUID, s.Name); err != nil {
		slog.Warn("Failed to create match bucket", "puuid", s.PUUID, "error", err)
	}
	return s, added, nil
}

// UnregisterPlayer removes riotID from the guild. Cached matches are kept;
// other guilds may still track the same player.
func (t *Tracker) UnregisterPlayer(ctx context.Context, guildID, riotID string) (bool, error) {
	return t.registry.RemovePlayer(ctx, guildID, riotID)
}

// StatsForGuildMember looks riotID up among the guild's players and returns
// its aggregate. The error distinguishes an unregistered player
// (ErrNotRegistered) from one that has not been ingested yet (ErrNoDataYet).
func (t *Tracker) StatsForGuildMember(ctx context.Context, guildID, riotID string, days int) (storage.Summoner, stats.Aggregate, error) {
	s, ok, err := t.registry.FindPlayer(ctx, guildID, riotID)
	if err != nil {
		return storage.Summoner{}, stats.Aggregate{}, err
	}
	if !ok {
		return storage.Summoner{}, stats.Aggregate{}, ErrNotRegistered
	}

	agg, err := t.GetStats(ctx, s.PUUID, days)
	return s, agg, err
}
