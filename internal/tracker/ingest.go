package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/storage"
)

// IngestSummary counts the outcome of one ingestion pass
type IngestSummary struct {
	RunID    string
	Players  int
	Failed   int
	Inserted int
	Pruned   int64
}

// IngestAll pulls recent ranked matches for every player registered in any
// guild. Players tracked by several guilds are fetched once. A failing player
// is logged and skipped; the pass only stops early when ctx is done.
func (t *Tracker) IngestAll(ctx context.Context) (IngestSummary, error) {
	summary := IngestSummary{RunID: uuid.NewString()}
	log := slog.With("run", summary.RunID)

	guilds, err := t.store.ListGuilds(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list guilds: %w", err)
	}

	seen := make(map[string]bool)
	var players []storage.Summoner
	for _, g := range guilds {
		for _, s := range g.Summoners {
			if seen[s.PUUID] {
				continue
			}
			seen[s.PUUID] = true
			players = append(players, s)
		}
	}

	log.Info("Starting ingestion pass", "guilds", len(guilds), "players", len(players))

	for _, s := range players {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		inserted, err := t.ingestPlayer(ctx, log, s)
		summary.Players++
		summary.Inserted += inserted
		if err != nil {
			summary.Failed++
			log.Error("Failed to ingest player", "summoner", s.Name, "puuid", s.PUUID, "error", err)
		}
	}

	pruned, err := t.Prune(ctx)
	if err != nil {
		log.Error("Failed to prune match cache", "error", err)
	}
	summary.Pruned = pruned

	log.Info("Ingestion pass complete",
		"players", summary.Players,
		"failed", summary.Failed,
		"inserted", summary.Inserted,
		"pruned", summary.Pruned,
	)
	return summary, nil
}

// IngestPlayer runs one ingestion pass for a single player and returns how
// many new matches were cached
func (t *Tracker) IngestPlayer(ctx context.Context, s storage.Summoner) (int, error) {
	return t.ingestPlayer(ctx, slog.Default(), s)
}

func (t *Tracker) ingestPlayer(ctx context.Context, log *slog.Logger, s storage.Summoner) (int, error) {
	if err := t.store.EnsurePlayerBucket(ctx, s.PUUID, s.Name); err != nil {
		return 0, fmt.Errorf("failed to create match bucket: %w", err)
	}

	now := t.now()
	window := riot.LastDays(now, t.cfg.WindowDays)
	matchIDs, err := t.api.ListMatchIDs(ctx, s.PUUID, window, riot.QueueRankedSolo)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, matchID := range matchIDs {
		cached, err := t.store.HasMatch(ctx, s.PUUID, matchID)
		if err != nil {
			return inserted, fmt.Errorf("failed to check match %s: %w", matchID, err)
		}
		if cached {
			continue
		}

		match, err := t.api.GetMatch(ctx, matchID)
		if err != nil {
			if ctx.Err() != nil {
				return inserted, ctx.Err()
			}
			if errors.Is(err, riot.ErrRateLimitExhausted) {
				return inserted, err
			}
			// A single bad match does not fail the player
			log.Warn("Skipping match", "summoner", s.Name, "matchID", matchID, "error", err)
			continue
		}

		if match.FindParticipant(s.PUUID) == nil {
			log.Error("Match does not include player", "summoner", s.Name, "matchID", matchID)
			continue
		}

		ok, err := t.store.AppendMatch(ctx, storage.NewMatchRecord(s.PUUID, match))
		if err != nil {
			return inserted, fmt.Errorf("failed to cache match %s: %w", matchID, err)
		}
		if ok {
			inserted++
		}
	}

	if err := t.store.MarkPlayerCached(ctx, s.PUUID, now); err != nil {
		return inserted, fmt.Errorf("failed to mark player cached: %w", err)
	}

	log.Debug("Ingested player", "summoner", s.Name, "listed", len(matchIDs), "inserted", inserted)
	return inserted, nil
}

// Prune deletes cached matches older than the retention window
func (t *Tracker) Prune(ctx context.Context) (int64, error) {
	if t.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := t.now().AddDate(0, 0, -t.cfg.RetentionDays).UnixMilli()
	n, err := t.store.PruneMatches(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Pruned cached matches", "count", n, "retentionDays", t.cfg.RetentionDays)
	}
	return n, nil
}
