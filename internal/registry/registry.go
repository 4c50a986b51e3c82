package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/storage"
)

// Resolver turns a Riot ID into an account and finds its home platform
type Resolver interface {
	ResolvePlayer(ctx context.Context, riotID string) (*riot.Account, error)
	DetectRegion(ctx context.Context, puuid string) (string, error)
}

// Store is the slice of storage.Store the registry needs
type Store interface {
	RegisterGuild(ctx context.Context, guildID, name string) (bool, error)
	AddSummoner(ctx context.Context, guildID string, s storage.Summoner) (bool, error)
	UpdateSummonerRegion(ctx context.Context, guildID, puuid, region string) (bool, error)
	RemoveSummoner(ctx context.Context, guildID, puuid string) (bool, error)
	ListSummoners(ctx context.Context, guildID string) ([]storage.Summoner, error)
	SetNotificationChannel(ctx context.Context, guildID, channelID string) (bool, error)
	GetNotificationChannel(ctx context.Context, guildID string) (string, error)
}

// defaultRegionTimeout bounds the Summoner-V4 lookups across every platform
const defaultRegionTimeout = 20 * time.Second

// Registry maps guilds to their tracked players and settings
type Registry struct {
	resolver      Resolver
	store         Store
	regionTimeout time.Duration
}

// New creates a Registry
func New(resolver Resolver, store Store) *Registry {
	return &Registry{resolver: resolver, store: store, regionTimeout: defaultRegionTimeout}
}

// RegisterGuild records a guild on first contact; known guilds are a no-op
func (r *Registry) RegisterGuild(ctx context.Context, guildID, name string) (bool, error) {
	created, err := r.store.RegisterGuild(ctx, guildID, name)
	if err != nil {
		return false, fmt.Errorf("failed to register guild %s: %w", guildID, err)
	}
	if created {
		slog.Info("Registered guild", "guild", guildID, "name", name)
	}
	return created, nil
}

// ListPlayers returns the guild's players in registration order
func (r *Registry) ListPlayers(ctx context.Context, guildID string) ([]storage.Summoner, error) {
	return r.store.ListSummoners(ctx, guildID)
}

// AddPlayer resolves riotID and registers the player in the guild. The
// returned bool is false when the player was already registered there. The
// player is stored before the home region is detected, so a slow or failed
// lookup never loses the registration.
func (r *Registry) AddPlayer(ctx context.Context, guildID, riotID string) (storage.Summoner, bool, error) {
	account, err := r.resolver.ResolvePlayer(ctx, riotID)
	if err != nil {
		return storage.Summoner{}, false, err
	}

	name := riotID
	if account.GameName != "" && account.TagLine != "" {
		name = account.RiotID()
	}

	summoner := storage.Summoner{PUUID: account.PUUID, Name: name}
	added, err := r.store.AddSummoner(ctx, guildID, summoner)
	if err != nil {
		return storage.Summoner{}, false, fmt.Errorf("failed to add summoner: %w", err)
	}
	if !added {
		return summoner, false, nil
	}
	slog.Info("Added summoner", "guild", guildID, "summoner", name, "puuid", account.PUUID)

	summoner.Region = r.detectRegion(ctx, guildID, account.PUUID)
	return summoner, true, nil
}

// detectRegion looks up the player's home platform under its own deadline and
// stores it. Failures are logged and leave the region empty.
func (r *Registry) detectRegion(ctx context.Context, guildID, puuid string) string {
	detectCtx, cancel := context.WithTimeout(ctx, r.regionTimeout)
	defer cancel()

	region, err := r.resolver.DetectRegion(detectCtx, puuid)
	if err != nil {
		slog.Warn("Could not detect region", "puuid", puuid, "error", err)
		return ""
	}
	if region == "" {
		return ""
	}

	if _, err := r.store.UpdateSummonerRegion(ctx, guildID, puuid, region); err != nil {
		slog.Warn("Could not store region", "puuid", puuid, "region", region, "error", err)
		return ""
	}
	return region
}

// RemovePlayer unregisters riotID from the guild, matching on the PUUID
// riotID currently resolves to. See lookup for the renamed-account fallback.
func (r *Registry) RemovePlayer(ctx context.Context, guildID, riotID string) (bool, error) {
	s, ok, err := r.lookup(ctx, guildID, riotID)
	if err != nil || !ok {
		return false, err
	}

	removed, err := r.store.RemoveSummoner(ctx, guildID, s.PUUID)
	if err != nil {
		return false, fmt.Errorf("failed to remove summoner: %w", err)
	}
	if removed {
		slog.Info("Removed summoner", "guild", guildID, "summoner", riotID, "puuid", s.PUUID)
	}
	return removed, nil
}

// FindPlayer returns the guild's registered player for riotID, matched by
// the PUUID riotID resolves to. A name unknown upstream surfaces as
// riot.ErrNotFound rather than as "not registered".
func (r *Registry) FindPlayer(ctx context.Context, guildID, riotID string) (storage.Summoner, bool, error) {
	return r.lookup(ctx, guildID, riotID)
}

// lookup resolves riotID and joins on PUUID. Only when Riot no longer knows
// riotID (the account was renamed away from it) does a stored display name
// stand in, so the old name can still be used to remove the player.
func (r *Registry) lookup(ctx context.Context, guildID, riotID string) (storage.Summoner, bool, error) {
	account, resolveErr := r.resolver.ResolvePlayer(ctx, riotID)
	if resolveErr != nil && !errors.Is(resolveErr, riot.ErrNotFound) {
		return storage.Summoner{}, false, resolveErr
	}

	summoners, err := r.store.ListSummoners(ctx, guildID)
	if err != nil {
		return storage.Summoner{}, false, fmt.Errorf("failed to list summoners: %w", err)
	}

	if resolveErr == nil {
		for _, s := range summoners {
			if s.PUUID == account.PUUID {
				return s, true, nil
			}
		}
		return storage.Summoner{}, false, nil
	}

	for _, s := range summoners {
		if strings.EqualFold(s.Name, riotID) {
			return s, true, nil
		}
	}
	return storage.Summoner{}, false, resolveErr
}

// SetNotificationChannel stores the guild's report channel and reports
// whether the value changed
func (r *Registry) SetNotificationChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	changed, err := r.store.SetNotificationChannel(ctx, guildID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to set notification channel: %w", err)
	}
	return changed, nil
}

// GetNotificationChannel returns the guild's report channel or ""
func (r *Registry) GetNotificationChannel(ctx context.Context, guildID string) (string, error) {
	return r.store.GetNotificationChannel(ctx, guildID)
}
