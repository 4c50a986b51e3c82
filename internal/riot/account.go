package riot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Account represents a Riot account from the Account-V1 API
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// RiotID returns the account's display name in "Name #Tag" form
func (a *Account) RiotID() string {
	return FormatRiotID(a.GameName, a.TagLine)
}

// Word characters with single inner whitespace on both sides of " #"
var riotIDPattern = regexp.MustCompile(`^([\p{L}\p{N}_]+(?:\s[\p{L}\p{N}_]+)*) #([\p{L}\p{N}_]+(?:\s[\p{L}\p{N}_]+)*)$`)

// ParseRiotID splits "Name #Tag" into its game name and tag line
func ParseRiotID(input string) (gameName, tagLine string, err error) {
	m := riotIDPattern.FindStringSubmatch(input)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidIdentifierFormat, input)
	}
	return m[1], m[2], nil
}

// FormatRiotID joins a game name and tag line into "Name #Tag"
func FormatRiotID(gameName, tagLine string) string {
	return gameName + " #" + tagLine
}

// ResolvePlayer validates riotID and resolves it to an account. Malformed
// input fails with ErrInvalidIdentifierFormat without touching the network.
func (c *Client) ResolvePlayer(ctx context.Context, riotID string) (*Account, error) {
	gameName, tagLine, err := ParseRiotID(riotID)
	if err != nil {
		return nil, err
	}

	cacheKey := strings.ToLower(riotID)
	if c.cache != nil {
		puuid, ok, err := c.cache.GetPUUID(ctx, cacheKey)
		if err != nil {
			slog.Warn("Identity cache lookup failed", "riotID", riotID, "error", err)
		} else if ok {
			return &Account{PUUID: puuid, GameName: gameName, TagLine: tagLine}, nil
		}
	}

	account, err := c.GetAccountByRiotID(ctx, gameName, tagLine)
	if err != nil {
		return nil, err
	}
	if account.PUUID == "" {
		return nil, fmt.Errorf("%w: no PUUID for %s", ErrNotFound, riotID)
	}

	if c.cache != nil {
		if err := c.cache.SetPUUID(ctx, cacheKey, account.PUUID); err != nil {
			slog.Warn("Identity cache write failed", "riotID", riotID, "error", err)
		}
	}

	return account, nil
}

// GetAccountByRiotID retrieves account information by Riot ID
// Uses the Account-V1 API endpoint
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*Account, error) {
	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionalBaseURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var account Account
	if err := c.get(ctx, endpoint, &account); err != nil {
		return nil, fmt.Errorf("failed to get account by Riot ID: %w", err)
	}

	return &account, nil
}
