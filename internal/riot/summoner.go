package riot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Platforms lists the platform routing ids checked when detecting a player's home region
var Platforms = []string{
	"na1", "euw1", "eun1", "kr", "jp1", "br1", "la1", "la2",
	"oc1", "ph2", "ru", "sg2", "th2", "tr1", "tw2", "vn2",
}

// Summoner represents a Summoner-V4 record
type Summoner struct {
	PUUID         string `json:"puuid"`
	SummonerLevel int64  `json:"summonerLevel"`
}

// GetSummonerByPUUID fetches the summoner on one platform
func (c *Client) GetSummonerByPUUID(ctx context.Context, platform, puuid string) (*Summoner, error) {
	endpoint := fmt.Sprintf(c.platformFormat, platform) +
		"/lol/summoner/v4/summoners/by-puuid/" + url.PathEscape(puuid)

	var summoner Summoner
	if err := c.get(ctx, endpoint, &summoner); err != nil {
		return nil, fmt.Errorf("failed to get summoner on %s: %w", platform, err)
	}
	return &summoner, nil
}

// DetectRegion queries each platform and returns the first one that knows
// puuid. It returns "" with no error when no platform answers.
func (c *Client) DetectRegion(ctx context.Context, puuid string) (string, error) {
	for _, platform := range Platforms {
		if _, err := c.GetSummonerByPUUID(ctx, platform, puuid); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, ErrRateLimitExhausted) {
				return "", err
			}
			continue
		}
		return platform, nil
	}
	return "", nil
}
