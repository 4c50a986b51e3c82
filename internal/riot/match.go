package riot

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// QueueRankedSolo is the Ranked Solo/Duo queue id
const QueueRankedSolo = 420

// MaxMatchIDs is the largest page Match-V5 returns for an id listing
const MaxMatchIDs = 100

// Match represents match data from the Match-V5 API
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// MatchMetadata contains match metadata
type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

// MatchInfo contains detailed match information
type MatchInfo struct {
	GameDuration       int64         `json:"gameDuration"` // in seconds
	GameMode           string        `json:"gameMode"`
	QueueID            int           `json:"queueId"`
	GameStartTimestamp int64         `json:"gameStartTimestamp"` // Unix timestamp in ms
	GameEndTimestamp   int64         `json:"gameEndTimestamp"`   // Unix timestamp in ms
	Participants       []Participant `json:"participants"`
}

// Participant holds one player's raw counters for a match
type Participant struct {
	PUUID                       string      `json:"puuid" bson:"puuid"`
	RiotIDGameName              string      `json:"riotIdGameName,omitempty" bson:"riotIdGameName,omitempty"`
	RiotIDTagline               string      `json:"riotIdTagline,omitempty" bson:"riotIdTagline,omitempty"`
	ChampionName                string      `json:"championName" bson:"championName"`
	TeamID                      int         `json:"teamId" bson:"teamId"`
	Win                         bool        `json:"win" bson:"win"`
	Kills                       int         `json:"kills" bson:"kills"`
	Deaths                      int         `json:"deaths" bson:"deaths"`
	Assists                     int         `json:"assists" bson:"assists"`
	VisionScore                 int         `json:"visionScore" bson:"visionScore"`
	GoldEarned                  int         `json:"goldEarned" bson:"goldEarned"`
	TotalDamageDealtToChampions int         `json:"totalDamageDealtToChampions" bson:"totalDamageDealtToChampions"`
	EnemyMissingPings           int         `json:"enemyMissingPings" bson:"enemyMissingPings"`
	Challenges                  *Challenges `json:"challenges,omitempty" bson:"challenges,omitempty"`
}

// Challenges holds the derived per-match metrics Riot computes. Any of these
// may be absent from a payload; absent values decode as zero.
type Challenges struct {
	AbilityUses          float64 `json:"abilityUses,omitempty" bson:"abilityUses,omitempty"`
	SkillshotsHit        float64 `json:"skillshotsHit,omitempty" bson:"skillshotsHit,omitempty"`
	SoloKills            float64 `json:"soloKills,omitempty" bson:"soloKills,omitempty"`
	DamagePerMinute      float64 `json:"damagePerMinute,omitempty" bson:"damagePerMinute,omitempty"`
	GoldPerMinute        float64 `json:"goldPerMinute,omitempty" bson:"goldPerMinute,omitempty"`
	KDA                  float64 `json:"kda,omitempty" bson:"kda,omitempty"`
	KillParticipation    float64 `json:"killParticipation,omitempty" bson:"killParticipation,omitempty"`
	TeamDamagePercentage float64 `json:"teamDamagePercentage,omitempty" bson:"teamDamagePercentage,omitempty"`
}

// TimeWindow bounds a match id listing
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the window [now-days, now]
func LastDays(now time.Time, days int) TimeWindow {
	return TimeWindow{Start: now.AddDate(0, 0, -days), End: now}
}

// ListMatchIDs retrieves up to MaxMatchIDs match ids played by puuid inside
// window. A queue of 0 disables queue filtering.
func (c *Client) ListMatchIDs(ctx context.Context, puuid string, window TimeWindow, queue int) ([]string, error) {
	q := url.Values{}
	q.Set("count", fmt.Sprint(MaxMatchIDs))
	if queue != 0 {
		q.Set("queue", fmt.Sprint(queue))
	}
	if !window.Start.IsZero() {
		q.Set("startTime", fmt.Sprint(window.Start.Unix()))
	}
	if !window.End.IsZero() {
		q.Set("endTime", fmt.Sprint(window.End.Unix()))
	}

	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s",
		c.regionalBaseURL, url.PathEscape(puuid), q.Encode())

	var matchIDs []string
	if err := c.get(ctx, endpoint, &matchIDs); err != nil {
		return nil, fmt.Errorf("failed to get match IDs: %w", err)
	}

	return matchIDs, nil
}

// GetMatch retrieves detailed match information
func (c *Client) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalBaseURL, url.PathEscape(matchID))

	var match Match
	if err := c.get(ctx, endpoint, &match); err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return &match, nil
}

// FindParticipant finds a participant in the match by PUUID
func (m *Match) FindParticipant(puuid string) *Participant {
	for i := range m.Info.Participants {
		if m.Info.Participants[i].PUUID == puuid {
			return &m.Info.Participants[i]
		}
	}
	return nil
}
