package storage

import (
	"time"

	"github.com/flor3z/scuttle-bot/internal/riot"
)

// Summoner is a player registered in a guild. PUUID is the join key; Name is
// kept for display only.
type Summoner struct {
	PUUID  string `bson:"puuid" json:"puuid"`
	Name   string `bson:"name" json:"name"` // GameName #TagLine
	Region string `bson:"region,omitempty" json:"region,omitempty"`
}

// Guild is the registration document for one Discord server
type Guild struct {
	GuildID       string     `bson:"guild_id"`
	Name          string     `bson:"name"`
	Summoners     []Summoner `bson:"summoners"`
	MainChannelID string     `bson:"main_channel_id,omitempty"`
	CreatedAt     time.Time  `bson:"date_added"`
}

// MatchRecord is one cached match, owned by the player it was fetched for
type MatchRecord struct {
	MatchID            string             `bson:"match_id" json:"matchId"`
	PlayerID           string             `bson:"summoner_puuid" json:"summonerPuuid"`
	GameStartTimestamp int64              `bson:"game_start_timestamp" json:"gameStartTimestamp"` // Unix ms
	QueueID            int                `bson:"queue_id" json:"queueId"`
	GameDuration       int64              `bson:"game_duration" json:"gameDuration"`
	Participants       []riot.Participant `bson:"participants" json:"participants"`
	CachedAt           time.Time          `bson:"cached_at" json:"cachedAt"`
}

// NewMatchRecord builds the cache entry for playerID from a Match-V5 payload
func NewMatchRecord(playerID string, m *riot.Match) *MatchRecord {
	return &MatchRecord{
		MatchID:            m.Metadata.MatchID,
		PlayerID:           playerID,
		GameStartTimestamp: m.Info.GameStartTimestamp,
		QueueID:            m.Info.QueueID,
		GameDuration:       m.Info.GameDuration,
		Participants:       m.Info.Participants,
		CachedAt:           time.Now().UTC(),
	}
}

// FindParticipant returns the participant entry for puuid, or nil
func (r *MatchRecord) FindParticipant(puuid string) *riot.Participant {
	for i := range r.Participants {
		if r.Participants[i].PUUID == puuid {
			return &r.Participants[i]
		}
	}
	return nil
}
