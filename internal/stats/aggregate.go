package stats

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/storage"
)

// Key names one stat in the fixed schema
type Key string

const (
	TotalMatches                Key = "Total Matches"
	AverageAssists              Key = "Average Assists"
	AbilityUses                 Key = "Ability Uses"
	AverageDamagePerMinute      Key = "Average Damage Per Minute"
	AverageGoldPerMinute        Key = "Average Gold Per Minute"
	AverageKDA                  Key = "Average KDA"
	AverageKillParticipation    Key = "Average Kill Participation"
	SkillshotsHit               Key = "Skillshots Hit"
	AverageSoloKills            Key = "Average Solo Kills"
	AverageTeamDamagePercentage Key = "Average Team Damage Percentage"
	AverageDamageToChampions    Key = "Average Damage To Champions"
	AverageEnemyMissingPings    Key = "Average Enemy Missing Pings"
)

// Kind says how a field is folded across matches
type Kind int

const (
	// Counter fields are summed
	Counter Kind = iota
	// Average fields are summed then divided by the match count
	Average
)

// Field describes one schema entry
type Field struct {
	Key  Key
	Kind Kind
}

// Schema is the stat schema in presentation order
var Schema = []Field{
	{TotalMatches, Counter},
	{AverageAssists, Average},
	{AbilityUses, Counter},
	{AverageDamagePerMinute, Average},
	{AverageGoldPerMinute, Average},
	{AverageKDA, Average},
	{AverageKillParticipation, Average},
	{SkillshotsHit, Counter},
	{AverageSoloKills, Average},
	{AverageTeamDamagePercentage, Average},
	{AverageDamageToChampions, Average},
	{AverageEnemyMissingPings, Average},
}

// Aggregate is the rollup of one player's matches over a day range
type Aggregate struct {
	TotalMatches                float64
	AverageAssists              float64
	AbilityUses                 float64
	AverageDamagePerMinute      float64
	AverageGoldPerMinute        float64
	AverageKDA                  float64
	AverageKillParticipation    float64
	SkillshotsHit               float64
	AverageSoloKills            float64
	AverageTeamDamagePercentage float64
	AverageDamageToChampions    float64
	AverageEnemyMissingPings    float64
}

// Value is one (key, value) pair of an aggregate
type Value struct {
	Key   Key     `json:"key"`
	Value float64 `json:"value"`
}

// field returns a pointer to the struct field backing key
func (a *Aggregate) field(key Key) *float64 {
	switch key {
	case TotalMatches:
		return &a.TotalMatches
	case AverageAssists:
		return &a.AverageAssists
	case AbilityUses:
		return &a.AbilityUses
	case AverageDamagePerMinute:
		return &a.AverageDamagePerMinute
	case AverageGoldPerMinute:
		return &a.AverageGoldPerMinute
	case AverageKDA:
		return &a.AverageKDA
	case AverageKillParticipation:
		return &a.AverageKillParticipation
	case SkillshotsHit:
		return &a.SkillshotsHit
	case AverageSoloKills:
		return &a.AverageSoloKills
	case AverageTeamDamagePercentage:
		return &a.AverageTeamDamagePercentage
	case AverageDamageToChampions:
		return &a.AverageDamageToChampions
	case AverageEnemyMissingPings:
		return &a.AverageEnemyMissingPings
	}
	return nil
}

// Get returns the value for key, or 0 for a key outside the schema
func (a Aggregate) Get(key Key) float64 {
	if p := a.field(key); p != nil {
		return *p
	}
	return 0
}

// Fields returns the aggregate as pairs in schema order
func (a Aggregate) Fields() []Value {
	values := make([]Value, 0, len(Schema))
	for _, f := range Schema {
		values = append(values, Value{Key: f.Key, Value: a.Get(f.Key)})
	}
	return values
}

// CorruptMatchRecordError reports a cached match that does not contain the
// player it was cached for
type CorruptMatchRecordError struct {
	MatchID  string
	PlayerID string
}

func (e *CorruptMatchRecordError) Error() string {
	return fmt.Sprintf("corrupt match record %s: player %s is not a participant", e.MatchID, e.PlayerID)
}

// Compute folds the player's cached matches into an Aggregate.
//
// Records that do not contain puuid are skipped and reported through the
// returned error (a join of *CorruptMatchRecordError); the aggregate over the
// remaining records is returned alongside it. Averages divide by the number
// of records actually folded.
func Compute(puuid string, matches []*storage.MatchRecord) (Aggregate, error) {
	var agg Aggregate
	var errs []error
	var folded int

	for _, m := range matches {
		if m == nil {
			continue
		}
		p := m.FindParticipant(puuid)
		if p == nil {
			slog.Error("Corrupt match record", "match_id", m.MatchID, "puuid", puuid)
			errs = append(errs, &CorruptMatchRecordError{MatchID: m.MatchID, PlayerID: puuid})
			continue
		}
		agg.add(p)
		folded++
	}

	if folded > 0 {
		agg.TotalMatches = float64(folded)
		n := float64(folded)
		for _, f := range Schema {
			if f.Kind == Average {
				*agg.field(f.Key) /= n
			}
		}
	}
	for _, f := range Schema {
		p := agg.field(f.Key)
		*p = round2(*p)
	}

	return agg, errors.Join(errs...)
}

// add accumulates one participant's raw values; absent challenge data
// contributes zero
func (a *Aggregate) add(p *riot.Participant) {
	a.AverageAssists += float64(p.Assists)
	a.AverageDamageToChampions += float64(p.TotalDamageDealtToChampions)
	a.AverageEnemyMissingPings += float64(p.EnemyMissingPings)

	c := p.Challenges
	if c == nil {
		return
	}
	a.AbilityUses += c.AbilityUses
	a.AverageDamagePerMinute += c.DamagePerMinute
	a.AverageGoldPerMinute += c.GoldPerMinute
	a.AverageKDA += c.KDA
	a.AverageKillParticipation += c.KillParticipation
	a.SkillshotsHit += c.SkillshotsHit
	a.AverageSoloKills += c.SoloKills
	a.AverageTeamDamagePercentage += c.TeamDamagePercentage
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
