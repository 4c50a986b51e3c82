package bot

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/stats"
	"github.com/flor3z/scuttle-bot/internal/storage"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		5:         "5",
		5.5:       "5.5",
		0.57:      "0.57",
		999:       "999",
		1000:      "1,000",
		15234.25:  "15,234.25",
		1234567:   "1,234,567",
		-2500.5:   "-2,500.5",
		100000.01: "100,000.01",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatValue(in), "formatValue(%v)", in)
	}
}

func TestErrorEmbedDistinguishesCauses(t *testing.T) {
	errs := []error{
		fmt.Errorf("wrapped: %w", riot.ErrInvalidIdentifierFormat),
		fmt.Errorf("wrapped: %w", riot.ErrNotFound),
		tracker.ErrNotRegistered,
		tracker.ErrNoDataYet,
		tracker.ErrNoSummoners,
		riot.ErrRateLimitExhausted,
		riot.ErrAPICallFailed,
		fmt.Errorf("boom"),
	}

	seen := map[string]bool{}
	for _, err := range errs {
		e := errorEmbed("Stats Command", "Faker #KR1", err)
		assert.Equal(t, "❌ Stats Command", e.Title)
		assert.NotEmpty(t, e.Description)
		assert.False(t, seen[e.Description], "duplicate message for %v", err)
		seen[e.Description] = true
	}

	notFound := errorEmbed("Stats Command", "Faker #KR1", riot.ErrNotFound)
	assert.Contains(t, notFound.Description, "Faker #KR1")
	assert.Contains(t, notFound.Description, "does not exist")
}

func TestStatsEmbed(t *testing.T) {
	e := statsEmbed("Faker #KR1", 7, stats.Aggregate{TotalMatches: 12, AverageDamageToChampions: 23456.78})

	assert.Contains(t, e.Title, "Faker #KR1")
	assert.Contains(t, e.Title, "7 day")
	require.Len(t, e.Fields, len(stats.Schema))
	assert.Equal(t, string(stats.TotalMatches), e.Fields[0].Name)
	assert.Equal(t, "12", e.Fields[0].Value)
	assert.Equal(t, "23,456.78", e.Fields[10].Value)
}

func TestReportEmbeds(t *testing.T) {
	report := &tracker.Report{
		GuildID: "g1",
		Days:    7,
		Superlatives: []stats.Superlative{
			{Key: stats.TotalMatches, Value: 14, Owner: "Bravo #NA1"},
			{Key: stats.AverageKDA, Value: 4.25, Owner: "Alpha #NA1"},
		},
		Compared: []string{"Alpha #NA1", "Bravo #NA1"},
		Pending:  []string{"Charlie #NA1"},
	}

	embeds := reportEmbeds("Rift Enjoyers", report)
	require.Len(t, embeds, 3)
	assert.Contains(t, embeds[0].Title, "Rift Enjoyers")
	require.Len(t, embeds[0].Fields, 2)
	assert.Equal(t, "14 - Bravo #NA1", embeds[0].Fields[0].Value)
	assert.Equal(t, "4.25 - Alpha #NA1", embeds[0].Fields[1].Value)
	assert.Equal(t, "🟢 Alpha #NA1\n🟢 Bravo #NA1", embeds[1].Description)
	assert.Contains(t, embeds[2].Description, "Charlie #NA1")

	// Nobody cached yet
	embeds = reportEmbeds("", &tracker.Report{Days: 30, Superlatives: []stats.Superlative{}, Pending: []string{"Alpha #NA1"}})
	require.Len(t, embeds, 2)
	assert.Contains(t, embeds[0].Title, "30 days")
	assert.Contains(t, embeds[0].Description, "match data yet")
}

func TestSummonersEmbed(t *testing.T) {
	e := summonersEmbed(nil)
	assert.Contains(t, e.Description, "/summoners add")

	e = summonersEmbed([]storage.Summoner{
		{PUUID: "p1", Name: "Alpha #NA1", Region: "na1"},
		{PUUID: "p2", Name: "Bravo #EUW"},
	})
	assert.Contains(t, e.Title, "(2)")
	assert.Equal(t, "1. `Alpha #NA1` (NA1)\n2. `Bravo #EUW`\n", e.Description)
}

func TestHelpEmbedListsCommands(t *testing.T) {
	e := helpEmbed()
	names := ""
	for _, f := range e.Fields {
		names += f.Name + "\n"
	}
	for _, cmd := range commandDefinitions() {
		assert.Contains(t, names, "/"+cmd.Name)
	}
}

func TestSubcommandOptions(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "stats",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{
				Name: "weekly",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "summoner_name", Type: discordgo.ApplicationCommandOptionString, Value: "  Hide on bush "},
					{Name: "tag", Type: discordgo.ApplicationCommandOptionString, Value: "#KR1"},
				},
			},
		},
	}

	sub, options := subcommandOptions(data)
	assert.Equal(t, "weekly", sub)
	assert.Equal(t, "stats weekly", commandName(data))
	assert.Equal(t, "Hide on bush #KR1", riotIDFromOptions(options))

	help := discordgo.ApplicationCommandInteractionData{Name: "help"}
	assert.Equal(t, "help", commandName(help))
}

func TestCommandRanges(t *testing.T) {
	assert.Equal(t, map[string]int{"daily": 1, "weekly": 7, "monthly": 30}, statsRanges)
	assert.Equal(t, 7, reportRanges["weekly"])
	assert.Equal(t, 30, reportRanges["monthly"])
	assert.Equal(t, 30, reportRanges["admin"])
}
