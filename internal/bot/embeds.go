package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/stats"
	"github.com/flor3z/scuttle-bot/internal/storage"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

const (
	colorGreen = 0x2ECC71
	colorRed   = 0xE74C3C
	colorAmber = 0xF1C40F

	updateNote = "📝 Note: match data is updated hourly on the hour."
)

// errorEmbed maps an error to the message that tells the user what to do
// about it
func errorEmbed(title, riotID string, err error) *discordgo.MessageEmbed {
	var desc string
	color := colorRed

	switch {
	case errors.Is(err, riot.ErrInvalidIdentifierFormat):
		desc = "Riot IDs look like `Name #Tag`. Check the summoner name and tag and try again."
	case errors.Is(err, riot.ErrNotFound):
		desc = fmt.Sprintf("Summoner **%s** does not exist. Make sure the name and tag are correct.", riotID)
	case errors.Is(err, tracker.ErrNotRegistered):
		desc = fmt.Sprintf("Summoner **%s** is not part of your guild. Add them with `/summoners add` to view their stats.", riotID)
	case errors.Is(err, tracker.ErrNoDataYet):
		desc = fmt.Sprintf("Summoner **%s** has been added recently and does not have match data yet. Please allow about 1 hour.", riotID)
		color = colorAmber
	case errors.Is(err, tracker.ErrNoSummoners):
		desc = "No summoners are registered in this server. Add one with `/summoners add`."
	case errors.Is(err, riot.ErrRateLimitExhausted):
		desc = "The Riot API is busy right now. Please try again in a minute."
		color = colorAmber
	case errors.Is(err, riot.ErrAPICallFailed):
		desc = "Could not reach the Riot API. Please try again later."
	default:
		desc = "Something went wrong. Please try again later."
	}

	return &discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: desc,
		Color:       color,
	}
}

// unknownCommandEmbed answers a subcommand this build does not know, which
// happens while Discord still serves stale command definitions
func unknownCommandEmbed(title, sub string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: fmt.Sprintf("Unknown option `%s`. Use `/help` to see the available commands.", sub),
		Color:       colorRed,
	}
}

func messageEmbed(title, desc string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: desc, Color: colorGreen}
}

func helpEmbed() *discordgo.MessageEmbed {
	commands := []struct{ name, desc string }{
		{"❓ /help", "Shows this list"},
		{"✅ /enable", "Sets the channel where the bot sends automated messages such as the weekly report"},
		{"📈 /stats daily", "Stats for a summoner over the last day\nExample: `/stats daily summoner_name:Username tag:NA1`"},
		{"📈 /stats weekly", "Stats for a summoner over the last 7 days"},
		{"📈 /stats monthly", "Stats for a summoner over the last 30 days"},
		{"💼 /reports weekly", "Compares the last 7 days of every summoner in your guild"},
		{"💼 /reports monthly", "Compares the last 30 days of every summoner in your guild"},
		{"🎮 /summoners list", "Lists all summoners in your guild"},
		{"🎮 /summoners add", "Adds a summoner to your guild\nExample: `/summoners add summoner_name:Username tag:NA1`"},
		{"🎮 /summoners remove", "Removes a summoner from your guild"},
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🪴 Scuttle",
		Description: "Ranked Solo Queue statistics for **League of Legends** summoners in your server.",
		Color:       colorGreen,
		Footer: &discordgo.MessageEmbedFooter{
			Text: updateNote + " New summoners show stats after the next update.",
		},
	}
	for _, c := range commands {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: c.name, Value: c.desc})
	}
	return embed
}

func summonersEmbed(summoners []storage.Summoner) *discordgo.MessageEmbed {
	if len(summoners) == 0 {
		return messageEmbed("🎮 Summoners", "No summoners are registered in this server.\nUse `/summoners add` to add one!")
	}

	var sb strings.Builder
	for idx, s := range summoners {
		sb.WriteString(fmt.Sprintf("%d. `%s`", idx+1, s.Name))
		if s.Region != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", strings.ToUpper(s.Region)))
		}
		sb.WriteString("\n")
	}
	return messageEmbed(fmt.Sprintf("🎮 Summoners (%d)", len(summoners)), sb.String())
}

// statsEmbed renders one player's aggregate with a field per stat
func statsEmbed(name string, days int, agg stats.Aggregate) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📈 %s's stats for the past %d day(s)", name, days),
		Description: fmt.Sprintf("Collected stats for %s's Ranked Solo Queue matches over the past %d day(s).",
			name, days),
		Color:  colorGreen,
		Footer: &discordgo.MessageEmbedFooter{Text: updateNote},
	}
	for _, v := range agg.Fields() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   string(v.Key),
			Value:  formatValue(v.Value),
			Inline: true,
		})
	}
	return embed
}

// reportEmbeds renders a guild report: the superlatives, who was compared,
// and who is still waiting for data
func reportEmbeds(guildName string, report *tracker.Report) []*discordgo.MessageEmbed {
	title := fmt.Sprintf("📈 Report for the past %d days", report.Days)
	if guildName != "" {
		title = fmt.Sprintf("📈 %s's report for the past %d days", guildName, report.Days)
	}

	main := &discordgo.MessageEmbed{
		Title: title,
		Description: fmt.Sprintf("Which summoner had the highest value for each stat in the past %d days of Ranked Solo Queue.",
			report.Days),
		Color:  colorGreen,
		Footer: &discordgo.MessageEmbedFooter{Text: updateNote},
	}
	for _, s := range report.Superlatives {
		main.Fields = append(main.Fields, &discordgo.MessageEmbedField{
			Name:   string(s.Key),
			Value:  fmt.Sprintf("%s - %s", formatValue(s.Value), s.Owner),
			Inline: true,
		})
	}
	if len(report.Superlatives) == 0 {
		main.Description = "None of your summoners have match data yet. Please allow about 1 hour."
	}

	embeds := []*discordgo.MessageEmbed{main}

	if len(report.Compared) > 0 {
		lines := make([]string, len(report.Compared))
		for i, name := range report.Compared {
			lines[i] = "🟢 " + name
		}
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       "🏆 Summoners Compared",
			Description: strings.Join(lines, "\n"),
			Color:       colorGreen,
		})
	}

	if len(report.Pending) > 0 {
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title: "⏱️ Summoners Not Compared",
			Description: "Added recently and waiting for their data to update:\n" +
				strings.Join(report.Pending, "\n"),
			Color: colorAmber,
		})
	}

	return embeds
}

// formatValue prints v without trailing zeros and with thousands separators
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}

	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	var sb strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		sb.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(intPart[i : i+3])
	}
	return sign + sb.String() + frac
}
