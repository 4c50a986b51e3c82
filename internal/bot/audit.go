package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

const auditTimeFormat = "2006-01-02 15:04:05 MST"

// audit posts embed to the support-server log channel, if one is configured
func (b *Bot) audit(embed *discordgo.MessageEmbed) {
	if b.config.LogChannelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(b.config.LogChannelID, embed); err != nil {
		slog.Warn("Failed to send audit message", "channel", b.config.LogChannelID, "error", err)
	}
}

// announceJoin decides whether a GuildCreate is a real join. Discord replays
// GuildCreate for every guild after connecting, so only new registrations and
// joins after startup count.
func announceJoin(created bool, joinedAt, startedAt time.Time) bool {
	return created || (!startedAt.IsZero() && joinedAt.After(startedAt))
}

// isUserError reports whether err comes from what the user typed or asked
// for rather than from the bot or its dependencies
func isUserError(err error) bool {
	return errors.Is(err, riot.ErrInvalidIdentifierFormat) ||
		errors.Is(err, riot.ErrNotFound) ||
		errors.Is(err, tracker.ErrNotRegistered) ||
		errors.Is(err, tracker.ErrNoDataYet) ||
		errors.Is(err, tracker.ErrNoSummoners)
}

func guildJoinEmbed(name, guildID string, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🟢 Scuttle has joined *'%s'*", name),
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Guild ID", Value: guildID},
			{Name: "Date/Time", Value: at.UTC().Format(auditTimeFormat)},
		},
	}
}

func guildLeaveEmbed(name, guildID string, at time.Time) *discordgo.MessageEmbed {
	title := "🔴 Scuttle has left a guild"
	if name != "" {
		title = fmt.Sprintf("🔴 Scuttle has left *'%s'*", name)
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: colorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Guild ID", Value: guildID},
			{Name: "Date/Time", Value: at.UTC().Format(auditTimeFormat)},
		},
	}
}

func commandErrorEmbed(command string, i *discordgo.InteractionCreate, err error, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Flagged Error!",
		Description: "An error has been flagged while using a slash command.",
		Color:       colorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Command", Value: "`/" + command + "`"},
			{Name: "Error Message", Value: "`" + err.Error() + "`"},
			{Name: "Timestamp", Value: at.UTC().Format(auditTimeFormat)},
			{Name: "Guild", Value: i.GuildID},
			{Name: "User", Value: interactionUserID(i)},
			{Name: "Channel", Value: i.ChannelID},
		},
	}
}

func (b *Bot) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	// Outages also arrive as GuildDelete
	if g.Unavailable {
		slog.Warn("Guild unavailable", "guildID", g.ID)
		return
	}

	name := g.Name
	if name == "" && g.BeforeDelete != nil {
		name = g.BeforeDelete.Name
	}
	slog.Info("Left guild", "guildID", g.ID, "name", name)
	b.audit(guildLeaveEmbed(name, g.ID, time.Now()))
}

// logCommandError logs a failed command. Errors the user caused stay at debug;
// anything else is also flagged in the audit channel.
func (b *Bot) logCommandError(i *discordgo.InteractionCreate, command, riotID string, err error) {
	if isUserError(err) {
		slog.Debug("Command rejected", "command", command, "riotID", riotID, "error", err)
		return
	}
	slog.Error("Command failed", "command", command, "riotID", riotID, "error", err)
	b.audit(commandErrorEmbed(command, i, err, time.Now()))
}
