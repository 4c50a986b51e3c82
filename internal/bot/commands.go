package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/scuttle-bot/internal/riot"
	"github.com/flor3z/scuttle-bot/internal/storage"
)

// Day ranges behind the stats and reports subcommands
var (
	statsRanges = map[string]int{"daily": 1, "weekly": 7, "monthly": 30}

	reportRanges = map[string]int{"weekly": 7, "monthly": 30, "admin": 30}
)

func riotIDOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "summoner_name",
			Description: "The name of the summoner",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "tag",
			Description: "Riot tag, without the #",
			Required:    true,
		},
	}
}

func subcommand(name, desc string, options []*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: desc,
		Options:     options,
	}
}

// Slash command definitions
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "help",
			Description: "Shows a list of commands",
		},
		{
			Name:        "enable",
			Description: "Sets this channel as the one where automatic messages, such as reports, are sent",
		},
		{
			Name:        "summoners",
			Description: "Manage the summoners tracked in this server",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("list", "Lists all summoners in your guild", nil),
				subcommand("add", "Adds a summoner to your guild", riotIDOptions()),
				subcommand("remove", "Removes a summoner from your guild", riotIDOptions()),
			},
		},
		{
			Name:        "stats",
			Description: "Ranked Solo Queue stats for a summoner",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("daily", "Stats for games played in the last 24 hours", riotIDOptions()),
				subcommand("weekly", "Stats for games played in the last 7 days", riotIDOptions()),
				subcommand("monthly", "Stats for games played in the last 30 days", riotIDOptions()),
			},
		},
		{
			Name:        "reports",
			Description: "Compare the stats of every summoner in your guild",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("weekly", "Compares the last 7 days", nil),
				subcommand("monthly", "Compares the last 30 days", nil),
				subcommand("admin", "This command is only for the bot admin", []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "guild_id",
						Description: "The ID of the guild",
						Required:    true,
					},
				}),
			},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	definitions := commandDefinitions()
	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID,
		"", // Empty string = global command
		definitions,
	)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.commands = registered
	slog.Info("Slash commands registered", "count", len(registered))
	return nil
}

// handleHelp handles the /help command
func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondWithEmbed(s, i, helpEmbed())
}

// handleEnable handles the /enable command
func (b *Bot) handleEnable(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changed, err := b.tracker.Registry().SetNotificationChannel(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		b.logCommandError(i, "enable", "", err)
		respondWithEmbed(s, i, errorEmbed("Enable Command", "", err))
		return
	}

	if !changed {
		respondWithEmbed(s, i, messageEmbed("✅ Enable Command", "Automated messages are already enabled in this channel."))
		return
	}
	respondWithEmbed(s, i, messageEmbed("✅ Enable Command",
		fmt.Sprintf("Automated messages such as the weekly report will be sent to <#%s>.", i.ChannelID)))
}

// handleSummoners handles the /summoners command group
func (b *Bot) handleSummoners(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, options := subcommandOptions(i.ApplicationCommandData())

	if sub == "list" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		summoners, err := b.tracker.Registry().ListPlayers(ctx, i.GuildID)
		if err != nil {
			b.logCommandError(i, "summoners list", "", err)
			respondWithEmbed(s, i, errorEmbed("Summoners Command", "", err))
			return
		}
		respondWithEmbed(s, i, summonersEmbed(summoners))
		return
	}

	if sub != "add" && sub != "remove" {
		slog.Warn("Unknown summoners subcommand", "subcommand", sub)
		respondWithEmbed(s, i, unknownCommandEmbed("Summoners Command", sub))
		return
	}

	riotID := riotIDFromOptions(options)

	// Respond immediately to avoid timeout
	deferResponse(s, i)

	// Region detection queries every platform
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch sub {
	case "add":
		summoner, added, err := b.tracker.RegisterPlayer(ctx, i.GuildID, riotID)
		if err != nil {
			b.logCommandError(i, "summoners add", riotID, err)
			editWithEmbeds(s, i, errorEmbed("Summoners Command", riotID, err))
			return
		}
		if !added {
			editWithEmbeds(s, i, messageEmbed("🎮 Summoners Command",
				fmt.Sprintf("Summoner **%s** is already in your guild.", summoner.Name)))
			return
		}
		editWithEmbeds(s, i, messageEmbed("🎮 Summoners Command",
			fmt.Sprintf("Added **%s** to your guild. Their stats will be available after the next hourly update.", summoner.Name)))

	case "remove":
		removed, err := b.tracker.UnregisterPlayer(ctx, i.GuildID, riotID)
		if err != nil {
			b.logCommandError(i, "summoners remove", riotID, err)
			editWithEmbeds(s, i, errorEmbed("Summoners Command", riotID, err))
			return
		}
		if !removed {
			editWithEmbeds(s, i, messageEmbed("🎮 Summoners Command",
				fmt.Sprintf("Summoner **%s** is not part of your guild.", riotID)))
			return
		}
		editWithEmbeds(s, i, messageEmbed("🎮 Summoners Command",
			fmt.Sprintf("Removed **%s** from your guild.", riotID)))
	}
}

// handleStats handles the /stats command group
func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, options := subcommandOptions(i.ApplicationCommandData())
	days, ok := statsRanges[sub]
	if !ok {
		slog.Warn("Unknown stats range", "subcommand", sub)
		respondWithEmbed(s, i, unknownCommandEmbed("Stats Command", sub))
		return
	}
	riotID := riotIDFromOptions(options)

	deferResponse(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summoner, agg, err := b.tracker.StatsForGuildMember(ctx, i.GuildID, riotID, days)
	if err != nil {
		b.logCommandError(i, "stats "+sub, riotID, err)
		editWithEmbeds(s, i, errorEmbed("Stats Command", riotID, err))
		return
	}

	editWithEmbeds(s, i, statsEmbed(summoner.Name, days, agg))
}

// handleReports handles the /reports command group
func (b *Bot) handleReports(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub, options := subcommandOptions(i.ApplicationCommandData())
	days, ok := reportRanges[sub]
	if !ok {
		slog.Warn("Unknown report range", "subcommand", sub)
		respondWithEmbed(s, i, unknownCommandEmbed("Reports Command", sub))
		return
	}

	deferResponse(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	guildID := i.GuildID
	if sub == "admin" {
		if b.config.OwnerDiscordID == "" || interactionUserID(i) != b.config.OwnerDiscordID {
			editWithEmbeds(s, i, messageEmbed("❌ Reports Command", "This command is only for the bot admin."))
			return
		}
		if opt, ok := options["guild_id"]; ok {
			guildID = strings.TrimSpace(opt.StringValue())
		}
	}

	guild, err := b.store.GetGuild(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		editWithEmbeds(s, i, messageEmbed("❌ Reports Command", "The specified guild does not exist."))
		return
	}
	if err != nil {
		b.logCommandError(i, "reports "+sub, "", err)
		editWithEmbeds(s, i, errorEmbed("Reports Command", "", err))
		return
	}

	report, err := b.tracker.GetReport(ctx, guildID, days)
	if err != nil {
		b.logCommandError(i, "reports "+sub, "", err)
		editWithEmbeds(s, i, errorEmbed("Reports Command", "", err))
		return
	}

	editWithEmbeds(s, i, reportEmbeds(guild.Name, report)...)
}

// Helper functions

// commandName joins a command with its subcommand, e.g. "stats weekly"
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	if sub, _ := subcommandOptions(data); sub != "" {
		return data.Name + " " + sub
	}
	return data.Name
}

// subcommandOptions returns the invoked subcommand and its options by name
func subcommandOptions(data discordgo.ApplicationCommandInteractionData) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		for _, opt := range data.Options {
			options[opt.Name] = opt
		}
		return "", options
	}

	sub := data.Options[0]
	for _, opt := range sub.Options {
		options[opt.Name] = opt
	}
	return sub.Name, options
}

// riotIDFromOptions builds "Name #Tag" from the summoner_name and tag options
func riotIDFromOptions(options map[string]*discordgo.ApplicationCommandInteractionDataOption) string {
	var name, tag string
	if opt, ok := options["summoner_name"]; ok {
		name = strings.TrimSpace(opt.StringValue())
	}
	if opt, ok := options["tag"]; ok {
		tag = strings.TrimPrefix(strings.TrimSpace(opt.StringValue()), "#")
	}
	return riot.FormatRiotID(name, tag)
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		slog.Error("Failed to respond to interaction", "error", err)
	}
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		slog.Error("Failed to defer interaction", "error", err)
	}
}

func editWithEmbeds(s *discordgo.Session, i *discordgo.InteractionCreate, embeds ...*discordgo.MessageEmbed) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}); err != nil {
		slog.Error("Failed to edit interaction response", "error", err)
	}
}
