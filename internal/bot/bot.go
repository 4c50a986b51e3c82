package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/scuttle-bot/internal/config"
	"github.com/flor3z/scuttle-bot/internal/poller"
	"github.com/flor3z/scuttle-bot/internal/storage"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

// Store is the storage the bot touches directly; everything else goes
// through the tracker
type Store interface {
	GetGuild(ctx context.Context, guildID string) (*storage.Guild, error)
	ListGuilds(ctx context.Context) ([]*storage.Guild, error)
	RecordCommand(ctx context.Context, name string) error
}

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	store    Store
	tracker  *tracker.Tracker
	poller   *poller.Poller
	commands []*discordgo.ApplicationCommand

	// Set once the session is open; GuildCreate joins after this are announced
	startedAt time.Time
}

// New creates a new Bot instance
func New(cfg *config.Config, store Store, t *tracker.Tracker) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		config:  cfg,
		session: session,
		store:   store,
		tracker: t,
	}

	// Register command handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start(ctx context.Context) error {
	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)
	b.startedAt = time.Now()

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	// Start ingestion and the weekly report
	b.poller = poller.New(b.tracker, b.store, b, b.config.IngestInterval, poller.Schedule{
		Weekday: b.config.ReportWeekday,
		Hour:    b.config.ReportHourUTC,
	})
	b.poller.Start(ctx)

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	// Stop the poller
	if b.poller != nil {
		b.poller.Stop()
	}

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// SendReport posts a guild report to channelID
func (b *Bot) SendReport(channelID string, report *tracker.Report) error {
	guildName := ""
	if g, err := b.store.GetGuild(context.Background(), report.GuildID); err == nil {
		guildName = g.Name
	}

	_, err := b.session.ChannelMessageSendEmbeds(channelID, reportEmbeds(guildName, report))
	if err != nil {
		return fmt.Errorf("failed to send report to %s: %w", channelID, err)
	}
	slog.Info("Sent report", "guildID", report.GuildID, "channel", channelID)
	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
	// Fired for every guild after connecting and whenever the bot joins one
	b.session.AddHandler(b.handleGuildCreate)
	b.session.AddHandler(b.handleGuildDelete)
}

func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Unavailable {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := b.tracker.Registry().RegisterGuild(ctx, g.ID, g.Name)
	if err != nil {
		slog.Error("Failed to register guild", "guildID", g.ID, "error", err)
		return
	}
	if announceJoin(created, g.JoinedAt, b.startedAt) {
		slog.Info("Joined guild", "guildID", g.ID, "name", g.Name)
		b.audit(guildJoinEmbed(g.Name, g.ID, time.Now()))
	}
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	name := commandName(data)
	slog.Debug("Received command", "command", name, "guild", i.GuildID)

	go b.recordCommand(name)

	if i.GuildID == "" {
		respondWithEmbed(s, i, messageEmbed("Scuttle", "This command must be used in a server."))
		return
	}

	switch data.Name {
	case "help":
		b.handleHelp(s, i)
	case "enable":
		b.handleEnable(s, i)
	case "summoners":
		b.handleSummoners(s, i)
	case "stats":
		b.handleStats(s, i)
	case "reports":
		b.handleReports(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}

func (b *Bot) recordCommand(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.store.RecordCommand(ctx, name); err != nil {
		slog.Warn("Failed to record command", "command", name, "error", err)
	}
}
