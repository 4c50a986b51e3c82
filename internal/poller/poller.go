package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flor3z/scuttle-bot/internal/storage"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

// ReportDays is the range of the scheduled weekly report
const ReportDays = 7

// Tracker is what the poller drives on each tick
type Tracker interface {
	IngestAll(ctx context.Context) (tracker.IngestSummary, error)
	GetReport(ctx context.Context, guildID string, days int) (*tracker.Report, error)
}

// GuildLister lists every registered guild
type GuildLister interface {
	ListGuilds(ctx context.Context) ([]*storage.Guild, error)
}

// Notifier delivers a report to a channel
type Notifier interface {
	SendReport(channelID string, report *tracker.Report) error
}

// Schedule is the weekly broadcast slot, in UTC
type Schedule struct {
	Weekday time.Weekday
	Hour    int
}

// Poller runs match ingestion on an interval and broadcasts the weekly report
type Poller struct {
	tracker  Tracker
	guilds   GuildLister
	notifier Notifier
	interval time.Duration
	schedule Schedule

	// Checked once a minute for the report slot
	reportTick time.Duration
	now        func() time.Time

	mu         sync.Mutex
	lastReport time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Poller
func New(t Tracker, guilds GuildLister, notifier Notifier, interval time.Duration, schedule Schedule) *Poller {
	return &Poller{
		tracker:    t,
		guilds:     guilds,
		notifier:   notifier,
		interval:   interval,
		schedule:   schedule,
		reportTick: time.Minute,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
}

// Start launches the ingestion and report loops and returns. They run until
// ctx is cancelled or Stop is called. The two loops are independent;
// ingestion never delays a report.
func (p *Poller) Start(ctx context.Context) {
	slog.Info("Starting poller",
		"interval", p.interval,
		"reportWeekday", p.schedule.Weekday,
		"reportHourUTC", p.schedule.Hour,
	)

	p.wg.Add(2)
	go p.ingestLoop(ctx)
	go p.reportLoop(ctx)
}

// Wait blocks until both loops have exited
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Stop signals the poller to stop and waits for the loops to exit
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

func (p *Poller) ingestLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial pass
	p.ingest(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Ingestion loop stopped (context cancelled)")
			return
		case <-p.stopChan:
			slog.Info("Ingestion loop stopped")
			return
		case <-ticker.C:
			p.ingest(ctx)
		}
	}
}

func (p *Poller) reportLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.reportTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if p.claimReportSlot(p.now()) {
				p.broadcast(ctx)
			}
		}
	}
}

func (p *Poller) ingest(ctx context.Context) {
	if _, err := p.tracker.IngestAll(ctx); err != nil {
		slog.Error("Ingestion pass failed", "error", err)
	}
}

// isReportTime reports whether now falls inside the weekly slot
func (p *Poller) isReportTime(now time.Time) bool {
	now = now.UTC()
	return now.Weekday() == p.schedule.Weekday && now.Hour() == p.schedule.Hour
}

// claimReportSlot returns true once per slot
func (p *Poller) claimReportSlot(now time.Time) bool {
	if !p.isReportTime(now) {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastReport.IsZero() && now.Sub(p.lastReport) < 24*time.Hour {
		return false
	}
	p.lastReport = now
	return true
}

// broadcast sends the weekly report to every guild with a notification channel
func (p *Poller) broadcast(ctx context.Context) {
	guilds, err := p.guilds.ListGuilds(ctx)
	if err != nil {
		slog.Error("Failed to list guilds", "error", err)
		return
	}

	sent := 0
	for _, g := range guilds {
		if ctx.Err() != nil {
			return
		}
		if g.MainChannelID == "" {
			continue
		}

		report, err := p.tracker.GetReport(ctx, g.GuildID, ReportDays)
		if errors.Is(err, tracker.ErrNoSummoners) {
			slog.Debug("No summoners to report", "guildID", g.GuildID)
			continue
		}
		if err != nil {
			slog.Error("Failed to build report", "guildID", g.GuildID, "error", err)
			continue
		}

		if err := p.notifier.SendReport(g.MainChannelID, report); err != nil {
			slog.Error("Failed to send report", "guildID", g.GuildID, "error", err)
			continue
		}
		sent++
	}

	slog.Info("Weekly report broadcast", "guilds", len(guilds), "sent", sent)
}
