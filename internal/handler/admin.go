package handler

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/internal/stats"
	"github.com/pavelc4/aether-ddl-bot/internal/streamtape"
	"github.com/pavelc4/aether-ddl-bot/internal/tasks"
	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
)

type AdminHandler struct {
	client    *telegram.Client
	cfg       *config.Config
	tasks     *tasks.Manager
	stats     *stats.Stats
	newClient ClientFactory
}

func NewAdminHandler(cli *telegram.Client, cfg *config.Config, tm *tasks.Manager, st *stats.Stats, factory ClientFactory) *AdminHandler {
	return &AdminHandler{client: cli, cfg: cfg, tasks: tm, stats: st, newClient: factory}
}

func (h *AdminHandler) HandleStats(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	if SenderID(msg) != h.cfg.OwnerID {
		return nil
	}

	sys := stats.CollectSystemInfo(ctx, h.cfg.DownloadDir)
	_, _, err := replyHTML(ctx, h.client, e, msg, FormatStats(sys, h.stats.Snapshot(), h.tasks.Active()))
	return err
}

func FormatStats(sys *stats.SystemInfo, snap stats.Snapshot, active int) string {
	last := "never"
	if !snap.LastUpload.IsZero() {
		last = humanize.Time(snap.LastUpload)
	}

	return fmt.Sprintf(
		"<b>System Status</b>\n\n"+
			"<b>OS Info</b>\n"+
			"├ System : <code>%s</code>\n"+
			"├ Host : <code>%s</code>\n"+
			"└ Uptime : <code>%s</code>\n\n"+
			"<b>CPU</b>\n"+
			"├ Cores : <code>%d</code>\n"+
			"└ Usage : <code>%.2f%%</code>\n\n"+
			"<b>Memory</b>\n"+
			"└ Used : <code>%s / %s (%.1f%%)</code>\n\n"+
			"<b>Disk</b>\n"+
			"├ Used : <code>%s / %s (%.1f%%)</code>\n"+
			"└ Free : <code>%s</code>\n\n"+
			"<b>Bot Process</b>\n"+
			"├ Uptime : <code>%s</code>\n"+
			"├ PID : <code>%d</code>\n"+
			"├ CPU : <code>%.2f%%</code>\n"+
			"├ Mem : <code>%s</code>\n"+
			"├ Routines : <code>%d</code>\n"+
			"└ Go Ver : <code>%s</code>\n\n"+
			"<b>Uploads</b>\n"+
			"├ Active : <code>%d</code>\n"+
			"├ Done : <code>%d</code>\n"+
			"├ Failed : <code>%d</code>\n"+
			"├ Volume : <code>%s</code>\n"+
			"├ Avg Time : <code>%s</code>\n"+
			"├ Users : <code>%d</code>\n"+
			"└ Last : <code>%s</code>",
		sys.OS,
		sys.Hostname,
		sys.SystemUptime.Round(time.Second),
		sys.CPUCores,
		sys.CPUUsage,
		humanize.Bytes(sys.MemUsed), humanize.Bytes(sys.MemTotal), sys.MemPercent,
		humanize.Bytes(sys.DiskUsed), humanize.Bytes(sys.DiskTotal), sys.DiskPercent,
		humanize.Bytes(sys.DiskFree),
		snap.Uptime.Round(time.Second),
		sys.ProcessPID,
		sys.ProcessCPU,
		humanize.Bytes(sys.ProcessMem),
		sys.Goroutines,
		sys.GoVersion,
		active,
		snap.Uploads,
		snap.Failed,
		humanize.Bytes(uint64(snap.TotalBytes)),
		snap.AvgDuration.Round(time.Second),
		snap.Users,
		last,
	)
}

func (h *AdminHandler) HandleAccount(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	if SenderID(msg) != h.cfg.OwnerID {
		return nil
	}

	info, err := h.accountInfo(ctx)
	if err != nil {
		_, _, rerr := replyHTML(ctx, h.client, e, msg, telegram.FormatError(err))
		return rerr
	}

	text := fmt.Sprintf(
		"<b>StreamTape Account</b>\n"+
			"├ API ID : <code>%s</code>\n"+
			"├ Email : <code>%s</code>\n"+
			"└ Since : <code>%s</code>",
		html.EscapeString(info.APIID), html.EscapeString(info.Email), html.EscapeString(info.SignupAt),
	)
	_, _, err = replyHTML(ctx, h.client, e, msg, text)
	return err
}

func (h *AdminHandler) accountInfo(ctx context.Context) (*streamtape.AccountInfo, error) {
	st, err := h.newClient(nil)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.GetAccountInfo(ctx)
}
