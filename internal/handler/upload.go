package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/internal/stats"
	"github.com/pavelc4/aether-ddl-bot/internal/streamtape"
	"github.com/pavelc4/aether-ddl-bot/internal/tasks"
	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
	"github.com/pavelc4/aether-ddl-bot/internal/transfer"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
	"github.com/pavelc4/aether-ddl-bot/pkg/utils"
)

const uploadUsage = "Usage: <code>/stupload {path}</code>, or send a video with the caption <code>/stupload</code>."

// StreamTape is the part of *streamtape.Client the handlers use.
type StreamTape interface {
	Upload(ctx context.Context, path string) (string, error)
	GetAccountInfo(ctx context.Context) (*streamtape.AccountInfo, error)
	Close()
}

// ClientFactory builds a StreamTape client that reports through tr. A nil tr
// is allowed for calls that transfer nothing. The caller closes the client.
type ClientFactory func(tr streamtape.Transferer) (StreamTape, error)

type UploadHandler struct {
	client     *telegram.Client
	cfg        *config.Config
	tasks      *tasks.Manager
	stats      *stats.Stats
	newClient  ClientFactory
	httpClient *http.Client
}

func NewUploadHandler(cli *telegram.Client, cfg *config.Config, tm *tasks.Manager, st *stats.Stats, factory ClientFactory, hc *http.Client) *UploadHandler {
	return &UploadHandler{
		client:     cli,
		cfg:        cfg,
		tasks:      tm,
		stats:      st,
		newClient:  factory,
		httpClient: hc,
	}
}

// HandleUpload uploads the document attached to msg, or the local path given
// as argument when the sender is the owner.
func (h *UploadHandler) HandleUpload(ctx context.Context, e tg.Entities, msg *tg.Message, args []string) error {
	userID := SenderID(msg)
	doc := documentOf(msg)

	var path, name string
	switch {
	case doc != nil:
		name = telegram.DocumentName(doc)
	case len(args) > 0:
		if userID != h.cfg.OwnerID {
			_, _, err := replyHTML(ctx, h.client, e, msg, "Only the owner can upload files from the host.")
			return err
		}
		path = filepath.Clean(strings.Join(args, " "))
		name = filepath.Base(path)
	default:
		_, _, err := replyHTML(ctx, h.client, e, msg, uploadUsage)
		return err
	}

	peer, statusID, err := replyHTML(ctx, h.client, e, msg, "⏳ Waiting for a free upload slot...")
	if err != nil {
		return err
	}

	task, taskCtx, err := h.tasks.Start(ctx, userID, name)
	if err != nil {
		editHTML(ctx, h.client, peer, statusID, telegram.FormatError(err))
		return err
	}
	defer h.tasks.Finish(task.ID)

	log := logger.With("task", task.ShortID(), "name", name, "user", userID)
	tracker := telegram.NewProgressTracker(h.client, peer, statusID, task.ShortID())

	if doc != nil {
		dir := utils.TaskDir(h.cfg.DownloadDir, task.ID)
		defer utils.RemoveTaskDir(dir)
		path = filepath.Join(dir, name)

		tracker.Edit(fmt.Sprintf("📥 Downloading <code>%s</code>...\n└ Cancel : <code>/cancel %s</code>", html.EscapeString(name), task.ShortID()))
		if err := h.client.DownloadDocument(taskCtx, doc, path); err != nil {
			if errors.Is(taskCtx.Err(), context.Canceled) {
				tracker.Finish(telegram.FormatCancelled(name))
				return nil
			}
			log.Error("Download failed", "error", err)
			tracker.Finish(telegram.FormatError(err))
			return nil
		}
	}

	var uploader *transfer.Uploader
	uploader = transfer.NewUploader(h.httpClient, &transfer.Hook{
		OnProgress: func(string, int64, int64) { tracker.Update(uploader) },
	})

	log.Info("Upload started", "path", path)
	start := time.Now()
	link, err := h.upload(taskCtx, uploader, path)
	took := time.Since(start)

	switch {
	case errors.Is(err, streamtape.ErrMissingCredentials):
		log.Error("Upload not started", "error", err)
		tracker.Finish(telegram.FormatError(err))
	case err != nil:
		log.Error("Upload failed", "error", err)
		h.stats.RecordUpload(userID, 0, took, false)
		tracker.Finish(telegram.FormatError(streamtape.ErrUploadFailed))
	case link == "":
		log.Info("Upload cancelled")
		tracker.Finish(telegram.FormatCancelled(name))
	default:
		size := pathSize(path)
		log.Info("Upload finished", "link", link, "duration", took)
		h.stats.RecordUpload(userID, size, took, true)
		tracker.Finish(telegram.FormatResult(name, link, size, took))
	}
	return nil
}

// upload runs one upload on a client of its own and releases the client on
// every path.
func (h *UploadHandler) upload(ctx context.Context, tr streamtape.Transferer, path string) (string, error) {
	st, err := h.newClient(tr)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.Upload(ctx, path)
}

func (h *UploadHandler) HandleCancel(ctx context.Context, e tg.Entities, msg *tg.Message, args []string) error {
	if len(args) == 0 {
		_, _, err := replyHTML(ctx, h.client, e, msg, h.taskList(SenderID(msg)))
		return err
	}

	task, err := h.tasks.Cancel(args[0], SenderID(msg))
	var text string
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		text = fmt.Sprintf("No running upload with id <code>%s</code>.", html.EscapeString(args[0]))
	case errors.Is(err, tasks.ErrNotOwner):
		text = "You can only cancel your own uploads."
	case err != nil:
		text = telegram.FormatError(err)
	default:
		text = fmt.Sprintf("Cancelling <code>%s</code>...", html.EscapeString(task.Name))
	}
	_, _, err = replyHTML(ctx, h.client, e, msg, text)
	return err
}

func (h *UploadHandler) taskList(userID int64) string {
	var b strings.Builder
	b.WriteString("Usage: <code>/cancel {task id}</code>")
	for _, t := range h.tasks.List() {
		if t.OwnerID != userID && userID != h.cfg.OwnerID {
			continue
		}
		fmt.Fprintf(&b, "\n• <code>%s</code> %s (%s)", t.ShortID(), html.EscapeString(t.Name), time.Since(t.Started).Round(time.Second))
	}
	return b.String()
}

// pathSize is the size of a file or the total size of the files under a directory.
func pathSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
