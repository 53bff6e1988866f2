package telegram

import (
	"context"
	"fmt"
	stdhtml "html"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/tg"
	"golang.org/x/time/rate"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

const progressInterval = 3 * time.Second

// Progress is the state of a running upload as reported by its transferer.
type Progress interface {
	Name() string
	Size() int64
	Uploaded() int64
	TotalFiles() int64
	TotalFolders() int64
}

// ProgressTracker edits one status message with the progress of an upload,
// at most once every few seconds.
type ProgressTracker struct {
	client  *Client
	peer    tg.InputPeerClass
	msgID   int
	taskID  string
	started time.Time

	sometimes rate.Sometimes

	mu   sync.Mutex
	done bool
}

func NewProgressTracker(client *Client, peer tg.InputPeerClass, msgID int, taskID string) *ProgressTracker {
	return &ProgressTracker{
		client:    client,
		peer:      peer,
		msgID:     msgID,
		taskID:    taskID,
		started:   time.Now(),
		sometimes: rate.Sometimes{First: 1, Interval: progressInterval},
	}
}

// Update schedules an edit when the last one is old enough. It never blocks
// on the network.
func (pt *ProgressTracker) Update(p Progress) {
	pt.sometimes.Do(func() {
		text := FormatProgress(p, pt.taskID, time.Since(pt.started))
		go pt.Edit(text)
	})
}

// Edit replaces the status message with HTML text unless Finish was called.
func (pt *ProgressTracker) Edit(text string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if !pt.done {
		pt.edit(text)
	}
}

// Finish writes the final status; later edits are dropped.
func (pt *ProgressTracker) Finish(text string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.done = true
	pt.edit(text)
}

func (pt *ProgressTracker) edit(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pt.client.Sender().To(pt.peer).Edit(pt.msgID).StyledText(ctx, html.String(nil, text))
	if err != nil && !strings.Contains(err.Error(), "MESSAGE_NOT_MODIFIED") {
		logger.Warn("Progress update failed", "msg_id", pt.msgID, "error", err)
	}
}

func FormatProgress(p Progress, taskID string, elapsed time.Duration) string {
	uploaded, size := p.Uploaded(), p.Size()
	percent := 0.0
	if size > 0 {
		percent = float64(uploaded) / float64(size) * 100
	}
	speed := "--"
	if secs := elapsed.Seconds(); secs > 0 {
		speed = humanize.Bytes(uint64(float64(uploaded)/secs)) + "/s"
	}

	return fmt.Sprintf(
		"📤 <b>Uploading to StreamTape</b>\n"+
			"├ File : <code>%s</code>\n"+
			"├ %s\n"+
			"├ Size : <code>%s / %s</code>\n"+
			"├ Speed : <code>%s</code>\n"+
			"├ Done : <code>%d files, %d folders</code>\n"+
			"├ Elapsed : <code>%s</code>\n"+
			"└ Cancel : <code>/cancel %s</code>",
		stdhtml.EscapeString(p.Name()),
		progressBar(percent),
		humanize.Bytes(uint64(uploaded)), humanize.Bytes(uint64(size)),
		speed,
		p.TotalFiles(), p.TotalFolders(),
		elapsed.Round(time.Second),
		taskID,
	)
}

func progressBar(percent float64) string {
	const width = 10
	filled := int(percent / 100 * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return fmt.Sprintf("[%s%s] %.1f%%", strings.Repeat("■", filled), strings.Repeat("□", width-filled), percent)
}
