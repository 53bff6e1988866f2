package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

type Client struct {
	client *telegram.Client
	api    *tg.Client
	sender *message.Sender
	me     *tg.User
	log    *zap.Logger
}

// NewClient prepares a bot client whose updates go to dispatcher. gotd logs
// through zap at warn level, or debug when LOG_LEVEL is debug.
func NewClient(cfg *config.Config, dispatcher tg.UpdateDispatcher) (*Client, error) {
	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	zl, err := newZap(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build telegram logger: %w", err)
	}

	client := telegram.NewClient(cfg.AppID, cfg.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: filepath.Join(cfg.SessionDir, "session.json")},
		UpdateHandler:  dispatcher,
		Logger:         zl,
	})

	api := client.API()
	return &Client{
		client: client,
		api:    api,
		sender: message.NewSender(api),
		log:    zl,
	}, nil
}

func newZap(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if level == "debug" {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

// Start logs in as the bot and blocks until ctx is done.
func (c *Client) Start(ctx context.Context, botToken string) error {
	defer func() { _ = c.log.Sync() }()

	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status failed: %w", err)
		}

		if !status.Authorized {
			if _, err := c.client.Auth().Bot(ctx, botToken); err != nil {
				return fmt.Errorf("bot login failed: %w", err)
			}
		}

		me, err := c.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self failed: %w", err)
		}
		c.me = me

		logger.Info("Telegram client connected", "username", me.Username, "id", me.ID)

		<-ctx.Done()
		return nil
	})
}

func (c *Client) API() *tg.Client {
	return c.api
}

func (c *Client) Sender() *message.Sender {
	return c.sender
}

func (c *Client) Me() *tg.User {
	return c.me
}

// DownloadDocument saves doc to path.
func (c *Client) DownloadDocument(ctx context.Context, doc *tg.Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	loc := &tg.InputDocumentFileLocation{
		ID:            doc.ID,
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
	}
	if _, err := downloader.NewDownloader().Download(c.api, loc).ToPath(ctx, path); err != nil {
		return fmt.Errorf("download document %d: %w", doc.ID, err)
	}
	return nil
}

// DocumentName returns the file name attribute of doc, or a name built from its id.
func DocumentName(doc *tg.Document) string {
	for _, attr := range doc.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok && fn.FileName != "" {
			return filepath.Base(fn.FileName)
		}
	}
	return fmt.Sprintf("document_%d.mp4", doc.ID)
}
