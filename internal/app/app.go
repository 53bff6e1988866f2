package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/internal/bot"
	"github.com/pavelc4/aether-ddl-bot/internal/handler"
	"github.com/pavelc4/aether-ddl-bot/internal/media"
	"github.com/pavelc4/aether-ddl-bot/internal/stats"
	"github.com/pavelc4/aether-ddl-bot/internal/store"
	"github.com/pavelc4/aether-ddl-bot/internal/streamtape"
	"github.com/pavelc4/aether-ddl-bot/internal/tasks"
	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
	"github.com/pavelc4/aether-ddl-bot/internal/telegraph"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
	"github.com/pavelc4/aether-ddl-bot/pkg/utils"
)

type App struct {
	Bot   *bot.Bot
	Cfg   *config.Config
	store *store.Store
}

// NewHTTPClient is the connection pool shared by the StreamTape API client and
// the file transfers.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Minute,
		},
	}
}

func NewPublisher(cfg *config.Config) *telegraph.Client {
	return telegraph.New(telegraph.Config{
		Token:      cfg.TelegraphToken,
		AuthorName: cfg.TelegraphAuthor,
	})
}

// NewStreamtapeFactory returns a constructor for per-upload StreamTape clients
// that share hc and the page publisher.
func NewStreamtapeFactory(cfg *config.Config, hc *http.Client, pub streamtape.Publisher) handler.ClientFactory {
	return func(tr streamtape.Transferer) (handler.StreamTape, error) {
		c, err := streamtape.New(streamtape.Config{
			Login:          cfg.StreamtapeLogin,
			Key:            cfg.StreamtapeKey,
			BaseURL:        cfg.StreamtapeAPIURL,
			CoverImage:     cfg.CoverImage,
			PageTitle:      cfg.PageTitle,
			RetryLimit:     cfg.RetryLimit,
			RetryBaseDelay: cfg.RetryBaseDelay,
			HTTPClient:     hc,
		}, tr, pub)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StreamtapeLogin == "" || cfg.StreamtapeKey == "" {
		logger.Warn("StreamTape credentials are not set, uploads will fail")
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	lists := media.NewService(db)
	if err := lists.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	utils.CleanupTaskDirs(ctx, cfg.DownloadDir)

	hc := NewHTTPClient()
	factory := NewStreamtapeFactory(cfg, hc, NewPublisher(cfg))
	taskMgr := tasks.NewManager(cfg.MaxConcurrentUploads, cfg.OwnerID)
	botStats := stats.New()

	dispatcher := tg.NewUpdateDispatcher()
	client, err := telegram.NewClient(cfg, dispatcher)
	if err != nil {
		db.Close()
		return nil, err
	}

	router := bot.NewRouter(cfg,
		handler.NewBasicHandler(client),
		handler.NewAdminHandler(client, cfg, taskMgr, botStats, factory),
		handler.NewUploadHandler(client, cfg, taskMgr, botStats, factory, hc),
		handler.NewGalleryHandler(client, lists),
	)

	b := bot.New(client, router)
	b.Register(dispatcher)

	logger.Info("Application initialized successfully", "max_uploads", cfg.MaxConcurrentUploads)
	return &App{
		Bot:   b,
		Cfg:   cfg,
		store: db,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	err := a.Bot.Run(ctx, a.Cfg.BotToken)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
