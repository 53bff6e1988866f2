package bot

import (
	"context"
	"sync"

	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/internal/middleware"
	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
)

// Bot handles every update on its own goroutine so long uploads never hold
// up the update loop, and drains running handlers when it stops.
type Bot struct {
	client *telegram.Client
	router *Router

	running sync.WaitGroup
}

func New(client *telegram.Client, router *Router) *Bot {
	return &Bot{client: client, router: router}
}

// Register routes message and callback updates of d to the router.
func (b *Bot) Register(d tg.UpdateDispatcher) {
	d.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		b.dispatch(ctx, "OnNewMessage", func(ctx context.Context) error { return b.router.OnMessage(ctx, e, u) })
		return nil
	})
	d.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		b.dispatch(ctx, "OnNewChannelMessage", func(ctx context.Context) error { return b.router.OnChannelMessage(ctx, e, u) })
		return nil
	})
	d.OnBotCallbackQuery(func(ctx context.Context, e tg.Entities, u *tg.UpdateBotCallbackQuery) error {
		b.dispatch(ctx, "OnBotCallbackQuery", func(ctx context.Context) error { return b.router.OnCallback(ctx, e, u) })
		return nil
	})
}

func (b *Bot) dispatch(ctx context.Context, name string, h middleware.Handler) {
	b.running.Add(1)
	go func() {
		defer b.running.Done()
		_ = middleware.Chain(h, middleware.Recover, middleware.Logger(name))(ctx)
	}()
}

// Run logs in with token and serves updates until ctx is done. It returns
// once every handler it started has finished.
func (b *Bot) Run(ctx context.Context, token string) error {
	err := b.client.Start(ctx, token)
	b.running.Wait()
	return err
}
