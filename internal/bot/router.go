package bot

import (
	"context"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/config"
	"github.com/pavelc4/aether-ddl-bot/internal/handler"
	"github.com/pavelc4/aether-ddl-bot/internal/media"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

var (
	addCommands = map[string]media.Kind{
		"/addimage": media.Images,
		"/addmedia": media.Media,
		"/addfile":  media.Files,
	}
	listCommands = map[string]media.Kind{
		"/images": media.Images,
		"/media":  media.Media,
		"/files":  media.Files,
	}
)

type Router struct {
	cfg     *config.Config
	basic   *handler.BasicHandler
	admin   *handler.AdminHandler
	upload  *handler.UploadHandler
	gallery *handler.GalleryHandler
}

func NewRouter(cfg *config.Config, basic *handler.BasicHandler, adm *handler.AdminHandler, up *handler.UploadHandler, gal *handler.GalleryHandler) *Router {
	return &Router{
		cfg:     cfg,
		basic:   basic,
		admin:   adm,
		upload:  up,
		gallery: gal,
	}
}

func (r *Router) OnMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) OnChannelMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) HandleMessage(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	if msg.Out {
		return nil
	}

	cmd, args := handler.ParseCommand(msg.Message)
	if cmd == "" {
		return nil
	}

	switch cmd {
	case "/start":
		return r.basic.HandleStart(ctx, e, msg)
	case "/help":
		return r.basic.HandleHelp(ctx, e, msg)
	}

	sender := handler.SenderID(msg)
	if !r.cfg.IsAuthorized(sender) {
		logger.Debug("Ignoring unauthorized command", "cmd", cmd, "user", sender)
		return nil
	}

	if k, ok := addCommands[cmd]; ok {
		return r.gallery.HandleAdd(ctx, e, msg, k, args)
	}
	if k, ok := listCommands[cmd]; ok {
		return r.gallery.HandleList(ctx, e, msg, k)
	}

	switch cmd {
	case "/stupload":
		return r.upload.HandleUpload(ctx, e, msg, args)
	case "/cancel":
		return r.upload.HandleCancel(ctx, e, msg, args)
	case "/stats":
		return r.admin.HandleStats(ctx, e, msg)
	case "/account":
		return r.admin.HandleAccount(ctx, e, msg)
	}
	return r.basic.HandleUnknown(ctx, e, msg)
}

// OnCallback routes inline button presses by the list kind prefix of their data.
func (r *Router) OnCallback(ctx context.Context, e tg.Entities, update *tg.UpdateBotCallbackQuery) error {
	prefix, _, _ := strings.Cut(string(update.Data), " ")
	if _, err := media.ParseKind(prefix); err != nil {
		logger.Debug("Ignoring callback", "data", string(update.Data))
		return nil
	}
	return r.gallery.HandleCallback(ctx, e, update)
}
