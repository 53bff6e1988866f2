package handler

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
)

const helpText = `<b>Aether DDL Bot</b>

Uploads files and folders to StreamTape and keeps lists of saved links.

<b>Uploads</b>
• /stupload {path} - upload a file or folder on the host (owner)
• send a video with caption /stupload - upload it
• /cancel {task id} - cancel a running upload

<b>Lists</b>
• /addimage {link}, /images
• /addmedia {link}, /media
• /addfile {link}, /files
• reply to a link, photo or file with /addimage, /addmedia or /addfile to save it

<b>Admin</b>
• /stats - system and upload statistics
• /account - StreamTape account info`

type BasicHandler struct {
	client *telegram.Client
}

func NewBasicHandler(cli *telegram.Client) *BasicHandler {
	return &BasicHandler{client: cli}
}

func (h *BasicHandler) HandleStart(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	_, _, err := replyHTML(ctx, h.client, e, msg, "👋 Welcome to <b>Aether DDL Bot</b>!\n\nSend /help to see what I can do.")
	return err
}

func (h *BasicHandler) HandleHelp(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	_, _, err := replyHTML(ctx, h.client, e, msg, helpText)
	return err
}

func (h *BasicHandler) HandleUnknown(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	_, _, err := replyHTML(ctx, h.client, e, msg, "Unknown command. Send /help for the list.")
	return err
}
