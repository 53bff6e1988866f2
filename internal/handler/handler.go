// Package handler implements the bot commands.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

// ParseCommand splits text into a lower-cased command without its @bot suffix
// and the remaining arguments. cmd is empty when text is not a command.
func ParseCommand(text string) (cmd string, args []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd = fields[0]
	if idx := strings.Index(cmd, "@"); idx != -1 {
		cmd = cmd[:idx]
	}
	return strings.ToLower(cmd), fields[1:]
}

// replyHTML answers msg with HTML text and returns the id of the sent message.
func replyHTML(ctx context.Context, c *telegram.Client, e tg.Entities, msg *tg.Message, text string) (tg.InputPeerClass, int, error) {
	peer, err := resolvePeer(msg.PeerID, e)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve peer: %w", err)
	}
	upd, err := c.Sender().To(peer).Reply(msg.ID).StyledText(ctx, html.String(nil, text))
	if err != nil {
		return peer, 0, fmt.Errorf("send message failed: %w", err)
	}
	return peer, getMsgID(upd), nil
}

func editHTML(ctx context.Context, c *telegram.Client, peer tg.InputPeerClass, id int, text string) {
	if _, err := c.Sender().To(peer).Edit(id).StyledText(ctx, html.String(nil, text)); err != nil {
		logger.Error("Failed to edit message", "msg_id", id, "error", err)
	}
}
