package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/pavelc4/aether-ddl-bot/internal/media"
	"github.com/pavelc4/aether-ddl-bot/internal/telegram"
	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

const (
	actionTurn      = "turn"
	actionRemove    = "remov"
	actionRemoveAll = "removall"
	actionClose     = "close"
)

// GalleryHandler serves the saved link lists and their inline pager.
type GalleryHandler struct {
	client *telegram.Client
	media  *media.Service
}

func NewGalleryHandler(cli *telegram.Client, svc *media.Service) *GalleryHandler {
	return &GalleryHandler{client: cli, media: svc}
}

func addCommand(k media.Kind) string {
	switch k {
	case media.Images:
		return "/addimage"
	case media.Media:
		return "/addmedia"
	default:
		return "/addfile"
	}
}

func emptyText(k media.Kind) string {
	return fmt.Sprintf("No %s to Show! Add by %s", k.Label(), addCommand(k))
}

const maxPhotoSize = 10 << 20

var (
	errUnsupportedMedia = errors.New("unsupported media type")
	errPhotoTooLarge    = errors.New("photo exceeds 10 MiB")
)

func addUsage(k media.Kind) string {
	cmd := addCommand(k)
	return "<b>By Replying to Link (Telegra.ph or DDL):</b>\n<code>" + cmd + " {link}</code>\n\n" +
		"<b>By Replying to Photo or File on Telegram:</b>\n<code>" + cmd + " {photo or file}</code>"
}

// HandleAdd saves the link given as argument, or the link taken from the
// message replied to.
func (h *GalleryHandler) HandleAdd(ctx context.Context, e tg.Entities, msg *tg.Message, k media.Kind, args []string) error {
	var link string
	if len(args) > 0 {
		link = args[0]
	} else {
		reply, err := h.fetchReply(ctx, e, msg)
		if err != nil {
			logger.Warn("Failed to fetch replied message", "error", err)
		}
		if reply == nil {
			_, _, err := replyHTML(ctx, h.client, e, msg, addUsage(k))
			return err
		}

		link, err = ReplyLink(reply, h.botUsername())
		switch {
		case errors.Is(err, errPhotoTooLarge):
			_, _, err = replyHTML(ctx, h.client, e, msg, "<i>Media is Not Supported! Only Photos and Files are supported!!</i>")
			return err
		case err != nil:
			_, _, err = replyHTML(ctx, h.client, e, msg, "<i>Unsupported Media Type!</i>")
			return err
		}
		logger.Info("Telegram media link", "link", link)
	}

	total, err := h.media.Add(ctx, k, link)
	var text string
	switch {
	case errors.Is(err, media.ErrInvalidLink):
		text = "<b>Not a Valid Link, Must Start with 'http'</b>"
	case err != nil:
		text = telegram.FormatError(err)
	default:
		text = fmt.Sprintf("<b><i>Successfully Added to %s List!</i></b>\n\n<b>• Total : %d</b>", k.Label(), total)
	}
	_, _, err = replyHTML(ctx, h.client, e, msg, text)
	return err
}

func (h *GalleryHandler) botUsername() string {
	if me := h.client.Me(); me != nil {
		return me.Username
	}
	return ""
}

// fetchReply loads the message msg replies to. It returns nil when msg is
// not a reply.
func (h *GalleryHandler) fetchReply(ctx context.Context, e tg.Entities, msg *tg.Message) (*tg.Message, error) {
	hdr, ok := msg.ReplyTo.(*tg.MessageReplyHeader)
	if !ok || hdr.ReplyToMsgID == 0 {
		return nil, nil
	}
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: hdr.ReplyToMsgID}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if _, isChannel := msg.PeerID.(*tg.PeerChannel); isChannel {
		peer, perr := resolvePeer(msg.PeerID, e)
		if perr != nil {
			return nil, perr
		}
		ch := peer.(*tg.InputPeerChannel)
		res, err = h.client.API().ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = h.client.API().MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", hdr.ReplyToMsgID, err)
	}

	var msgs []tg.MessageClass
	switch r := res.(type) {
	case *tg.MessagesMessages:
		msgs = r.Messages
	case *tg.MessagesMessagesSlice:
		msgs = r.Messages
	case *tg.MessagesChannelMessages:
		msgs = r.Messages
	}
	for _, m := range msgs {
		if reply, ok := m.(*tg.Message); ok && reply.ID == hdr.ReplyToMsgID {
			return reply, nil
		}
	}
	return nil, nil
}

// ReplyLink returns the link to save for a replied-to message: a t.me link
// for a photo (at most 10 MiB) or a document, otherwise the message text.
func ReplyLink(reply *tg.Message, botUsername string) (string, error) {
	switch m := reply.Media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return "", errUnsupportedMedia
		}
		if largestPhotoSize(photo) > maxPhotoSize {
			return "", errPhotoTooLarge
		}
		return fmt.Sprintf("https://t.me/%s/%d", botUsername, photo.ID), nil
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return "", errUnsupportedMedia
		}
		return fmt.Sprintf("https://t.me/%s/%d", botUsername, doc.ID), nil
	}

	if text := strings.TrimSpace(reply.Message); text != "" {
		return text, nil
	}
	return "", errUnsupportedMedia
}

func largestPhotoSize(p *tg.Photo) int {
	largest := 0
	for _, size := range p.Sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			largest = max(largest, s.Size)
		case *tg.PhotoSizeProgressive:
			if n := len(s.Sizes); n > 0 {
				largest = max(largest, s.Sizes[n-1])
			}
		}
	}
	return largest
}

func (h *GalleryHandler) HandleList(ctx context.Context, e tg.Entities, msg *tg.Message, k media.Kind) error {
	peer, err := resolvePeer(msg.PeerID, e)
	if err != nil {
		return fmt.Errorf("failed to resolve peer: %w", err)
	}

	link, idx, total, err := h.media.At(k, 0)
	if errors.Is(err, media.ErrEmptyList) {
		_, err = h.client.Sender().To(peer).Reply(msg.ID).Text(ctx, emptyText(k))
		return err
	}
	if err != nil {
		return err
	}

	text, markup := GalleryView(k, SenderID(msg), idx, total, link)
	_, err = h.client.Sender().To(peer).Reply(msg.ID).Markup(markup).Text(ctx, text)
	return err
}

type callbackData struct {
	kind   media.Kind
	userID int64
	action string
	index  int
}

func (c callbackData) String() string {
	s := fmt.Sprintf("%s %d %s", c.kind, c.userID, c.action)
	if c.action == actionTurn || c.action == actionRemove {
		s += " " + strconv.Itoa(c.index)
	}
	return s
}

// ParseCallback decodes "<kind> <userID> <action> [index]".
func ParseCallback(data string) (callbackData, error) {
	var cb callbackData
	parts := strings.Fields(data)
	if len(parts) < 3 {
		return cb, fmt.Errorf("malformed callback %q", data)
	}

	kind, err := media.ParseKind(parts[0])
	if err != nil {
		return cb, err
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return cb, fmt.Errorf("callback user id: %w", err)
	}
	cb = callbackData{kind: kind, userID: userID, action: parts[2]}

	switch cb.action {
	case actionTurn, actionRemove:
		if len(parts) < 4 {
			return cb, fmt.Errorf("callback %q has no index", data)
		}
		if cb.index, err = strconv.Atoi(parts[3]); err != nil {
			return cb, fmt.Errorf("callback index: %w", err)
		}
	case actionRemoveAll, actionClose:
	default:
		return cb, fmt.Errorf("unknown callback action %q", cb.action)
	}
	return cb, nil
}

func button(text string, cb callbackData) tg.KeyboardButtonClass {
	return &tg.KeyboardButtonCallback{Text: text, Data: []byte(cb.String())}
}

// GalleryView renders entry idx of a list of total links with its pager.
func GalleryView(k media.Kind, userID int64, idx, total int, link string) (string, *tg.ReplyInlineMarkup) {
	text := fmt.Sprintf("📁 %s No. : %d / %d\n\n%s", k.Label(), idx+1, total, link)
	at := func(action string, i int) callbackData {
		return callbackData{kind: k, userID: userID, action: action, index: i}
	}

	return text, &tg.ReplyInlineMarkup{Rows: []tg.KeyboardButtonRow{
		{Buttons: []tg.KeyboardButtonClass{
			button("<<", at(actionTurn, idx-1)),
			button(">>", at(actionTurn, idx+1)),
		}},
		{Buttons: []tg.KeyboardButtonClass{
			button("Remove "+k.Label(), at(actionRemove, idx)),
			button("Close", at(actionClose, 0)),
		}},
		{Buttons: []tg.KeyboardButtonClass{
			button("Remove All", at(actionRemoveAll, 0)),
		}},
	}}
}

func (h *GalleryHandler) answer(ctx context.Context, queryID int64, text string, alert bool) {
	_, err := h.client.API().MessagesSetBotCallbackAnswer(ctx, &tg.MessagesSetBotCallbackAnswerRequest{
		QueryID: queryID,
		Message: text,
		Alert:   alert,
	})
	if err != nil {
		logger.Warn("Failed to answer callback", "error", err)
	}
}

func (h *GalleryHandler) show(ctx context.Context, peer tg.InputPeerClass, msgID int, cb callbackData, index int) error {
	link, idx, total, err := h.media.At(cb.kind, index)
	if err != nil {
		return err
	}
	text, markup := GalleryView(cb.kind, cb.userID, idx, total, link)
	_, err = h.client.API().MessagesEditMessage(ctx, &tg.MessagesEditMessageRequest{
		Peer:        peer,
		ID:          msgID,
		Message:     text,
		ReplyMarkup: markup,
	})
	return err
}

func (h *GalleryHandler) HandleCallback(ctx context.Context, e tg.Entities, u *tg.UpdateBotCallbackQuery) error {
	cb, err := ParseCallback(string(u.Data))
	if err != nil {
		h.answer(ctx, u.QueryID, "", false)
		return err
	}
	if cb.userID != u.UserID {
		h.answer(ctx, u.QueryID, "Not Authorized User!", true)
		return nil
	}

	peer, err := resolvePeer(u.Peer, e)
	if err != nil {
		h.answer(ctx, u.QueryID, "", false)
		return fmt.Errorf("failed to resolve peer: %w", err)
	}

	switch cb.action {
	case actionTurn:
		h.answer(ctx, u.QueryID, "", false)
		if err := h.show(ctx, peer, u.MsgID, cb, cb.index); errors.Is(err, media.ErrEmptyList) {
			return h.replaceWithEmpty(ctx, peer, u.MsgID, cb.kind)
		} else if err != nil {
			return err
		}

	case actionRemove:
		left, err := h.media.Remove(ctx, cb.kind, cb.index)
		h.answer(ctx, u.QueryID, removalNotice(cb.kind, err), true)
		if err != nil && !errors.Is(err, media.ErrEmptyList) {
			return err
		}
		if left == 0 {
			return h.replaceWithEmpty(ctx, peer, u.MsgID, cb.kind)
		}
		return h.show(ctx, peer, u.MsgID, cb, cb.index)

	case actionRemoveAll:
		if h.media.Len(cb.kind) == 0 {
			h.answer(ctx, u.QueryID, emptyText(cb.kind), true)
			return h.replaceWithEmpty(ctx, peer, u.MsgID, cb.kind)
		}
		if err := h.media.Clear(ctx, cb.kind); err != nil {
			h.answer(ctx, u.QueryID, "Failed to remove", true)
			return err
		}
		h.answer(ctx, u.QueryID, "All "+cb.kind.Label()+" Successfully Deleted", true)
		return h.replaceWithEmpty(ctx, peer, u.MsgID, cb.kind)

	case actionClose:
		h.answer(ctx, u.QueryID, "", false)
		return deleteMessage(ctx, h.client.API(), peer, u.MsgID)
	}
	return nil
}

// removalNotice is the callback answer after removing one link.
func removalNotice(k media.Kind, err error) string {
	switch {
	case errors.Is(err, media.ErrEmptyList):
		return emptyText(k)
	case err != nil:
		return "Failed to remove"
	}
	return k.Label() + " Successfully Deleted"
}

func (h *GalleryHandler) replaceWithEmpty(ctx context.Context, peer tg.InputPeerClass, msgID int, k media.Kind) error {
	if _, err := h.client.Sender().To(peer).Text(ctx, emptyText(k)); err != nil {
		return err
	}
	return deleteMessage(ctx, h.client.API(), peer, msgID)
}
