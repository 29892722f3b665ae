package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/session"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// faqAdminCallbackPrefix tags FAQ management callback data. The payload is
// "<action>:<item id>" with action one of add, ren, edit, del.
const faqAdminCallbackPrefix = "faqadm:"

// renderFAQAdmin shows the management view: every item with rename, edit and
// delete buttons, plus one button to add a new item.
func renderFAQAdmin(ctx context.Context, deps HandlerDeps, chatID int64) error {
	loc := deps.localizer(ctx, chatID, nil)

	items, err := deps.FAQ.List(ctx)
	if err != nil {
		return err
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(items)+1)
	for _, item := range items {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: item.Title, CallbackData: faqCallbackPrefix + item.ID},
		})
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "✏️", CallbackData: faqAdminCallbackPrefix + "ren:" + item.ID},
			{Text: "📝", CallbackData: faqAdminCallbackPrefix + "edit:" + item.ID},
			{Text: "🗑", CallbackData: faqAdminCallbackPrefix + "del:" + item.ID},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "➕", CallbackData: faqAdminCallbackPrefix + "add:"},
	})

	return deps.Presenter.Render(ctx, chatID, loc.Get(texts.FAQAdminPrompt), presenter.Options{
		ReplacePrevious: true,
		ReplyMarkup:     models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// NewFAQAdminCallbackHandler returns a handler for FAQ management buttons.
func NewFAQAdminCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return faqAdminCallbackHandler{deps}.Handle
}

type faqAdminCallbackHandler struct {
	deps HandlerDeps
}

func (h faqAdminCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "faq_admin_callback")

	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		log.DebugContext(ctx, "Failed to answer callback query", "error", err)
	}

	action, itemID, _ := strings.Cut(strings.TrimPrefix(cb.Data, faqAdminCallbackPrefix), ":")
	loc := h.deps.localizer(ctx, chatID, nil)

	var err error
	switch action {
	case "add":
		err = h.prompt(ctx, chatID, session.Pending{Kind: pendingFAQTitle}, loc.Get(texts.FAQTitlePrompt))
	case "ren":
		err = h.prompt(ctx, chatID, session.Pending{Kind: pendingFAQRename, Arg: itemID}, loc.Get(texts.FAQTitlePrompt))
	case "edit":
		err = h.prompt(ctx, chatID, session.Pending{Kind: pendingFAQContent, Arg: itemID}, loc.Get(texts.FAQContentPrompt))
	case "del":
		if err = h.deps.FAQ.Delete(ctx, itemID); err == nil {
			err = renderFAQAdmin(ctx, h.deps, chatID)
		}
	default:
		log.WarnContext(ctx, "Unknown FAQ management action", "data", cb.Data)
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "FAQ management action failed", "action", action, "error", err, "chat_id", chatID)
	}
}

func (h faqAdminCallbackHandler) prompt(ctx context.Context, chatID int64, pending session.Pending, text string) error {
	if err := h.deps.Sessions.SetPending(ctx, chatID, pending); err != nil {
		return err
	}
	return h.deps.Presenter.Render(ctx, chatID, text, presenter.Options{ReplacePrevious: true})
}

// completeFAQInput finishes the pending FAQ edit with the admin's reply.
func completeFAQInput(ctx context.Context, deps HandlerDeps, chatID int64, pending *session.Pending, msg *models.Message) error {
	loc := deps.localizer(ctx, chatID, nil)
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	switch pending.Kind {
	case pendingFAQTitle:
		// First step of adding an item: create it empty, then ask for content.
		item, err := deps.FAQ.Add(ctx, strings.TrimSpace(text), "", nil)
		if err != nil {
			return err
		}
		if err := deps.Sessions.SetPending(ctx, chatID, session.Pending{Kind: pendingFAQContent, Arg: item.ID}); err != nil {
			return err
		}
		return deps.Presenter.Render(ctx, chatID, loc.Get(texts.FAQContentPrompt), presenter.Options{ReplacePrevious: true})

	case pendingFAQRename:
		if _, err := deps.FAQ.Rename(ctx, pending.Arg, strings.TrimSpace(text)); err != nil {
			return err
		}

	case pendingFAQContent:
		if _, err := deps.FAQ.UpdateContent(ctx, pending.Arg, text, extractAttachments(msg)); err != nil {
			return err
		}
	}

	if err := deps.Sessions.ClearPending(ctx, chatID); err != nil {
		return err
	}
	if err := deps.Presenter.Render(ctx, chatID, loc.Get(texts.FAQItemSaved), presenter.Options{ReplacePrevious: true}); err != nil {
		return err
	}
	return renderFAQAdmin(ctx, deps, chatID)
}

// extractAttachments collects the media carried by one message into stored
// attachment form. For photos the largest available size is kept.
func extractAttachments(msg *models.Message) []storage.Attachment {
	var out []storage.Attachment
	if len(msg.Photo) > 0 {
		out = append(out, storage.Attachment{
			Kind:    storage.AttachmentPhoto,
			FileID:  msg.Photo[len(msg.Photo)-1].FileID,
			Caption: msg.Caption,
		})
	}
	if msg.Video != nil {
		out = append(out, storage.Attachment{Kind: storage.AttachmentVideo, FileID: msg.Video.FileID, Caption: msg.Caption})
	}
	if msg.Document != nil {
		out = append(out, storage.Attachment{Kind: storage.AttachmentDocument, FileID: msg.Document.FileID, Caption: msg.Caption})
	}
	if msg.Animation != nil {
		out = append(out, storage.Attachment{Kind: storage.AttachmentAnimation, FileID: msg.Animation.FileID, Caption: msg.Caption})
	}
	if msg.Audio != nil {
		out = append(out, storage.Attachment{Kind: storage.AttachmentAudio, FileID: msg.Audio.FileID, Caption: msg.Caption})
	}
	if msg.Voice != nil {
		out = append(out, storage.Attachment{Kind: storage.AttachmentVoice, FileID: msg.Voice.FileID})
	}
	if msg.VideoNote != nil {
		out = append(out, storage.Attachment{Kind: storage.AttachmentVideoNote, FileID: msg.VideoNote.FileID})
	}
	return out
}
