package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// faqCallbackPrefix tags FAQ item-view callback data.
const faqCallbackPrefix = "faq:"

// NewFAQHandler returns a handler for the /faq command in user DMs.
func NewFAQHandler(deps HandlerDeps) bot.HandlerFunc {
	return faqHandler{deps}.Handle
}

type faqHandler struct {
	deps HandlerDeps
}

func (h faqHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "faq")

	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	chatID := update.Message.Chat.ID

	// The admin gets the management view instead of the browse view.
	if update.Message.From != nil && update.Message.From.ID == h.deps.Config.Telegram.AdminID {
		if err := renderFAQAdmin(ctx, h.deps, chatID); err != nil {
			log.ErrorContext(ctx, "Failed to render FAQ management view", "error", err, "chat_id", chatID)
		}
		return
	}

	if err := renderFAQList(ctx, h.deps, chatID); err != nil {
		log.ErrorContext(ctx, "Failed to render FAQ list", "error", err, "chat_id", chatID)
	}
}

func renderFAQList(ctx context.Context, deps HandlerDeps, chatID int64) error {
	loc := deps.localizer(ctx, chatID, nil)

	items, err := deps.FAQ.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return deps.Presenter.Render(ctx, chatID, loc.Get(texts.FAQListEmpty), presenter.Options{ReplacePrevious: true})
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(items))
	for _, item := range items {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         item.Title,
			CallbackData: faqCallbackPrefix + item.ID,
		}})
	}
	return deps.Presenter.Render(ctx, chatID, loc.Get(texts.FAQListPrompt), presenter.Options{
		ReplacePrevious: true,
		ReplyMarkup:     models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// NewFAQCallbackHandler returns a handler for FAQ item-view buttons.
func NewFAQCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return faqCallbackHandler{deps}.Handle
}

type faqCallbackHandler struct {
	deps HandlerDeps
}

func (h faqCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "faq_callback")

	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		log.DebugContext(ctx, "Failed to answer callback query", "error", err)
	}

	item, err := h.deps.FAQ.Get(ctx, strings.TrimPrefix(cb.Data, faqCallbackPrefix))
	if err != nil {
		log.ErrorContext(ctx, "Failed to load FAQ item", "error", err, "chat_id", chatID)
		return
	}
	if item == nil {
		// Deleted since the list was rendered, just refresh.
		if err := renderFAQList(ctx, h.deps, chatID); err != nil {
			log.ErrorContext(ctx, "Failed to refresh FAQ list", "error", err, "chat_id", chatID)
		}
		return
	}

	loc := h.deps.localizer(ctx, chatID, nil)
	text := item.Text
	if text == "" && len(item.Attachments) > 0 {
		text = loc.Get(texts.FAQAttachmentsOnly)
	}
	body := "<b>" + item.Title + "</b>\n\n" + text
	if err := h.deps.Presenter.Render(ctx, chatID, body, presenter.Options{ReplacePrevious: true}); err != nil {
		log.ErrorContext(ctx, "Failed to render FAQ item", "error", err, "chat_id", chatID)
		return
	}
	sendAttachments(ctx, h.deps, b, chatID, item.Attachments)
}

// sendAttachments delivers stored attachments by their media kind. Failures
// are logged per attachment so one bad file id does not hide the rest.
func sendAttachments(ctx context.Context, deps HandlerDeps, b *bot.Bot, chatID int64, attachments []storage.Attachment) {
	for _, att := range attachments {
		var err error
		switch att.Kind {
		case storage.AttachmentPhoto:
			_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
				ChatID: chatID, Photo: &models.InputFileString{Data: att.FileID}, Caption: att.Caption,
			})
		case storage.AttachmentVideo:
			_, err = b.SendVideo(ctx, &bot.SendVideoParams{
				ChatID: chatID, Video: &models.InputFileString{Data: att.FileID}, Caption: att.Caption,
			})
		case storage.AttachmentDocument:
			_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
				ChatID: chatID, Document: &models.InputFileString{Data: att.FileID}, Caption: att.Caption,
			})
		case storage.AttachmentAnimation:
			_, err = b.SendAnimation(ctx, &bot.SendAnimationParams{
				ChatID: chatID, Animation: &models.InputFileString{Data: att.FileID}, Caption: att.Caption,
			})
		case storage.AttachmentAudio:
			_, err = b.SendAudio(ctx, &bot.SendAudioParams{
				ChatID: chatID, Audio: &models.InputFileString{Data: att.FileID}, Caption: att.Caption,
			})
		case storage.AttachmentVoice:
			_, err = b.SendVoice(ctx, &bot.SendVoiceParams{
				ChatID: chatID, Voice: &models.InputFileString{Data: att.FileID}, Caption: att.Caption,
			})
		case storage.AttachmentVideoNote:
			_, err = b.SendVideoNote(ctx, &bot.SendVideoNoteParams{
				ChatID: chatID, VideoNote: &models.InputFileString{Data: att.FileID},
			})
		}
		if err != nil {
			deps.Logger.ErrorContext(ctx, "Failed to send attachment",
				"kind", att.Kind, "chat_id", chatID, "error", err)
		}
	}
}
