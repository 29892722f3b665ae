package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

func TestExtractAttachments(t *testing.T) {
	t.Parallel()

	msg := &models.Message{
		Caption: "look at this",
		Photo: []models.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
		Document: &models.Document{FileID: "doc-1"},
		Voice:    &models.Voice{FileID: "voice-1"},
	}

	got := extractAttachments(msg)
	if len(got) != 3 {
		t.Fatalf("extractAttachments() returned %d attachments, want 3", len(got))
	}

	if got[0].Kind != storage.AttachmentPhoto || got[0].FileID != "large" {
		t.Errorf("photo attachment = %+v, want largest size %q", got[0], "large")
	}
	if got[0].Caption != "look at this" {
		t.Errorf("photo caption = %q, want message caption", got[0].Caption)
	}
	if got[1].Kind != storage.AttachmentDocument || got[1].FileID != "doc-1" {
		t.Errorf("document attachment = %+v", got[1])
	}
	if got[2].Kind != storage.AttachmentVoice || got[2].FileID != "voice-1" {
		t.Errorf("voice attachment = %+v", got[2])
	}
}

func TestExtractAttachmentsEmptyMessage(t *testing.T) {
	t.Parallel()

	if got := extractAttachments(&models.Message{Text: "plain text"}); len(got) != 0 {
		t.Errorf("extractAttachments() = %v, want none", got)
	}
}

func TestTopicMessage(t *testing.T) {
	t.Parallel()

	deps := HandlerDeps{Config: &config.Config{
		Telegram: config.TelegramConfig{GroupID: -100500},
	}}

	tests := []struct {
		name       string
		update     *models.Update
		wantThread int
		wantOK     bool
	}{
		{
			name:   "no message",
			update: &models.Update{},
		},
		{
			name: "wrong chat",
			update: &models.Update{Message: &models.Message{
				Chat: models.Chat{ID: 1}, MessageThreadID: 5,
			}},
		},
		{
			name: "general topic",
			update: &models.Update{Message: &models.Message{
				Chat: models.Chat{ID: -100500},
			}},
		},
		{
			name: "topic message",
			update: &models.Update{Message: &models.Message{
				Chat: models.Chat{ID: -100500}, MessageThreadID: 5,
			}},
			wantThread: 5,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			thread, ok := topicMessage(deps, tt.update)
			if thread != tt.wantThread || ok != tt.wantOK {
				t.Errorf("topicMessage() = (%d, %v), want (%d, %v)", thread, ok, tt.wantThread, tt.wantOK)
			}
		})
	}
}

func TestUpdateSender(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: 42}

	if got := updateSender(&models.Update{Message: &models.Message{From: user}}); got != user {
		t.Errorf("updateSender(message) = %v, want sender", got)
	}
	if got := updateSender(&models.Update{EditedMessage: &models.Message{From: user}}); got != user {
		t.Errorf("updateSender(edited_message) = %v, want sender", got)
	}
	if got := updateSender(&models.Update{CallbackQuery: &models.CallbackQuery{From: *user}}); got == nil || got.ID != 42 {
		t.Errorf("updateSender(callback_query) = %v, want sender", got)
	}
	if got := updateSender(&models.Update{}); got != nil {
		t.Errorf("updateSender(empty) = %v, want nil", got)
	}
}

func TestThrottleDebouncesPerSender(t *testing.T) {
	t.Parallel()

	deps := HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{
			Security: config.SecurityConfig{ThrottleWindow: 25 * time.Millisecond},
		},
	}

	var calls int
	handler := Throttle(deps, "user")(func(_ context.Context, _ *tgbot.Bot, _ *models.Update) {
		calls++
	})

	ctx := context.Background()
	update := &models.Update{Message: &models.Message{From: &models.User{ID: 7}}}

	handler(ctx, nil, update)
	handler(ctx, nil, update)
	if calls != 1 {
		t.Fatalf("calls = %d after burst, want 1", calls)
	}

	// A different sender is never throttled by the first one.
	other := &models.Update{Message: &models.Message{From: &models.User{ID: 8}}}
	handler(ctx, nil, other)
	if calls != 2 {
		t.Fatalf("calls = %d for second sender, want 2", calls)
	}

	time.Sleep(50 * time.Millisecond)
	handler(ctx, nil, update)
	if calls != 3 {
		t.Fatalf("calls = %d after window elapsed, want 3", calls)
	}
}

func TestLanguageKeyboardCoversAllLanguages(t *testing.T) {
	t.Parallel()

	kb := languageKeyboard()
	if len(kb.InlineKeyboard) != len(texts.LanguageOrder) {
		t.Fatalf("keyboard has %d rows, want %d", len(kb.InlineKeyboard), len(texts.LanguageOrder))
	}
	for i, code := range texts.LanguageOrder {
		want := languageCallbackPrefix + code
		if got := kb.InlineKeyboard[i][0].CallbackData; got != want {
			t.Errorf("row %d callback = %q, want %q", i, got, want)
		}
	}
}
