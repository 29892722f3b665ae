package texts_test

import (
	"testing"

	"github.com/edgard/supportbot/internal/texts"
)

func TestResolveSupportedCodes(t *testing.T) {
	t.Parallel()

	for code := range texts.SupportedLanguages {
		if got := texts.Resolve(code); got != code {
			t.Errorf("Resolve(%q) = %q, want %q", code, got, code)
		}
	}
}

func TestResolveFallback(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"", "xx", "de", "pt-BR"} {
		got := texts.Resolve(code)
		if _, ok := texts.SupportedLanguages[got]; !ok {
			t.Errorf("Resolve(%q) = %q, not a supported language", code, got)
		}
	}
}

func TestLocalizerRender(t *testing.T) {
	t.Parallel()

	loc := texts.ForLanguage("en")
	got := loc.Render(texts.SupportReminder, map[string]string{"user": "Alice"})
	want := "<b>User Alice is waiting for a reply.</b>\nPlease check the conversation."
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestLocalizerUnknownLanguageFallsBack(t *testing.T) {
	t.Parallel()

	loc := texts.ForLanguage("xx")
	if loc.Language() != texts.DefaultLanguage {
		t.Errorf("Language() = %q, want %q", loc.Language(), texts.DefaultLanguage)
	}
	if got := loc.Get(texts.TicketStatusOpen); got != "open" {
		t.Errorf("Get(TicketStatusOpen) = %q, want %q", got, "open")
	}
}

func TestAllKeysPresentInEveryLanguage(t *testing.T) {
	t.Parallel()

	keys := []string{
		texts.SelectLanguage, texts.ChangeLanguage, texts.MainMenu,
		texts.MessageSent, texts.FAQSuggestion, texts.MessageEdited,
		texts.UserStartedBot, texts.UserRestartedBot, texts.UserStoppedBot,
		texts.UserBlocked, texts.UserUnblocked, texts.BlockedByUser,
		texts.UserInformation, texts.MessageNotSent, texts.MessageSentToUser,
		texts.TicketStatusOpen, texts.TicketStatusResolved,
		texts.AutoBlockedNotice, texts.AutoBlockedAlert,
		texts.SilentModeEnabled, texts.SilentModeDisabled,
		texts.SupportReminder, texts.TicketResolved, texts.TicketReopened,
		texts.TicketResolvedUser, texts.FAQListPrompt, texts.FAQListEmpty,
		texts.FAQAttachmentsOnly,
	}

	for code := range texts.SupportedLanguages {
		loc := texts.ForLanguage(code)
		for _, key := range keys {
			if loc.Get(key) == key {
				t.Errorf("language %q is missing key %q", code, key)
			}
		}
	}
}
