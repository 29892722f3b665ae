// Package texts holds the built-in language tables used for user-facing
// messages. Tables are immutable after process start; components receive a
// Localizer by value instead of reaching into a global lookup.
package texts

import "strings"

// Message keys understood by the language tables.
const (
	SelectLanguage       = "select_language"
	ChangeLanguage       = "change_language"
	MainMenu             = "main_menu"
	MessageSent          = "message_sent"
	FAQSuggestion        = "faq_suggestion"
	MessageEdited        = "message_edited"
	UserStartedBot       = "user_started_bot"
	UserRestartedBot     = "user_restarted_bot"
	UserStoppedBot       = "user_stopped_bot"
	UserBlocked          = "user_blocked"
	UserUnblocked        = "user_unblocked"
	BlockedByUser        = "blocked_by_user"
	UserInformation      = "user_information"
	MessageNotSent       = "message_not_sent"
	MessageSentToUser    = "message_sent_to_user"
	TicketStatusOpen     = "ticket_status_open"
	TicketStatusResolved = "ticket_status_resolved"
	AutoBlockedNotice    = "auto_blocked_notice"
	AutoBlockedAlert     = "auto_blocked_alert"
	SilentModeEnabled    = "silent_mode_enabled"
	SilentModeDisabled   = "silent_mode_disabled"
	SupportReminder      = "support_reminder"
	TicketResolved       = "ticket_resolved"
	TicketReopened       = "ticket_reopened"
	TicketResolvedUser   = "ticket_resolved_user"
	FAQListPrompt        = "faq_list_prompt"
	FAQListEmpty         = "faq_list_empty"
	FAQAttachmentsOnly   = "faq_attachments_only"

	// Admin-only strings.
	BannedListHeader = "banned_list_header"
	BannedListEmpty  = "banned_list_empty"
	UnbanUsage       = "unban_usage"
	OverridePrompt   = "override_prompt"
	OverrideSaved    = "override_saved"
	OverrideReset    = "override_reset"
	FAQAdminPrompt   = "faq_admin_prompt"
	FAQTitlePrompt   = "faq_title_prompt"
	FAQContentPrompt = "faq_content_prompt"
	FAQItemSaved     = "faq_item_saved"
	FAQItemDeleted   = "faq_item_deleted"
)

// SupportedLanguages maps language codes to their display titles. Iteration
// order for menus is given by LanguageOrder.
var SupportedLanguages = map[string]string{
	"en": "🇬🇧 English",
	"ru": "🇷🇺 Русский",
}

// LanguageOrder lists supported codes in menu order.
var LanguageOrder = []string{"en", "ru"}

// DefaultLanguage is used when a code cannot be resolved.
const DefaultLanguage = "en"

// Resolve returns the code itself when it is supported, and the default
// language otherwise. It never fails and never returns an unsupported code.
func Resolve(code string) string {
	if _, ok := SupportedLanguages[code]; ok {
		return code
	}
	return DefaultLanguage
}

// Localizer resolves message keys for a single language.
type Localizer struct {
	language string
}

// ForLanguage returns a Localizer for the given code, falling back to the
// default language for unsupported codes.
func ForLanguage(code string) Localizer {
	return Localizer{language: Resolve(code)}
}

// Language returns the resolved language code.
func (l Localizer) Language() string {
	return l.language
}

// Get returns the message for the key. Unknown keys return the key itself so
// a missing table entry is visible instead of silent.
func (l Localizer) Get(key string) string {
	table, ok := tables[l.language]
	if !ok {
		table = tables[DefaultLanguage]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	return key
}

// Render returns the message for the key with `{placeholder}` tokens
// substituted from args.
func (l Localizer) Render(key string, args map[string]string) string {
	msg := l.Get(key)
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var tables = map[string]map[string]string{
	"en": {
		SelectLanguage: "👋 <b>Hello</b>, <b>{full_name}</b>!\n\nSelect language:",
		ChangeLanguage: "<b>Select language:</b>",
		MainMenu:       "<b>Write your question</b>, and we will answer you as soon as possible:",
		MessageSent:    "<b>Message sent!</b> Expect a response.",
		FAQSuggestion: "While you wait for a response, take a look at the frequently asked " +
			"questions: the answer might already be there.",
		MessageEdited: "<b>The message was edited only in your chat.</b> " +
			"If you want support to receive the new version, send it again.",
		UserStartedBot: "User <b>{name}</b> started the bot!\n\n" +
			"List of available commands:\n\n" +
			"- /ban\n  Block or unblock the user.\n\n" +
			"- /silent\n  Toggle silent mode. When enabled, replies are not sent to the user.\n\n" +
			"- /information\n  Show a brief summary about the user.\n\n" +
			"- /resolve\n  Mark the ticket as resolved and update the topic emoji.\n\n" +
			"- /resolvequiet\n  Close the ticket without sending a message to the user.",
		UserRestartedBot: "User <b>{name}</b> restarted the bot!",
		UserStoppedBot:   "User <b>{name}</b> stopped the bot!",
		UserBlocked:      "<b>User blocked!</b> Messages from the user are ignored.",
		UserUnblocked:    "<b>User unblocked!</b> Messages from the user are accepted again.",
		BlockedByUser:    "<b>Message not sent!</b> The bot is blocked by the user.",
		UserInformation: "<b>ID:</b>\n- <code>{id}</code>\n" +
			"<b>Name:</b>\n- {full_name}\n" +
			"<b>Status:</b>\n- {state}\n" +
			"<b>Username:</b>\n- {username}\n" +
			"<b>Blocked:</b>\n- {is_banned}\n" +
			"<b>Registration date:</b>\n- {created_at}",
		MessageNotSent:       "<b>Message not sent!</b> An unexpected error occurred.",
		MessageSentToUser:    "<b>Message sent to the user!</b>",
		TicketStatusOpen:     "open",
		TicketStatusResolved: "resolved",
		AutoBlockedNotice: "<b>Message blocked.</b>\n" +
			"Our safety filter detected suspicious data ({reason}).\n" +
			"Please rename your profile and remove invite links before trying again.",
		AutoBlockedAlert:   "<b>Automatic block triggered.</b>\n{user}\nReason: {reason}",
		SilentModeEnabled:  "<b>Silent mode enabled!</b> Messages will not be forwarded to the user.",
		SilentModeDisabled: "<b>Silent mode disabled!</b> The user will receive all messages.",
		SupportReminder:    "<b>User {user} is waiting for a reply.</b>\nPlease check the conversation.",
		TicketResolved:     "<b>Ticket marked as resolved.</b>",
		TicketReopened:     "<b>Ticket reopened.</b>",
		TicketResolvedUser: "<b>Thank you for reaching out!</b>\n" +
			"Your ticket is now closed, but you can reply here if you need more help.",
		FAQListPrompt:      "Choose a question from the list:",
		FAQListEmpty:       "The list of frequently asked questions is empty for now.",
		FAQAttachmentsOnly: "The materials for this question are in the attachments below.",
		BannedListHeader:   "<b>Banned users:</b>",
		BannedListEmpty:    "No banned users.",
		UnbanUsage:         "Usage: <code>/unban &lt;user id&gt;</code>",
		OverridePrompt: "Send the new <b>{category}</b> text for language <b>{language}</b>.\n" +
			"Send <code>-</code> to reset it to the built-in default.",
		OverrideSaved:    "<b>Text saved.</b>",
		OverrideReset:    "<b>Text reset to the default.</b>",
		FAQAdminPrompt:   "FAQ items. Pick one to manage, or add a new one:",
		FAQTitlePrompt:   "Send the title:",
		FAQContentPrompt: "Send the text for the item. Attachments can be sent in the same message.",
		FAQItemSaved:     "<b>FAQ item saved.</b>",
		FAQItemDeleted:   "<b>FAQ item deleted.</b>",
	},
	"ru": {
		SelectLanguage: "👋 <b>Привет</b>, <b>{full_name}</b>!\n\nВыберите язык:",
		ChangeLanguage: "<b>Выберите язык:</b>",
		MainMenu:       "<b>Напишите свой вопрос</b>, и мы ответим как можно быстрее:",
		MessageSent:    "<b>Сообщение отправлено!</b> Ожидайте ответа.",
		FAQSuggestion: "Пока вы ждёте ответа, загляните в раздел часто задаваемых вопросов — " +
			"возможно, решение уже есть.",
		MessageEdited: "<b>Сообщение изменено только в вашем чате.</b> " +
			"Если хотите, чтобы поддержка увидела новую версию, отправьте сообщение заново.",
		UserStartedBot: "Пользователь <b>{name}</b> запустил бота!\n\n" +
			"Список доступных команд:\n\n" +
			"- /ban\n  Заблокировать или разблокировать пользователя.\n\n" +
			"- /silent\n  Включить или выключить тихий режим. В тихом режиме ответы не отправляются пользователю.\n\n" +
			"- /information\n  Показать краткую информацию о пользователе.\n\n" +
			"- /resolve\n  Отметить тикет решённым и сменить эмодзи темы.\n\n" +
			"- /resolvequiet\n  Закрыть тикет без сообщения пользователю.",
		UserRestartedBot: "Пользователь <b>{name}</b> перезапустил бота!",
		UserStoppedBot:   "Пользователь <b>{name}</b> остановил бота!",
		UserBlocked:      "<b>Пользователь заблокирован!</b> Сообщения от него игнорируются.",
		UserUnblocked:    "<b>Пользователь разблокирован!</b> Сообщения снова принимаются.",
		BlockedByUser:    "<b>Сообщение не отправлено!</b> Бот заблокирован пользователем.",
		UserInformation: "<b>ID:</b>\n- <code>{id}</code>\n" +
			"<b>Имя:</b>\n- {full_name}\n" +
			"<b>Статус:</b>\n- {state}\n" +
			"<b>Username:</b>\n- {username}\n" +
			"<b>Заблокирован:</b>\n- {is_banned}\n" +
			"<b>Дата регистрации:</b>\n- {created_at}",
		MessageNotSent:       "<b>Сообщение не отправлено!</b> Произошла непредвиденная ошибка.",
		MessageSentToUser:    "<b>Сообщение отправлено пользователю!</b>",
		TicketStatusOpen:     "открыт",
		TicketStatusResolved: "решён",
		AutoBlockedNotice: "<b>Сообщение заблокировано.</b>\n" +
			"Фильтр безопасности обнаружил подозрительные данные ({reason}).\n" +
			"Уберите ссылки и сервисные маски и попробуйте снова.",
		AutoBlockedAlert:   "<b>Включена авто-блокировка.</b>\n{user}\nПричина: {reason}",
		SilentModeEnabled:  "<b>Тихий режим включён!</b> Сообщения не будут пересылаться пользователю.",
		SilentModeDisabled: "<b>Тихий режим выключен!</b> Пользователь снова получает сообщения.",
		SupportReminder:    "<b>{user} ждёт ответа.</b>\nПроверьте, пожалуйста, тему.",
		TicketResolved:     "<b>Тикет отмечен как решённый.</b>",
		TicketReopened:     "Тикет снова открыт.",
		TicketResolvedUser: "<b>Спасибо за обращение!</b>\n" +
			"Тикет закрыт. Если помощь ещё нужна, просто ответьте в этом чате.",
		FAQListPrompt:      "Выберите вопрос из списка:",
		FAQListEmpty:       "Список часто задаваемых вопросов пока пуст.",
		FAQAttachmentsOnly: "Материалы по выбранному вопросу находятся во вложениях ниже.",
		BannedListHeader:   "<b>Заблокированные пользователи:</b>",
		BannedListEmpty:    "Заблокированных пользователей нет.",
		UnbanUsage:         "Использование: <code>/unban &lt;id пользователя&gt;</code>",
		OverridePrompt: "Отправьте новый текст <b>{category}</b> для языка <b>{language}</b>.\n" +
			"Отправьте <code>-</code>, чтобы вернуть стандартный текст.",
		OverrideSaved:    "<b>Текст сохранён.</b>",
		OverrideReset:    "<b>Возвращён стандартный текст.</b>",
		FAQAdminPrompt:   "Вопросы FAQ. Выберите пункт для управления или добавьте новый:",
		FAQTitlePrompt:   "Отправьте заголовок:",
		FAQContentPrompt: "Отправьте текст пункта. Вложения можно отправить тем же сообщением.",
		FAQItemSaved:     "<b>Пункт FAQ сохранён.</b>",
		FAQItemDeleted:   "<b>Пункт FAQ удалён.</b>",
	},
}
