// Package ticket implements the relay between end-user direct messages and
// per-user forum topics in the operator group. It owns ticket lifecycle
// (open, resolved, reopened), the ban and silent-mode flags, the inbound
// security gate, and recovery when a forum topic has been deleted out from
// under the bot.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/security"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// ErrUnknownThread is returned when a group message arrives in a forum topic
// no user record points at.
var ErrUnknownThread = errors.New("no user is linked to this topic")

// Telegram failure descriptions that classify an outbound delivery problem.
var (
	threadGoneErrors = []string{
		"message thread not found",
		"thread not found",
	}
	unreachableUserErrors = []string{
		"bot was blocked by the user",
		"user is deactivated",
		"chat not found",
	}
)

func matchesAny(err error, descriptions []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, description := range descriptions {
		if strings.Contains(msg, description) {
			return true
		}
	}
	return false
}

// Transport is the slice of the chat SDK the relay needs. *bot.Bot satisfies
// it.
type Transport interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*models.MessageID, error)
	CreateForumTopic(ctx context.Context, params *bot.CreateForumTopicParams) (*models.ForumTopic, error)
	EditForumTopic(ctx context.Context, params *bot.EditForumTopicParams) (bool, error)
}

// InboundResult describes what happened to one user message.
type InboundResult struct {
	User *storage.UserRecord
	// Banned means the sender is banned and the message was dropped.
	Banned bool
	// Blocked means the security gate auto-banned the sender just now.
	Blocked bool
	Reasons []string
	// Reopened means the message reopened a resolved ticket.
	Reopened bool
}

// OutboundResult describes what happened to one operator message.
type OutboundResult struct {
	User *storage.UserRecord
	// Banned means the target user is banned and nothing was delivered.
	Banned bool
	// Silent means silent mode swallowed the message.
	Silent bool
	// Unreachable means the user blocked the bot or deleted the account.
	Unreachable bool
}

// Relay routes messages between user DMs and operator forum topics.
type Relay struct {
	users     *storage.UserStore
	settings  *storage.SettingsStore
	transport Transport
	cfg       *config.Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewRelay creates the ticket relay.
func NewRelay(users *storage.UserStore, settings *storage.SettingsStore, transport Transport, cfg *config.Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Relay{
		users:     users,
		settings:  settings,
		transport: transport,
		cfg:       cfg,
		logger:    logger.With("component", "ticket"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureUser creates or refreshes the record for the sender. The display name
// is sanitized before it is stored so topic titles and operator views never
// carry impersonation bait. Returns the record and whether it was created.
func (r *Relay) EnsureUser(ctx context.Context, from *models.User) (*storage.UserRecord, bool, error) {
	fullName := strings.TrimSpace(from.FirstName + " " + from.LastName)
	fullName = security.SanitizeDisplayName(fullName, fmt.Sprintf("User %d", from.ID))
	username := "-"
	if from.Username != "" {
		username = "@" + from.Username
	}

	created := false
	rec, err := r.users.Update(ctx, from.ID, func(rec *storage.UserRecord) {
		if rec.CreatedAt.IsZero() {
			created = true
			fresh := storage.NewUserRecord(from.ID, fullName, username)
			*rec = *fresh
			if code := from.LanguageCode; code != "" {
				rec.LanguageCode = texts.Resolve(code)
			}
			return
		}
		rec.FullName = fullName
		rec.Username = username
		rec.State = "member"
	})
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// RelayUserMessage forwards one DM into the user's forum topic, creating the
// topic on first contact and reopening the ticket if it was resolved. Banned
// senders are dropped silently; senders tripping the security gate are
// auto-banned, told so, and flagged to the operators.
func (r *Relay) RelayUserMessage(ctx context.Context, rec *storage.UserRecord, msg *models.Message) (*InboundResult, error) {
	if rec.IsBanned {
		return &InboundResult{User: rec, Banned: true}, nil
	}

	if r.cfg.Security.Enabled {
		fullName, username := senderIdentity(msg, rec)
		report := security.Analyze(fullName, username, messageText(msg))
		if report.ShouldBlock() {
			return r.autoBlock(ctx, rec, report)
		}
	}

	rec, err := r.ensureThread(ctx, rec)
	if err != nil {
		return nil, err
	}

	rec, err = r.sendToThread(ctx, rec, func(threadID int) error {
		_, copyErr := r.transport.CopyMessage(ctx, &bot.CopyMessageParams{
			ChatID:          r.cfg.Telegram.GroupID,
			MessageThreadID: threadID,
			FromChatID:      msg.Chat.ID,
			MessageID:       msg.ID,
		})
		return copyErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to relay message from user %d: %w", rec.ID, err)
	}

	reopened := rec.TicketStatus == storage.TicketResolved
	now := r.now()
	rec, err = r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.TicketStatus = storage.TicketOpen
		u.AwaitingReply = true
		u.OperatorReplied = false
		u.LastUserMessageAt = &now
	})
	if err != nil {
		return nil, err
	}

	if reopened {
		r.setTopicIcon(ctx, rec, r.cfg.Telegram.TopicEmojiID)
		r.notifyThreadBestEffort(ctx, rec, r.localizer(rec).Get(texts.TicketReopened))
	}

	return &InboundResult{User: rec, Reopened: reopened}, nil
}

// RelayOperatorMessage forwards one topic message to the linked user's DM.
// Silent mode records the message instead of delivering it; a banned user
// gets nothing.
func (r *Relay) RelayOperatorMessage(ctx context.Context, msg *models.Message) (*OutboundResult, error) {
	rec, err := r.users.ByThreadID(ctx, msg.MessageThreadID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnknownThread
	}

	if rec.IsBanned {
		return &OutboundResult{User: rec, Banned: true}, nil
	}

	if rec.MessageSilentMode {
		// The forward is suppressed, but the ticket still counts as answered.
		silentID := msg.ID
		rec, err = r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
			u.MessageSilentID = &silentID
			u.AwaitingReply = false
			u.OperatorReplied = true
		})
		if err != nil {
			return nil, err
		}
		return &OutboundResult{User: rec, Silent: true}, nil
	}

	_, err = r.transport.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     rec.ID,
		FromChatID: r.cfg.Telegram.GroupID,
		MessageID:  msg.ID,
	})
	if err != nil {
		if matchesAny(err, unreachableUserErrors) {
			rec, uerr := r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
				u.State = "kicked"
			})
			if uerr != nil {
				return nil, uerr
			}
			return &OutboundResult{User: rec, Unreachable: true}, nil
		}
		return nil, fmt.Errorf("failed to deliver operator message to user %d: %w", rec.ID, err)
	}

	rec, err = r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.AwaitingReply = false
		u.OperatorReplied = true
	})
	if err != nil {
		return nil, err
	}
	r.setTopicIcon(ctx, rec, r.cfg.Telegram.TopicRepliedEmojiID)

	return &OutboundResult{User: rec}, nil
}

// Resolve closes the ticket behind the topic. Unless quiet is set, the user
// receives the resolution message, taking the per-language override from
// settings when one exists.
func (r *Relay) Resolve(ctx context.Context, threadID int, quiet bool) (*storage.UserRecord, error) {
	rec, err := r.users.ByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnknownThread
	}

	rec, err = r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.TicketStatus = storage.TicketResolved
		u.AwaitingReply = false
	})
	if err != nil {
		return nil, err
	}
	r.setTopicIcon(ctx, rec, r.cfg.Telegram.TopicResolvedEmojiID)

	if quiet || rec.IsBanned {
		return rec, nil
	}

	loc := r.localizer(rec)
	text, ok, err := r.settings.Get(ctx, storage.SettingResolvedMessage, loc.Language())
	if err != nil {
		return nil, err
	}
	if !ok {
		text = loc.Get(texts.TicketResolvedUser)
	}
	_, err = r.transport.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    rec.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil && !matchesAny(err, unreachableUserErrors) {
		return nil, fmt.Errorf("failed to send resolution notice to user %d: %w", rec.ID, err)
	}
	if err != nil {
		r.logger.InfoContext(ctx, "Resolution notice undeliverable", "user_id", rec.ID, "error", err)
	}

	return rec, nil
}

// ToggleBan flips the ban flag for the user behind the topic.
func (r *Relay) ToggleBan(ctx context.Context, threadID int) (*storage.UserRecord, error) {
	rec, err := r.users.ByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnknownThread
	}
	return r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.IsBanned = !u.IsBanned
	})
}

// Unban clears the ban flag for the given user id.
func (r *Relay) Unban(ctx context.Context, userID int64) (*storage.UserRecord, error) {
	return r.users.Update(ctx, userID, func(u *storage.UserRecord) {
		u.IsBanned = false
	})
}

// ToggleSilent flips silent mode for the user behind the topic.
func (r *Relay) ToggleSilent(ctx context.Context, threadID int) (*storage.UserRecord, error) {
	rec, err := r.users.ByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnknownThread
	}
	return r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.MessageSilentMode = !u.MessageSilentMode
		if !u.MessageSilentMode {
			u.MessageSilentID = nil
		}
	})
}

// SetMembershipState records a membership change reported by the transport
// and returns the updated record together with whether anything changed.
func (r *Relay) SetMembershipState(ctx context.Context, userID int64, state string) (*storage.UserRecord, bool, error) {
	changed := false
	rec, err := r.users.Update(ctx, userID, func(u *storage.UserRecord) {
		changed = u.State != state
		u.State = state
	})
	if err != nil {
		return nil, false, err
	}
	return rec, changed, nil
}

// NotifyThread posts a service message into the user's topic, creating or
// recreating the topic when necessary.
func (r *Relay) NotifyThread(ctx context.Context, rec *storage.UserRecord, text string) (*storage.UserRecord, error) {
	rec, err := r.ensureThread(ctx, rec)
	if err != nil {
		return nil, err
	}
	return r.sendToThread(ctx, rec, func(threadID int) error {
		_, sendErr := r.transport.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          r.cfg.Telegram.GroupID,
			MessageThreadID: threadID,
			Text:            text,
			ParseMode:       models.ParseModeHTML,
		})
		return sendErr
	})
}

// Localizer returns the localizer for the user's stored language, falling
// back to the configured default.
func (r *Relay) localizer(rec *storage.UserRecord) texts.Localizer {
	code := rec.LanguageCode
	if code == "" {
		code = r.cfg.Telegram.DefaultLanguage
	}
	return texts.ForLanguage(code)
}

func (r *Relay) autoBlock(ctx context.Context, rec *storage.UserRecord, report security.Report) (*InboundResult, error) {
	reasons := report.Reasons()
	rec, err := r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.IsBanned = true
	})
	if err != nil {
		return nil, err
	}
	r.logger.WarnContext(ctx, "User auto-blocked", "user_id", rec.ID, "reasons", reasons)

	loc := r.localizer(rec)
	_, err = r.transport.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    rec.ID,
		Text:      loc.Render(texts.AutoBlockedNotice, map[string]string{"reason": strings.Join(reasons, ", ")}),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil && !matchesAny(err, unreachableUserErrors) {
		r.logger.WarnContext(ctx, "Failed to notify auto-blocked user", "user_id", rec.ID, "error", err)
	}

	alert := texts.ForLanguage(r.cfg.Telegram.DefaultLanguage).Render(texts.AutoBlockedAlert, map[string]string{
		"user":   fmt.Sprintf("%s (%d)", rec.FullName, rec.ID),
		"reason": strings.Join(reasons, "\n"),
	})
	if rec.MessageThreadID != nil {
		if updated, nerr := r.NotifyThread(ctx, rec, alert); nerr == nil {
			rec = updated
		} else {
			r.logger.WarnContext(ctx, "Failed to post auto-block alert in topic", "user_id", rec.ID, "error", nerr)
		}
	} else {
		_, serr := r.transport.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    r.cfg.Telegram.GroupID,
			Text:      alert,
			ParseMode: models.ParseModeHTML,
		})
		if serr != nil {
			r.logger.WarnContext(ctx, "Failed to post auto-block alert", "user_id", rec.ID, "error", serr)
		}
	}

	return &InboundResult{User: rec, Blocked: true, Reasons: reasons}, nil
}

// ensureThread guarantees the record has a forum topic, creating one and
// persisting its id on first contact.
func (r *Relay) ensureThread(ctx context.Context, rec *storage.UserRecord) (*storage.UserRecord, error) {
	if rec.MessageThreadID != nil {
		return rec, nil
	}
	return r.createThread(ctx, rec)
}

func (r *Relay) createThread(ctx context.Context, rec *storage.UserRecord) (*storage.UserRecord, error) {
	topic, err := r.transport.CreateForumTopic(ctx, &bot.CreateForumTopicParams{
		ChatID:            r.cfg.Telegram.GroupID,
		Name:              topicName(rec),
		IconCustomEmojiID: r.cfg.Telegram.TopicEmojiID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create topic for user %d: %w", rec.ID, err)
	}
	threadID := topic.MessageThreadID
	return r.users.Update(ctx, rec.ID, func(u *storage.UserRecord) {
		u.MessageThreadID = &threadID
	})
}

// sendToThread runs send against the record's topic. When the topic turns out
// to have been deleted, it is recreated once and the send retried once; any
// further failure is surfaced. The returned record is never nil, so callers
// can keep reporting on the user after a failed send.
func (r *Relay) sendToThread(ctx context.Context, rec *storage.UserRecord, send func(threadID int) error) (*storage.UserRecord, error) {
	if rec.MessageThreadID == nil {
		fresh, err := r.createThread(ctx, rec)
		if err != nil {
			return rec, err
		}
		rec = fresh
	}

	err := send(*rec.MessageThreadID)
	if err == nil {
		return rec, nil
	}
	if !matchesAny(err, threadGoneErrors) {
		return rec, err
	}

	r.logger.WarnContext(ctx, "Topic vanished, recreating", "user_id", rec.ID, "thread_id", *rec.MessageThreadID)
	fresh, cerr := r.createThread(ctx, rec)
	if cerr != nil {
		return rec, cerr
	}
	rec = fresh
	if err := send(*rec.MessageThreadID); err != nil {
		return rec, err
	}
	return rec, nil
}

// setTopicIcon updates the topic's custom emoji to mirror the ticket state.
// Best effort: transports without the emoji set reject this, which must not
// break the relay.
func (r *Relay) setTopicIcon(ctx context.Context, rec *storage.UserRecord, emojiID string) {
	if emojiID == "" || rec.MessageThreadID == nil {
		return
	}
	_, err := r.transport.EditForumTopic(ctx, &bot.EditForumTopicParams{
		ChatID:            r.cfg.Telegram.GroupID,
		MessageThreadID:   *rec.MessageThreadID,
		Name:              topicName(rec),
		IconCustomEmojiID: emojiID,
	})
	if err != nil {
		r.logger.DebugContext(ctx, "Failed to update topic icon", "user_id", rec.ID, "error", err)
	}
}

func (r *Relay) notifyThreadBestEffort(ctx context.Context, rec *storage.UserRecord, text string) {
	if _, err := r.NotifyThread(ctx, rec, text); err != nil {
		r.logger.WarnContext(ctx, "Failed to post topic notice", "user_id", rec.ID, "error", err)
	}
}

func topicName(rec *storage.UserRecord) string {
	name := rec.FullName
	if name == "" {
		name = fmt.Sprintf("User %d", rec.ID)
	}
	if rec.Username != "" && rec.Username != "-" {
		return fmt.Sprintf("%s (%s)", name, rec.Username)
	}
	return name
}

// senderIdentity returns the profile fields the security gate must inspect.
// The stored record only carries the sanitized name, so the raw fields come
// from the incoming message when it has a sender.
func senderIdentity(msg *models.Message, rec *storage.UserRecord) (string, string) {
	if msg.From != nil {
		return strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName), msg.From.Username
	}
	return rec.FullName, rec.Username
}

func messageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}
