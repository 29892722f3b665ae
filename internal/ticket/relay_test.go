package ticket_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/ticket"
)

const (
	groupID = int64(-100500)
	userID  = int64(42)
)

type sentMessage struct {
	chatID   any
	threadID int
	text     string
}

type copiedMessage struct {
	chatID    any
	threadID  int
	messageID int
}

// fakeTransport records every call and pops scripted errors in FIFO order.
type fakeTransport struct {
	sendErrs []error
	copyErrs []error

	sent          []sentMessage
	copied        []copiedMessage
	topicsCreated []string
	topicEmojis   []string
	nextThreadID  int
}

func (f *fakeTransport) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.sent = append(f.sent, sentMessage{chatID: params.ChatID, threadID: params.MessageThreadID, text: params.Text})
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeTransport) CopyMessage(_ context.Context, params *bot.CopyMessageParams) (*models.MessageID, error) {
	if len(f.copyErrs) > 0 {
		err := f.copyErrs[0]
		f.copyErrs = f.copyErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.copied = append(f.copied, copiedMessage{chatID: params.ChatID, threadID: params.MessageThreadID, messageID: params.MessageID})
	return &models.MessageID{ID: len(f.copied)}, nil
}

func (f *fakeTransport) CreateForumTopic(_ context.Context, params *bot.CreateForumTopicParams) (*models.ForumTopic, error) {
	f.nextThreadID++
	f.topicsCreated = append(f.topicsCreated, params.Name)
	return &models.ForumTopic{MessageThreadID: 100 + f.nextThreadID, Name: params.Name}, nil
}

func (f *fakeTransport) EditForumTopic(_ context.Context, params *bot.EditForumTopicParams) (bool, error) {
	f.topicEmojis = append(f.topicEmojis, params.IconCustomEmojiID)
	return true, nil
}

func testConfig(securityEnabled bool) *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{
			Token:                "test-token",
			AdminID:              1,
			GroupID:              groupID,
			TopicEmojiID:         "emoji-new",
			TopicRepliedEmojiID:  "emoji-replied",
			TopicResolvedEmojiID: "emoji-resolved",
			DefaultLanguage:      "en",
		},
		Security: config.SecurityConfig{Enabled: securityEnabled},
	}
}

func newTestRelay(t *testing.T, securityEnabled bool) (*ticket.Relay, *fakeTransport, *storage.UserStore, *storage.SettingsStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := storage.NewUserStore(client, log)
	settings := storage.NewSettingsStore(client)
	transport := &fakeTransport{}
	relay := ticket.NewRelay(users, settings, transport, testConfig(securityEnabled), log)
	return relay, transport, users, settings
}

func userMessage(text string) *models.Message {
	return &models.Message{
		ID:   7,
		Text: text,
		Chat: models.Chat{ID: userID},
	}
}

func TestEnsureUserCreatesAndRefreshes(t *testing.T) {
	t.Parallel()

	relay, _, _, _ := newTestRelay(t, false)
	ctx := context.Background()

	rec, created, err := relay.EnsureUser(ctx, &models.User{ID: userID, FirstName: "Alice", Username: "alice"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Alice", rec.FullName)
	require.Equal(t, "@alice", rec.Username)
	require.Equal(t, storage.TicketOpen, rec.TicketStatus)

	rec, created, err = relay.EnsureUser(ctx, &models.User{ID: userID, FirstName: "Alicia"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "Alicia", rec.FullName)
	require.Equal(t, "-", rec.Username)
}

func TestEnsureUserSanitizesDisplayName(t *testing.T) {
	t.Parallel()

	relay, _, _, _ := newTestRelay(t, false)
	ctx := context.Background()

	rec, _, err := relay.EnsureUser(ctx, &models.User{ID: userID, FirstName: "Join t.me/spamgroup now"})
	require.NoError(t, err)
	require.NotContains(t, rec.FullName, "t.me")
}

func TestRelayUserMessageFirstContactCreatesTopic(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	rec, _, err := relay.EnsureUser(ctx, &models.User{ID: userID, FirstName: "Alice"})
	require.NoError(t, err)

	res, err := relay.RelayUserMessage(ctx, rec, userMessage("hello"))
	require.NoError(t, err)
	require.False(t, res.Banned)
	require.False(t, res.Blocked)

	require.Len(t, transport.topicsCreated, 1)
	require.Len(t, transport.copied, 1)
	require.Equal(t, groupID, transport.copied[0].chatID)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.MessageThreadID)
	require.Equal(t, transport.copied[0].threadID, *stored.MessageThreadID)
	require.True(t, stored.AwaitingReply)
	require.False(t, stored.OperatorReplied)
	require.NotNil(t, stored.LastUserMessageAt)
}

func TestRelayUserMessageDropsBanned(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	rec, err := users.Update(ctx, userID, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(userID, "Mallory", "-")
		u.IsBanned = true
	})
	require.NoError(t, err)

	res, err := relay.RelayUserMessage(ctx, rec, userMessage("let me in"))
	require.NoError(t, err)
	require.True(t, res.Banned)
	require.Empty(t, transport.copied)
	require.Empty(t, transport.topicsCreated)
}

func TestRelayUserMessageAutoBlocksOnInviteLink(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, true)
	ctx := context.Background()

	rec, err := users.Update(ctx, userID, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(userID, "Mallory", "-")
	})
	require.NoError(t, err)

	res, err := relay.RelayUserMessage(ctx, rec, userMessage("join https://t.me/freecoins"))
	require.NoError(t, err)
	require.True(t, res.Blocked)
	require.NotEmpty(t, res.Reasons)
	require.Empty(t, transport.copied)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, stored.IsBanned)

	// Notice to the user plus alert to the operator group.
	require.Len(t, transport.sent, 2)
	require.Equal(t, userID, transport.sent[0].chatID)
	require.Equal(t, groupID, transport.sent[1].chatID)
}

func TestRelayUserMessageBlocksRawServiceName(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, true)
	ctx := context.Background()

	from := &models.User{ID: userID, FirstName: "Telegram", LastName: "Support"}
	rec, created, err := relay.EnsureUser(ctx, from)
	require.NoError(t, err)
	require.True(t, created)
	// Storage only ever sees the sanitized name.
	require.NotContains(t, rec.FullName, "Telegram")

	msg := userMessage("hello")
	msg.From = from
	res, err := relay.RelayUserMessage(ctx, rec, msg)
	require.NoError(t, err)
	require.True(t, res.Blocked, "raw profile name must reach the gate")
	require.Empty(t, transport.copied)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, stored.IsBanned)
}

func TestRelayUserMessageReopensResolvedTicket(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	thread := 555
	rec, err := users.Update(ctx, userID, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(userID, "Alice", "-")
		u.MessageThreadID = &thread
		u.TicketStatus = storage.TicketResolved
	})
	require.NoError(t, err)

	res, err := relay.RelayUserMessage(ctx, rec, userMessage("still broken"))
	require.NoError(t, err)
	require.True(t, res.Reopened)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, storage.TicketOpen, stored.TicketStatus)

	// Reopening restores the "new ticket" icon and posts a notice in the topic.
	require.Contains(t, transport.topicEmojis, "emoji-new")
	require.Len(t, transport.sent, 1)
	require.Equal(t, thread, transport.sent[0].threadID)
}

func TestRelayUserMessageRecreatesVanishedTopic(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	stale := 999
	rec, err := users.Update(ctx, userID, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(userID, "Alice", "-")
		u.MessageThreadID = &stale
	})
	require.NoError(t, err)

	transport.copyErrs = []error{errors.New("telegram: message thread not found")}

	res, err := relay.RelayUserMessage(ctx, rec, userMessage("anyone there?"))
	require.NoError(t, err)
	require.False(t, res.Banned)

	require.Len(t, transport.topicsCreated, 1)
	require.Len(t, transport.copied, 1)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.MessageThreadID)
	require.NotEqual(t, stale, *stored.MessageThreadID)
	require.Equal(t, transport.copied[0].threadID, *stored.MessageThreadID)
}

func TestRelayUserMessagePropagatesRepeatedTopicFailure(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	stale := 999
	rec, err := users.Update(ctx, userID, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(userID, "Alice", "-")
		u.MessageThreadID = &stale
	})
	require.NoError(t, err)

	transport.copyErrs = []error{
		errors.New("telegram: message thread not found"),
		errors.New("telegram: message thread not found"),
	}

	_, err = relay.RelayUserMessage(ctx, rec, userMessage("hello"))
	require.Error(t, err)
	require.ErrorContains(t, err, "user 42")
}

func seedLinkedUser(t *testing.T, users *storage.UserStore, threadID int, mutate func(*storage.UserRecord)) *storage.UserRecord {
	t.Helper()

	rec, err := users.Update(context.Background(), userID, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(userID, "Alice", "-")
		u.MessageThreadID = &threadID
		if mutate != nil {
			mutate(u)
		}
	})
	require.NoError(t, err)
	return rec
}

func operatorMessage(threadID int) *models.Message {
	return &models.Message{
		ID:              31,
		Text:            "operator reply",
		MessageThreadID: threadID,
		Chat:            models.Chat{ID: groupID},
	}
}

func TestRelayOperatorMessageDelivers(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, func(u *storage.UserRecord) {
		u.AwaitingReply = true
	})

	res, err := relay.RelayOperatorMessage(ctx, operatorMessage(321))
	require.NoError(t, err)
	require.False(t, res.Silent)
	require.False(t, res.Unreachable)

	require.Len(t, transport.copied, 1)
	require.Equal(t, userID, transport.copied[0].chatID)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.False(t, stored.AwaitingReply)
	require.True(t, stored.OperatorReplied)
	require.Contains(t, transport.topicEmojis, "emoji-replied")
}

func TestRelayOperatorMessageUnknownThread(t *testing.T) {
	t.Parallel()

	relay, _, _, _ := newTestRelay(t, false)

	_, err := relay.RelayOperatorMessage(context.Background(), operatorMessage(777))
	require.ErrorIs(t, err, ticket.ErrUnknownThread)
}

func TestRelayOperatorMessageSilentMode(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, func(u *storage.UserRecord) {
		u.MessageSilentMode = true
		u.AwaitingReply = true
	})

	res, err := relay.RelayOperatorMessage(ctx, operatorMessage(321))
	require.NoError(t, err)
	require.True(t, res.Silent)
	require.Empty(t, transport.copied)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.MessageSilentID)
	require.Equal(t, 31, *stored.MessageSilentID)
	require.False(t, stored.AwaitingReply, "suppressed delivery still counts as an operator reply")
	require.True(t, stored.OperatorReplied)
}

func TestRelayOperatorMessageUnreachableUser(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, nil)
	transport.copyErrs = []error{errors.New("Forbidden: bot was blocked by the user")}

	res, err := relay.RelayOperatorMessage(ctx, operatorMessage(321))
	require.NoError(t, err)
	require.True(t, res.Unreachable)

	stored, err := users.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "kicked", stored.State)
}

func TestResolveSendsLocalizedNotice(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, func(u *storage.UserRecord) {
		u.AwaitingReply = true
	})

	rec, err := relay.Resolve(ctx, 321, false)
	require.NoError(t, err)
	require.Equal(t, storage.TicketResolved, rec.TicketStatus)
	require.False(t, rec.AwaitingReply)

	require.Len(t, transport.sent, 1)
	require.Equal(t, userID, transport.sent[0].chatID)
	require.Contains(t, transport.topicEmojis, "emoji-resolved")
}

func TestResolveQuietSendsNothing(t *testing.T) {
	t.Parallel()

	relay, transport, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, nil)

	rec, err := relay.Resolve(ctx, 321, true)
	require.NoError(t, err)
	require.Equal(t, storage.TicketResolved, rec.TicketStatus)
	require.Empty(t, transport.sent)
}

func TestResolveUsesSettingsOverride(t *testing.T) {
	t.Parallel()

	relay, transport, users, settings := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, nil)
	require.NoError(t, settings.Set(ctx, storage.SettingResolvedMessage, "en", "All done, come back any time!"))

	_, err := relay.Resolve(ctx, 321, false)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	require.Equal(t, "All done, come back any time!", transport.sent[0].text)
}

func TestToggleBanAndUnban(t *testing.T) {
	t.Parallel()

	relay, _, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, nil)

	rec, err := relay.ToggleBan(ctx, 321)
	require.NoError(t, err)
	require.True(t, rec.IsBanned)

	rec, err = relay.ToggleBan(ctx, 321)
	require.NoError(t, err)
	require.False(t, rec.IsBanned)

	_, err = relay.ToggleBan(ctx, 321)
	require.NoError(t, err)
	rec, err = relay.Unban(ctx, userID)
	require.NoError(t, err)
	require.False(t, rec.IsBanned)
}

func TestToggleSilentClearsRecordedMessage(t *testing.T) {
	t.Parallel()

	relay, _, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, nil)

	rec, err := relay.ToggleSilent(ctx, 321)
	require.NoError(t, err)
	require.True(t, rec.MessageSilentMode)

	_, err = relay.RelayOperatorMessage(ctx, operatorMessage(321))
	require.NoError(t, err)

	rec, err = relay.ToggleSilent(ctx, 321)
	require.NoError(t, err)
	require.False(t, rec.MessageSilentMode)
	require.Nil(t, rec.MessageSilentID)
}

func TestSetMembershipState(t *testing.T) {
	t.Parallel()

	relay, _, users, _ := newTestRelay(t, false)
	ctx := context.Background()

	seedLinkedUser(t, users, 321, nil)

	rec, changed, err := relay.SetMembershipState(ctx, userID, "kicked")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "kicked", rec.State)

	_, changed, err = relay.SetMembershipState(ctx, userID, "kicked")
	require.NoError(t, err)
	require.False(t, changed)
}

func TestTopicNameCarriesUsername(t *testing.T) {
	t.Parallel()

	relay, transport, _, _ := newTestRelay(t, false)
	ctx := context.Background()

	rec, _, err := relay.EnsureUser(ctx, &models.User{ID: userID, FirstName: "Alice", Username: "alice"})
	require.NoError(t, err)

	_, err = relay.RelayUserMessage(ctx, rec, userMessage("hi"))
	require.NoError(t, err)

	require.Len(t, transport.topicsCreated, 1)
	require.True(t, strings.Contains(transport.topicsCreated[0], "@alice"))
}
