package presenter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/session"
)

// fakeTransport records calls and returns scripted failures.
type fakeTransport struct {
	editErr   error
	deleteErr error
	sendErr   error

	sentTexts   []string
	editedTexts []string
	deleted     []int
	nextID      int
}

func (f *fakeTransport) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.sentTexts = append(f.sentTexts, params.Text)
	return &models.Message{ID: f.nextID}, nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.editedTexts = append(f.editedTexts, params.Text)
	return &models.Message{ID: params.MessageID}, nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, params *bot.DeleteMessageParams) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.deleted = append(f.deleted, params.MessageID)
	return true, nil
}

func newTestManager(t *testing.T) (*presenter.Manager, *fakeTransport, *session.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := session.NewStore(client)
	transport := &fakeTransport{}
	return presenter.NewManager(transport, sessions, nil), transport, sessions
}

const chatID = int64(1000)

func TestRenderSendsWhenNoPreviousMessage(t *testing.T) {
	t.Parallel()

	m, transport, sessions := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "hello", presenter.Options{}))
	require.Equal(t, []string{"hello"}, transport.sentTexts)

	id, ok, err := sessions.LastMessageID(ctx, chatID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, id)
}

func TestRenderEditsInPlace(t *testing.T) {
	t.Parallel()

	m, transport, sessions := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))
	require.NoError(t, m.Render(ctx, chatID, "second", presenter.Options{}))

	require.Equal(t, []string{"first"}, transport.sentTexts)
	require.Equal(t, []string{"second"}, transport.editedTexts)

	id, ok, err := sessions.LastMessageID(ctx, chatID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, id)
}

func TestRenderFallsBackToDeleteAndSendWhenNotEditable(t *testing.T) {
	t.Parallel()

	m, transport, sessions := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))

	transport.editErr = errors.New("telegram: message to edit not found")
	require.NoError(t, m.Render(ctx, chatID, "second", presenter.Options{}))

	require.Equal(t, []int{1}, transport.deleted)
	require.Equal(t, []string{"first", "second"}, transport.sentTexts)

	id, _, err := sessions.LastMessageID(ctx, chatID)
	require.NoError(t, err)
	require.Equal(t, 2, id)
}

func TestRenderReplacePreviousAlwaysDeletes(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))
	require.NoError(t, m.Render(ctx, chatID, "second", presenter.Options{ReplacePrevious: true}))

	require.Equal(t, []int{1}, transport.deleted)
	require.Empty(t, transport.editedTexts)
	require.Equal(t, []string{"first", "second"}, transport.sentTexts)
}

func TestRenderSurfacesUnknownEditFailure(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))

	transport.editErr = errors.New("telegram: internal server error")
	err := m.Render(ctx, chatID, "second", presenter.Options{})
	require.Error(t, err)
}

func TestDeletePreviousSwallowsAlreadyGone(t *testing.T) {
	t.Parallel()

	m, transport, sessions := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))

	transport.deleteErr = errors.New("telegram: message to delete not found")
	require.NoError(t, m.DeletePrevious(ctx, chatID))

	_, ok, err := sessions.LastMessageID(ctx, chatID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletePreviousBlanksFrozenMessage(t *testing.T) {
	t.Parallel()

	m, transport, sessions := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))

	transport.deleteErr = errors.New("telegram: message can't be deleted")
	require.NoError(t, m.DeletePrevious(ctx, chatID))

	// Deletion refused, so the old message is overwritten instead.
	require.Equal(t, []string{"💎"}, transport.editedTexts)

	_, ok, err := sessions.LastMessageID(ctx, chatID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletePreviousSurfacesUnknownFailure(t *testing.T) {
	t.Parallel()

	m, transport, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Render(ctx, chatID, "first", presenter.Options{}))

	transport.deleteErr = errors.New("telegram: chat not found")
	require.Error(t, m.DeletePrevious(ctx, chatID))
}
