package telegram

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/storage"
)

type fakeBot struct {
	updates chan tgbotapi.Update
	sent    chan tgbotapi.MessageConfig
	stopped bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{
		updates: make(chan tgbotapi.Update, 4),
		sent:    make(chan tgbotapi.MessageConfig, 4),
	}
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) StopReceivingUpdates() { b.stopped = true }

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent <- c.(tgbotapi.MessageConfig)
	return tgbotapi.Message{MessageID: 1}, nil
}

func setupStore(t *testing.T) *storage.SQLStorage {
	t.Helper()
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tg.db"), nil)
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func startUpdate(username string, chatID int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			Text:     "/start",
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			From:     &tgbotapi.User{UserName: username},
			Chat:     &tgbotapi.Chat{ID: chatID},
		},
	}
}

func TestHandleStartLinksChat(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.Channels().Upsert(ctx, &models.ChannelPreference{
		UserID: 1, Kind: models.ChannelTelegram, TelegramUsername: "@tot_ra", Enabled: true,
	})
	require.NoError(t, err)

	bot := newFakeBot()
	l := NewLinker(bot, store.Channels(), nil, 0)
	require.NoError(t, l.HandleUpdate(ctx, startUpdate("Tot_Ra", 5551)))

	pref, err := store.Channels().Get(ctx, 1, models.ChannelTelegram)
	require.NoError(t, err)
	require.NotNil(t, pref.TelegramChatID)
	assert.Equal(t, int64(5551), *pref.TelegramChatID)

	reply := <-bot.sent
	assert.Equal(t, int64(5551), reply.ChatID)
	assert.Equal(t, replyLinked, reply.Text)
}

func TestHandleStartUnknownUser(t *testing.T) {
	store := setupStore(t)
	bot := newFakeBot()
	l := NewLinker(bot, store.Channels(), nil, 0)

	require.NoError(t, l.HandleUpdate(context.Background(), startUpdate("stranger", 9)))
	reply := <-bot.sent
	assert.Contains(t, reply.Text, "@stranger")
}

func TestHandleStartWithoutUsername(t *testing.T) {
	store := setupStore(t)
	bot := newFakeBot()
	l := NewLinker(bot, store.Channels(), nil, 0)

	require.NoError(t, l.HandleUpdate(context.Background(), startUpdate("", 9)))
	reply := <-bot.sent
	assert.Equal(t, replyNoUsername, reply.Text)
}

func TestHandleIgnoresOtherMessages(t *testing.T) {
	store := setupStore(t)
	bot := newFakeBot()
	l := NewLinker(bot, store.Channels(), nil, 0)

	require.NoError(t, l.HandleUpdate(context.Background(), tgbotapi.Update{}))
	require.NoError(t, l.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}},
	}))
	assert.Empty(t, bot.sent)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := setupStore(t)
	bot := newFakeBot()
	l := NewLinker(bot, store.Channels(), nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	bot.updates <- startUpdate("nobody", 3)
	select {
	case <-bot.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("linker did not stop")
	}
	assert.True(t, bot.stopped)
}
