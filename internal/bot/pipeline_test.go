package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/synaplink-bot/internal/ai"
	"github.com/Vovarama1992/synaplink-bot/internal/lead"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
	"github.com/Vovarama1992/synaplink-bot/internal/store"
)

// assistantStub answers every run with a fixed reply.
type assistantStub struct {
	mu       sync.Mutex
	reply    string
	appended []string
}

func (a *assistantStub) CreateThread(context.Context) (string, error) {
	return "thread_1", nil
}

func (a *assistantStub) AppendUserMessage(_ context.Context, _, text string) error {
	a.mu.Lock()
	a.appended = append(a.appended, text)
	a.mu.Unlock()
	return nil
}

func (a *assistantStub) CreateRun(context.Context, string) (ai.Run, error) {
	return ai.Run{ID: "run_1", Status: ai.RunQueued}, nil
}

func (a *assistantStub) RetrieveRun(context.Context, string, string) (ai.Run, error) {
	return ai.Run{ID: "run_1", Status: ai.RunCompleted}, nil
}

func (a *assistantStub) LatestAssistantMessage(context.Context, string) (string, error) {
	return a.reply, nil
}

func newPipeline(reply string) (Service, SessionStore, *fakeTransport, *fakeNotifier) {
	kv := store.NewMemory()
	conv := ai.NewConversation(
		&assistantStub{reply: reply},
		store.Namespace(kv, "thread"),
		lead.Default(),
		ai.PollConfig{Interval: time.Millisecond, MaxInterval: time.Millisecond, Timeout: time.Second},
		logger.Discard(),
	)
	sessions := NewSessionStore(store.Namespace(kv, "session"))
	transport := &fakeTransport{}
	notifier := &fakeNotifier{}
	svc := NewService(sessions, conv, lead.Default(), transport, notifier, Options{WorkingChatID: "-100500"}, logger.Discard())
	return svc, sessions, transport, notifier
}

func TestCompletedApplicationReachesChannelVerbatim(t *testing.T) {
	svc, sessions, transport, notifier := newPipeline(leadReply)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 42, StateChatting))

	err := svc.HandleMessage(ctx, Event{
		UserID: 42,
		ChatID: 42,
		Text:   "Меня зовут Иван, телефон +79991234567, хочу консультацию",
	})
	require.NoError(t, err)

	block := "[Заявка в рабочий чат]\nИмя: Иван\nТелефон: +79991234567\nТелеграм: @ivan_petrov\nЗапрос: консультация по чат-боту"

	require.Len(t, notifier.calls, 1)
	channelText := notifier.calls[0].text
	assert.Contains(t, channelText, "42")
	assert.Contains(t, channelText, block)
	assert.Equal(t, 1, strings.Count(channelText, "🚨 НОВАЯ ЗАЯВКА ОТ ПОЛЬЗОВАТЕЛЯ"))

	texts := transport.ofKind("text")
	require.Len(t, texts, 1)
	assert.Equal(t, lead.Normalize(leadReply), texts[0].text)
	assert.NotContains(t, texts[0].text, "🚨")
}

func TestKeywordReplyIsNotForwardedOrRewritten(t *testing.T) {
	reply := "Интересный проект! Уточните, пожалуйста, сроки заказа."
	svc, sessions, transport, notifier := newPipeline(reply)
	ctx := context.Background()
	require.NoError(t, sessions.SetState(ctx, 8, StateChatting))

	require.NoError(t, svc.HandleMessage(ctx, Event{UserID: 8, ChatID: 8, Text: "нужен бот"}))

	assert.Empty(t, notifier.calls)
	texts := transport.ofKind("text")
	require.Len(t, texts, 1)
	assert.Equal(t, reply, texts[0].text)
}
