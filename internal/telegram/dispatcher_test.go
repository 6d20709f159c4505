package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/synaplink-bot/internal/bot"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

type handled struct {
	op string
	ev bot.Event
}

type recordingService struct {
	mu    sync.Mutex
	calls []handled
	// hold blocks HandleMessage for the given users until the channel closes.
	hold map[int64]chan struct{}
}

func (s *recordingService) add(op string, ev bot.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, handled{op: op, ev: ev})
	return nil
}

func (s *recordingService) HandleStart(_ context.Context, ev bot.Event) error {
	return s.add("start", ev)
}

func (s *recordingService) HandleBeginDialogue(_ context.Context, ev bot.Event) error {
	return s.add("begin", ev)
}

func (s *recordingService) HandleReset(_ context.Context, ev bot.Event) error {
	return s.add("reset", ev)
}

func (s *recordingService) HandleMessage(_ context.Context, ev bot.Event) error {
	if ch, ok := s.hold[ev.UserID]; ok {
		<-ch
	}
	return s.add("message", ev)
}

func (s *recordingService) handledUser(userID int64) bool {
	for _, c := range s.snapshot() {
		if c.ev.UserID == userID {
			return true
		}
	}
	return false
}

func (s *recordingService) snapshot() []handled {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]handled(nil), s.calls...)
}

type recordingAnswerer struct {
	mu  sync.Mutex
	ids []string
}

func (a *recordingAnswerer) AnswerCallback(_ context.Context, id string) error {
	a.mu.Lock()
	a.ids = append(a.ids, id)
	a.mu.Unlock()
	return nil
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(userID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	}
}

func newTestDispatcher() (*Dispatcher, *recordingService, *recordingAnswerer) {
	svc := &recordingService{}
	ans := &recordingAnswerer{}
	return NewDispatcher(svc, ans, logger.Discard()), svc, ans
}

func TestHandleRoutesCommands(t *testing.T) {
	d, svc, _ := newTestDispatcher()
	ctx := context.Background()

	d.Handle(ctx, textUpdate(5, "/start"))
	d.Handle(ctx, textUpdate(5, "/reset"))
	d.Handle(ctx, textUpdate(5, "/help"))
	d.Handle(ctx, textUpdate(5, "Хочу бота"))
	d.Handle(ctx, textUpdate(5, ""))

	calls := svc.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, "start", calls[0].op)
	assert.Equal(t, "reset", calls[1].op)
	assert.Equal(t, "message", calls[2].op)
	assert.Equal(t, bot.Event{UserID: 5, ChatID: 5, Text: "Хочу бота"}, calls[2].ev)
}

func TestHandleRoutesCallbacks(t *testing.T) {
	d, svc, ans := newTestDispatcher()
	ctx := context.Background()

	d.Handle(ctx, callbackUpdate(6, 77, bot.CallbackStartChat))
	d.Handle(ctx, callbackUpdate(6, 78, bot.CallbackResetChat))
	d.Handle(ctx, callbackUpdate(6, 79, "something_else"))

	calls := svc.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "begin", calls[0].op)
	assert.Equal(t, bot.Event{UserID: 6, ChatID: 6, MessageID: 77}, calls[0].ev)
	assert.Equal(t, "reset", calls[1].op)
	assert.Len(t, ans.ids, 3)
}

func TestHandleIgnoresAnonymousUpdates(t *testing.T) {
	d, svc, _ := newTestDispatcher()

	d.Handle(context.Background(), tgbotapi.Update{UpdateID: 3})
	d.Handle(context.Background(), tgbotapi.Update{UpdateID: 4, Message: &tgbotapi.Message{Text: "hi"}})

	assert.Empty(t, svc.snapshot())
}

func TestRunPreservesPerUserOrder(t *testing.T) {
	d, svc, _ := newTestDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	texts := []string{"один", "два", "три", "четыре", "пять"}
	for _, text := range texts {
		require.NoError(t, d.Enqueue(ctx, textUpdate(11, text)))
		require.NoError(t, d.Enqueue(ctx, textUpdate(12, text)))
	}

	require.Eventually(t, func() bool { return len(svc.snapshot()) == 2*len(texts) }, 2*time.Second, 10*time.Millisecond)

	var got11 []string
	for _, c := range svc.snapshot() {
		if c.ev.UserID == 11 {
			got11 = append(got11, c.ev.Text)
		}
	}
	assert.Equal(t, texts, got11)

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, d.Enqueue(context.Background(), textUpdate(11, "после")), ErrStopped)
}

func TestSlowUserDoesNotDelayOthers(t *testing.T) {
	d, svc, _ := newTestDispatcher()
	release := make(chan struct{})
	svc.hold = map[int64]chan struct{}{1: release}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.Enqueue(ctx, textUpdate(1, "долгий вопрос")))
	require.NoError(t, d.Enqueue(ctx, textUpdate(17, "привет")))
	require.NoError(t, d.Enqueue(ctx, textUpdate(2, "привет")))
	require.NoError(t, d.Enqueue(ctx, textUpdate(1, "второй вопрос")))

	require.Eventually(t, func() bool {
		return svc.handledUser(17) && svc.handledUser(2)
	}, time.Second, 5*time.Millisecond)
	assert.False(t, svc.handledUser(1))

	close(release)
	require.Eventually(t, func() bool { return len(svc.snapshot()) == 4 }, time.Second, 5*time.Millisecond)

	var got1 []string
	for _, c := range svc.snapshot() {
		if c.ev.UserID == 1 {
			got1 = append(got1, c.ev.Text)
		}
	}
	assert.Equal(t, []string{"долгий вопрос", "второй вопрос"}, got1)

	cancel()
	require.NoError(t, <-done)
}

func TestEnqueueBoundsPendingPerUser(t *testing.T) {
	d, svc, _ := newTestDispatcher()
	release := make(chan struct{})
	svc.hold = map[int64]chan struct{}{5: release}
	ctx := context.Background()

	// The first update is picked up by the worker; MaxPendingPerUser more can wait.
	require.NoError(t, d.Enqueue(ctx, textUpdate(5, "первый")))
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.pending[5]) == 0
	}, time.Second, time.Millisecond)

	for i := 0; i < MaxPendingPerUser; i++ {
		require.NoError(t, d.Enqueue(ctx, textUpdate(5, "ещё")))
	}
	assert.ErrorIs(t, d.Enqueue(ctx, textUpdate(5, "лишний")), ErrBusy)
	assert.NoError(t, d.Enqueue(ctx, textUpdate(6, "другой")))

	close(release)
	require.Eventually(t, func() bool { return len(svc.snapshot()) == MaxPendingPerUser+2 }, time.Second, 5*time.Millisecond)
}

type recordingSink struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	err     error
}

func (s *recordingSink) Enqueue(_ context.Context, upd tgbotapi.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, upd)
	return nil
}

func newWebhookServer(sink Sink, secret string) *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(sink, secret, logger.Discard()))
	return r
}

func postUpdate(t *testing.T, h http.Handler, secret string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookQueuesUpdate(t *testing.T) {
	sink := &recordingSink{}
	srv := newWebhookServer(sink, "s3cret")

	body, err := json.Marshal(textUpdate(21, "Привет"))
	require.NoError(t, err)

	rec := postUpdate(t, srv, "s3cret", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sink.updates, 1)
	assert.Equal(t, "Привет", sink.updates[0].Message.Text)
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	sink := &recordingSink{}
	srv := newWebhookServer(sink, "s3cret")

	rec := postUpdate(t, srv, "guess", []byte(`{"update_id":1}`))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, sink.updates)
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	rec := postUpdate(t, newWebhookServer(&recordingSink{}, ""), "", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookReportsFullQueue(t *testing.T) {
	sink := &recordingSink{err: ErrStopped}
	rec := postUpdate(t, newWebhookServer(sink, ""), "", []byte(`{"update_id":1}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
