package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

func TestWebhookPostsApplication(t *testing.T) {
	var got webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhook(srv.URL, "tok", logger.Discard())
	require.NoError(t, n.DeliverToChannel(context.Background(), "-100500", "🚨 НОВАЯ ЗАЯВКА"))

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "-100500", got.Channel)
	assert.Equal(t, "🚨 НОВАЯ ЗАЯВКА", got.Text)
	assert.False(t, got.SentAt.IsZero())
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "", logger.Discard()).DeliverToChannel(context.Background(), "c", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "nope")
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) DeliverToChannel(context.Context, string, string) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	ctx := context.Background()

	ok := &stubNotifier{}
	bad := &stubNotifier{err: errors.New("down")}
	require.NoError(t, Multi(logger.Discard(), ok, bad).DeliverToChannel(ctx, "c", "t"))
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	worse := &stubNotifier{err: errors.New("also down")}
	err := Multi(logger.Discard(), bad, worse).DeliverToChannel(ctx, "c", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Contains(t, err.Error(), "also down")

	assert.Same(t, ok, Multi(logger.Discard(), ok))
}
