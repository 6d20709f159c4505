// Package notify delivers completed applications to the places managers
// watch: the Telegram working chat and, optionally, an HTTP endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vovarama1992/synaplink-bot/internal/bot"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

// Webhook posts applications as JSON to an external endpoint (CRM, n8n, a
// shared inbox bridge).
type Webhook struct {
	url    string
	token  string
	client *http.Client
	log    *logger.Logger
}

type webhookPayload struct {
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

func NewWebhook(url, token string, log *logger.Logger) *Webhook {
	return &Webhook{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.WithComponent("notify"),
	}
}

func (w *Webhook) DeliverToChannel(ctx context.Context, channelID, text string) error {
	b, err := json.Marshal(webhookPayload{Channel: channelID, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify webhook: %s body=%s", resp.Status, respBody)
	}

	w.log.WithContext(ctx).Debug("application posted", "url", w.url)
	return nil
}

type multi struct {
	notifiers []bot.Notifier
	log       *logger.Logger
}

// Multi fans a delivery out to every notifier. It fails only when all of
// them fail; a partial failure is logged.
func Multi(log *logger.Logger, notifiers ...bot.Notifier) bot.Notifier {
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return &multi{notifiers: notifiers, log: log.WithComponent("notify")}
}

func (m *multi) DeliverToChannel(ctx context.Context, channelID, text string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.DeliverToChannel(ctx, channelID, text); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(m.notifiers) {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		m.log.WithContext(ctx).Warn("notifier failed", "error", err)
	}
	return nil
}
