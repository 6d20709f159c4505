package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink accepts inbound updates.
type Sink interface {
	Enqueue(ctx context.Context, upd tgbotapi.Update) error
}

const pollTimeoutSeconds = 30

// SetWebhook registers url with Telegram. The secret, when set, is echoed
// back in the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	params["allowed_updates"] = `["message","callback_query"]`

	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.log.Info("webhook registered", "url", url)
	return nil
}

// Poll long-polls getUpdates and feeds sink until ctx is cancelled. Any
// registered webhook is removed first, dropping the backlog.
func (c *Client) Poll(ctx context.Context, sink Sink) error {
	if err := c.request(ctx, tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	c.log.Info("polling for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if err := sink.Enqueue(ctx, upd); err != nil {
				c.log.Warn("update dropped", "update_id", upd.UpdateID, "error", err)
			}
		}
	}
}
