// Package telegram connects the dialogue service to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/Vovarama1992/synaplink-bot/internal/bot"
	"github.com/Vovarama1992/synaplink-bot/internal/config"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

// MaxMessageLength is the Bot API limit for a single text message, in runes.
const MaxMessageLength = 4096

// Client sends messages through the Bot API. All outbound calls share one
// rate limiter so broadcast bursts stay under Telegram's flood limits.
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *logger.Logger
}

type Option func(*options)

type options struct {
	endpoint   string
	httpClient *http.Client
}

// WithEndpoint overrides the Bot API endpoint format ("<base>/bot%s/%s").
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New authenticates against the Bot API with getMe.
func New(cfg config.TelegramConfig, log *logger.Logger, opts ...Option) (*Client, error) {
	o := options{
		endpoint:   tgbotapi.APIEndpoint,
		httpClient: &http.Client{Timeout: 45 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.GetTelegramBotToken(), o.endpoint, o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	perSec := cfg.GetTelegramRatePerSecond()
	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}

	log = log.WithComponent("telegram")
	log.Info("authorized", "username", api.Self.UserName)

	return &Client{
		api:     api,
		limiter: rate.NewLimiter(limit, max(1, int(perSec))),
		log:     log,
	}, nil
}

// Username of the authorized bot.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

func (c *Client) DeliverToUser(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitText(text, MaxMessageLength) {
		if err := c.send(ctx, tgbotapi.NewMessage(chatID, part)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) DeliverWithButton(ctx context.Context, chatID int64, text string, button bot.Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data)),
	)
	return c.send(ctx, msg)
}

func (c *Client) ReplaceMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return fmt.Errorf("edit message: text longer than %d runes", MaxMessageLength)
	}
	return c.request(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	return c.request(ctx, tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

// SendPhoto sends source as a photo. http(s) sources are passed to Telegram
// by URL, anything else is uploaded from the local filesystem.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, source, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, fileData(source))
	photo.Caption = caption
	return c.send(ctx, photo)
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, url, caption string) error {
	doc := tgbotapi.NewDocument(chatID, fileData(url))
	doc.Caption = caption
	return c.send(ctx, doc)
}

// DeliverToChannel posts to a chat given either its numeric id or its
// public @username.
func (c *Client) DeliverToChannel(ctx context.Context, channelID, text string) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return fmt.Errorf("deliver to channel: empty channel id")
	}

	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return c.DeliverToUser(ctx, id, text)
	}

	if !strings.HasPrefix(channelID, "@") {
		channelID = "@" + channelID
	}
	for _, part := range splitText(text, MaxMessageLength) {
		if err := c.send(ctx, tgbotapi.NewMessageToChannel(channelID, part)); err != nil {
			return err
		}
	}
	return nil
}

// AnswerCallback stops the spinner on the pressed inline button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.request(ctx, tgbotapi.NewCallback(callbackID, ""))
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// request is used for methods whose result is not a Message.
func (c *Client) request(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.Request(msg); err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	return nil
}

func fileData(source string) tgbotapi.RequestFileData {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return tgbotapi.FileURL(source)
	}
	return tgbotapi.FilePath(source)
}

// splitText cuts text into chunks of at most limit runes, preferring to break
// after a newline.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
