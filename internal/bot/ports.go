package bot

import (
	"context"
	"strconv"

	"github.com/Vovarama1992/synaplink-bot/internal/store"
)

// Event is one inbound user action from the chat transport.
type Event struct {
	UserID int64
	ChatID int64
	// MessageID is the bot message a button was pressed on; 0 for plain text.
	MessageID int
	Text      string
}

// Button is an inline button with callback data.
type Button struct {
	Text string
	Data string
}

// Transport is the outbound side of the chat transport.
type Transport interface {
	DeliverToUser(ctx context.Context, chatID int64, text string) error
	DeliverWithButton(ctx context.Context, chatID int64, text string, button Button) error
	ReplaceMessage(ctx context.Context, chatID int64, messageID int, text string) error
	SendTyping(ctx context.Context, chatID int64) error
	SendPhoto(ctx context.Context, chatID int64, source, caption string) error
	SendDocument(ctx context.Context, chatID int64, url, caption string) error
}

// Notifier delivers a completed application to the working channel.
type Notifier interface {
	DeliverToChannel(ctx context.Context, channelID, text string) error
}

// Service handles one user action at a time.
type Service interface {
	HandleStart(ctx context.Context, ev Event) error
	HandleBeginDialogue(ctx context.Context, ev Event) error
	HandleReset(ctx context.Context, ev Event) error
	HandleMessage(ctx context.Context, ev Event) error
}

// State of a user's session.
type State string

const (
	StateStart    State = "start"
	StateChatting State = "chatting"
)

// SessionStore maps users to their State.
type SessionStore interface {
	State(ctx context.Context, userID int64) (State, bool, error)
	SetState(ctx context.Context, userID int64, state State) error
}

type sessionStore struct {
	kv store.KV
}

// NewSessionStore keeps session states in kv.
func NewSessionStore(kv store.KV) SessionStore {
	return &sessionStore{kv: kv}
}

func (s *sessionStore) State(ctx context.Context, userID int64) (State, bool, error) {
	v, ok, err := s.kv.Get(ctx, strconv.FormatInt(userID, 10))
	if err != nil || !ok {
		return "", false, err
	}
	return State(v), true, nil
}

func (s *sessionStore) SetState(ctx context.Context, userID int64, state State) error {
	return s.kv.Set(ctx, strconv.FormatInt(userID, 10), string(state))
}
