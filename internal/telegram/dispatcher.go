package telegram

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Vovarama1992/synaplink-bot/internal/bot"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

// MaxPendingPerUser bounds how many updates of one user may wait while an
// earlier one is still being handled.
const MaxPendingPerUser = 32

var (
	// ErrStopped is returned by Enqueue once the dispatcher has shut down.
	ErrStopped = errors.New("dispatcher stopped")
	// ErrBusy is returned by Enqueue when the user's queue is full.
	ErrBusy = errors.New("too many pending updates for user")
)

// CallbackAnswerer acknowledges inline button presses.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Dispatcher routes updates to the dialogue service. Each user with pending
// updates gets one worker goroutine that handles them in arrival order and
// exits when the queue drains; different users never wait on each other.
type Dispatcher struct {
	svc      bot.Service
	answerer CallbackAnswerer
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
	stopped bool
}

func NewDispatcher(svc bot.Service, answerer CallbackAnswerer, log *logger.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		svc:      svc,
		answerer: answerer,
		log:      log.WithComponent("dispatcher"),
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[int64][]tgbotapi.Update),
	}
}

// Run blocks until ctx is cancelled, then stops accepting updates, cancels
// in-flight handlers and waits for them to return.
func (d *Dispatcher) Run(ctx context.Context) error {
	<-ctx.Done()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	return nil
}

// Enqueue queues upd behind the same user's earlier updates. It never blocks.
func (d *Dispatcher) Enqueue(_ context.Context, upd tgbotapi.Update) error {
	userID := senderID(upd)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}
	queue, active := d.pending[userID]
	if len(queue) >= MaxPendingPerUser {
		return ErrBusy
	}
	d.pending[userID] = append(queue, upd)

	if !active {
		d.wg.Add(1)
		go d.drain(userID)
	}
	return nil
}

// drain handles the user's queue until it is empty.
func (d *Dispatcher) drain(userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.pending[userID]
		if len(queue) == 0 {
			delete(d.pending, userID)
			d.mu.Unlock()
			return
		}
		upd := queue[0]
		d.pending[userID] = queue[1:]
		d.mu.Unlock()

		d.Handle(d.ctx, upd)
	}
}

// Handle processes one update synchronously.
func (d *Dispatcher) Handle(ctx context.Context, upd tgbotapi.Update) {
	ctx = logger.ContextWithRequestID(ctx, uuid.NewString())
	log := d.log.WithContext(ctx)

	var err error
	switch {
	case upd.CallbackQuery != nil:
		err = d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		err = d.handleMessage(ctx, upd.Message)
	default:
		log.Debug("update ignored", "update_id", upd.UpdateID)
		return
	}
	if err != nil {
		log.Error("handle update", "update_id", upd.UpdateID, "error", err)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil || m.Chat == nil {
		return nil
	}
	ev := bot.Event{UserID: m.From.ID, ChatID: m.Chat.ID, Text: m.Text}

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			return d.svc.HandleStart(ctx, ev)
		case "reset":
			return d.svc.HandleReset(ctx, ev)
		default:
			d.log.WithContext(ctx).Debug("unknown command", "command", m.Command())
			return nil
		}
	}

	if m.Text == "" {
		return nil
	}
	return d.svc.HandleMessage(ctx, ev)
}

func (d *Dispatcher) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.From == nil {
		return nil
	}
	if err := d.answerer.AnswerCallback(ctx, q.ID); err != nil {
		d.log.WithContext(ctx).Warn("answer callback", "error", err)
	}

	ev := bot.Event{UserID: q.From.ID, ChatID: q.From.ID}
	if q.Message != nil && q.Message.Chat != nil {
		ev.ChatID = q.Message.Chat.ID
		ev.MessageID = q.Message.MessageID
	}

	switch q.Data {
	case bot.CallbackStartChat:
		return d.svc.HandleBeginDialogue(ctx, ev)
	case bot.CallbackResetChat:
		return d.svc.HandleReset(ctx, ev)
	default:
		d.log.WithContext(ctx).Debug("unknown callback", "data", q.Data)
		return nil
	}
}

func senderID(upd tgbotapi.Update) int64 {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID
	}
	return 0
}
