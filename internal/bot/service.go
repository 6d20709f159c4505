package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vovarama1992/synaplink-bot/internal/ai"
	"github.com/Vovarama1992/synaplink-bot/internal/lead"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
)

// Options are the deployment-specific bits of the dialogue.
type Options struct {
	// WorkingChatID receives completed applications.
	WorkingChatID string
	// LogoSource is a URL or a local file path; empty disables the logo.
	LogoSource   string
	ChecklistURL string
}

type service struct {
	sessions  SessionStore
	conv      ai.Conversation
	detector  *lead.Detector
	transport Transport
	notifier  Notifier
	opts      Options
	log       *logger.Logger
}

func NewService(
	sessions SessionStore,
	conv ai.Conversation,
	detector *lead.Detector,
	transport Transport,
	notifier Notifier,
	opts Options,
	log *logger.Logger,
) Service {
	return &service{
		sessions:  sessions,
		conv:      conv,
		detector:  detector,
		transport: transport,
		notifier:  notifier,
		opts:      opts,
		log:       log.WithComponent("bot"),
	}
}

func (s *service) HandleStart(ctx context.Context, ev Event) error {
	log := s.log.WithContext(ctx).WithUserID(ev.UserID)

	if err := s.sessions.SetState(ctx, ev.UserID, StateStart); err != nil {
		log.Error("save session state", "state", StateStart, "error", err)
	}

	s.sendLogo(ctx, ev.ChatID, log)

	button := Button{Text: BeginDialogueButton, Data: CallbackStartChat}
	if err := s.transport.DeliverWithButton(ctx, ev.ChatID, WelcomeText, button); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}

	if s.opts.ChecklistURL != "" {
		if err := s.transport.SendDocument(ctx, ev.ChatID, s.opts.ChecklistURL, ChecklistCaption); err != nil {
			log.Error("send checklist", "error", err)
		}
	}
	return nil
}

func (s *service) HandleBeginDialogue(ctx context.Context, ev Event) error {
	log := s.log.WithContext(ctx).WithUserID(ev.UserID)

	if err := s.sessions.SetState(ctx, ev.UserID, StateChatting); err != nil {
		log.Error("save session state", "state", StateChatting, "error", err)
		return s.transport.DeliverToUser(ctx, ev.ChatID, ProcessingApology)
	}
	log.Info("dialogue started")

	text := DialogueStartedFallback
	if reply := s.conv.SendMessage(ctx, ev.UserID, OpeningPrompt); strings.TrimSpace(reply) != "" {
		text = DialogueStartedPrefix + reply
	}

	return s.show(ctx, ev, text)
}

func (s *service) HandleReset(ctx context.Context, ev Event) error {
	log := s.log.WithContext(ctx).WithUserID(ev.UserID)

	if err := s.conv.ResetConversation(ctx, ev.UserID); err != nil {
		log.Error("reset conversation", "error", err)
	}
	if err := s.sessions.SetState(ctx, ev.UserID, StateStart); err != nil {
		log.Error("save session state", "state", StateStart, "error", err)
	}

	return s.show(ctx, ev, ResetText)
}

func (s *service) HandleMessage(ctx context.Context, ev Event) error {
	log := s.log.WithContext(ctx).WithUserID(ev.UserID)

	state, ok, err := s.sessions.State(ctx, ev.UserID)
	if err != nil {
		log.Error("load session state", "error", err)
		return s.transport.DeliverToUser(ctx, ev.ChatID, ProcessingApology)
	}
	if !ok || state != StateChatting {
		return s.transport.DeliverToUser(ctx, ev.ChatID, RestartPrompt)
	}

	if err := s.transport.SendTyping(ctx, ev.ChatID); err != nil {
		log.Debug("send typing", "error", err)
	}

	reply := s.conv.SendMessage(ctx, ev.UserID, ev.Text)

	if s.detector.IsFinalApplication(reply) {
		s.forwardApplication(ctx, ev.UserID, reply, log)
	}

	if err := s.transport.DeliverToUser(ctx, ev.ChatID, reply); err != nil {
		log.Error("deliver assistant reply", "error", err)
		if err := s.transport.DeliverToUser(ctx, ev.ChatID, ProcessingApology); err != nil {
			return fmt.Errorf("deliver apology: %w", err)
		}
	}
	return nil
}

// forwardApplication is best-effort: a failed delivery is retried once and
// then only logged.
func (s *service) forwardApplication(ctx context.Context, userID int64, reply string, log *logger.Logger) {
	attrs := []any{"channel_id", s.opts.WorkingChatID}
	if rec, ok := s.detector.Extract(reply, userID); ok {
		attrs = append(attrs, "lead_name", rec.Get(lead.KeyName), "lead_phone", rec.PhoneE164())
	}

	text := applicationAlert(userID, reply)
	err := s.notifier.DeliverToChannel(ctx, s.opts.WorkingChatID, text)
	if err != nil {
		log.Warn("forward application, retrying", append(attrs, "error", err)...)
		err = s.notifier.DeliverToChannel(ctx, s.opts.WorkingChatID, text)
	}
	if err != nil {
		log.Error("application not delivered", append(attrs, "error", err)...)
		return
	}
	log.Info("application forwarded", attrs...)
}

// show edits the message the button was pressed on, or sends a new one.
func (s *service) show(ctx context.Context, ev Event, text string) error {
	if ev.MessageID != 0 {
		err := s.transport.ReplaceMessage(ctx, ev.ChatID, ev.MessageID, text)
		if err == nil {
			return nil
		}
		s.log.WithContext(ctx).WithUserID(ev.UserID).Warn("edit message, sending instead", "error", err)
	}
	return s.transport.DeliverToUser(ctx, ev.ChatID, text)
}

func (s *service) sendLogo(ctx context.Context, chatID int64, log *logger.Logger) {
	if s.opts.LogoSource == "" {
		return
	}
	if err := s.transport.SendPhoto(ctx, chatID, s.opts.LogoSource, LogoCaption); err != nil {
		log.Error("send logo", "source", s.opts.LogoSource, "error", err)
		if err := s.transport.DeliverToUser(ctx, chatID, LogoCaption); err != nil {
			log.Error("send text logo", "error", err)
		}
	}
}
