package ai

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/Vovarama1992/synaplink-bot/internal/config"
	"github.com/Vovarama1992/synaplink-bot/internal/lead"
	"github.com/Vovarama1992/synaplink-bot/internal/logger"
	"github.com/Vovarama1992/synaplink-bot/internal/store"
)

// PollConfig bounds how long SendMessage waits for a run.
type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    time.Second,
		MaxInterval: 8 * time.Second,
		Timeout:     2 * time.Minute,
	}
}

// PollConfigFrom reads poll settings from cfg.
func PollConfigFrom(cfg config.OpenAIConfig) PollConfig {
	return PollConfig{
		Interval:    cfg.GetPollInterval(),
		MaxInterval: cfg.GetPollMaxInterval(),
		Timeout:     cfg.GetRunTimeout(),
	}
}

var errRunPending = errors.New("run still pending")

type conversation struct {
	backend  Backend
	threads  store.KV
	detector *lead.Detector
	poll     PollConfig
	creating singleflight.Group
	log      *logger.Logger
}

// NewConversation keeps thread handles in threads, keyed by user id.
func NewConversation(backend Backend, threads store.KV, detector *lead.Detector, poll PollConfig, log *logger.Logger) Conversation {
	return &conversation{
		backend:  backend,
		threads:  threads,
		detector: detector,
		poll:     poll,
		log:      log.WithComponent("ai"),
	}
}

func (c *conversation) SendMessage(ctx context.Context, userID int64, text string) string {
	log := c.log.WithContext(ctx).WithUserID(userID)

	reply, err := c.exchange(ctx, userID, text)
	if err != nil {
		log.Error("assistant exchange failed",
			"kind", GetKind(err).String(),
			"error", err,
		)
		return Apology(err)
	}

	log.Debug("assistant reply", "chars", len(reply))
	return reply
}

func (c *conversation) ResetConversation(ctx context.Context, userID int64) error {
	if err := c.threads.Delete(ctx, userKey(userID)); err != nil {
		return newError(KindStore, "forget thread", err)
	}
	c.log.WithContext(ctx).WithUserID(userID).Info("conversation reset")
	return nil
}

func (c *conversation) exchange(ctx context.Context, userID int64, text string) (string, error) {
	threadID, err := c.threadFor(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := c.backend.AppendUserMessage(ctx, threadID, text); err != nil {
		return "", newError(KindTransport, "append message", err)
	}

	run, err := c.backend.CreateRun(ctx, threadID)
	if err != nil {
		return "", newError(KindTransport, "create run", err)
	}
	if run.ID == "" {
		return "", newError(KindMalformed, "create run", errors.New("run without id"))
	}

	if err := c.awaitRun(ctx, threadID, run); err != nil {
		return "", err
	}

	content, err := c.backend.LatestAssistantMessage(ctx, threadID)
	if errors.Is(err, ErrNoAssistantMessage) {
		return "", newError(KindNoReply, "latest message", err)
	}
	if err != nil {
		return "", newError(KindTransport, "latest message", err)
	}

	if c.detector.IsLeadCandidate(content) {
		return lead.Normalize(content), nil
	}
	return content, nil
}

// threadFor returns the user's thread, creating it on first use. Concurrent
// callers for the same user share one creation.
func (c *conversation) threadFor(ctx context.Context, userID int64) (string, error) {
	key := userKey(userID)

	v, err, _ := c.creating.Do(key, func() (any, error) {
		// Callers joining this flight must not fail because the first one
		// went away.
		ctx := context.WithoutCancel(ctx)

		id, ok, err := c.threads.Get(ctx, key)
		if err != nil {
			return "", newError(KindStore, "load thread", err)
		}
		if ok {
			return id, nil
		}

		id, err = c.backend.CreateThread(ctx)
		if err != nil {
			return "", newError(KindTransport, "create thread", err)
		}
		if err := c.threads.Set(ctx, key, id); err != nil {
			return "", newError(KindStore, "save thread", err)
		}

		c.log.WithContext(ctx).WithUserID(userID).Info("thread created", "thread_id", id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// awaitRun polls the run with exponential backoff until it reaches a
// terminal status or the poll budget runs out.
func (c *conversation) awaitRun(ctx context.Context, threadID string, run Run) error {
	b := retry.NewExponential(c.poll.Interval)
	b = retry.WithCappedDuration(c.poll.MaxInterval, b)
	b = retry.WithMaxDuration(c.poll.Timeout, b)

	last := run.Status
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		current, err := c.backend.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return newError(KindTransport, "retrieve run", err)
		}
		last = current.Status

		switch current.Status {
		case RunCompleted:
			return nil
		case RunFailed, RunCancelled, RunExpired, RunIncomplete:
			return newError(KindFailed, "run "+string(current.Status), errors.New(current.LastError))
		default:
			return retry.RetryableError(errRunPending)
		}
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errRunPending), errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, "await run", errors.New("last status "+string(last)))
	default:
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return newError(KindTransport, "await run", err)
	}
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
