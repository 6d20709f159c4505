package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/synaplink-bot/internal/config"
)

const messagePageSize = 20

// OpenAIBackend talks to the OpenAI Assistants API.
type OpenAIBackend struct {
	client      *openai.Client
	assistantID string
}

func NewOpenAIBackend(cfg config.OpenAIConfig) *OpenAIBackend {
	oc := openai.DefaultConfig(cfg.GetOpenAIAPIKey())
	if base := cfg.GetOpenAIBaseURL(); base != "" {
		oc.BaseURL = base
	}

	return &OpenAIBackend{
		client:      openai.NewClientWithConfig(oc),
		assistantID: cfg.GetOpenAIAssistantID(),
	}
}

func (b *OpenAIBackend) CreateThread(ctx context.Context) (string, error) {
	thread, err := b.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", err
	}
	if thread.ID == "" {
		return "", errors.New("thread created without id")
	}
	return thread.ID, nil
}

func (b *OpenAIBackend) AppendUserMessage(ctx context.Context, threadID, text string) error {
	_, err := b.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    "user",
		Content: text,
	})
	return err
}

func (b *OpenAIBackend) CreateRun(ctx context.Context, threadID string) (Run, error) {
	run, err := b.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: b.assistantID,
	})
	if err != nil {
		return Run{}, err
	}
	return toRun(run), nil
}

func (b *OpenAIBackend) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := b.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, err
	}
	return toRun(run), nil
}

func (b *OpenAIBackend) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := messagePageSize
	order := "desc"

	list, err := b.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", err
	}

	for _, msg := range list.Messages {
		if msg.Role != "assistant" {
			continue
		}
		if len(msg.Content) == 0 || msg.Content[0].Text == nil {
			return "", nil
		}
		return msg.Content[0].Text.Value, nil
	}
	return "", ErrNoAssistantMessage
}

func toRun(r openai.Run) Run {
	out := Run{ID: r.ID, Status: RunStatus(r.Status)}
	if r.LastError != nil {
		out.LastError = fmt.Sprintf("%s: %s", r.LastError.Code, r.LastError.Message)
	}
	return out
}
