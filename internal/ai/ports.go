package ai

import "context"

// RunStatus is the lifecycle state of one assistant run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Run is one asynchronous assistant turn on a thread.
type Run struct {
	ID        string
	Status    RunStatus
	LastError string
}

// Backend is the hosted assistant's stateful conversation API. It knows
// nothing about users, sessions or leads.
type Backend interface {
	CreateThread(ctx context.Context) (string, error)
	AppendUserMessage(ctx context.Context, threadID, text string) error
	CreateRun(ctx context.Context, threadID string) (Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	// LatestAssistantMessage returns ErrNoAssistantMessage when the thread has
	// no assistant-authored message.
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// Conversation exchanges a user's text for the assistant's reply, keeping one
// thread per user.
type Conversation interface {
	// SendMessage never fails outward: problems are logged and turned into a
	// fixed apology text.
	SendMessage(ctx context.Context, userID int64, text string) string
	// ResetConversation forgets the user's thread. The remote thread is left
	// as is.
	ResetConversation(ctx context.Context, userID int64) error
}
