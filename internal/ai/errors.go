package ai

import (
	"errors"
	"fmt"
)

// Kind tells apart the places an exchange can fail.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport covers an unreachable service or a rejected request.
	KindTransport
	// KindFailed is a run that ended in failed, cancelled or expired.
	KindFailed
	// KindTimeout is a run that did not finish within the poll budget.
	KindTimeout
	// KindNoReply is a completed run with no assistant message in the thread.
	KindNoReply
	// KindMalformed is a response the backend could not interpret.
	KindMalformed
	// KindStore is a failure reading or writing the thread handle.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFailed:
		return "failed"
	case KindTimeout:
		return "timeout"
	case KindNoReply:
		return "no_reply"
	case KindMalformed:
		return "malformed"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Apology texts shown to the user instead of an assistant reply.
const (
	ApologyFailed  = "Извините, произошла ошибка. Попробуйте позже."
	ApologyNoReply = "Извините, не удалось получить ответ от ассистента."
	ApologyGeneric = "Произошла ошибка. Попробуйте позже."
)

// ErrNoAssistantMessage is returned by Backend.LatestAssistantMessage.
var ErrNoAssistantMessage = errors.New("no assistant message in thread")

// Error is a failed exchange step.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// GetKind extracts the Kind of err, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Apology maps a failed exchange to the text the user sees.
func Apology(err error) string {
	switch GetKind(err) {
	case KindFailed:
		return ApologyFailed
	case KindNoReply:
		return ApologyNoReply
	default:
		return ApologyGeneric
	}
}
