package chatsync

import (
	"time"

	"github.com/pavelanni/examgen/internal/model"
)

// Default polling policy: roughly thirty seconds of recovery.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 15
)

// State is the lifecycle state of a session's current turn.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateDegraded  State = "degraded"
	StateDelivered State = "delivered"
	StateFailed    State = "failed"
)

// Busy reports whether a turn is still in flight.
func (s State) Busy() bool {
	return s == StateSending || s == StateDegraded
}

// PollState tracks one degraded recovery. It lives only until the reply
// arrives, the budget runs out, or the session is torn down.
type PollState struct {
	SubjectID            int64
	BaselineMessageCount int
	LastSeenCount        int
	Attempt              int
	MaxAttempts          int
	Interval             time.Duration
}

// Verdict is the outcome of one poll.
type Verdict int

const (
	VerdictRetry Verdict = iota
	VerdictDelivered
	VerdictExhausted
)

func (v Verdict) String() string {
	switch v {
	case VerdictDelivered:
		return "delivered"
	case VerdictExhausted:
		return "exhausted"
	default:
		return "retry"
	}
}

// Step folds one history fetch into the poll state. A failed fetch or a
// history shorter than one already seen counts as an unmet attempt.
func Step(s PollState, fetched []model.ChatMessage, fetchErr error) (PollState, Verdict) {
	if fetchErr == nil && len(fetched) >= s.LastSeenCount {
		s.LastSeenCount = len(fetched)
		if Arrived(s.BaselineMessageCount, fetched) {
			return s, VerdictDelivered
		}
	}
	if s.Attempt >= s.MaxAttempts {
		return s, VerdictExhausted
	}
	s.Attempt++
	return s, VerdictRetry
}

// Arrived reports whether fetched holds a new assistant turn past baseline.
func Arrived(baseline int, fetched []model.ChatMessage) bool {
	return len(fetched) > baseline && fetched[len(fetched)-1].Role == model.RoleAssistant
}
