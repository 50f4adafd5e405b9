// Package chatsync drives chat turns against the backend and recovers from
// failed synchronous replies by polling the transcript history.
//
// A history fetch that fails while polling, or returns fewer messages than
// an earlier one, counts as an unmet attempt and polling goes on. Only the
// exhausted budget or a cancelled context ends the poll early.
package chatsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pavelanni/examgen/internal/model"
)

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrSubjectNotActive = errors.New("subject is not the active session")
	ErrTurnInFlight     = errors.New("a turn is already in flight for this subject")
	ErrSyncTimeout      = errors.New("assistant reply did not arrive in time")
	ErrStaleSession     = errors.New("session was replaced before the reply arrived")
)

// Backend is the part of the API client the controller needs.
type Backend interface {
	Chat(ctx context.Context, subjectID int64, message string) (*model.ChatReply, error)
	History(ctx context.Context, subjectID int64) ([]model.ChatMessage, error)
}

// Cache persists the latest authoritative transcript of a subject.
type Cache interface {
	ReplaceTranscript(subjectID int64, msgs []model.ChatMessage) error
}

// Clock schedules the delay between polls.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Notices are the user-facing texts the controller adds to a transcript.
type Notices struct {
	Greeting   func(model.Subject) string
	SyncFailed string
}

// Config holds the controller's polling policy and collaborators.
// Zero values fall back to the defaults.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	Clock        Clock
	Cache        Cache
	Notices      Notices
	OnState      func(model.Subject, State)
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	if c.Notices.Greeting == nil {
		c.Notices.Greeting = func(s model.Subject) string {
			return fmt.Sprintf("Hello! I'm ready to help you generate exam questions for **%s**. What topic should we cover?", s.Name)
		}
	}
	if c.Notices.SyncFailed == "" {
		c.Notices.SyncFailed = "**Sync failed.** The AI is taking longer than usual. Please refresh manually in a moment."
	}
}

// Controller owns the active chat session. At most one session is active;
// opening another one tears the previous one down first.
type Controller struct {
	backend Backend
	cfg     Config

	mu     sync.Mutex
	active *Session
}

// New creates a controller.
func New(backend Backend, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{backend: backend, cfg: cfg}
}

// Open makes subject the active session and loads its history. A failed
// load is logged and leaves the session with only a greeting.
func (c *Controller) Open(ctx context.Context, subject model.Subject) *Session {
	sess := newSession(subject, c.cfg.OnState)

	c.mu.Lock()
	if c.active != nil {
		c.active.Close()
	}
	c.active = sess
	c.mu.Unlock()

	msgs, err := c.backend.History(ctx, subject.ID)
	if err != nil {
		slog.Warn("failed to load chat history", "subject_id", subject.ID, "error", err)
		sess.AppendNotice(c.cfg.Notices.Greeting(subject))
		return sess
	}
	if !c.deliver(sess, subject.ID, msgs) {
		return sess
	}
	if len(msgs) == 0 {
		sess.AppendNotice(c.cfg.Notices.Greeting(subject))
	}
	slog.Debug("opened chat session", "subject_id", subject.ID, "messages", len(msgs))
	return sess
}

// Active returns the active session, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close tears down the active session.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
}

// SendTurn sends text for the active subject and waits for the assistant's
// reply. When the direct call fails it polls the history instead; only an
// exhausted poll budget is reported, as ErrSyncTimeout.
func (c *Controller) SendTurn(ctx context.Context, subjectID int64, text string) (model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}
	sess := c.sessionFor(subjectID)
	if sess == nil {
		return model.ChatMessage{}, ErrSubjectNotActive
	}
	if err := sess.begin(model.ChatMessage{Role: model.RoleUser, Content: text}); err != nil {
		return model.ChatMessage{}, err
	}

	// Tearing the session down cancels the turn.
	turnCtx, stop := context.WithCancel(ctx)
	defer stop()
	unregister := context.AfterFunc(sess.ctx, stop)
	defer unregister()

	reply, err := c.backend.Chat(turnCtx, subjectID, text)
	if err == nil {
		msg := model.ChatMessage{Role: model.RoleAssistant, Content: reply.Answer, Context: reply.ContextUsed}
		if !c.appendReply(sess, subjectID, msg) {
			return model.ChatMessage{}, ErrStaleSession
		}
		return msg, nil
	}
	if turnCtx.Err() != nil {
		return model.ChatMessage{}, c.abandon(sess, turnCtx.Err())
	}

	st := PollState{
		SubjectID:            subjectID,
		BaselineMessageCount: sess.backendCount(),
		MaxAttempts:          c.cfg.MaxAttempts,
		Interval:             c.cfg.PollInterval,
	}
	slog.Warn("direct chat failed, polling history",
		"subject_id", subjectID,
		"baseline", st.BaselineMessageCount,
		"error", err,
	)
	sess.setState(StateDegraded)
	return c.poll(turnCtx, sess, st)
}

func (c *Controller) poll(ctx context.Context, sess *Session, st PollState) (model.ChatMessage, error) {
	for {
		msgs, err := c.backend.History(ctx, st.SubjectID)
		if ctx.Err() != nil {
			return model.ChatMessage{}, c.abandon(sess, ctx.Err())
		}
		switch {
		case err != nil:
			slog.Warn("history poll failed", "subject_id", st.SubjectID, "attempt", st.Attempt, "error", err)
		case len(msgs) < st.LastSeenCount:
			slog.Warn("history shrank while polling", "subject_id", st.SubjectID, "seen", st.LastSeenCount, "got", len(msgs))
		}

		next, verdict := Step(st, msgs, err)
		switch verdict {
		case VerdictDelivered:
			if !c.deliver(sess, st.SubjectID, msgs) {
				return model.ChatMessage{}, ErrStaleSession
			}
			sess.setState(StateDelivered)
			slog.Info("assistant reply recovered from history", "subject_id", st.SubjectID, "attempt", st.Attempt)
			return msgs[len(msgs)-1], nil
		case VerdictExhausted:
			slog.Warn("gave up waiting for assistant reply", "subject_id", st.SubjectID, "attempts", st.Attempt)
			c.fail(sess, st.SubjectID)
			return model.ChatMessage{}, ErrSyncTimeout
		}

		st = next
		select {
		case <-ctx.Done():
			return model.ChatMessage{}, c.abandon(sess, ctx.Err())
		case <-c.cfg.Clock.After(st.Interval):
		}
	}
}

func (c *Controller) sessionFor(subjectID int64) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.subject.ID != subjectID {
		return nil
	}
	return c.active
}

// isCurrent must be called with c.mu held.
func (c *Controller) isCurrent(sess *Session, subjectID int64) bool {
	return c.active == sess && sess.subject.ID == subjectID && !sess.Closed()
}

// deliver installs msgs as the session's snapshot unless the session was
// replaced in the meantime.
func (c *Controller) deliver(sess *Session, subjectID int64, msgs []model.ChatMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrent(sess, subjectID) {
		slog.Debug("discarding transcript for inactive session", "subject_id", subjectID)
		return false
	}
	sess.replace(msgs)
	if c.cfg.Cache != nil {
		if err := c.cfg.Cache.ReplaceTranscript(subjectID, msgs); err != nil {
			slog.Warn("failed to cache transcript", "subject_id", subjectID, "error", err)
		}
	}
	return true
}

func (c *Controller) appendReply(sess *Session, subjectID int64, msg model.ChatMessage) bool {
	c.mu.Lock()
	current := c.isCurrent(sess, subjectID)
	if current {
		sess.appendPending(msg)
	}
	c.mu.Unlock()

	if !current {
		slog.Debug("discarding reply for inactive session", "subject_id", subjectID)
		return false
	}
	sess.setState(StateDelivered)
	return true
}

func (c *Controller) fail(sess *Session, subjectID int64) {
	c.mu.Lock()
	current := c.isCurrent(sess, subjectID)
	if current {
		sess.AppendNotice(c.cfg.Notices.SyncFailed)
	}
	c.mu.Unlock()

	sess.setState(StateFailed)
}

// abandon ends a turn whose context was cancelled. A torn-down session
// reports ErrStaleSession; otherwise the session becomes usable again.
func (c *Controller) abandon(sess *Session, cause error) error {
	if sess.Closed() {
		return ErrStaleSession
	}
	sess.setState(StateIdle)
	return fmt.Errorf("turn cancelled: %w", cause)
}
