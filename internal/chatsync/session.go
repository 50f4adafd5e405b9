package chatsync

import (
	"context"
	"sync"

	"github.com/pavelanni/examgen/internal/model"
)

// Session is the client's view of one subject's chat. It keeps the last
// authoritative snapshot from the backend and, separately, the messages
// appended locally since then. A fresh snapshot replaces both.
type Session struct {
	subject model.Subject
	ctx     context.Context
	cancel  context.CancelFunc
	onState func(model.Subject, State)

	mu       sync.Mutex
	state    State
	snapshot []model.ChatMessage
	pending  []model.ChatMessage
}

func newSession(subject model.Subject, onState func(model.Subject, State)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		subject: subject,
		ctx:     ctx,
		cancel:  cancel,
		onState: onState,
		state:   StateIdle,
	}
}

// Subject returns the subject this session belongs to.
func (s *Session) Subject() model.Subject {
	return s.subject
}

// State returns the state of the current turn.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the snapshot followed by pending messages.
func (s *Session) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, 0, len(s.snapshot)+len(s.pending))
	out = append(out, s.snapshot...)
	out = append(out, s.pending...)
	return out
}

// AppendNotice adds a client-side assistant notice to the pending view.
func (s *Session) AppendNotice(text string) {
	s.appendPending(model.ChatMessage{Role: model.RoleAssistant, Content: text, Local: true})
}

// Close cancels any in-flight turn or poll. It is safe to call more than once.
func (s *Session) Close() {
	s.cancel()
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// begin starts a turn: it rejects overlapping turns and appends the user
// message optimistically.
func (s *Session) begin(userMsg model.ChatMessage) error {
	s.mu.Lock()
	if s.Closed() {
		s.mu.Unlock()
		return ErrStaleSession
	}
	if s.state.Busy() {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.state = StateSending
	s.pending = append(s.pending, userMsg)
	s.mu.Unlock()

	s.notify(StateSending)
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.notify(st)
}

func (s *Session) notify(st State) {
	if s.onState != nil {
		s.onState(s.subject, st)
	}
}

func (s *Session) appendPending(msg model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
}

// replace installs a new authoritative snapshot and drops pending messages.
func (s *Session) replace(msgs []model.ChatMessage) {
	snapshot := make([]model.ChatMessage, len(msgs))
	copy(snapshot, msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.pending = nil
}

// backendCount is the number of messages in the view the backend also holds.
func (s *Session) backendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.snapshot)
	for _, m := range s.pending {
		if !m.Local {
			n++
		}
	}
	return n
}
