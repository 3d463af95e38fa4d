package chat

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is the outbound half of one submission. Seq ties the eventual
// Reply back to the submission that produced it.
type Request struct {
	Seq     int
	Content string
}

type Reply struct {
	Seq     int
	Content string
	Err     error
}

// Session is the conversation state for one process lifetime. It is not safe
// for concurrent use; the presentation layer owns it and mutates it from a
// single event loop.
type Session struct {
	id      string
	history []Message
	draft   string
	pending bool
	seq     int
}

func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Draft() string { return s.draft }

func (s *Session) Pending() bool { return s.pending }

func (s *Session) Len() int { return len(s.history) }

// History returns a copy of the transcript, oldest first.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) UpdateDraft(text string) {
	s.draft = text
}

// Submit moves the draft into the transcript and marks the session pending.
// It reports false without touching any state when the draft is blank or a
// request is already in flight.
func (s *Session) Submit() (Request, bool) {
	if s.pending || strings.TrimSpace(s.draft) == "" {
		return Request{}, false
	}
	content := s.draft
	s.history = append(s.history, Message{Role: RoleUser, Content: content})
	s.draft = ""
	s.pending = true
	s.seq++
	return Request{Seq: s.seq, Content: content}, true
}

// Resolve settles the in-flight request. A reply for anything other than the
// current request is dropped, so pending flips back exactly once.
func (s *Session) Resolve(r Reply) bool {
	if !s.pending || r.Seq != s.seq {
		return false
	}
	if r.Err == nil {
		s.history = append(s.history, Message{Role: RoleAssistant, Content: r.Content})
	}
	s.pending = false
	return true
}
