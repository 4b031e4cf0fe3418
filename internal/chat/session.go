// Package chat holds assistant conversations.
//
// A Session starts uninitialized and becomes active on first use, seeded with
// a localized greeting. Changing the language discards the conversation and
// seeds it again. Failed turns are absorbed as a placeholder reply; a session
// never enters an error state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
)

var (
	// ErrEmptyMessage is returned by Send for blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned by Send while another send is outstanding.
	ErrBusy = errors.New("a message is already being answered")

	// ErrSessionReset is returned by Send when the session was reseeded
	// while the reply was in flight. The reply is discarded.
	ErrSessionReset = errors.New("session was reset during the turn")
)

// Role is the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one entry of a conversation.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

type state int

const (
	stateUninitialized state = iota
	stateActive
)

// Session is one conversation. It is safe for concurrent use, but only one
// Send may be outstanding at a time.
type Session struct {
	id      string
	gen     genai.Generator
	builder *prompt.Builder
	logger  *logging.Logger
	metrics *Metrics
	now     func() time.Time

	mu         sync.Mutex
	state      state
	lang       lang.Language
	messages   []Message
	history    []genai.Content // successful turns only, greeting excluded
	busy       bool
	epoch      uint64
	lastActive time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *logging.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithSessionMetrics sets the chat metrics.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates an uninitialized session answering in l.
func NewSession(gen genai.Generator, builder *prompt.Builder, l lang.Language, opts ...SessionOption) *Session {
	if !l.Valid() {
		l = lang.Default
	}
	s := &Session{
		id:      uuid.NewString(),
		gen:     gen,
		builder: builder,
		logger:  logging.Nop(),
		now:     time.Now,
		lang:    l,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Language returns the language the session answers in.
func (s *Session) Language() lang.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Busy reports whether a send is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Messages returns a copy of the conversation, activating the session if
// needed.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activateLocked()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetLanguage switches the session to l. A different language, or a first
// use, discards the conversation and seeds it with the greeting for l.
// Unsupported languages are treated as the default.
func (s *Session) SetLanguage(l lang.Language) {
	if !l.Valid() {
		l = lang.Default
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateActive && s.lang == l {
		return
	}
	s.lang = l
	s.reseedLocked()
}

func (s *Session) activateLocked() {
	if s.state == stateUninitialized {
		s.reseedLocked()
	}
}

func (s *Session) reseedLocked() {
	s.state = stateActive
	s.epoch++
	s.history = nil
	s.messages = []Message{s.newMessage(RoleModel, s.lang.Text(lang.ChatGreeting))}
	s.lastActive = s.now()
}

func (s *Session) newMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now().UnixMilli(),
	}
}

// Send submits a user message and waits for the reply. On endpoint failure
// a localized placeholder is appended and returned together with the error.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	s.activateLocked()
	if s.busy {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.busy = true
	s.messages = append(s.messages, s.newMessage(RoleUser, text))
	s.lastActive = s.now()
	epoch := s.epoch
	l := s.lang
	history := make([]genai.Content, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	ctx = logging.WithSessionID(ctx, s.id)
	req := s.builder.Build(prompt.Input{Kind: prompt.KindChat, Text: text, Language: l, History: history})
	resp, err := s.gen.Generate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastActive = s.now()

	if s.epoch != epoch {
		s.logger.Debug(ctx, "discarding reply for reseeded chat session")
		return Message{}, ErrSessionReset
	}

	if err != nil {
		reply := s.newMessage(RoleModel, l.Text(lang.ChatError))
		s.messages = append(s.messages, reply)
		s.recordTurn("error")
		s.logger.Warn(ctx, "chat turn failed", zap.Error(err))
		return reply, fmt.Errorf("chat turn: %w", err)
	}

	reply := s.newMessage(RoleModel, resp.Text)
	s.messages = append(s.messages, reply)
	s.history = append(s.history,
		genai.Content{Role: genai.RoleUser, Parts: []genai.Part{genai.TextPart(text)}},
		genai.Content{Role: genai.RoleModel, Parts: []genai.Part{genai.TextPart(resp.Text)}},
	)
	s.recordTurn("ok")
	s.logger.Debug(ctx, "chat turn complete", zap.Int("turns", len(s.history)/2))
	return reply, nil
}

func (s *Session) recordTurn(outcome string) {
	if s.metrics != nil {
		s.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	}
}
