package chat

import (
	"errors"
	"sync"

	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("chat session not found")

// DefaultMaxSessions bounds a Store when no limit is configured.
const DefaultMaxSessions = 1000

// Store keeps sessions in memory. When full, creating a session evicts the
// least recently active idle one.
type Store struct {
	gen     genai.Generator
	builder *prompt.Builder
	opts    []SessionOption
	max     int
	metrics *Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) StoreOption {
	return func(st *Store) {
		if n > 0 {
			st.max = n
		}
	}
}

// WithStoreLogger sets the logger handed to new sessions.
func WithStoreLogger(l *logging.Logger) StoreOption {
	return func(st *Store) { st.opts = append(st.opts, WithSessionLogger(l)) }
}

// WithStoreMetrics records chat metrics.
func WithStoreMetrics(m *Metrics) StoreOption {
	return func(st *Store) {
		st.metrics = m
		st.opts = append(st.opts, WithSessionMetrics(m))
	}
}

// NewStore creates an empty Store.
func NewStore(gen genai.Generator, builder *prompt.Builder, opts ...StoreOption) *Store {
	st := &Store{
		gen:      gen,
		builder:  builder,
		max:      DefaultMaxSessions,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Create starts a session in l, seeded with its greeting.
func (st *Store) Create(l lang.Language) *Session {
	s := NewSession(st.gen, st.builder, l, st.opts...)
	s.SetLanguage(s.Language())

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.sessions) >= st.max {
		st.evictLocked()
	}
	st.sessions[s.ID()] = s
	st.updateGaugeLocked()
	return s
}

// evictLocked drops the least recently active session that is not busy.
// If every session is busy the oldest is dropped anyway.
func (st *Store) evictLocked() {
	var victim, busyVictim *Session
	for _, s := range st.sessions {
		if s.Busy() {
			if busyVictim == nil || s.LastActive().Before(busyVictim.LastActive()) {
				busyVictim = s
			}
			continue
		}
		if victim == nil || s.LastActive().Before(victim.LastActive()) {
			victim = s
		}
	}
	if victim == nil {
		victim = busyVictim
	}
	if victim != nil {
		delete(st.sessions, victim.ID())
		if st.metrics != nil {
			st.metrics.EvictionsTotal.Inc()
		}
	}
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session with id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	st.updateGaugeLocked()
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) updateGaugeLocked() {
	if st.metrics != nil {
		st.metrics.SessionsActive.Set(float64(len(st.sessions)))
	}
}
