// Package session keeps live streaming documents. Each session owns a
// buffer and a parser whose block cache carries over between appends, so
// a growing document only pays for its changed tail.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mdschema/internal/chunker"
	"github.com/dgallion1/mdschema/internal/doctree"
	"github.com/dgallion1/mdschema/internal/parser"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session is closed")
	ErrFull     = errors.New("too many sessions")
)

// Update is the parse result sent after every change to a session.
type Update struct {
	Schema doctree.Nodes `json:"schema"`
	Seq    int           `json:"seq"`
}

// Session is one streaming document.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	cfg    parser.Config
	parser *parser.Parser
	buf    strings.Builder
	last   doctree.Nodes
	seq    int
	done   bool
}

// Append adds chunk to the buffer and reparses it.
func (s *Session) Append(chunk string) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Update{}, ErrClosed
	}
	s.buf.WriteString(chunk)
	return s.reparseLocked(), nil
}

// Replace swaps the whole buffer for md and reparses it.
func (s *Session) Replace(md string) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Update{}, ErrClosed
	}
	s.buf.Reset()
	s.buf.WriteString(md)
	return s.reparseLocked(), nil
}

// Finish closes the session to further edits and returns the final tree.
func (s *Session) Finish() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		s.UpdatedAt = time.Now()
	}
	return Update{Schema: s.last.Clone(), Seq: s.seq}
}

func (s *Session) reparseLocked() Update {
	res := s.parser.Parse(s.buf.String(), nil, s.cfg)
	s.seq++
	s.last = res.Schema
	s.UpdatedAt = time.Now()
	return Update{Schema: res.Schema.Clone(), Seq: s.seq}
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID        string        `json:"session_id"`
	Seq       int           `json:"seq"`
	Done      bool          `json:"done"`
	Bytes     int           `json:"bytes"`
	Tokens    int           `json:"tokens"`
	Schema    doctree.Nodes `json:"schema"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema := s.last.Clone()
	if schema == nil {
		schema = doctree.Nodes{doctree.EmptyParagraph()}
	}
	return Snapshot{
		ID:        s.ID,
		Seq:       s.seq,
		Done:      s.done,
		Bytes:     s.buf.Len(),
		Tokens:    chunker.EstimateTokens(s.buf.String()),
		Schema:    schema,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Markdown returns the buffered document.
func (s *Session) Markdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	opts     []parser.Option
	log      *slog.Logger
}

// NewStore returns a store that evicts sessions idle for longer than ttl
// and holds at most max sessions. opts configure each session's parser.
func NewStore(ttl time.Duration, max int, log *slog.Logger, opts ...parser.Option) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		opts:     opts,
		log:      log,
	}
}

// Create registers a new empty session.
func (st *Store) Create(cfg parser.Config) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.max > 0 && len(st.sessions) >= st.max {
		st.cleanupLocked()
		if len(st.sessions) >= st.max {
			return nil, fmt.Errorf("create session: %w (%d)", ErrFull, st.max)
		}
	}
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		cfg:       cfg,
		parser:    parser.New(append([]parser.Option{parser.WithLogger(st.log)}, st.opts...)...),
	}
	st.sessions[s.ID] = s
	st.log.Info("session created", "session_id", s.ID)
	return s, nil
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes the session with id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	st.log.Info("session deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Cleanup removes expired sessions and returns how many it removed.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cleanupLocked()
}

func (st *Store) cleanupLocked() int {
	if st.ttl <= 0 {
		return 0
	}
	now := time.Now()
	removed := 0
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.log.Info("expired sessions removed", "count", removed)
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Cleanup()
		}
	}
}
