// Package sessionstore implements play.SessionStore on redis, or in memory when redis is disabled.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core/play"
	"github.com/trezcool/quizdesk/core/quiz"
)

var nowFunc = time.Now // mockable

type memoryEntry struct {
	session   play.Session
	expiresAt time.Time
}

// MemoryStore is a process-local store. Sessions expire after ttl of inactivity; 0 keeps them forever.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
}

var _ play.SessionStore = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), ttl: ttl}
}

func (st *MemoryStore) expiry() time.Time {
	if st.ttl <= 0 {
		return time.Time{}
	}
	return nowFunc().Add(st.ttl)
}

// lookup returns a live entry, dropping it when expired. Callers hold st.mu.
func (st *MemoryStore) lookup(id string) (memoryEntry, bool) {
	e, ok := st.sessions[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !nowFunc().Before(e.expiresAt) {
		delete(st.sessions, id)
		return memoryEntry{}, false
	}
	return e, true
}

func (st *MemoryStore) Create(_ context.Context, s play.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.lookup(s.ID); ok {
		return errors.Errorf("session %s already exists", s.ID)
	}
	st.sessions[s.ID] = memoryEntry{session: copySession(s), expiresAt: st.expiry()}
	return nil
}

func (st *MemoryStore) Get(_ context.Context, id string) (play.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.lookup(id)
	if !ok {
		return play.Session{}, play.ErrSessionNotFound
	}
	return copySession(e.session), nil
}

func (st *MemoryStore) Update(_ context.Context, id string, fn func(*play.Session) error) (play.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.lookup(id)
	if !ok {
		return play.Session{}, play.ErrSessionNotFound
	}
	s := copySession(e.session)
	if err := fn(&s); err != nil {
		return play.Session{}, err
	}
	st.sessions[id] = memoryEntry{session: copySession(s), expiresAt: st.expiry()}
	return s, nil
}

func (st *MemoryStore) Delete(_ context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.lookup(id); !ok {
		return play.ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *MemoryStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id := range st.sessions {
		if _, ok := st.lookup(id); ok {
			n++
		}
	}
	return n
}

// copySession detaches the pointers and slices of the stored state from the caller's.
func copySession(s play.Session) play.Session {
	if s.State.Selected != nil {
		sel := *s.State.Selected
		s.State.Selected = &sel
	}
	if s.State.Answers != nil {
		s.State.Answers = append([]quiz.AnswerRecord(nil), s.State.Answers...)
	}
	return s
}
