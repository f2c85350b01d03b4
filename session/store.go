package session

import (
	"sync"
)

// Session is the persisted auth state. Token handling is a pass-through:
// the backend issues it, the store carries it, the guard checks presence.
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   string
	Token  string
}

// Empty reports whether no one is signed in.
func (s Session) Empty() bool { return s.Token == "" && s.UserID == "" }

// Storage persists session fields across restarts. MemoryStorage is used in
// tests; the gateway uses cookie storage on its own responses.
type Storage interface {
	Save(s Session) error
	Load() (Session, error)
	Clear() error
}

// Store is the single mutation point for auth state. Consumers subscribe
// for change notifications instead of watching storage side effects.
type Store struct {
	mu        sync.Mutex
	current   Session
	storage   Storage
	listeners map[int]func(Session)
	nextID    int
}

// NewStore creates a store backed by storage; a nil storage keeps the
// session in memory only. A persisted session is restored if present.
func NewStore(storage Storage) *Store {
	s := &Store{storage: storage, listeners: map[int]func(Session){}}
	if storage != nil {
		if restored, err := storage.Load(); err == nil {
			s.current = restored
		}
	}
	return s
}

// Current returns the signed-in session, possibly empty.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the session (login) and notifies subscribers.
func (s *Store) Set(sess Session) error {
	s.mu.Lock()
	s.current = sess
	var err error
	if s.storage != nil {
		err = s.storage.Save(sess)
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(sess)
	}
	return err
}

// Clear wipes every persisted field (logout) and notifies subscribers, so
// role-gated UI drops without any reload trickery.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = Session{}
	var err error
	if s.storage != nil {
		err = s.storage.Clear()
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(Session{})
	}
	return err
}

// Subscribe registers fn for session changes and returns its unsubscribe.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotListeners() []func(Session) {
	out := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu   sync.Mutex
	held Session
}

func (m *MemoryStorage) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = s
	return nil
}

func (m *MemoryStorage) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held, nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = Session{}
	return nil
}
