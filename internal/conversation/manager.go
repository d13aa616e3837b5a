package conversation

import (
	"context"
	"sync"

	"github.com/ffstudios/pantrybot/internal/action"
)

// Store persists per-user conversation state between messages. The transport
// layer chooses the implementation; the blob stays opaque to it.
type Store interface {
	Get(userID int64) *State
	Put(userID int64, st *State)
	Clear(userID int64)
}

// MemoryStore is an in-memory Store for tests and single-process bots.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]*State
}

// NewMemoryStore constructs an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]*State)}
}

// Get returns the stored state for a user, or an idle state.
func (s *MemoryStore) Get(userID int64) *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[userID]; ok {
		return st
	}
	return &State{}
}

// Put replaces the state for a user.
func (s *MemoryStore) Put(userID int64, st *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = st
}

// Clear removes the state for a user.
func (s *MemoryStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// Manager serializes conversation processing per user and moves state
// through the store. Messages from one user are handled in arrival order;
// different users proceed concurrently.
type Manager struct {
	engine *Engine
	store  Store

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewManager wires an engine with a state store.
func NewManager(engine *Engine, store Store) *Manager {
	return &Manager{
		engine: engine,
		store:  store,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Process runs one parse through the engine under the user's lock.
func (m *Manager) Process(ctx context.Context, userID int64, parse action.Parse) Reply {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	st, reply := m.engine.Step(ctx, m.store.Get(userID), parse)
	if st.Idle() {
		m.store.Clear(userID)
	} else {
		m.store.Put(userID, st)
	}
	return reply
}

// InProgress reports whether the user has an action awaiting fields.
func (m *Manager) InProgress(userID int64) bool {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return !m.store.Get(userID).Idle()
}

// Pending returns a copy of the user's pending action, if any. The transport
// uses it to give the supplement parser the action kind and missing fields.
func (m *Manager) Pending(userID int64) (Pending, bool) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	st := m.store.Get(userID)
	if st.Idle() {
		return Pending{}, false
	}
	cp := *st.Pending
	cp.Missing = append([]action.FieldName(nil), st.Pending.Missing...)
	return cp, true
}

// Cancel discards the user's pending action and reports whether one existed.
func (m *Manager) Cancel(userID int64) bool {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	had := !m.store.Get(userID).Idle()
	m.store.Clear(userID)
	return had
}
