// Package session tracks per-conversation state for the chat surface.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/seikyu/internal/models"
)

// Session is one chat conversation. Memory is append-only: every exchange is
// recorded and replayed into subsequent prompts.
type Session struct {
	ID     string
	Memory *models.Conversation
}

// Manager hands out sessions by ID. Sessions live for the process lifetime;
// there is no eviction.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session with the given ID, creating it if the ID is
// empty or unknown. The returned session carries its definitive ID.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{ID: id, Memory: &models.Conversation{}}
	m.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
