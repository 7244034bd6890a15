// Package session holds the shared "now playing" state and the set of connected viewers.
// A State is owned by exactly one hub; nothing else mutates it.
package session

import (
	"sync"

	"github.com/jamoveo/backend/internal/models"
)

// Conn is a registered viewer connection. Send must not block: implementations
// enqueue the payload and return an error when they cannot accept it.
type Conn interface {
	ID() string
	Role() models.Role
	Send(payload []byte) error
}

// State is the current selection plus the connection set.
type State struct {
	mu      sync.RWMutex
	current *models.SongSelection
	conns   map[string]Conn
}

// NewState creates an empty State with no song playing.
func NewState() *State {
	return &State{conns: make(map[string]Conn)}
}

// Current returns the song currently playing, if any.
func (s *State) Current() (models.SongSelection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.SongSelection{}, false
	}
	return *s.current, true
}

// SetCurrent replaces the current song.
func (s *State) SetCurrent(sel models.SongSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sel
}

// ClearCurrent marks that no song is playing.
func (s *State) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Add registers conn. Re-adding the same ID replaces the previous handle.
func (s *State) Add(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ID()] = conn
}

// Remove unregisters the connection with the given ID and reports whether it was present.
func (s *State) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[id]; !ok {
		return false
	}
	delete(s.conns, id)
	return true
}

// Snapshot returns the registered connections at this instant.
func (s *State) Snapshot() []Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered connections.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
