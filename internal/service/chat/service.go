package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/genie-widget/internal/model/chat"
	"github.com/zhouzirui/genie-widget/internal/widget"
)

var (
	ErrWidgetRequired  = errors.New("widget is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Service tracks the widget sessions of connected pages.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	widgets  map[string]*widget.Widget
}

// NewService returns an empty in-memory session registry.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		widgets:  make(map[string]*widget.Widget),
	}
}

// CreateSession registers w under a fresh session identifier.
func (s *Service) CreateSession(_ context.Context, w *widget.Widget) (chat.Session, error) {
	if w == nil {
		return chat.Session{}, ErrWidgetRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.widgets[session.ID] = w
	s.mu.Unlock()

	return session, nil
}

// CloseSession forgets the session. Closing an unknown session is not an error.
func (s *Service) CloseSession(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	delete(s.widgets, sessionID)
	s.mu.Unlock()
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Snapshot returns the current widget state of a session.
func (s *Service) Snapshot(_ context.Context, sessionID string) (widget.State, error) {
	s.mu.RLock()
	w, ok := s.widgets[sessionID]
	s.mu.RUnlock()
	if !ok {
		return widget.State{}, ErrSessionNotFound
	}
	return w.Snapshot(), nil
}

// Count returns the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
