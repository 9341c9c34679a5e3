package provider

import (
	"sync"

	apperrors "github.com/spec-kit/helpdesk-gateway/pkg/util"
)

// EventHandler receives the callbacks a session adapter raises from its
// socket goroutines.
type EventHandler interface {
	OnMessagesUpsert(session Session, upsert MessageUpsert)
	OnMessagesUpdate(session Session, updates []AckUpdate)
	OnCall(session Session, call CallEvent)
}

// ConnectionManager owns the mapping from channel-number id to its active
// session. It replaces ambient global socket state: the routing core receives
// a manager and never touches SDK handles directly.
type ConnectionManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	handler  EventHandler
}

// NewConnectionManager creates an empty manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{sessions: make(map[int64]Session)}
}

// SetHandler installs the event handler session adapters dispatch into. Set
// once at startup, before any session connects.
func (m *ConnectionManager) SetHandler(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Handler returns the installed event handler.
func (m *ConnectionManager) Handler() EventHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handler
}

// Register installs the session for its channel number, replacing any
// previous handle.
func (m *ConnectionManager) Register(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID()] = session
}

// Unregister drops the session for a channel number. In-flight work keeps the
// handle it already resolved; only new lookups fail.
func (m *ConnectionManager) Unregister(channelNumberID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, channelNumberID)
}

// Get resolves the active session for a channel number.
func (m *ConnectionManager) Get(channelNumberID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[channelNumberID]
	if !ok {
		return nil, apperrors.NewDomainError("ERR_WAPP_NOT_INITIALIZED", "no active session for channel number", 404, map[string]any{
			"channel_number_id": channelNumberID,
		})
	}
	return session, nil
}
