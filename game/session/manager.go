package session

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles planning session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	mu          sync.RWMutex
}

var _ service.SessionManager = (*Manager)(nil)

// NewManager creates a new in-memory session manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*service.Session)}
}

// NewManagerWithPersistence creates a session manager that mirrors sessions
// to persistence
func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
	}
}

// Create registers a new session. An empty id is replaced by a random one.
func (m *Manager) Create(id, boardName string, rules *engine.Rules) (*service.Session, error) {
	if rules == nil {
		return nil, errors.New("session rules cannot be nil")
	}
	if id == "" {
		id = m.generateSessionID()
	}
	if !validID(id) {
		return nil, errors.Wrapf(ErrInvalidSessionID, "%q", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; exists {
		return nil, errors.Wrap(ErrSessionAlreadyExists, id)
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		BoardName:      boardName,
		Rules:          rules,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key] = sess

	if m.persistence != nil {
		if err := m.persistence.Save(sess); err != nil {
			klog.Warningf("failed to persist session %s: %v", id, err)
		}
	}
	klog.V(1).Infof("created session %s on board %s", id, boardName)
	return sess, nil
}

// Get retrieves a session by ID (case-insensitive), falling back to
// persistence for sessions not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	if !validID(id) {
		return nil, errors.Wrapf(ErrSessionNotFound, "%q", id)
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if exists {
		return sess, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		sess, err := m.persistence.Load(id)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to load persisted session")
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if cached, exists := m.sessions[strings.ToLower(id)]; exists {
			return cached, nil
		}
		m.sessions[strings.ToLower(id)] = sess
		return sess, nil
	}

	return nil, errors.Wrap(ErrSessionNotFound, id)
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	_, inMemory := m.sessions[key]
	delete(m.sessions, key)

	if validID(id) && m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return errors.WithMessage(err, "failed to delete persisted session")
		}
		return nil
	}
	if !inMemory {
		return errors.Wrap(ErrSessionNotFound, id)
	}
	return nil
}

// DeleteFromMemory removes a session from memory only
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return errors.Wrap(ErrSessionNotFound, id)
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return errors.Wrap(ErrSessionNotFound, id)
	}
	sess.LastAccessedAt = time.Now()

	if m.persistence != nil {
		if err := m.persistence.Save(sess); err != nil {
			klog.Warningf("failed to persist session %s after access update: %v", id, err)
		}
	}
	return nil
}

// Save writes a session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return errors.Wrap(ErrSessionNotFound, id)
	}
	return m.persistence.Save(sess)
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration and returns how many were removed
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, sess := range m.sessions {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	if removed > 0 {
		klog.V(1).Infof("expired %d idle sessions", removed)
	}
	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID returns a random 4-character hex ID not yet in use
func (m *Manager) generateSessionID() string {
	buf := make([]byte, 2)
	for {
		_, _ = rand.Read(buf)
		id := hex.EncodeToString(buf)
		m.mu.RLock()
		_, taken := m.sessions[id]
		m.mu.RUnlock()
		if !taken {
			return id
		}
	}
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return errors.WithMessage(err, "failed to list persisted sessions")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.sessions[strings.ToLower(id)]; exists {
			continue
		}
		sess, err := m.persistence.Load(id)
		if err != nil {
			klog.Warningf("failed to load persisted session %s: %v", id, err)
			continue
		}
		m.sessions[strings.ToLower(id)] = sess
		loaded++
	}
	if loaded > 0 {
		klog.Infof("loaded %d persisted sessions from storage", loaded)
	}
	return nil
}

// SaveAllSessions writes every in-memory session to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()
	failed := 0
	for _, sess := range sessions {
		if err := m.persistence.Save(sess); err != nil {
			klog.Warningf("failed to save session %s: %v", sess.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("failed to save %d sessions", failed)
	}
	return nil
}

// validID accepts IDs made of letters, digits, '-' and '_'.
func validID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
