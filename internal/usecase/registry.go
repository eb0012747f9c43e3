package usecase

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Conn is the transport handle of a session. Send must not block; an error means the
// connection is gone and the event was dropped.
type Conn interface {
	Send(event entity.Event) error
}

// Session is a connected client. Name and MatchID are only written by the GameManager
// while it holds its lock.
type Session struct {
	ID      string
	Name    string
	Conn    Conn
	MatchID string
}

func (that *Session) IsAuthenticated() bool {
	return that.Name != ""
}

func (that *Session) InMatch() bool {
	return that.MatchID != ""
}

// ConnectionRegistry owns every live session, keyed by connection identity.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sessions: make(map[string]*Session),
	}
}

func (that *ConnectionRegistry) Register(id string, conn Conn) *Session {
	session := &Session{ID: id, Conn: conn}

	that.mu.Lock()
	that.sessions[id] = session
	that.mu.Unlock()

	return session
}

// Bind sets the display name. Names are labels, several sessions may share one.
func (that *ConnectionRegistry) Bind(id, name string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return apperror.ErrSessionNotFound
	}

	session.Name = name

	return nil
}

func (that *ConnectionRegistry) Lookup(id string) (*Session, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[id]

	return session, ok
}

func (that *ConnectionRegistry) Unregister(id string) {
	that.mu.Lock()
	delete(that.sessions, id)
	that.mu.Unlock()
}

func (that *ConnectionRegistry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}
