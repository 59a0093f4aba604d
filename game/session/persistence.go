package session

import (
	"time"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/service"
)

// SessionPersistence stores session snapshots outside the process.
type SessionPersistence interface {
	Save(session *service.Session) error
	// Load wraps ErrSessionNotFound when id was never saved.
	Load(id string) (*service.Session, error)
	Delete(id string) error
	// ListAll returns the IDs of every stored session.
	ListAll() ([]string, error)
	Exists(id string) bool
}

// PersistedSessionData is the JSON snapshot of a session. The board is stored
// in full so a session survives edits to the library file it came from.
type PersistedSessionData struct {
	ID             string    `json:"id"`
	BoardName      string    `json:"board_name"`
	BarrierMode    string    `json:"barrier_mode"`
	Board          string    `json:"board"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

func snapshotOf(sess *service.Session) PersistedSessionData {
	return PersistedSessionData{
		ID:             sess.ID,
		BoardName:      sess.BoardName,
		BarrierMode:    sess.Rules.BarrierMode().String(),
		Board:          board.Format(sess.Board()),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
}

// restore rebuilds the session's board and movement rules.
func (d PersistedSessionData) restore() (*service.Session, error) {
	b, err := board.Parse(d.Board)
	if err != nil {
		return nil, errors.WithMessagef(err, "session %s", d.ID)
	}
	mode, err := engine.ParseBarrierMode(d.BarrierMode)
	if err != nil {
		return nil, errors.WithMessagef(err, "session %s", d.ID)
	}
	rules, err := engine.NewRules(b, engine.WithBarrierMode(mode))
	if err != nil {
		return nil, errors.WithMessagef(err, "session %s", d.ID)
	}
	return &service.Session{
		ID:             d.ID,
		BoardName:      d.BoardName,
		Rules:          rules,
		CreatedAt:      d.CreatedAt,
		LastAccessedAt: d.LastAccessedAt,
	}, nil
}
