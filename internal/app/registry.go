package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/domain"
)

// Entry is what the registry keeps per mounted client.
type Entry struct {
	Session  *core.MediaSession
	RoomName domain.RoomName
	Room     core.Room
}

// Registry maps client tokens to their mounted lobby session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Entry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*Entry),
	}
}

// Bind stores sess for sid and returns the entry it replaced, if any.
func (r *Registry) Bind(sid core.SessionID, sess *core.MediaSession) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.sessions[sid]
	r.sessions[sid] = &Entry{Session: sess}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Bool("replaced", ok).Msg("bound session")
	return prev, ok
}

func (r *Registry) Get(sid core.SessionID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// SetRoom records the room a session joined. It fails when sess is no
// longer the one bound to sid.
func (r *Registry) SetRoom(sid core.SessionID, sess *core.MediaSession, name domain.RoomName, room core.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Session != sess {
		return false
	}
	e.RoomName = name
	e.Room = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(name)).Msg("updated room")
	return true
}

// Unbind removes sid if it is still bound to sess (nil matches any).
func (r *Registry) Unbind(sid core.SessionID, sess *core.MediaSession) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || (sess != nil && e.Session != sess) {
		return nil, false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e, true
}

func (r *Registry) SIDs() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid := range r.sessions {
		out = append(out, sid)
	}
	return out
}
