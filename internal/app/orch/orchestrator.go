package orch

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/app"
	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/domain"
)

var ErrNoSession = errors.New("no lobby session")

// Orchestrator ties client tokens to lobby sessions and rooms.
type Orchestrator struct {
	Registry    *app.Registry
	Rooms       *app.RoomManager
	Media       core.MediaLayer
	DefaultRoom domain.RoomName
}

// Mount creates the lobby session of sid. A session already mounted for
// the same client is torn down first so only one of them holds devices.
func (o *Orchestrator) Mount(ctx context.Context, sid core.SessionID) *core.MediaSession {
	sess := core.NewMediaSession(ctx, sid, o.Media)
	if prev, ok := o.Registry.Bind(sid, sess); ok {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("replacing mounted session")
		o.teardown(prev)
	}
	return sess
}

// Unmount tears down sess if it is still the one mounted for sid.
func (o *Orchestrator) Unmount(sid core.SessionID, sess *core.MediaSession) {
	if e, ok := o.Registry.Unbind(sid, sess); ok {
		o.teardown(e)
	}
}

func (o *Orchestrator) teardown(e *app.Entry) {
	if e.Room != nil {
		e.Room.Leave()
	}
	e.Session.Close()
}

func (o *Orchestrator) session(sid core.SessionID) (*core.MediaSession, error) {
	e, ok := o.Registry.Get(sid)
	if !ok {
		return nil, ErrNoSession
	}
	return e.Session, nil
}

func (o *Orchestrator) SurfaceReady(sid core.SessionID, surface core.PreviewSurface) error {
	sess, err := o.session(sid)
	if err != nil {
		return err
	}
	sess.SurfaceReady(surface)
	return nil
}

func (o *Orchestrator) Rename(sid core.SessionID, name string) error {
	sess, err := o.session(sid)
	if err != nil {
		return err
	}
	return sess.SetDisplayName(name)
}

func (o *Orchestrator) Retry(ctx context.Context, sid core.SessionID) error {
	sess, err := o.session(sid)
	if err != nil {
		return err
	}
	return sess.Acquire(ctx)
}

// Join hands the session's tracks to the named room (DefaultRoom when empty).
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, roomName string) (domain.RoomName, error) {
	sess, err := o.session(sid)
	if err != nil {
		return "", err
	}
	name, err := domain.NewRoomName(roomName, o.DefaultRoom)
	if err != nil {
		return "", err
	}

	handle, err := sess.Join(ctx, o.Rooms.GetOrCreate(name))
	if err != nil {
		return "", err
	}
	if !o.Registry.SetRoom(sid, sess, name, handle) {
		// Unmounted while joining: nobody else will make it leave.
		handle.Leave()
		return "", core.ErrSessionClosed
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(name)).Msg("joined room")
	return name, nil
}

// State reports the session of sid together with its room, if joined.
func (o *Orchestrator) State(sid core.SessionID) (core.State, domain.RoomName, bool) {
	e, ok := o.Registry.Get(sid)
	if !ok {
		return core.State{}, "", false
	}
	return e.Session.Snapshot(), e.RoomName, true
}

// Shutdown unmounts every session and evicts every room.
func (o *Orchestrator) Shutdown() {
	for _, sid := range o.Registry.SIDs() {
		if e, ok := o.Registry.Unbind(sid, nil); ok {
			o.teardown(e)
		}
	}
	o.Rooms.StopAll()
	log.Info().Str("module", "orch").Msg("all sessions released")
}
