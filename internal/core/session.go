package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dkeye/lobby/internal/domain"
)

type SessionID string

type Phase int32

const (
	PhasePreviewing Phase = iota
	PhaseJoined
)

func (p Phase) String() string {
	switch p {
	case PhasePreviewing:
		return "previewing"
	case PhaseJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// State is a read-only view of a MediaSession for APIs.
type State struct {
	ID          SessionID `json:"id"`
	Phase       string    `json:"phase"`
	DisplayName string    `json:"display_name"`
	HasAudio    bool      `json:"has_audio"`
	HasVideo    bool      `json:"has_video"`
	Acquiring   bool      `json:"acquiring"`
	Previewing  bool      `json:"previewing"`
	Closed      bool      `json:"closed"`
	LastError   string    `json:"last_error,omitempty"`
}

// MediaSession owns the local tracks from mount until they are either
// handed to a room (Join) or released (Close).
//
// All fields below mu are only touched with mu held. The tracks are read
// at the moment Close or Join runs, never from a copy taken earlier.
type MediaSession struct {
	id     SessionID
	media  MediaLayer
	logger zerolog.Logger

	// ctx scopes the automatic acquisition; Close and Join cancel it.
	ctx    context.Context
	cancel context.CancelFunc
	flight singleflight.Group
	wg     sync.WaitGroup

	mu          sync.Mutex
	phase       Phase
	displayName string
	audio       Track
	video       Track
	surface     PreviewSurface
	attached    Track
	bound       Track
	autoStarted bool
	acquiring   bool
	closed      bool
	lastErr     error
}

// NewMediaSession mounts a session in the Previewing phase with no tracks.
// Nothing is requested from the platform until a preview surface shows up.
func NewMediaSession(ctx context.Context, id SessionID, media MediaLayer) *MediaSession {
	ctx, cancel := context.WithCancel(ctx)
	return &MediaSession{
		id:     id,
		media:  media,
		ctx:    ctx,
		cancel: cancel,
		phase:  PhasePreviewing,
		logger: log.With().
			Str("module", "core.session").
			Str("sid", string(id)).
			Logger(),
	}
}

func (s *MediaSession) ID() SessionID { return s.id }

func (s *MediaSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *MediaSession) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// SetDisplayName records the name typed by the user. It is only editable
// while previewing; after Join the name belongs to the room.
func (s *MediaSession) SetDisplayName(name string) error {
	if err := domain.ValidateDisplayName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase == PhaseJoined {
		return ErrAlreadyJoined
	}
	s.displayName = name
	return nil
}

// SurfaceReady is called every time the preview surface is (re)rendered.
// The first call starts the one automatic acquisition of this mount; every
// call binds the video track if it is already there.
func (s *MediaSession) SurfaceReady(surface PreviewSurface) {
	if surface == nil {
		return
	}

	s.mu.Lock()
	if s.closed || s.phase == PhaseJoined {
		s.mu.Unlock()
		return
	}
	if s.surface != surface {
		s.detachLocked()
		s.surface = surface
	}
	s.bindPreviewLocked()

	start := !s.autoStarted
	s.autoStarted = true
	if start {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if start {
		go func() {
			defer s.wg.Done()
			// Failures are already logged and kept in lastErr.
			_ = s.Acquire(s.ctx)
		}()
	}
}

// Wait blocks until the automatic acquisition, if any, has settled.
func (s *MediaSession) Wait() {
	s.wg.Wait()
}

// Snapshot returns the current state for APIs.
func (s *MediaSession) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:          s.id,
		Phase:       s.phase.String(),
		DisplayName: s.displayName,
		HasAudio:    s.audio != nil,
		HasVideo:    s.video != nil,
		Acquiring:   s.acquiring,
		Previewing:  s.bound != nil,
		Closed:      s.closed,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Close is the unmount finalizer. While previewing it releases every track
// the session still owns; after Join it leaves the tracks to the room.
// Only the first call has an effect.
func (s *MediaSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	var owned Capture
	if s.phase == PhasePreviewing {
		s.detachLocked()
		owned = Capture{Audio: s.audio, Video: s.video}
		s.audio, s.video = nil, nil
	}
	s.surface = nil
	phase := s.phase
	s.mu.Unlock()

	s.cancel()
	owned.Release()

	s.logger.Info().
		Str("phase", phase.String()).
		Bool("released_audio", owned.Audio != nil).
		Bool("released_video", owned.Video != nil).
		Msg("session closed")
}
